package main

import "testing"

func TestBuildRootCmdRegistersEveryFlag(t *testing.T) {
	cmd := buildRootCmd()

	required := []string{"prompt", "cwd", "acp-server", "mcp-server", "config", "log-level", "log-format", "log-file"}
	for _, name := range required {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("expected flag %q to be registered", name)
		}
	}
}

func TestBuildRootCmdDefaultsLogLevelAndFormat(t *testing.T) {
	cmd := buildRootCmd()

	level, err := cmd.Flags().GetString("log-level")
	if err != nil || level != "info" {
		t.Fatalf("expected default log-level info, got %q (err %v)", level, err)
	}
	format, err := cmd.Flags().GetString("log-format")
	if err != nil || format != "console" {
		t.Fatalf("expected default log-format console, got %q (err %v)", format, err)
	}
}
