package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHomeResolvesTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandHome("~/.clemini/fragment.yaml")
	if err != nil {
		t.Fatalf("expandHome: %v", err)
	}
	want := filepath.Join(home, ".clemini/fragment.yaml")
	if got != want {
		t.Fatalf("expandHome = %q, want %q", got, want)
	}
}

func TestExpandHomeLeavesOtherPathsUnchanged(t *testing.T) {
	got, err := expandHome("relative/path.yaml")
	if err != nil {
		t.Fatalf("expandHome: %v", err)
	}
	if got != "relative/path.yaml" {
		t.Fatalf("expandHome = %q, want unchanged path", got)
	}
}

func TestLoadRawResolvesHomeRelativeInclude(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if err := os.MkdirAll(filepath.Join(home, ".clemini"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	fragmentPath := filepath.Join(home, ".clemini", "fragment.yaml")
	if err := os.WriteFile(fragmentPath, []byte("llm:\n  model: gemini-2.0-flash\n"), 0o644); err != nil {
		t.Fatalf("write fragment: %v", err)
	}

	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.yaml")
	if err := os.WriteFile(mainPath, []byte("$include: ~/.clemini/fragment.yaml\n"), 0o644); err != nil {
		t.Fatalf("write main.yaml: %v", err)
	}

	raw, err := LoadRaw(mainPath)
	if err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	llm, ok := raw["llm"].(map[string]any)
	if !ok || llm["model"] != "gemini-2.0-flash" {
		t.Fatalf("expected included llm.model, got %+v", raw)
	}
}
