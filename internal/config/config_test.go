package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultAppliesFallbacksAndAllowList(t *testing.T) {
	cfg, err := Default("/workspace/project")
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if cfg.Workspace.CWD != "/workspace/project" {
		t.Fatalf("expected cwd override, got %q", cfg.Workspace.CWD)
	}
	if len(cfg.Workspace.AllowList) != 1 || cfg.Workspace.AllowList[0] != "/workspace/project" {
		t.Fatalf("expected allow-list defaulted to cwd, got %v", cfg.Workspace.AllowList)
	}
	if cfg.LLM.Model == "" {
		t.Fatal("expected a default model")
	}
	if cfg.Tools.Bash.DefaultTimeout > cfg.Tools.Bash.MaxTimeout {
		t.Fatal("expected default timeout not to exceed max timeout")
	}
}

func TestDefaultHonorsEnvOverrides(t *testing.T) {
	t.Setenv("CLEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("CLEMINI_LOG_LEVEL", "debug")

	cfg, err := Default("")
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if cfg.LLM.Model != "gemini-2.5-pro" {
		t.Fatalf("expected env override for model, got %q", cfg.LLM.Model)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env override for log level, got %q", cfg.Logging.Level)
	}
}

func TestLoadResolvesIncludeAndExpandsEnv(t *testing.T) {
	t.Setenv("CLEMINI_TEST_MODEL", "gemini-2.0-flash")

	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.yaml")
	mainPath := filepath.Join(dir, "main.yaml")

	if err := os.WriteFile(basePath, []byte("llm:\n  model: ${CLEMINI_TEST_MODEL}\n"), 0o644); err != nil {
		t.Fatalf("write base.yaml: %v", err)
	}
	if err := os.WriteFile(mainPath, []byte("$include: base.yaml\nworkspace:\n  cwd: "+dir+"\n"), 0o644); err != nil {
		t.Fatalf("write main.yaml: %v", err)
	}

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gemini-2.0-flash" {
		t.Fatalf("expected included+expanded model, got %q", cfg.LLM.Model)
	}
	if cfg.Workspace.CWD != dir {
		t.Fatalf("expected cwd from main.yaml, got %q", cfg.Workspace.CWD)
	}
}

func TestValidateConfigRejectsBadTimeouts(t *testing.T) {
	cfg := &Config{}
	cfg.LLM.Model = "gemini-2.0-flash"
	cfg.LLM.ContextWarningAt = 0.8
	cfg.Workspace.CWD = "/tmp"
	cfg.Tools.Bash.DefaultTimeout = 200_000_000_000
	cfg.Tools.Bash.MaxTimeout = 100_000_000_000

	err := validateConfig(cfg)
	if err == nil {
		t.Fatal("expected validation error for default timeout exceeding max")
	}
}
