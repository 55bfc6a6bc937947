// Package config loads clemini's configuration from a YAML or JSON5 file
// with $include support, applies environment overrides and defaults, and
// validates the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the full configuration surface for a clemini process.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Tools     ToolsConfig     `yaml:"tools"`
	EventBus  EventBusConfig  `yaml:"event_bus"`
	PlanMode  PlanModeConfig  `yaml:"plan_mode"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LLMConfig selects the model and retry policy for the agent loop.
type LLMConfig struct {
	Model            string        `yaml:"model"`
	APIKeyEnv        string        `yaml:"api_key_env"`
	MaxExtraRetries  int           `yaml:"max_extra_retries"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`
	ContextWarningAt float64       `yaml:"context_warning_at"`
}

// WorkspaceConfig establishes the sandbox's allow-list roots.
type WorkspaceConfig struct {
	CWD       string   `yaml:"cwd"`
	AllowList []string `yaml:"allow_list"`
}

// ToolsConfig configures the tool layer's shared knobs.
type ToolsConfig struct {
	Bash  BashConfig  `yaml:"bash"`
	Read  ReadConfig  `yaml:"read"`
	Edit  EditConfig  `yaml:"edit"`
	Grep  GrepConfig  `yaml:"grep"`
	Fetch FetchConfig `yaml:"fetch"`
}

// BashConfig bounds the bash tool's subprocess timeouts.
type BashConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	MaxTimeout     time.Duration `yaml:"max_timeout"`
}

// ReadConfig bounds the read tool's per-call byte cap.
type ReadConfig struct {
	MaxBytes int `yaml:"max_bytes"`
}

// EditConfig tunes the edit tool's zero-match suggestion recovery.
type EditConfig struct {
	SuggestionTopK    int     `yaml:"suggestion_top_k"`
	SuggestionMinScore float64 `yaml:"suggestion_min_score"`
}

// GrepConfig bounds default grep result volume.
type GrepConfig struct {
	MaxResults int `yaml:"max_results"`
}

// FetchConfig bounds the web_fetch tool.
type FetchConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxChars int           `yaml:"max_chars"`
}

// EventBusConfig locates the persistent session/event store.
type EventBusConfig struct {
	Path            string        `yaml:"path"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	PruneAfterDays  int           `yaml:"prune_after_days"`
}

// PlanModeConfig locates the directory plan files are allocated under.
type PlanModeConfig struct {
	PlansDir string `yaml:"plans_dir"`
}

// LoggingConfig selects verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path (YAML or JSON5, $include-aware), applies environment
// overrides and defaults, validates, and returns the resolved Config.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default builds a Config from defaults alone, with no file on disk — the
// path the CLI takes when no --config flag points at an existing file.
// cwd, if non-empty, overrides the workspace default before defaulting
// fills in the rest.
func Default(cwd string) (*Config, error) {
	cfg := &Config{}
	if cwd != "" {
		cfg.Workspace.CWD = cwd
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-2.5-pro"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.LLM.MaxExtraRetries == 0 {
		cfg.LLM.MaxExtraRetries = 2
	}
	if cfg.LLM.RetryBaseDelay == 0 {
		cfg.LLM.RetryBaseDelay = time.Second
	}
	if cfg.LLM.ContextWarningAt == 0 {
		cfg.LLM.ContextWarningAt = 0.80
	}

	if cfg.Workspace.CWD == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.Workspace.CWD = wd
		}
	}
	if len(cfg.Workspace.AllowList) == 0 && cfg.Workspace.CWD != "" {
		cfg.Workspace.AllowList = []string{cfg.Workspace.CWD}
	}

	if cfg.Tools.Bash.DefaultTimeout == 0 {
		cfg.Tools.Bash.DefaultTimeout = 60 * time.Second
	}
	if cfg.Tools.Bash.MaxTimeout == 0 {
		cfg.Tools.Bash.MaxTimeout = 120 * time.Second
	}
	if cfg.Tools.Read.MaxBytes == 0 {
		cfg.Tools.Read.MaxBytes = 1 << 20
	}
	if cfg.Tools.Edit.SuggestionTopK == 0 {
		cfg.Tools.Edit.SuggestionTopK = 3
	}
	if cfg.Tools.Edit.SuggestionMinScore == 0 {
		cfg.Tools.Edit.SuggestionMinScore = 0.6
	}
	if cfg.Tools.Grep.MaxResults == 0 {
		cfg.Tools.Grep.MaxResults = 100
	}
	if cfg.Tools.Fetch.Timeout == 0 {
		cfg.Tools.Fetch.Timeout = 30 * time.Second
	}
	if cfg.Tools.Fetch.MaxChars == 0 {
		cfg.Tools.Fetch.MaxChars = 50_000
	}

	if cfg.EventBus.Path == "" {
		cfg.EventBus.Path = defaultUnderHome(".clemini/event_bus.db")
	}
	if cfg.EventBus.SessionTTL == 0 {
		cfg.EventBus.SessionTTL = 300 * time.Second
	}
	if cfg.EventBus.PruneAfterDays == 0 {
		cfg.EventBus.PruneAfterDays = 30
	}

	if cfg.PlanMode.PlansDir == "" {
		cfg.PlanMode.PlansDir = defaultUnderHome(".clemini/plans")
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func defaultUnderHome(rel string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return rel
	}
	return filepath.Join(home, rel)
}

func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if value := strings.TrimSpace(os.Getenv("CLEMINI_MODEL")); value != "" {
		cfg.LLM.Model = value
	}
	if value := strings.TrimSpace(os.Getenv("CLEMINI_CWD")); value != "" {
		cfg.Workspace.CWD = value
	}
	if value := strings.TrimSpace(os.Getenv("CLEMINI_BASH_TIMEOUT")); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			cfg.Tools.Bash.DefaultTimeout = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("CLEMINI_LOG_LEVEL")); value != "" {
		cfg.Logging.Level = value
	}
	if value := strings.TrimSpace(os.Getenv("CLEMINI_EVENT_BUS_PATH")); value != "" {
		cfg.EventBus.Path = value
	}
}

// ValidationError collects every configuration problem found at once,
// rather than failing on the first one.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validateConfig(cfg *Config) error {
	var issues []string

	if cfg.LLM.Model == "" {
		issues = append(issues, "llm.model must not be empty")
	}
	if cfg.LLM.ContextWarningAt <= 0 || cfg.LLM.ContextWarningAt > 1 {
		issues = append(issues, "llm.context_warning_at must be in (0, 1]")
	}
	if cfg.Workspace.CWD == "" {
		issues = append(issues, "workspace.cwd must not be empty")
	}
	if cfg.Tools.Bash.DefaultTimeout > cfg.Tools.Bash.MaxTimeout {
		issues = append(issues, "tools.bash.default_timeout must not exceed tools.bash.max_timeout")
	}
	if cfg.Tools.Edit.SuggestionMinScore < 0 || cfg.Tools.Edit.SuggestionMinScore > 1 {
		issues = append(issues, "tools.edit.suggestion_min_score must be in [0, 1]")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
