package agent

import (
	"log/slog"
	"time"
)

// LoopConfig configures the agent loop's iteration cap, retry policy, and
// per-tool execution defaults.
type LoopConfig struct {
	// MaxIterations caps inner iterations per turn. Spec default: 100.
	MaxIterations int

	// MaxExtraRetries caps retries of a failed LLM stream. Default: 2.
	MaxExtraRetries int

	// RetryBaseDelay seeds the exponential backoff policy's initial delay
	// for a retried stream. Default: 500ms.
	RetryBaseDelay time.Duration

	// ToolTimeout is the default per-tool-call timeout. Default: 60s,
	// overridable up to 120s.
	ToolTimeout time.Duration

	// ContextTokenLimit is the fixed context window size context warnings
	// are measured against. Default: 1,000,000.
	ContextTokenLimit int64

	// ContextWarnThreshold is the fraction of ContextTokenLimit that
	// triggers a ContextWarning event. Default: 0.80.
	ContextWarnThreshold float64

	Logger *slog.Logger
}

// DefaultLoopConfig returns the spec-mandated defaults.
func DefaultLoopConfig() *LoopConfig {
	return &LoopConfig{
		MaxIterations:        100,
		MaxExtraRetries:      2,
		RetryBaseDelay:       500 * time.Millisecond,
		ToolTimeout:          60 * time.Second,
		ContextTokenLimit:    1_000_000,
		ContextWarnThreshold: 0.80,
		Logger:               slog.Default(),
	}
}

func sanitizeLoopConfig(cfg *LoopConfig) *LoopConfig {
	defaults := DefaultLoopConfig()
	if cfg == nil {
		return defaults
	}
	merged := *cfg
	if merged.MaxIterations <= 0 {
		merged.MaxIterations = defaults.MaxIterations
	}
	if merged.MaxExtraRetries < 0 {
		merged.MaxExtraRetries = defaults.MaxExtraRetries
	}
	if merged.RetryBaseDelay <= 0 {
		merged.RetryBaseDelay = defaults.RetryBaseDelay
	}
	if merged.ToolTimeout <= 0 {
		merged.ToolTimeout = defaults.ToolTimeout
	}
	if merged.ContextTokenLimit <= 0 {
		merged.ContextTokenLimit = defaults.ContextTokenLimit
	}
	if merged.ContextWarnThreshold <= 0 {
		merged.ContextWarnThreshold = defaults.ContextWarnThreshold
	}
	if merged.Logger == nil {
		merged.Logger = defaults.Logger
	}
	return &merged
}
