// Package model holds the data shapes shared across the agent loop, the
// tool substrate, the task registry and the event bus. Types here are kept
// free of behavior: they are wire/storage shapes, not services.
package model

import "time"

// CallInfo describes a tool call about to execute, carried on ToolExecuting.
type CallInfo struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// AgentEvent is the tagged-union event the agent loop emits to its single
// consumer. Exactly one field group is populated per event; callers switch
// on which field is non-zero rather than on a discriminator tag, matching
// the optional-fields pattern the rest of this codebase uses for streaming
// chunks.
type AgentEvent struct {
	// TextDelta carries incremental model text.
	TextDelta string `json:"text_delta,omitempty"`

	// ToolExecuting announces a batch of calls about to run.
	ToolExecuting []CallInfo `json:"tool_executing,omitempty"`

	// ToolResult reports one completed call.
	ToolResult *ToolResultEvent `json:"tool_result,omitempty"`

	// Complete marks the end of a turn.
	Complete *CompleteEvent `json:"complete,omitempty"`

	// ContextWarning fires once usage crosses the warning threshold.
	ContextWarning *ContextWarningEvent `json:"context_warning,omitempty"`

	// Cancelled is set (to true) when the run was cancelled.
	Cancelled bool `json:"cancelled,omitempty"`

	// ToolOutput is a free-form line a tool wants rendered immediately.
	ToolOutput string `json:"tool_output,omitempty"`

	// Retry reports a retryable stream failure and the backoff about to be taken.
	Retry *RetryEvent `json:"retry,omitempty"`
}

// ToolResultEvent is the payload of an AgentEvent carrying ToolResult.
type ToolResultEvent struct {
	Name     string        `json:"name"`
	CallID   string        `json:"call_id"`
	Args     map[string]any `json:"args,omitempty"`
	Result   any           `json:"result"`
	Duration time.Duration `json:"duration"`
}

// CompleteEvent is the payload of an AgentEvent carrying Complete.
type CompleteEvent struct {
	InteractionID string `json:"interaction_id"`
	Response      string `json:"response"`
}

// ContextWarningEvent is the payload of an AgentEvent carrying ContextWarning.
type ContextWarningEvent struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// RetryEvent is the payload of an AgentEvent carrying Retry.
type RetryEvent struct {
	Attempt int           `json:"attempt"`
	Max     int           `json:"max"`
	Delay   time.Duration `json:"delay"`
	Error   string        `json:"error"`
}

// TextDeltaEvent constructs an AgentEvent carrying a text delta.
func TextDeltaEvent(text string) AgentEvent { return AgentEvent{TextDelta: text} }

// ToolExecutingEvent constructs an AgentEvent announcing a call batch.
func ToolExecutingEvent(calls []CallInfo) AgentEvent { return AgentEvent{ToolExecuting: calls} }

// CancelledEvent constructs the sentinel cancellation event.
func CancelledEvent() AgentEvent { return AgentEvent{Cancelled: true} }
