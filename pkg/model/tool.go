package model

import "encoding/json"

// ToolCall is one model-requested invocation of a named tool. Calls with
// identical names preserve the order in which the model emitted them.
type ToolCall struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// ErrorCode enumerates the closed set of non-fatal tool failure categories.
type ErrorCode string

const (
	ErrAccessDenied     ErrorCode = "ACCESS_DENIED"
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrNotUnique        ErrorCode = "NOT_UNIQUE"
	ErrInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	ErrIO               ErrorCode = "IO_ERROR"
	ErrTimeout          ErrorCode = "TIMEOUT"
	ErrBlocked          ErrorCode = "BLOCKED"
)

// FunctionResult is the outcome of dispatching one ToolCall. Result carries
// the tool's JSON success payload; on failure Error/ErrorCode/Context are
// set instead and Result is nil.
type FunctionResult struct {
	Name              string          `json:"name"`
	CallID            string          `json:"call_id"`
	Args              json.RawMessage `json:"args,omitempty"`
	Result            json.RawMessage `json:"result,omitempty"`
	Error             string          `json:"error,omitempty"`
	ErrorCode         ErrorCode       `json:"error_code,omitempty"`
	Context           map[string]any  `json:"context,omitempty"`
	NeedsConfirmation bool            `json:"needs_confirmation,omitempty"`
	DurationNanos     int64           `json:"duration_ns,omitempty"`
}

// IsError reports whether the result represents a tool failure.
func (r FunctionResult) IsError() bool { return r.Error != "" }

// ToolDeclaration is what a tool publishes to the LLM: its name, a
// human-readable description, and a JSON-schema subset for its parameters.
type ToolDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	Required    []string        `json:"required_fields,omitempty"`
}

// ReadOnlyTools is the fixed set of tool names the plan-mode gate permits
// while a plan is active.
var ReadOnlyTools = map[string]bool{
	"read":                    true,
	"glob":                    true,
	"grep":                    true,
	"list_directory":          true,
	"web_fetch":               true,
	"web_search":              true,
	"ask_user":                true,
	"todo_write":              true,
	"enter_plan_mode":         true,
	"exit_plan_mode":          true,
	"task_output":             true,
	"event_bus_list_sessions": true,
	"event_bus_list_channels": true,
	"event_bus_get_events":    true,
}

// IsReadOnlyTool reports whether name is in the read-only set consulted by
// plan mode. Any name not in the set is treated as write-class.
func IsReadOnlyTool(name string) bool {
	return ReadOnlyTools[name]
}
