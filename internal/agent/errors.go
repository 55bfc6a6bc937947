package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evansenter/clemini-go/pkg/model"
)

// Sentinel errors for loop-level failures.
var (
	// ErrMaxIterations indicates the agent loop exceeded its iteration cap.
	ErrMaxIterations = errors.New("max iterations exceeded")

	// ErrNoProvider indicates no LLM provider is configured.
	ErrNoProvider = errors.New("no provider configured")

	// ErrToolNotFound indicates a requested tool doesn't exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolPanic indicates a tool panicked during execution.
	ErrToolPanic = errors.New("tool panicked")
)

// ToolError is a structured tool failure, convertible to the JSON
// {error, error_code, context} shape every tool returns on failure.
type ToolError struct {
	Code       model.ErrorCode
	ToolName   string
	ToolCallID string
	Message    string
	Cause      error
	Context    map[string]any
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	if e.ToolName != "" {
		parts = append(parts, e.ToolName)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause, if any.
func (e *ToolError) Unwrap() error { return e.Cause }

// Result converts the ToolError into the FunctionResult error shape fed
// back to the model.
func (e *ToolError) Result(name, callID string) model.FunctionResult {
	return model.FunctionResult{
		Name:      name,
		CallID:    callID,
		Error:     e.Error(),
		ErrorCode: e.Code,
		Context:   e.Context,
	}
}

// NewToolError builds a ToolError from a code and a cause.
func NewToolError(code model.ErrorCode, toolName string, cause error) *ToolError {
	e := &ToolError{Code: code, ToolName: toolName, Cause: cause}
	if cause != nil {
		e.Message = cause.Error()
	}
	return e
}

// IsRetryable reports whether an LLM transport error carries a
// best-effort retryable signal. Transport errors implement this directly;
// anything else is treated as non-retryable.
func IsRetryable(err error) bool {
	var r interface{ IsRetryable() bool }
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// RetryAfter extracts a server-suggested retry delay from an error that
// implements RetryAfter() (time.Duration, bool), if any.
type retryAfterProvider interface {
	RetryAfter() (int64, bool)
}

// LoopError carries phase/iteration context for a fatal loop failure.
type LoopError struct {
	Phase     LoopPhase
	Iteration int
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *LoopError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("loop error at %s (iteration %d): %s", e.Phase, e.Iteration, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("loop error at %s (iteration %d): %v", e.Phase, e.Iteration, e.Cause)
	}
	return fmt.Sprintf("loop error at %s (iteration %d)", e.Phase, e.Iteration)
}

// Unwrap returns the underlying cause.
func (e *LoopError) Unwrap() error { return e.Cause }

// LoopPhase names a distinct state in the agent loop state machine.
type LoopPhase string

const (
	PhaseInit         LoopPhase = "init"
	PhaseStream       LoopPhase = "stream"
	PhaseBackoff      LoopPhase = "backoff"
	PhaseExecuteTools LoopPhase = "execute_tools"
	PhaseContinue     LoopPhase = "continue"
	PhaseContextCheck LoopPhase = "context_check"
	PhaseComplete     LoopPhase = "complete"
	PhaseCancelled    LoopPhase = "cancelled"
)
