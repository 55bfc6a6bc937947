package agent

import (
	"context"
	"fmt"

	"github.com/evansenter/clemini-go/pkg/model"
)

// CompletionRequest is what the agent loop asks the LLM client to stream.
// Payload starts with the user's text on the first iteration of a turn and
// with function-result entries on subsequent iterations.
type CompletionRequest struct {
	Model                  string
	System                 string
	PreviousInteractionID  string
	Tools                  []model.ToolDeclaration
	Payload                []PayloadEntry
}

// PayloadEntry is one entry of a CompletionRequest's content list: either
// free text or a function result keyed by (name, call_id).
type PayloadEntry struct {
	Text           string
	FunctionResult *model.FunctionResult
}

// CompletionChunk is one item of an LLMProvider's response stream: a small
// discriminated union of a text/tool-call delta, or a completion marker
// carrying usage and the interaction id. Exactly one of Text, ToolCall, or
// Done is meaningful per chunk.
type CompletionChunk struct {
	Text          string
	ToolCall      *model.ToolCall
	Done          bool
	InteractionID string
	TotalTokens   int64
	Err           error
}

// LLMProvider is the opaque streaming contract any concrete LLM client
// must satisfy to be plugged into the agent loop.
type LLMProvider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (<-chan CompletionChunk, error)
}

// TransportError is an LLM transport failure carrying retry guidance.
type TransportError struct {
	Err               error
	Retryable         bool
	RetryAfterSeconds int64
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err == nil {
		return "transport error"
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error { return e.Err }

// IsRetryable reports whether the agent loop should retry this failure.
func (e *TransportError) IsRetryable() bool { return e.Retryable }

// RetryAfter returns a server-suggested delay in seconds, if one was given.
func (e *TransportError) RetryAfter() (int64, bool) {
	return e.RetryAfterSeconds, e.RetryAfterSeconds > 0
}
