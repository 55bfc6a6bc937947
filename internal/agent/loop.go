package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evansenter/clemini-go/internal/backoff"
	"github.com/evansenter/clemini-go/pkg/model"
)

// PlanGate is consulted before every tool dispatch. While Active, calls to
// tools outside the read-only set are rejected without running.
type PlanGate interface {
	Active() bool
}

// AgentLoop drives one conversational turn: stream the model, execute any
// requested tools in order, feed results back, and repeat until the model
// stops requesting tools or a hard limit is hit.
type AgentLoop struct {
	provider LLMProvider
	registry *ToolRegistry
	plan     PlanGate
	config   *LoopConfig
}

// NewAgentLoop builds a loop around a provider and tool registry. plan may
// be nil, in which case the plan-mode gate is always inactive.
func NewAgentLoop(provider LLMProvider, registry *ToolRegistry, plan PlanGate, config *LoopConfig) *AgentLoop {
	if registry == nil {
		registry = NewToolRegistry()
	}
	return &AgentLoop{
		provider: provider,
		registry: registry,
		plan:     plan,
		config:   sanitizeLoopConfig(config),
	}
}

// Turn is the request driving one Run call.
type Turn struct {
	Model                 string
	System                string
	PreviousInteractionID string
	UserText              string
}

// TurnResult is returned to the caller once Run's event channel closes.
type TurnResult struct {
	InteractionID     string
	Response          string
	ContextSize       int64
	TotalTokens       int64
	ToolCallsExecuted int
	NeedsConfirmation bool
	Cancelled         bool
	Err               error
}

const eventBufferSize = 100

// Run drives one turn, streaming model.AgentEvent values on the returned
// channel. The channel is closed when the turn ends; the final TurnResult
// is sent on the second return value exactly once, after the channel
// closes.
func (l *AgentLoop) Run(ctx context.Context, turn Turn) (<-chan model.AgentEvent, <-chan TurnResult) {
	events := make(chan model.AgentEvent, eventBufferSize)
	done := make(chan TurnResult, 1)

	go func() {
		defer close(events)
		defer close(done)
		result := l.run(ctx, turn, events)
		done <- result
	}()

	return events, done
}

func (l *AgentLoop) run(ctx context.Context, turn Turn, events chan<- model.AgentEvent) TurnResult {
	if l.provider == nil {
		return TurnResult{Err: ErrNoProvider}
	}

	payload := []PayloadEntry{{Text: turn.UserText}}
	interactionID := turn.PreviousInteractionID
	var fullResponse string
	var totalTokens int64
	var toolCallsExecuted int

	for iteration := 0; iteration < l.config.MaxIterations; iteration++ {
		if cancelledNow(ctx) {
			tryEmit(events, model.CancelledEvent())
			return TurnResult{Response: fullResponse, Cancelled: true, InteractionID: interactionID, TotalTokens: totalTokens, ToolCallsExecuted: toolCallsExecuted}
		}

		req := &CompletionRequest{
			Model:                 turn.Model,
			System:                turn.System,
			PreviousInteractionID: interactionID,
			Tools:                 l.registry.Declarations(),
			Payload:               payload,
		}

		text, toolCalls, usage, newInteractionID, streamErr := l.streamWithRetry(ctx, req, events)
		if streamErr != nil {
			if errors.Is(streamErr, context.Canceled) {
				tryEmit(events, model.CancelledEvent())
				return TurnResult{Response: fullResponse, Cancelled: true, InteractionID: interactionID, TotalTokens: totalTokens, ToolCallsExecuted: toolCallsExecuted}
			}
			return TurnResult{Err: &LoopError{Phase: PhaseStream, Iteration: iteration, Cause: streamErr}}
		}
		fullResponse = text
		if newInteractionID != "" {
			interactionID = newInteractionID
		}
		if usage > 0 {
			totalTokens = usage
		}

		if len(toolCalls) == 0 {
			if l.contextWarningDue(totalTokens) {
				tryEmit(events, model.AgentEvent{ContextWarning: &model.ContextWarningEvent{
					Used: totalTokens, Limit: l.config.ContextTokenLimit,
				}})
			}
			tryEmit(events, model.AgentEvent{Complete: &model.CompleteEvent{
				InteractionID: interactionID, Response: fullResponse,
			}})
			return TurnResult{
				InteractionID: interactionID, Response: fullResponse,
				ContextSize: l.config.ContextTokenLimit, TotalTokens: totalTokens,
				ToolCallsExecuted: toolCallsExecuted,
			}
		}

		calls := make([]model.CallInfo, 0, len(toolCalls))
		for _, tc := range toolCalls {
			calls = append(calls, model.CallInfo{ID: tc.ID, Name: tc.Name})
		}
		tryEmit(events, model.ToolExecutingEvent(calls))

		results, cancelled, needsConfirmation := l.executeToolBatch(ctx, toolCalls, events)
		toolCallsExecuted += len(results)

		if cancelled {
			tryEmit(events, model.CancelledEvent())
			return TurnResult{Response: fullResponse, Cancelled: true, InteractionID: interactionID, TotalTokens: totalTokens, ToolCallsExecuted: toolCallsExecuted}
		}
		if needsConfirmation {
			return TurnResult{
				InteractionID: interactionID, Response: fullResponse, TotalTokens: totalTokens,
				ToolCallsExecuted: toolCallsExecuted, NeedsConfirmation: true,
			}
		}

		payload = payload[:0]
		for i := range results {
			r := results[i]
			payload = append(payload, PayloadEntry{FunctionResult: &r})
		}
		fullResponse = ""
	}

	return TurnResult{Err: &LoopError{Phase: PhaseExecuteTools, Iteration: l.config.MaxIterations, Cause: ErrMaxIterations}}
}

// streamAttemptResult is one streamOnce outcome, boxed so streamWithRetry
// can drive it through backoff.RetryWithBackoffHook's generic (T, error)
// shape.
type streamAttemptResult struct {
	text          string
	calls         []model.ToolCall
	totalTokens   int64
	interactionID string
}

// streamWithRetry opens the provider stream and retries on a retryable
// transport error, clearing accumulated text each retry per the spec's
// accepted UX cost. The retry loop itself is backoff.RetryWithBackoffHook;
// the hooks plumbed in here are what make it behave like the spec's
// retry policy rather than the package's generic one: shouldRetry
// short-circuits on a non-retryable error instead of burning the rest of
// the attempt budget, and onRetry narrows the computed delay down to a
// transport's own server-suggested Retry-After when one is smaller, and
// emits the Retry event carrying that exact delay.
func (l *AgentLoop) streamWithRetry(ctx context.Context, req *CompletionRequest, events chan<- model.AgentEvent) (text string, calls []model.ToolCall, totalTokens int64, interactionID string, err error) {
	policy := backoff.BackoffPolicy{
		InitialMs: float64(l.config.RetryBaseDelay.Milliseconds()),
		MaxMs:     30000,
		Factor:    2,
		Jitter:    0.2,
	}
	maxAttempts := l.config.MaxExtraRetries + 1

	shouldRetry := func(attempt int, err error) bool {
		return attempt < maxAttempts && IsRetryable(err)
	}
	onRetry := func(attempt int, err error, computed time.Duration) time.Duration {
		delay := computed
		if ra, ok := serverSuggestedDelay(err); ok {
			if suggested := time.Duration(ra) * time.Second; suggested < delay {
				delay = suggested
			}
		}
		tryEmit(events, model.AgentEvent{Retry: &model.RetryEvent{
			Attempt: attempt, Max: l.config.MaxExtraRetries, Delay: delay, Error: err.Error(),
		}})
		return delay
	}

	result, retryErr := backoff.RetryWithBackoffHook(ctx, policy, maxAttempts, shouldRetry, onRetry,
		func(attempt int) (streamAttemptResult, error) {
			t, c, tk, id, streamErr := l.streamOnce(ctx, req, events)
			return streamAttemptResult{text: t, calls: c, totalTokens: tk, interactionID: id}, streamErr
		})
	if retryErr != nil {
		if cancelledNow(ctx) {
			return "", nil, 0, "", ctx.Err()
		}
		return "", nil, 0, "", retryErr
	}
	return result.Value.text, result.Value.calls, result.Value.totalTokens, result.Value.interactionID, nil
}

func serverSuggestedDelay(err error) (int64, bool) {
	var p interface{ RetryAfter() (int64, bool) }
	if errors.As(err, &p) {
		return p.RetryAfter()
	}
	return 0, false
}

// streamOnce races every stream pull against cancellation with a biased
// check: cancellation is polled non-blockingly immediately before each
// blocking receive, then raced in the real select, so a simultaneously
// ready cancellation and chunk always resolve in cancellation's favor.
func (l *AgentLoop) streamOnce(ctx context.Context, req *CompletionRequest, events chan<- model.AgentEvent) (string, []model.ToolCall, int64, string, error) {
	stream, err := l.provider.Complete(ctx, req)
	if err != nil {
		return "", nil, 0, "", err
	}

	var text string
	var calls []model.ToolCall
	var totalTokens int64
	var interactionID string

	for {
		if cancelledNow(ctx) {
			return text, calls, totalTokens, interactionID, ctx.Err()
		}

		select {
		case <-ctx.Done():
			return text, calls, totalTokens, interactionID, ctx.Err()
		case chunk, ok := <-stream:
			if !ok {
				return text, calls, totalTokens, interactionID, nil
			}
			if chunk.Err != nil {
				return text, calls, totalTokens, interactionID, chunk.Err
			}
			if chunk.Text != "" {
				text += chunk.Text
				tryEmit(events, model.TextDeltaEvent(chunk.Text))
			}
			if chunk.ToolCall != nil {
				calls = append(calls, *chunk.ToolCall)
			}
			if chunk.Done {
				if chunk.InteractionID != "" {
					interactionID = chunk.InteractionID
				}
				if chunk.TotalTokens > 0 {
					totalTokens = chunk.TotalTokens
				}
			}
		}
	}
}

// executeToolBatch runs pending_calls in order, honoring the plan-mode
// gate, cancellation, and the needs_confirmation short-circuit.
func (l *AgentLoop) executeToolBatch(ctx context.Context, calls []model.ToolCall, events chan<- model.AgentEvent) (results []model.FunctionResult, cancelled bool, needsConfirmation bool) {
	sinkCtx := WithOutputSink(ctx, func(line string) {
		tryEmit(events, model.AgentEvent{ToolOutput: line})
	})

	for _, tc := range calls {
		if cancelledNow(ctx) {
			return results, true, false
		}

		var result model.FunctionResult
		if l.plan != nil && l.plan.Active() && !model.IsReadOnlyTool(tc.Name) {
			result = model.FunctionResult{
				Name: tc.Name, CallID: tc.ID,
				Error:     fmt.Sprintf("tool %q is not allowed in plan mode; exit plan mode to perform writes", tc.Name),
				ErrorCode: model.ErrAccessDenied,
			}
		} else {
			result = l.registry.Execute(sinkCtx, l.config.ToolTimeout, tc)
		}

		results = append(results, result)
		tryEmit(events, model.AgentEvent{ToolResult: &model.ToolResultEvent{
			Name: tc.Name, CallID: tc.ID, Result: resultValue(result),
			Duration: time.Duration(result.DurationNanos),
		}})

		if result.NeedsConfirmation {
			return results, false, true
		}
	}
	return results, false, false
}

func resultValue(r model.FunctionResult) any {
	if r.IsError() {
		return map[string]any{"error": r.Error, "error_code": r.ErrorCode, "context": r.Context}
	}
	return r.Result
}

func cancelledNow(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (l *AgentLoop) contextWarningDue(totalTokens int64) bool {
	if l.config.ContextTokenLimit <= 0 {
		return false
	}
	return float64(totalTokens)/float64(l.config.ContextTokenLimit) > l.config.ContextWarnThreshold
}

// tryEmit is a non-blocking send that drops ToolOutput events (lossy by
// design) but never drops Complete, Cancelled, or ToolResult, matching the
// agent->UI backpressure policy.
func tryEmit(events chan<- model.AgentEvent, ev model.AgentEvent) {
	if events == nil {
		return
	}
	if ev.ToolOutput != "" {
		select {
		case events <- ev:
		default:
		}
		return
	}
	select {
	case events <- ev:
	default:
		// Slow consumer on a must-deliver event; block briefly rather than
		// silently drop Complete/Cancelled/ToolResult.
		events <- ev
	}
}
