package agent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/evansenter/clemini-go/pkg/model"
)

type fakeProvider struct {
	scripts []func() []CompletionChunk
	calls   int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req *CompletionRequest) (<-chan CompletionChunk, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.scripts) {
		idx = len(f.scripts) - 1
	}
	chunks := f.scripts[idx]()
	ch := make(chan CompletionChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

type echoTool struct{}

func (echoTool) Declaration() model.ToolDeclaration {
	return model.ToolDeclaration{Name: "echo", Description: "echoes", Parameters: json.RawMessage(`{"type":"object"}`)}
}

func (echoTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	return model.FunctionResult{Result: json.RawMessage(`{"ok":true}`)}
}

func TestRunCompletesWithoutToolCalls(t *testing.T) {
	provider := &fakeProvider{scripts: []func() []CompletionChunk{
		func() []CompletionChunk {
			return []CompletionChunk{
				{Text: "hello "},
				{Text: "world"},
				{Done: true, InteractionID: "turn-1", TotalTokens: 100},
			}
		},
	}}
	loop := NewAgentLoop(provider, NewToolRegistry(), nil, DefaultLoopConfig())

	events, done := loop.Run(context.Background(), Turn{UserText: "hi"})
	var sawComplete bool
	for ev := range events {
		if ev.Complete != nil {
			sawComplete = true
			if ev.Complete.Response != "hello world" {
				t.Fatalf("response = %q", ev.Complete.Response)
			}
		}
	}
	if !sawComplete {
		t.Fatal("expected a Complete event")
	}
	result := <-done
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.InteractionID != "turn-1" {
		t.Fatalf("interaction id = %q", result.InteractionID)
	}
}

func TestRunExecutesToolCallThenCompletes(t *testing.T) {
	registry := NewToolRegistry()
	if err := registry.Register(echoTool{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	provider := &fakeProvider{scripts: []func() []CompletionChunk{
		func() []CompletionChunk {
			return []CompletionChunk{
				{ToolCall: &model.ToolCall{ID: "1", Name: "echo", Args: json.RawMessage(`{}`)}},
				{Done: true},
			}
		},
		func() []CompletionChunk {
			return []CompletionChunk{{Text: "done"}, {Done: true}}
		},
	}}
	loop := NewAgentLoop(provider, registry, nil, DefaultLoopConfig())

	events, done := loop.Run(context.Background(), Turn{UserText: "run echo"})
	var sawToolResult, sawToolExecuting bool
	for ev := range events {
		if len(ev.ToolExecuting) > 0 {
			sawToolExecuting = true
		}
		if ev.ToolResult != nil {
			sawToolResult = true
		}
	}
	if !sawToolExecuting || !sawToolResult {
		t.Fatalf("expected ToolExecuting and ToolResult events")
	}
	result := <-done
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.ToolCallsExecuted != 1 {
		t.Fatalf("tool calls executed = %d", result.ToolCallsExecuted)
	}
}

type planGate struct{ active bool }

func (p planGate) Active() bool { return p.active }

func TestRunRejectsWriteToolsInPlanMode(t *testing.T) {
	registry := NewToolRegistry()
	if err := registry.Register(echoTool{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	provider := &fakeProvider{scripts: []func() []CompletionChunk{
		func() []CompletionChunk {
			return []CompletionChunk{
				{ToolCall: &model.ToolCall{ID: "1", Name: "echo", Args: json.RawMessage(`{}`)}},
				{Done: true},
			}
		},
		func() []CompletionChunk { return []CompletionChunk{{Text: "ok"}, {Done: true}} },
	}}
	loop := NewAgentLoop(provider, registry, planGate{active: true}, DefaultLoopConfig())

	events, done := loop.Run(context.Background(), Turn{UserText: "run echo"})
	var gotError string
	for ev := range events {
		if ev.ToolResult != nil {
			if m, ok := ev.ToolResult.Result.(map[string]any); ok {
				if e, _ := m["error"].(string); e != "" {
					gotError = e
				}
			}
		}
	}
	<-done
	if gotError == "" {
		t.Fatal("expected plan-mode rejection error on tool result")
	}
}

func TestRunStopsOnCancellationBeforeFirstStream(t *testing.T) {
	provider := &fakeProvider{scripts: []func() []CompletionChunk{
		func() []CompletionChunk { return []CompletionChunk{{Text: "unreachable"}, {Done: true}} },
	}}
	loop := NewAgentLoop(provider, NewToolRegistry(), nil, DefaultLoopConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	events, done := loop.Run(ctx, Turn{UserText: "hi"})

	var sawCancelled bool
	for ev := range events {
		if ev.Cancelled {
			sawCancelled = true
		}
	}
	result := <-done
	if !sawCancelled || !result.Cancelled {
		t.Fatal("expected immediate cancellation")
	}
}

func TestContextWarningThreshold(t *testing.T) {
	loop := &AgentLoop{config: DefaultLoopConfig()}
	if loop.contextWarningDue(800_000) {
		t.Fatal("800,000/1,000,000 = 0.80 exactly should not warn (strict >)")
	}
	if !loop.contextWarningDue(800_001) {
		t.Fatal("800,001/1,000,000 should warn")
	}
}

func TestStreamWithRetryRecoversFromRetryableError(t *testing.T) {
	provider := &fakeProvider{scripts: []func() []CompletionChunk{
		func() []CompletionChunk {
			return []CompletionChunk{{Err: &TransportError{Err: context.DeadlineExceeded, Retryable: true}}}
		},
		func() []CompletionChunk {
			return []CompletionChunk{{Text: "recovered"}, {Done: true, InteractionID: "turn-1"}}
		},
	}}
	cfg := DefaultLoopConfig()
	cfg.RetryBaseDelay = time.Millisecond
	loop := NewAgentLoop(provider, NewToolRegistry(), nil, cfg)

	events, done := loop.Run(context.Background(), Turn{UserText: "hi"})
	var sawRetry bool
	for ev := range events {
		if ev.Retry != nil {
			sawRetry = true
			if ev.Retry.Attempt != 1 || ev.Retry.Max != cfg.MaxExtraRetries {
				t.Fatalf("unexpected retry event: %+v", ev.Retry)
			}
		}
	}
	if !sawRetry {
		t.Fatal("expected a Retry event")
	}
	result := <-done
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Response != "recovered" {
		t.Fatalf("response = %q", result.Response)
	}
}

func TestStreamWithRetryStopsOnNonRetryableError(t *testing.T) {
	provider := &fakeProvider{scripts: []func() []CompletionChunk{
		func() []CompletionChunk {
			return []CompletionChunk{{Err: &TransportError{Err: context.DeadlineExceeded, Retryable: false}}}
		},
		func() []CompletionChunk {
			return []CompletionChunk{{Text: "should not be reached"}, {Done: true}}
		},
	}}
	cfg := DefaultLoopConfig()
	cfg.RetryBaseDelay = time.Millisecond
	loop := NewAgentLoop(provider, NewToolRegistry(), nil, cfg)

	events, done := loop.Run(context.Background(), Turn{UserText: "hi"})
	for ev := range events {
		if ev.Retry != nil {
			t.Fatal("non-retryable error should not emit a Retry event")
		}
	}
	result := <-done
	if result.Err == nil {
		t.Fatal("expected a stream error")
	}
	if provider.calls != 1 {
		t.Fatalf("expected exactly one provider call, got %d", provider.calls)
	}
}

func TestNoProviderReturnsError(t *testing.T) {
	loop := NewAgentLoop(nil, NewToolRegistry(), nil, DefaultLoopConfig())
	_, done := loop.Run(context.Background(), Turn{UserText: "hi"})
	result := <-done
	if result.Err == nil {
		t.Fatal("expected ErrNoProvider")
	}
}
