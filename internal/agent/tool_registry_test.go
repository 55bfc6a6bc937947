package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/evansenter/clemini-go/internal/observability"
	"github.com/evansenter/clemini-go/pkg/model"
)

type panicTool struct{}

func (panicTool) Declaration() model.ToolDeclaration {
	return model.ToolDeclaration{Name: "panics", Description: "always panics", Parameters: json.RawMessage(`{"type":"object"}`)}
}

func (panicTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	panic("boom")
}

func TestExecuteRecoversPanicAsIOError(t *testing.T) {
	registry := NewToolRegistry()
	if err := registry.Register(panicTool{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	result := registry.Execute(context.Background(), time.Second, model.ToolCall{Name: "panics"})
	if !result.IsError() || result.ErrorCode != model.ErrIO {
		t.Fatalf("expected IO_ERROR, got %+v", result)
	}
	if ctx, ok := result.Context["panic"].(bool); !ok || !ctx {
		t.Fatalf("expected context.panic=true, got %+v", result.Context)
	}
}

func TestExecuteLogsPanicToStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.LogConfig{Output: &buf, Format: "json"})

	registry := NewToolRegistry()
	registry.SetLogger(logger)
	if err := registry.Register(panicTool{}); err != nil {
		t.Fatalf("register: %v", err)
	}

	registry.Execute(context.Background(), time.Second, model.ToolCall{Name: "panics", ID: "call-1"})

	logged := buf.String()
	if !strings.Contains(logged, "tool panic recovered") {
		t.Fatalf("expected warning message in log output, got %q", logged)
	}
	if !strings.Contains(logged, "call-1") {
		t.Fatalf("expected call id in log output, got %q", logged)
	}
	if !strings.Contains(logged, "goroutine") {
		t.Fatalf("expected captured stack trace in log output, got %q", logged)
	}
}
