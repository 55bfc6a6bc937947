package interactive

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/evansenter/clemini-go/pkg/model"
)

func mustArgs(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return raw
}

type fixedPrompter struct{ reply string }

func (f fixedPrompter) Prompt(ctx context.Context, question string) (string, error) {
	return f.reply, nil
}

func TestAskUserResolvesNumericReplyToOption(t *testing.T) {
	tool := NewAskUserTool(fixedPrompter{reply: "2"})
	res := tool.Call(context.Background(), mustArgs(t, map[string]any{
		"question": "Which file?",
		"options":  []string{"a.go", "b.go", "c.go"},
	}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		Answer string `json:"answer"`
	}
	json.Unmarshal(res.Result, &payload)
	if payload.Answer != "b.go" {
		t.Fatalf("expected b.go, got %q", payload.Answer)
	}
}

func TestAskUserFreeformReplyPassesThrough(t *testing.T) {
	tool := NewAskUserTool(fixedPrompter{reply: "none of these"})
	res := tool.Call(context.Background(), mustArgs(t, map[string]any{
		"question": "Which file?",
		"options":  []string{"a.go", "b.go"},
	}))
	var payload struct {
		Answer string `json:"answer"`
	}
	json.Unmarshal(res.Result, &payload)
	if payload.Answer != "none of these" {
		t.Fatalf("expected freeform passthrough, got %q", payload.Answer)
	}
}

func TestAskUserWithoutPrompterIsBlocked(t *testing.T) {
	tool := NewAskUserTool(nil)
	res := tool.Call(context.Background(), mustArgs(t, map[string]any{"question": "ok?"}))
	if !res.IsError() || res.ErrorCode != model.ErrBlocked {
		t.Fatalf("expected BLOCKED, got %+v", res)
	}
}

func TestTodoWriteReturnsCount(t *testing.T) {
	tool := NewTodoWriteTool()
	res := tool.Call(context.Background(), mustArgs(t, map[string]any{
		"todos": []map[string]any{
			{"text": "write tests", "status": "completed"},
			{"text": "ship it", "status": "pending"},
		},
	}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		Count int `json:"count"`
	}
	json.Unmarshal(res.Result, &payload)
	if payload.Count != 2 {
		t.Fatalf("expected count 2, got %d", payload.Count)
	}
}

func TestTodoWriteRejectsEmptyList(t *testing.T) {
	res := NewTodoWriteTool().Call(context.Background(), mustArgs(t, map[string]any{"todos": []any{}}))
	if !res.IsError() || res.ErrorCode != model.ErrInvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT, got %+v", res)
	}
}
