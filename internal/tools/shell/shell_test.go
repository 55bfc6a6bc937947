package shell

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/evansenter/clemini-go/internal/tasks"
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

func TestBashEchoSucceeds(t *testing.T) {
	cfg := Config{Registry: tasks.NewRegistry()}
	res := NewBashTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"command": "echo hi"}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		Stdout   string `json:"stdout"`
		ExitCode int    `json:"exit_code"`
	}
	json.Unmarshal(res.Result, &payload)
	if payload.Stdout != "hi\n" || payload.ExitCode != 0 {
		t.Fatalf("unexpected result: %+v", payload)
	}
}

func TestBashBlockedCommandNeverSpawns(t *testing.T) {
	cfg := Config{Registry: tasks.NewRegistry()}
	res := NewBashTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"command": "rm -rf /"}))
	if !res.IsError() || res.ErrorCode != model.ErrBlocked {
		t.Fatalf("expected BLOCKED, got %+v", res)
	}
}

func TestBashCautionWithoutConfirmationNeedsConfirmation(t *testing.T) {
	cfg := Config{Registry: tasks.NewRegistry()}
	res := NewBashTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"command": "rm file.txt"}))
	if !res.NeedsConfirmation {
		t.Fatalf("expected needs_confirmation, got %+v", res)
	}
	if res.Context["command"] != "rm file.txt" {
		t.Fatalf("expected command echoed in context, got %v", res.Context)
	}
}

func TestBashCautionWithConfirmationExecutes(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Registry: tasks.NewRegistry(), WorkingDirectory: dir}
	NewBashTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{
		"command": "touch victim.txt", "working_directory": dir,
	}))
	res := NewBashTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{
		"command": "rm victim.txt", "confirmed": true, "working_directory": dir,
	}))
	if res.IsError() || res.NeedsConfirmation {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestBashTimeout(t *testing.T) {
	cfg := Config{Registry: tasks.NewRegistry(), DefaultTimeout: 100 * time.Millisecond}
	res := NewBashTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{
		"command": "sleep 5", "confirmed": true,
	}))
	if !res.IsError() || res.ErrorCode != model.ErrTimeout {
		t.Fatalf("expected TIMEOUT, got %+v", res)
	}
}

func TestBashRunInBackgroundRegistersTask(t *testing.T) {
	reg := tasks.NewRegistry()
	cfg := Config{Registry: reg}
	res := NewBashTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{
		"command": "sleep 5", "run_in_background": true, "confirmed": true,
	}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
	json.Unmarshal(res.Result, &payload)
	if payload.TaskID == "" || payload.Status != "running" {
		t.Fatalf("unexpected result: %+v", payload)
	}
	if !reg.Kill(payload.TaskID) {
		t.Fatal("expected to kill registered background task")
	}
}

func TestKillShellRemovesFromRegistry(t *testing.T) {
	reg := tasks.NewRegistry()
	id, err := tasks.StartBackground(context.Background(), reg, "sleep 5", "", nil)
	if err != nil {
		t.Fatalf("start background: %v", err)
	}
	res := NewKillShellTool(Config{Registry: reg}).Call(context.Background(), mustArgs(t, map[string]any{"task_id": id}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if _, ok := reg.Get(id); ok {
		t.Fatal("expected task absent from registry after kill_shell")
	}
}

func TestKillShellUnknownIDIsNotFound(t *testing.T) {
	res := NewKillShellTool(Config{Registry: tasks.NewRegistry()}).Call(context.Background(), mustArgs(t, map[string]any{"task_id": "bg-999"}))
	if !res.IsError() || res.ErrorCode != model.ErrNotFound {
		t.Fatalf("expected NOT_FOUND, got %+v", res)
	}
}

func TestTaskOutputWaitsForCompletion(t *testing.T) {
	reg := tasks.NewRegistry()
	id, err := tasks.StartBackground(context.Background(), reg, "true", "", nil)
	if err != nil {
		t.Fatalf("start background: %v", err)
	}
	res := NewTaskOutputTool(Config{Registry: reg}).Call(context.Background(), mustArgs(t, map[string]any{
		"task_id": id, "wait": true, "timeout": 5,
	}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		Status   string `json:"status"`
		ExitCode int    `json:"exit_code"`
	}
	json.Unmarshal(res.Result, &payload)
	if payload.Status != string(model.TaskCompleted) {
		t.Fatalf("expected completed status, got %+v", payload)
	}
}
