package shell

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/evansenter/clemini-go/pkg/model"
)

const taskOutputPollInterval = 200 * time.Millisecond

// TaskOutputTool reads the current (or, with wait=true, eventual) snapshot
// of a registered task.
type TaskOutputTool struct {
	cfg Config
}

// NewTaskOutputTool constructs a task_output tool around cfg.Registry.
func NewTaskOutputTool(cfg Config) *TaskOutputTool { return &TaskOutputTool{cfg: cfg} }

// Declaration implements agent.Tool.
func (t *TaskOutputTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_id": map[string]any{"type": "string"},
			"wait":    map[string]any{"type": "boolean"},
			"timeout": map[string]any{"type": "integer", "minimum": 1},
		},
		"required": []string{"task_id"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "task_output",
		Description: "Read a registered task's current status and captured output, optionally waiting for completion.",
		Parameters:  raw,
		Required:    []string{"task_id"},
	}
}

// Call implements agent.Tool.
func (t *TaskOutputTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		TaskID  string `json:"task_id"`
		Wait    bool   `json:"wait"`
		Timeout int    `json:"timeout"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(input.TaskID) == "" {
		return errorResult(model.ErrInvalidArgument, "task_id is required")
	}

	entry, ok := t.cfg.Registry.Get(input.TaskID)
	if !ok {
		return errorResult(model.ErrNotFound, "no such task: "+input.TaskID)
	}

	timeout := 30 * time.Second
	if input.Timeout > 0 {
		timeout = time.Duration(input.Timeout) * time.Second
	}

	snap := entry.Snapshot()
	if input.Wait && !snap.Completed {
		deadline := time.Now().Add(timeout)
		ticker := time.NewTicker(taskOutputPollInterval)
		defer ticker.Stop()
		for !snap.Completed && time.Now().Before(deadline) {
			select {
			case <-ctx.Done():
				return errorResult(model.ErrTimeout, "context cancelled while waiting for task")
			case <-ticker.C:
				snap = entry.Snapshot()
			}
		}
	}

	result := map[string]any{
		"task_id": snap.ID,
		"status":  snap.Status,
		"stdout":  snap.Stdout,
		"stderr":  snap.Stderr,
	}
	if snap.Completed {
		result["exit_code"] = snap.ExitCode
	}
	return jsonResult(result)
}
