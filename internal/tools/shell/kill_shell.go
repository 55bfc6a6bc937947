package shell

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/evansenter/clemini-go/pkg/model"
)

// KillShellTool kills a background task and removes it from the registry.
type KillShellTool struct {
	cfg Config
}

// NewKillShellTool constructs a kill_shell tool around cfg.Registry.
func NewKillShellTool(cfg Config) *KillShellTool { return &KillShellTool{cfg: cfg} }

// Declaration implements agent.Tool.
func (t *KillShellTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"task_id": map[string]any{"type": "string"}},
		"required":   []string{"task_id"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "kill_shell",
		Description: "Kill a background task and remove it from the task registry.",
		Parameters:  raw,
		Required:    []string{"task_id"},
	}
}

// Call implements agent.Tool.
func (t *KillShellTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(input.TaskID) == "" {
		return errorResult(model.ErrInvalidArgument, "task_id is required")
	}
	if !t.cfg.Registry.Kill(input.TaskID) {
		return errorResult(model.ErrNotFound, "no such task: "+input.TaskID)
	}
	return jsonResult(map[string]any{"task_id": input.TaskID, "status": "killed"})
}
