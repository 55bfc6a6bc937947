package planmode

import (
	"context"
	"encoding/json"

	"github.com/evansenter/clemini-go/internal/planmode"
	"github.com/evansenter/clemini-go/pkg/model"
)

// ExitPlanModeTool wraps planmode.Store.Exit.
type ExitPlanModeTool struct {
	Store *planmode.Store
}

// NewExitPlanModeTool constructs the exit_plan_mode tool.
func NewExitPlanModeTool(store *planmode.Store) *ExitPlanModeTool {
	return &ExitPlanModeTool{Store: store}
}

// Declaration implements agent.Tool.
func (t *ExitPlanModeTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"allowed_prompts": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "exit_plan_mode",
		Description: "Exit plan mode, returning the finalized plan and the future-permission descriptors requested.",
		Parameters:  raw,
	}
}

// Call implements agent.Tool.
func (t *ExitPlanModeTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		AllowedPrompts []string `json:"allowed_prompts"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &input); err != nil {
			return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
		}
	}

	plan, err := t.Store.Exit(input.AllowedPrompts)
	if err != nil {
		return errorResult(model.ErrIO, "exit plan mode: "+err.Error())
	}
	return jsonResult(map[string]any{
		"steps":           plan.Steps,
		"file_path":       plan.FilePath,
		"allowed_prompts": input.AllowedPrompts,
	})
}
