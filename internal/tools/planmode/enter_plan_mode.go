package planmode

import (
	"context"
	"encoding/json"

	"github.com/evansenter/clemini-go/internal/planmode"
	"github.com/evansenter/clemini-go/pkg/model"
)

// EnterPlanModeTool wraps planmode.Store.Enter.
type EnterPlanModeTool struct {
	Store *planmode.Store
}

// NewEnterPlanModeTool constructs the enter_plan_mode tool.
func NewEnterPlanModeTool(store *planmode.Store) *EnterPlanModeTool {
	return &EnterPlanModeTool{Store: store}
}

// Declaration implements agent.Tool.
func (t *EnterPlanModeTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{"type": "object", "properties": map[string]any{}}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "enter_plan_mode",
		Description: "Enter plan mode: subsequent write-class tool calls are rejected until exit_plan_mode is called.",
		Parameters:  raw,
	}
}

// Call implements agent.Tool.
func (t *EnterPlanModeTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	plan, err := t.Store.Enter()
	if err != nil {
		return errorResult(model.ErrIO, "enter plan mode: "+err.Error())
	}
	return jsonResult(map[string]any{"in_plan_mode": plan.InPlanMode, "file_path": plan.FilePath})
}
