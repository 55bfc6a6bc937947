package interactive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/evansenter/clemini-go/internal/agent"
	"github.com/evansenter/clemini-go/pkg/model"
)

// TodoWriteTool renders a checklist via ToolOutput. It never persists state;
// the list lives only in the emitted event stream for the current turn.
type TodoWriteTool struct{}

// NewTodoWriteTool constructs a todo_write tool.
func NewTodoWriteTool() *TodoWriteTool { return &TodoWriteTool{} }

// Declaration implements agent.Tool.
func (t *TodoWriteTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"todos": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text":   map[string]any{"type": "string"},
						"status": map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed"}},
					},
					"required": []string{"text"},
				},
			},
		},
		"required": []string{"todos"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "todo_write",
		Description: "Render a checklist of todo items for the user via the output stream.",
		Parameters:  raw,
		Required:    []string{"todos"},
	}
}

type todoItem struct {
	Text   string `json:"text"`
	Status string `json:"status"`
}

var todoMarker = map[string]string{
	"pending":     "[ ]",
	"in_progress": "[~]",
	"completed":   "[x]",
}

// Call implements agent.Tool.
func (t *TodoWriteTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Todos []todoItem `json:"todos"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if len(input.Todos) == 0 {
		return errorResult(model.ErrInvalidArgument, "todos must be non-empty")
	}

	for _, item := range input.Todos {
		marker, ok := todoMarker[item.Status]
		if !ok {
			marker = todoMarker["pending"]
		}
		agent.EmitOutput(ctx, fmt.Sprintf("%s %s", marker, item.Text))
	}

	return jsonResult(map[string]any{"count": len(input.Todos)})
}
