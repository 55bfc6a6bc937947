package interactive

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/evansenter/clemini-go/internal/agent"
	"github.com/evansenter/clemini-go/pkg/model"
)

// Prompter reads one line of interactive reply to a displayed question.
// The CLI's TTY front-end supplies the real implementation; a non-interactive
// surface (RPC, ACP) supplies one that always errors, since ask_user is
// interactive-only per its contract.
type Prompter interface {
	Prompt(ctx context.Context, question string) (string, error)
}

// AskUserTool displays a question, optionally with numbered options, and
// resolves a purely numeric reply in range to the corresponding option text.
type AskUserTool struct {
	prompter Prompter
}

// NewAskUserTool constructs an ask_user tool around the given Prompter.
func NewAskUserTool(prompter Prompter) *AskUserTool {
	return &AskUserTool{prompter: prompter}
}

// Declaration implements agent.Tool.
func (t *AskUserTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{"type": "string"},
			"options":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"question"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "ask_user",
		Description: "Ask the user an interactive question, optionally with numbered options.",
		Parameters:  raw,
		Required:    []string{"question"},
	}
}

// Call implements agent.Tool.
func (t *AskUserTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(input.Question) == "" {
		return errorResult(model.ErrInvalidArgument, "question is required")
	}
	if t.prompter == nil {
		return errorResult(model.ErrBlocked, "ask_user is interactive-only and no interactive surface is attached")
	}

	display := input.Question
	for i, opt := range input.Options {
		display += fmt.Sprintf("\n  %d) %s", i+1, opt)
		agent.EmitOutput(ctx, fmt.Sprintf("  %d) %s", i+1, opt))
	}

	reply, err := t.prompter.Prompt(ctx, display)
	if err != nil {
		return errorResult(model.ErrIO, "read interactive reply: "+err.Error())
	}

	answer := reply
	if n, convErr := strconv.Atoi(strings.TrimSpace(reply)); convErr == nil && n >= 1 && n <= len(input.Options) {
		answer = input.Options[n-1]
	}

	return jsonResult(map[string]any{"answer": answer})
}
