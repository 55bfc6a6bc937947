package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/evansenter/clemini-go/internal/agent"
	"github.com/evansenter/clemini-go/pkg/model"
)

// WriteTool writes the full contents of a file, creating parent
// directories as needed.
type WriteTool struct {
	cfg Config
}

// NewWriteTool constructs a write tool scoped to cfg.Sandbox.
func NewWriteTool(cfg Config) *WriteTool { return &WriteTool{cfg: cfg} }

// Declaration implements agent.Tool.
func (t *WriteTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string", "description": "File path, absolute or relative to the working directory."},
			"content": map[string]any{"type": "string", "description": "Full file contents to write."},
		},
		"required": []string{"path", "content"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "write",
		Description: "Write content to a file, creating it (and parent directories) if needed.",
		Parameters:  raw,
		Required:    []string{"path", "content"},
	}
}

// Call implements agent.Tool.
func (t *WriteTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(input.Path) == "" {
		return errorResult(model.ErrInvalidArgument, "path is required")
	}

	resolved, err := t.cfg.Sandbox.ResolveAndValidate(input.Path, t.cfg.CWD)
	if err != nil {
		return errorResult(model.ErrAccessDenied, err.Error())
	}

	var previousSize int64 = -1
	var previousContent string
	overwritten := false
	if info, statErr := os.Stat(resolved); statErr == nil && !info.IsDir() {
		overwritten = true
		previousSize = info.Size()
		if existing, readErr := os.ReadFile(resolved); readErr == nil {
			previousContent = string(existing)
		}
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return errorResult(model.ErrIO, "create parent directories: "+err.Error())
	}
	if err := os.WriteFile(resolved, []byte(input.Content), 0o644); err != nil {
		return errorResult(model.ErrIO, "write file: "+err.Error())
	}

	agent.EmitOutput(ctx, unifiedDiff(input.Path, previousContent, input.Content))

	result := map[string]any{
		"path":        input.Path,
		"bytes_written": len(input.Content),
	}
	if overwritten {
		result["overwritten"] = true
		result["previous_size"] = previousSize
	} else {
		result["created"] = true
	}
	return jsonResult(result)
}
