package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/evansenter/clemini-go/internal/agent"
	"github.com/evansenter/clemini-go/pkg/model"
)

// ReadTool reads a UTF-8 text file from the workspace, optionally windowed
// to a line range.
type ReadTool struct {
	cfg Config
}

// NewReadTool constructs a read tool scoped to cfg.Sandbox.
func NewReadTool(cfg Config) *ReadTool { return &ReadTool{cfg: cfg} }

// Declaration implements agent.Tool.
func (t *ReadTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":   map[string]any{"type": "string", "description": "File path, absolute or relative to the working directory."},
			"offset": map[string]any{"type": "integer", "minimum": 1, "description": "1-based line number to start from (default 1)."},
			"limit":  map[string]any{"type": "integer", "minimum": 1, "description": "Maximum number of lines to return."},
		},
		"required": []string{"path"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "read",
		Description: "Read a UTF-8 text file, optionally windowed to a line range.",
		Parameters:  raw,
		Required:    []string{"path"},
	}
}

// Call implements agent.Tool.
func (t *ReadTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Path   string `json:"path"`
		Offset int    `json:"offset"`
		Limit  int    `json:"limit"`
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

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return errorResult(model.ErrNotFound, "file not found: "+input.Path)
		}
		return errorResult(model.ErrIO, "read file: "+err.Error())
	}
	if !utf8.Valid(data) {
		return errorResult(model.ErrIO, "file is not valid UTF-8: "+input.Path)
	}

	lines := strings.Split(string(data), "\n")
	total := len(lines)

	offset := input.Offset
	if offset < 1 {
		offset = 1
	}
	start := offset - 1
	if start > total {
		start = total
	}
	end := total
	if input.Limit > 0 && start+input.Limit < end {
		end = start + input.Limit
	}
	window := lines[start:end]
	content := strings.Join(window, "\n")

	if len(content) > t.cfg.maxRead() {
		content = content[:t.cfg.maxRead()]
	}

	agent.EmitOutput(ctx, fmt.Sprintf("read %s: %d lines (showing %d-%d of %d)", input.Path, len(window), start+1, end, total))

	return jsonResult(map[string]any{
		"path":        input.Path,
		"content":     content,
		"line_count":  total,
		"start_line":  start + 1,
		"end_line":    end,
	})
}
