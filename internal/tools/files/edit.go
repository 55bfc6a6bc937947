package files

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/evansenter/clemini-go/internal/agent"
	"github.com/evansenter/clemini-go/pkg/model"
)

const (
	suggestionTopK   = 3
	suggestionMinSim = 0.6
)

// EditTool applies a single find/replace edit to an existing file, with
// NOT_UNIQUE detection and zero-match similarity suggestions to help a
// caller recover from a near-miss old_string.
type EditTool struct {
	cfg Config
}

// NewEditTool constructs an edit tool scoped to cfg.Sandbox.
func NewEditTool(cfg Config) *EditTool { return &EditTool{cfg: cfg} }

// Declaration implements agent.Tool.
func (t *EditTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":                  map[string]any{"type": "string"},
			"old_string":            map[string]any{"type": "string"},
			"new_string":            map[string]any{"type": "string"},
			"replace_all":           map[string]any{"type": "boolean", "description": "Replace every occurrence instead of requiring exactly one (default false)."},
			"create_if_not_exists":  map[string]any{"type": "boolean", "description": "Create the file with new_string as its content if it does not exist (default false)."},
		},
		"required": []string{"path", "old_string", "new_string"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "edit",
		Description: "Replace old_string with new_string in a file, failing on ambiguous matches unless replace_all is set.",
		Parameters:  raw,
		Required:    []string{"path", "old_string", "new_string"},
	}
}

// Call implements agent.Tool.
func (t *EditTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Path               string `json:"path"`
		OldString          string `json:"old_string"`
		NewString          string `json:"new_string"`
		ReplaceAll         bool   `json:"replace_all"`
		CreateIfNotExists  bool   `json:"create_if_not_exists"`
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

	data, readErr := os.ReadFile(resolved)
	if readErr != nil {
		if !os.IsNotExist(readErr) {
			return errorResult(model.ErrIO, "read file: "+readErr.Error())
		}
		if !input.CreateIfNotExists {
			return errorResult(model.ErrNotFound, "file not found: "+input.Path)
		}
		if err := os.WriteFile(resolved, []byte(input.NewString), 0o644); err != nil {
			return errorResult(model.ErrIO, "write file: "+err.Error())
		}
		agent.EmitOutput(ctx, unifiedDiff(input.Path, "", input.NewString))
		return jsonResult(map[string]any{"path": input.Path, "created": true})
	}

	if !utf8.Valid(data) {
		return errorResult(model.ErrIO, "file is not valid UTF-8: "+input.Path)
	}
	content := string(data)

	if input.OldString == "" {
		return errorResult(model.ErrInvalidArgument, "old_string is required for an existing file")
	}

	count := strings.Count(content, input.OldString)
	if count == 0 {
		suggestions := similaritySuggestions(content, input.OldString, suggestionTopK, suggestionMinSim)
		return errorResultCtx(model.ErrNotFound, "old_string not found in "+input.Path, map[string]any{
			"suggestions": suggestions,
		})
	}

	if count > 1 && !input.ReplaceAll {
		lines := occurrenceLines(content, input.OldString)
		return errorResultCtx(model.ErrNotUnique, "old_string occurs multiple times; pass replace_all=true or disambiguate", map[string]any{
			"lines":       lines,
			"occurrences": count,
		})
	}

	var newContent string
	replacements := 1
	if input.ReplaceAll {
		newContent = strings.ReplaceAll(content, input.OldString, input.NewString)
		replacements = count
	} else {
		newContent = strings.Replace(content, input.OldString, input.NewString, 1)
	}

	if err := writeAtomic(resolved, newContent); err != nil {
		return errorResult(model.ErrIO, "write file: "+err.Error())
	}

	agent.EmitOutput(ctx, unifiedDiff(input.Path, content, newContent))

	return jsonResult(map[string]any{
		"path":         input.Path,
		"replacements": replacements,
	})
}

// occurrenceLines returns the 1-based line number of the start of every
// occurrence of needle in content.
func occurrenceLines(content, needle string) []int {
	var lines []int
	pos := 0
	for {
		idx := strings.Index(content[pos:], needle)
		if idx < 0 {
			break
		}
		absolute := pos + idx
		lines = append(lines, 1+strings.Count(content[:absolute], "\n"))
		pos = absolute + len(needle)
	}
	return lines
}

// writeAtomic writes content to a temp file in the same directory and
// renames it into place, so a crash mid-write never leaves a truncated
// file at the original path.
func writeAtomic(path, content string) error {
	tmp := path + ".tmp-edit"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
