package files

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/evansenter/clemini-go/internal/tools"
	"github.com/evansenter/clemini-go/pkg/model"
)

// ListDirectoryTool returns the immediate children of a directory. It was
// present in the original Rust implementation's tool set but dropped from
// the distilled contract list; supplemented here since it fits the same
// sandbox and exclude-list rules as glob.
type ListDirectoryTool struct {
	cfg Config
}

// NewListDirectoryTool constructs a list_directory tool scoped to cfg.Sandbox.
func NewListDirectoryTool(cfg Config) *ListDirectoryTool { return &ListDirectoryTool{cfg: cfg} }

// Declaration implements agent.Tool.
func (t *ListDirectoryTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Directory to list (absolute or relative to the working directory)."},
		},
		"required": []string{"path"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "list_directory",
		Description: "List the immediate children of a directory, excluding build/vcs directories.",
		Parameters:  raw,
		Required:    []string{"path"},
	}
}

type directoryEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// Call implements agent.Tool.
func (t *ListDirectoryTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Path string `json:"path"`
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

	entries, err := os.ReadDir(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return errorResult(model.ErrNotFound, "directory not found: "+input.Path)
		}
		return errorResult(model.ErrIO, "list directory: "+err.Error())
	}

	out := make([]directoryEntry, 0, len(entries))
	for _, e := range entries {
		if tools.ExcludedDirNames[e.Name()] {
			continue
		}
		info, infoErr := e.Info()
		var size int64
		if infoErr == nil {
			size = info.Size()
		}
		out = append(out, directoryEntry{Name: e.Name(), IsDir: e.IsDir(), Size: size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return jsonResult(map[string]any{
		"path":    input.Path,
		"entries": out,
	})
}
