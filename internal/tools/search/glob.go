package search

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/evansenter/clemini-go/internal/tools"
	"github.com/evansenter/clemini-go/pkg/model"
)

// GlobTool matches files under a directory against a doublestar pattern,
// honoring the shared directory exclude list.
type GlobTool struct {
	cfg Config
}

// NewGlobTool constructs a glob tool scoped to cfg.Sandbox.
func NewGlobTool(cfg Config) *GlobTool { return &GlobTool{cfg: cfg} }

// Declaration implements agent.Tool.
func (t *GlobTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern":   map[string]any{"type": "string"},
			"directory": map[string]any{"type": "string", "description": "Base directory to search from (default: working directory)."},
			"sort":      map[string]any{"type": "string", "enum": []string{"name", "modified", "size"}},
			"head_limit": map[string]any{"type": "integer", "minimum": 1},
			"offset":    map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"pattern"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "glob",
		Description: "Match files under a directory against a glob pattern.",
		Parameters:  raw,
		Required:    []string{"pattern"},
	}
}

type globMatch struct {
	Path     string `json:"path"`
	modified int64
	size     int64
}

// Call implements agent.Tool.
func (t *GlobTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Pattern   string `json:"pattern"`
		Directory string `json:"directory"`
		Sort      string `json:"sort"`
		HeadLimit int    `json:"head_limit"`
		Offset    int    `json:"offset"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(input.Pattern) == "" {
		return errorResult(model.ErrInvalidArgument, "pattern is required")
	}

	base := input.Directory
	if base == "" {
		base = t.cfg.CWD
	}
	resolvedBase, err := t.cfg.Sandbox.ResolveAndValidate(base, t.cfg.CWD)
	if err != nil {
		return errorResult(model.ErrAccessDenied, err.Error())
	}

	if !doublestar.ValidatePattern(input.Pattern) {
		return errorResult(model.ErrInvalidArgument, "invalid glob pattern: "+input.Pattern)
	}
	if !isLiteralPattern(input.Pattern) {
		if info, statErr := os.Stat(filepath.Join(resolvedBase, input.Pattern)); statErr == nil && info.IsDir() {
			return errorResult(model.ErrInvalidArgument, "pattern resolves to a directory; append /* to match its contents")
		}
	}

	fsys := os.DirFS(resolvedBase)
	names, err := doublestar.Glob(fsys, input.Pattern)
	if err != nil {
		return errorResult(model.ErrInvalidArgument, "glob: "+err.Error())
	}

	matches := make([]globMatch, 0, len(names))
	for _, name := range names {
		if tools.PathExcluded(name) {
			continue
		}
		full := filepath.Join(resolvedBase, name)
		info, statErr := os.Stat(full)
		if statErr != nil || info.IsDir() {
			continue
		}
		matches = append(matches, globMatch{Path: name, modified: info.ModTime().Unix(), size: info.Size()})
	}

	switch input.Sort {
	case "modified":
		sort.Slice(matches, func(i, j int) bool { return matches[i].modified > matches[j].modified })
	case "size":
		sort.Slice(matches, func(i, j int) bool { return matches[i].size > matches[j].size })
	default:
		sort.Slice(matches, func(i, j int) bool { return matches[i].Path < matches[j].Path })
	}

	total := len(matches)
	start := input.Offset
	if start > total {
		start = total
	}
	end := total
	truncated := false
	if input.HeadLimit > 0 && start+input.HeadLimit < end {
		end = start + input.HeadLimit
		truncated = true
	}
	window := matches[start:end]

	paths := make([]string, len(window))
	for i, m := range window {
		paths[i] = m.Path
	}

	return jsonResult(map[string]any{
		"paths":     paths,
		"truncated": truncated,
	})
}

// isLiteralPattern reports whether pattern contains no glob metacharacters.
func isLiteralPattern(pattern string) bool {
	return !strings.ContainsAny(pattern, "*?[{")
}
