package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/evansenter/clemini-go/internal/tools"
	"github.com/evansenter/clemini-go/pkg/model"
)

const (
	maxLineLength     = 1000
	defaultMaxResults = 100
)

// GrepTool searches file contents under a directory with a regular
// expression, coalescing adjacent matches and their context lines into
// blocks.
type GrepTool struct {
	cfg Config
}

// NewGrepTool constructs a grep tool scoped to cfg.Sandbox.
func NewGrepTool(cfg Config) *GrepTool { return &GrepTool{cfg: cfg} }

// Declaration implements agent.Tool.
func (t *GrepTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern":         map[string]any{"type": "string"},
			"directory":       map[string]any{"type": "string"},
			"file_pattern":    map[string]any{"type": "string", "description": "Glob restricting which files are searched."},
			"case_insensitive": map[string]any{"type": "boolean"},
			"context":         map[string]any{"type": "integer", "minimum": 0, "description": "Lines of context around each match."},
			"max_results":     map[string]any{"type": "integer", "minimum": 1},
		},
		"required": []string{"pattern"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "grep",
		Description: "Search file contents under a directory with a regular expression.",
		Parameters:  raw,
		Required:    []string{"pattern"},
	}
}

type grepBlock struct {
	Path  string   `json:"path"`
	Lines []string `json:"lines"`
}

// Call implements agent.Tool.
func (t *GrepTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Pattern         string `json:"pattern"`
		Directory       string `json:"directory"`
		FilePattern     string `json:"file_pattern"`
		CaseInsensitive bool   `json:"case_insensitive"`
		Context         int    `json:"context"`
		MaxResults      int    `json:"max_results"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(input.Pattern) == "" {
		return errorResult(model.ErrInvalidArgument, "pattern is required")
	}

	exprSrc := input.Pattern
	if input.CaseInsensitive {
		exprSrc = "(?i)" + exprSrc
	}
	expr, err := regexp.Compile(exprSrc)
	if err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid regular expression: "+err.Error())
	}

	base := input.Directory
	if base == "" {
		base = t.cfg.CWD
	}
	resolvedBase, err := t.cfg.Sandbox.ResolveAndValidate(base, t.cfg.CWD)
	if err != nil {
		return errorResult(model.ErrAccessDenied, err.Error())
	}

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	var blocks []grepBlock
	matchCount := 0
	truncated := false

	walkErr := filepath.WalkDir(resolvedBase, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, relErr := filepath.Rel(resolvedBase, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if rel != "." && tools.ExcludedDirNames[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if matchCount >= maxResults {
			truncated = true
			return nil
		}
		if input.FilePattern != "" {
			matched, _ := doublestar.Match(input.FilePattern, rel)
			if !matched {
				return nil
			}
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		if bytes.IndexByte(data, 0) != -1 {
			return nil
		}

		lines := strings.Split(string(data), "\n")
		matchedIdx := map[int]bool{}
		for i, line := range lines {
			if expr.MatchString(line) {
				matchedIdx[i] = true
				matchCount++
				if matchCount >= maxResults {
					break
				}
			}
		}
		if len(matchedIdx) == 0 {
			return nil
		}

		for _, block := range coalesce(matchedIdx, len(lines), input.Context) {
			rendered := make([]string, 0, len(block))
			for _, idx := range block {
				prefix := " "
				if matchedIdx[idx] {
					prefix = ">"
				}
				line := lines[idx]
				if len(line) > maxLineLength {
					line = line[:maxLineLength]
				}
				rendered = append(rendered, prefix+line)
			}
			blocks = append(blocks, grepBlock{Path: rel, Lines: rendered})
		}
		return nil
	})
	if walkErr != nil && walkErr != ctx.Err() {
		return errorResult(model.ErrIO, "search: "+walkErr.Error())
	}

	return jsonResult(map[string]any{
		"matches":     blocks,
		"match_count": matchCount,
		"truncated":   truncated,
	})
}

// coalesce groups matched line indices plus up to `context` surrounding
// lines on each side into contiguous, non-overlapping blocks.
func coalesce(matched map[int]bool, total, context int) [][]int {
	if len(matched) == 0 {
		return nil
	}
	idxs := make([]int, 0, len(matched))
	for i := range matched {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)

	var blocks [][]int
	var current []int
	lastEnd := -1
	for _, m := range idxs {
		start := m - context
		if start < 0 {
			start = 0
		}
		end := m + context
		if end > total-1 {
			end = total - 1
		}
		if current != nil && start <= lastEnd+1 {
			for i := lastEnd + 1; i <= end; i++ {
				current = append(current, i)
			}
		} else {
			if current != nil {
				blocks = append(blocks, current)
			}
			current = nil
			for i := start; i <= end; i++ {
				current = append(current, i)
			}
		}
		lastEnd = end
	}
	if current != nil {
		blocks = append(blocks, current)
	}
	return blocks
}
