package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/evansenter/clemini-go/internal/sandbox"
	"github.com/evansenter/clemini-go/pkg/model"
)

func newTestConfig(t *testing.T) (Config, string) {
	t.Helper()
	root := t.TempDir()
	sb, err := sandbox.New(root)
	if err != nil {
		t.Fatalf("new sandbox: %v", err)
	}
	return Config{Sandbox: sb, CWD: root}, root
}

func mustArgs(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return raw
}

func TestWriteCreatesThenOverwrites(t *testing.T) {
	cfg, root := newTestConfig(t)
	tool := NewWriteTool(cfg)

	res := tool.Call(context.Background(), mustArgs(t, map[string]any{"path": "notes.txt", "content": "hello world"}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var created map[string]any
	json.Unmarshal(res.Result, &created)
	if created["created"] != true {
		t.Fatalf("expected created:true, got %v", created)
	}

	res2 := tool.Call(context.Background(), mustArgs(t, map[string]any{"path": "notes.txt", "content": "bye"}))
	var overwritten map[string]any
	json.Unmarshal(res2.Result, &overwritten)
	if overwritten["overwritten"] != true {
		t.Fatalf("expected overwritten:true, got %v", overwritten)
	}

	data, err := os.ReadFile(filepath.Join(root, "notes.txt"))
	if err != nil || string(data) != "bye" {
		t.Fatalf("unexpected file contents: %q, err=%v", data, err)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	cfg, _ := newTestConfig(t)
	writeTool := NewWriteTool(cfg)
	readTool := NewReadTool(cfg)

	writeTool.Call(context.Background(), mustArgs(t, map[string]any{"path": "a.txt", "content": "line1\nline2\nline3"}))
	res := readTool.Call(context.Background(), mustArgs(t, map[string]any{"path": "a.txt"}))
	if res.IsError() {
		t.Fatalf("read failed: %s", res.Error)
	}
	var payload map[string]any
	json.Unmarshal(res.Result, &payload)
	if payload["content"] != "line1\nline2\nline3" {
		t.Fatalf("unexpected content: %v", payload["content"])
	}
}

func TestReadRejectsNonUTF8(t *testing.T) {
	cfg, root := newTestConfig(t)
	if err := os.WriteFile(filepath.Join(root, "bin.dat"), []byte{0xff, 0xfe, 0x00, 0xff}, 0o644); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	res := NewReadTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"path": "bin.dat"}))
	if !res.IsError() || res.ErrorCode != model.ErrIO {
		t.Fatalf("expected IO_ERROR for non-UTF-8 file, got %+v", res)
	}
}

func TestEditSingleMatch(t *testing.T) {
	cfg, _ := newTestConfig(t)
	NewWriteTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"path": "f.txt", "content": "hello world"}))

	res := NewEditTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{
		"path": "f.txt", "old_string": "world", "new_string": "clemini",
	}))
	if res.IsError() {
		t.Fatalf("edit failed: %s", res.Error)
	}

	back := NewEditTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{
		"path": "f.txt", "old_string": "clemini", "new_string": "world",
	}))
	if back.IsError() {
		t.Fatalf("reverse edit failed: %s", back.Error)
	}

	read := NewReadTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"path": "f.txt"}))
	var payload map[string]any
	json.Unmarshal(read.Result, &payload)
	if payload["content"] != "hello world" {
		t.Fatalf("edit then reverse edit did not round-trip: %v", payload["content"])
	}
}

func TestEditNotUniqueReportsLinesAndOccurrences(t *testing.T) {
	cfg, root := newTestConfig(t)
	path := filepath.Join(root, "dup.txt")
	if err := os.WriteFile(path, []byte("X first\nY second\nX third\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	res := NewEditTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{
		"path": "dup.txt", "old_string": "X", "new_string": "Z",
	}))
	if !res.IsError() || res.ErrorCode != model.ErrNotUnique {
		t.Fatalf("expected NOT_UNIQUE, got %+v", res)
	}
	if res.Context["occurrences"] != 2 {
		t.Fatalf("expected occurrences=2, got %v", res.Context["occurrences"])
	}
	lines, _ := res.Context["lines"].([]int)
	if len(lines) != 2 || lines[0] != 1 || lines[1] != 3 {
		t.Fatalf("expected lines [1 3], got %v", res.Context["lines"])
	}

	data, _ := os.ReadFile(path)
	if string(data) != "X first\nY second\nX third\n" {
		t.Fatal("file must be unchanged on NOT_UNIQUE")
	}
}

func TestEditReplaceAllRewritesEveryOccurrence(t *testing.T) {
	cfg, root := newTestConfig(t)
	path := filepath.Join(root, "dup.txt")
	os.WriteFile(path, []byte("X first\nY second\nX third\n"), 0o644)

	res := NewEditTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{
		"path": "dup.txt", "old_string": "X", "new_string": "Z", "replace_all": true,
	}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "Z first\nY second\nZ third\n" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestEditZeroMatchesSuggestsSimilarLines(t *testing.T) {
	cfg, root := newTestConfig(t)
	os.WriteFile(filepath.Join(root, "f.txt"), []byte("hello wrold\n"), 0o644)

	res := NewEditTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{
		"path": "f.txt", "old_string": "hello world", "new_string": "hi",
	}))
	if !res.IsError() || res.ErrorCode != model.ErrNotFound {
		t.Fatalf("expected NOT_FOUND, got %+v", res)
	}
	if res.Context["suggestions"] == nil {
		t.Fatal("expected suggestions in context")
	}
}

func TestEditCreateIfNotExists(t *testing.T) {
	cfg, root := newTestConfig(t)
	res := NewEditTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{
		"path": "new.txt", "old_string": "", "new_string": "fresh content", "create_if_not_exists": true,
	}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	data, err := os.ReadFile(filepath.Join(root, "new.txt"))
	if err != nil || string(data) != "fresh content" {
		t.Fatalf("expected created file with new content, got %q, err=%v", data, err)
	}
}

func TestListDirectoryExcludesVCSDirs(t *testing.T) {
	cfg, root := newTestConfig(t)
	os.MkdirAll(filepath.Join(root, ".git"), 0o755)
	os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644)
	os.Mkdir(filepath.Join(root, "sub"), 0o755)

	res := NewListDirectoryTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"path": "."}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		Entries []directoryEntry `json:"entries"`
	}
	json.Unmarshal(res.Result, &payload)
	for _, e := range payload.Entries {
		if e.Name == ".git" {
			t.Fatal(".git must be excluded from list_directory")
		}
	}
	if len(payload.Entries) != 2 {
		t.Fatalf("expected 2 entries (a.txt, sub), got %d", len(payload.Entries))
	}
}

func TestPathOutsideSandboxIsAccessDenied(t *testing.T) {
	cfg, _ := newTestConfig(t)
	res := NewReadTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"path": "../../etc/passwd"}))
	if !res.IsError() || res.ErrorCode != model.ErrAccessDenied {
		t.Fatalf("expected ACCESS_DENIED, got %+v", res)
	}
}
