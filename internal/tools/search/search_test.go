package search

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

func TestGlobFindsFilesAndExcludesVCSDirs(t *testing.T) {
	cfg, root := newTestConfig(t)
	os.WriteFile(filepath.Join(root, "a.go"), []byte("package a"), 0o644)
	os.MkdirAll(filepath.Join(root, "sub"), 0o755)
	os.WriteFile(filepath.Join(root, "sub", "b.go"), []byte("package b"), 0o644)
	os.MkdirAll(filepath.Join(root, "node_modules"), 0o755)
	os.WriteFile(filepath.Join(root, "node_modules", "c.go"), []byte("package c"), 0o644)

	res := NewGlobTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"pattern": "**/*.go"}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		Paths []string `json:"paths"`
	}
	json.Unmarshal(res.Result, &payload)
	if len(payload.Paths) != 2 {
		t.Fatalf("expected 2 matches excluding node_modules, got %v", payload.Paths)
	}
}

func TestGlobLiteralPatternOnDirectoryIsInvalid(t *testing.T) {
	cfg, root := newTestConfig(t)
	os.MkdirAll(filepath.Join(root, "sub"), 0o755)

	res := NewGlobTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"pattern": "sub"}))
	if !res.IsError() || res.ErrorCode != model.ErrInvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT for a literal directory pattern, got %+v", res)
	}
}

func TestGrepCoalescesContextAndPrefixesMatches(t *testing.T) {
	cfg, root := newTestConfig(t)
	content := "one\ntwo\nneedle\nfour\nfive\n"
	os.WriteFile(filepath.Join(root, "f.txt"), []byte(content), 0o644)

	res := NewGrepTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{
		"pattern": "needle", "context": 1,
	}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		Matches []grepBlock `json:"matches"`
	}
	json.Unmarshal(res.Result, &payload)
	if len(payload.Matches) != 1 {
		t.Fatalf("expected one coalesced block, got %d", len(payload.Matches))
	}
	block := payload.Matches[0].Lines
	if len(block) != 3 || block[0][0] != ' ' || block[1][0] != '>' || block[2][0] != ' ' {
		t.Fatalf("expected context/match/context prefixes, got %v", block)
	}
}

func TestGrepSkipsBinaryFiles(t *testing.T) {
	cfg, root := newTestConfig(t)
	os.WriteFile(filepath.Join(root, "bin.dat"), []byte("needle\x00more"), 0o644)

	res := NewGrepTool(cfg).Call(context.Background(), mustArgs(t, map[string]any{"pattern": "needle"}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		MatchCount int `json:"match_count"`
	}
	json.Unmarshal(res.Result, &payload)
	if payload.MatchCount != 0 {
		t.Fatalf("expected binary file to be skipped, got match_count=%d", payload.MatchCount)
	}
}
