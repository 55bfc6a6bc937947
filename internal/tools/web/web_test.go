package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func mustArgs(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return raw
}

func TestWebFetchExtractsTitleAndBodyAsMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Example</title></head><body>
			<article><h1>Example</h1><p>This is the main readable content of the page, long enough to be detected as the primary article body by the extractor.</p></article>
		</body></html>`))
	}))
	defer server.Close()

	tool := NewWebFetchTool(Config{})
	res := tool.Call(context.Background(), mustArgs(t, map[string]any{"url": server.URL}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		Content string `json:"content"`
	}
	json.Unmarshal(res.Result, &payload)
	if !strings.Contains(payload.Content, "main readable content") {
		t.Fatalf("expected extracted body text, got %q", payload.Content)
	}
}

func TestWebFetchPropagatesHTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	res := NewWebFetchTool(Config{}).Call(context.Background(), mustArgs(t, map[string]any{"url": server.URL}))
	if !res.IsError() {
		t.Fatal("expected error for 404 response")
	}
}

func TestWebSearchParsesAbstractAndRelatedTopics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"AbstractText":"a summary","RelatedTopics":[{"Text":"topic one"},{"Text":"topic two"}]}`))
	}))
	defer server.Close()

	tool := NewWebSearchTool(Config{})
	tool.baseURL = server.URL + "/"
	res := tool.Call(context.Background(), mustArgs(t, map[string]any{"query": "go programming"}))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	var payload struct {
		Abstract      string   `json:"abstract"`
		RelatedTopics []string `json:"related_topics"`
	}
	json.Unmarshal(res.Result, &payload)
	if payload.Abstract != "a summary" || len(payload.RelatedTopics) != 2 {
		t.Fatalf("unexpected result: %+v", payload)
	}
}
