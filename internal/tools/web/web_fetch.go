package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/evansenter/clemini-go/pkg/model"
)

const fetchBodyCap = 5 << 20

// WebFetchTool fetches a URL, extracts its readable content with
// go-shiori/go-readability, and renders a minimal Markdown document.
type WebFetchTool struct {
	cfg Config
}

// NewWebFetchTool constructs a web_fetch tool around cfg.
func NewWebFetchTool(cfg Config) *WebFetchTool { return &WebFetchTool{cfg: cfg} }

// Declaration implements agent.Tool.
func (t *WebFetchTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":    map[string]any{"type": "string"},
			"prompt": map[string]any{"type": "string"},
		},
		"required": []string{"url"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "web_fetch",
		Description: "Fetch a URL and extract its readable content as Markdown.",
		Parameters:  raw,
		Required:    []string{"url"},
	}
}

// Call implements agent.Tool.
func (t *WebFetchTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		URL    string `json:"url"`
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(input.URL) == "" {
		return errorResult(model.ErrInvalidArgument, "url is required")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, t.cfg.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, input.URL, nil)
	if err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid url: "+err.Error())
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.cfg.client().Do(req)
	if err != nil {
		if fetchCtx.Err() == context.DeadlineExceeded {
			return errorResult(model.ErrTimeout, "fetch timed out: "+input.URL)
		}
		return errorResult(model.ErrIO, "fetch failed: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorResult(model.ErrIO, fmt.Sprintf("HTTP %d from %s", resp.StatusCode, input.URL))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyCap))
	if err != nil {
		return errorResult(model.ErrIO, "read response: "+err.Error())
	}

	parsedURL, _ := url.Parse(input.URL)
	markdown := renderMarkdown(string(body), parsedURL)
	if len(markdown) > t.cfg.maxChars() {
		markdown = markdown[:t.cfg.maxChars()]
	}

	if input.Prompt != "" && t.cfg.Summarizer != nil {
		summary, err := t.cfg.Summarizer.Summarize(ctx, input.Prompt, markdown)
		if err != nil {
			return errorResult(model.ErrIO, "summarize fetched content: "+err.Error())
		}
		return jsonResult(map[string]any{"url": input.URL, "content": markdown, "summary": summary})
	}

	return jsonResult(map[string]any{"url": input.URL, "content": markdown})
}

// renderMarkdown extracts title and main content via readability and
// renders a minimal "# title\n\nbody" document.
func renderMarkdown(html string, pageURL *url.URL) string {
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return strings.TrimSpace(html)
	}
	var b strings.Builder
	if article.Title != "" {
		b.WriteString("# ")
		b.WriteString(article.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(strings.TrimSpace(article.TextContent))
	return b.String()
}
