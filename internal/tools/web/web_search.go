package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/evansenter/clemini-go/pkg/model"
)

const instantAnswerEndpoint = "https://api.duckduckgo.com/"

// WebSearchTool issues one HTTP GET against a fixed instant-answer
// endpoint and returns its abstract and related topics.
type WebSearchTool struct {
	cfg     Config
	baseURL string
}

// NewWebSearchTool constructs a web_search tool around cfg.
func NewWebSearchTool(cfg Config) *WebSearchTool {
	return &WebSearchTool{cfg: cfg, baseURL: instantAnswerEndpoint}
}

// Declaration implements agent.Tool.
func (t *WebSearchTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"query": map[string]any{"type": "string"}},
		"required":   []string{"query"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "web_search",
		Description: "Query a fixed instant-answer endpoint for a short abstract and related topics.",
		Parameters:  raw,
		Required:    []string{"query"},
	}
}

type instantAnswerResponse struct {
	Abstract      string `json:"AbstractText"`
	RelatedTopics []struct {
		Text string `json:"Text"`
	} `json:"RelatedTopics"`
}

// Call implements agent.Tool.
func (t *WebSearchTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(input.Query) == "" {
		return errorResult(model.ErrInvalidArgument, "query is required")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, t.cfg.timeout())
	defer cancel()

	reqURL := t.baseURL + "?" + url.Values{
		"q":           {input.Query},
		"format":      {"json"},
		"no_redirect": {"1"},
		"no_html":     {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid query: "+err.Error())
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.cfg.client().Do(req)
	if err != nil {
		if fetchCtx.Err() == context.DeadlineExceeded {
			return errorResult(model.ErrTimeout, "search timed out")
		}
		return errorResult(model.ErrIO, "search failed: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorResult(model.ErrIO, fmt.Sprintf("HTTP %d from search endpoint", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyCap))
	if err != nil {
		return errorResult(model.ErrIO, "read response: "+err.Error())
	}

	var parsed instantAnswerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return errorResult(model.ErrIO, "parse search response: "+err.Error())
	}

	related := make([]string, 0, len(parsed.RelatedTopics))
	for _, topic := range parsed.RelatedTopics {
		if topic.Text != "" {
			related = append(related, topic.Text)
		}
	}

	return jsonResult(map[string]any{
		"abstract":       parsed.Abstract,
		"related_topics": related,
	})
}
