// Package web implements the web_fetch and web_search tools.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/evansenter/clemini-go/pkg/model"
)

// Summarizer re-submits fetched content to the LLM for a short
// summarization turn when web_fetch is called with a prompt argument.
type Summarizer interface {
	Summarize(ctx context.Context, prompt, content string) (string, error)
}

// Config is shared by the tools in this package.
type Config struct {
	Client     *http.Client
	Timeout    time.Duration
	MaxChars   int
	Summarizer Summarizer
}

func (c Config) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return &http.Client{Timeout: c.timeout()}
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 30 * time.Second
}

func (c Config) maxChars() int {
	if c.MaxChars > 0 {
		return c.MaxChars
	}
	return 50_000
}

const userAgent = "Mozilla/5.0 (compatible; clemini/1.0)"

func errorResult(code model.ErrorCode, message string) model.FunctionResult {
	return model.FunctionResult{Error: message, ErrorCode: code}
}

func jsonResult(v any) model.FunctionResult {
	payload, err := json.Marshal(v)
	if err != nil {
		return errorResult(model.ErrIO, "encode result: "+err.Error())
	}
	return model.FunctionResult{Result: payload}
}
