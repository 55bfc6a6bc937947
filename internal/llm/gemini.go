// Package llm adapts concrete LLM SDKs to the agent package's opaque
// streaming provider contract.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/evansenter/clemini-go/internal/agent"
	"github.com/evansenter/clemini-go/pkg/model"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	// APIKey is read from GEMINI_API_KEY if empty.
	APIKey string
	// Model is the default model name, e.g. "gemini-2.0-flash".
	Model string
}

// GeminiProvider implements agent.LLMProvider over google.golang.org/genai.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider constructs a provider, resolving GEMINI_API_KEY when
// cfg.APIKey is unset. Any real LLM turn requires this env var per the
// external-interfaces contract.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for a real LLM turn")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiProvider{client: client, model: modelName}, nil
}

// Name implements agent.LLMProvider.
func (p *GeminiProvider) Name() string { return "gemini" }

// Complete implements agent.LLMProvider, streaming text and function-call
// deltas followed by a single Done chunk carrying usage and a synthesized
// interaction id (Gemini has no native "previous turn id"; this provider
// mints one from the response id it returns, reused as PreviousInteractionID
// so the caller's multi-turn bookkeeping stays provider-agnostic).
func (p *GeminiProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan agent.CompletionChunk, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = p.model
	}

	contents, err := buildContents(req)
	if err != nil {
		return nil, err
	}

	genConfig := &genai.GenerateContentConfig{}
	if req.System != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if tools := buildTools(req.Tools); len(tools) > 0 {
		genConfig.Tools = tools
	}

	out := make(chan agent.CompletionChunk, 16)
	go func() {
		defer close(out)

		var totalTokens int64
		var interactionID string

		for resp, streamErr := range p.client.Models.GenerateContentStream(ctx, modelName, contents, genConfig) {
			if streamErr != nil {
				out <- agent.CompletionChunk{Err: classifyErr(streamErr)}
				return
			}
			if resp == nil {
				continue
			}
			if resp.ResponseID != "" {
				interactionID = resp.ResponseID
			}
			if resp.UsageMetadata != nil {
				totalTokens = int64(resp.UsageMetadata.TotalTokenCount)
			}
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if part.Text != "" {
						out <- agent.CompletionChunk{Text: part.Text}
					}
					if part.FunctionCall != nil {
						args, _ := json.Marshal(part.FunctionCall.Args)
						out <- agent.CompletionChunk{ToolCall: &model.ToolCall{
							ID:   part.FunctionCall.ID,
							Name: part.FunctionCall.Name,
							Args: args,
						}}
					}
				}
			}
		}

		out <- agent.CompletionChunk{Done: true, InteractionID: interactionID, TotalTokens: totalTokens}
	}()

	return out, nil
}

func buildContents(req *agent.CompletionRequest) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(req.Payload))
	for _, entry := range req.Payload {
		switch {
		case entry.Text != "":
			contents = append(contents, genai.NewContentFromText(entry.Text, genai.RoleUser))
		case entry.FunctionResult != nil:
			fr := entry.FunctionResult
			response := map[string]any{"result": json.RawMessage(fr.Result)}
			if fr.IsError() {
				response = map[string]any{"error": fr.Error, "error_code": fr.ErrorCode}
			}
			part := genai.NewPartFromFunctionResponse(fr.Name, response)
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("completion request has no payload")
	}
	return contents, nil
}

func buildTools(decls []model.ToolDeclaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}
	fns := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		var schema map[string]any
		_ = json.Unmarshal(d.Parameters, &schema)
		fns = append(fns, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  genai.SchemaFromJSONSchema(schema),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: fns}}
}

// classifyErr wraps a genai transport error with the agent package's
// retryable/retry-after contract: HTTP 429 and 5xx are retryable.
func classifyErr(err error) error {
	msg := strings.ToLower(err.Error())
	retryable := strings.Contains(msg, "429") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "deadline exceeded")
	return &agent.TransportError{Err: err, Retryable: retryable}
}
