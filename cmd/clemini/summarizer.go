package main

import (
	"context"
	"fmt"

	"github.com/evansenter/clemini-go/internal/agent"
	"github.com/evansenter/clemini-go/internal/llm"
)

// geminiSummarizer adapts the same Gemini provider the agent loop streams
// against into web.Summarizer's single-shot request/response shape, so
// web_fetch's optional summarization turn reuses one LLM client rather
// than opening a second one.
type geminiSummarizer struct {
	provider *llm.GeminiProvider
	model    string
}

func newGeminiSummarizer(provider *llm.GeminiProvider, model string) *geminiSummarizer {
	return &geminiSummarizer{provider: provider, model: model}
}

// Summarize implements web.Summarizer.
func (s *geminiSummarizer) Summarize(ctx context.Context, prompt, content string) (string, error) {
	req := &agent.CompletionRequest{
		Model: s.model,
		Payload: []agent.PayloadEntry{
			{Text: fmt.Sprintf("%s\n\n---\n\n%s", prompt, content)},
		},
	}
	stream, err := s.provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	var text string
	for chunk := range stream {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		text += chunk.Text
	}
	return text, nil
}
