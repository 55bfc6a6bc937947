package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/evansenter/clemini-go/internal/acp"
	"github.com/evansenter/clemini-go/internal/agent"
	"github.com/evansenter/clemini-go/internal/observability"
	"github.com/evansenter/clemini-go/pkg/model"
)

// acpHandler is the --acp-server child side: one agent loop serving a
// single session across initialize/new_session/prompt/cancel, streaming
// session_notification updates back to the parent as the loop's events
// arrive.
type acpHandler struct {
	rt *runtime

	mu            sync.Mutex
	sessionID     string
	interactionID string
	cancelCurrent context.CancelFunc
}

func newACPHandler(rt *runtime) *acpHandler {
	return &acpHandler{rt: rt}
}

// Initialize implements acp.Handler.
func (h *acpHandler) Initialize(ctx context.Context, conn *acp.Conn, params json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(map[string]string{"protocol_version": "1"})
}

// NewSession implements acp.Handler.
func (h *acpHandler) NewSession(ctx context.Context, conn *acp.Conn, params json.RawMessage) (json.RawMessage, error) {
	var p acp.NewSessionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid new_session params: %w", err)
	}
	h.mu.Lock()
	h.sessionID = "sess-" + h.rt.cfg.Workspace.CWD
	h.mu.Unlock()
	return json.Marshal(acp.NewSessionResult{SessionID: h.sessionID})
}

// Prompt implements acp.Handler. It drives one full agent turn,
// forwarding every text delta and tool-status change as a
// session_notification before returning the turn's final response.
func (h *acpHandler) Prompt(ctx context.Context, conn *acp.Conn, params json.RawMessage) (json.RawMessage, error) {
	var p acp.PromptParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid prompt params: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancelCurrent = cancel
	previous := h.interactionID
	h.mu.Unlock()
	defer cancel()

	logCtx := observability.AddSessionID(runCtx, p.SessionID)
	if previous != "" {
		logCtx = observability.AddInteractionID(logCtx, previous)
	}
	h.rt.logger.Info(logCtx, "acp prompt started")

	text := ""
	for i, block := range p.ContentBlocks {
		if i > 0 {
			text += "\n"
		}
		text += block
	}

	events, done := h.rt.loop.Run(runCtx, agent.Turn{
		Model:                 h.rt.cfg.LLM.Model,
		PreviousInteractionID: previous,
		UserText:              text,
	})

	for ev := range events {
		h.forward(conn, p.SessionID, ev)
	}
	result := <-done
	if result.Err != nil {
		h.rt.logger.Error(logCtx, "acp prompt failed", "error", result.Err)
		return json.Marshal(acp.PromptResult{Error: result.Err.Error()})
	}

	h.mu.Lock()
	h.interactionID = result.InteractionID
	h.mu.Unlock()

	h.rt.logger.Info(observability.AddInteractionID(logCtx, result.InteractionID), "acp prompt completed",
		"tool_calls_executed", result.ToolCallsExecuted, "total_tokens", result.TotalTokens)

	return json.Marshal(acp.PromptResult{Response: result.Response})
}

// Cancel implements acp.Handler, stopping the in-flight prompt's run.
func (h *acpHandler) Cancel(ctx context.Context, conn *acp.Conn, params json.RawMessage) (json.RawMessage, error) {
	h.mu.Lock()
	cancel := h.cancelCurrent
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return json.Marshal(map[string]bool{"cancelled": true})
}

func (h *acpHandler) forward(conn *acp.Conn, sessionID string, ev model.AgentEvent) {
	switch {
	case ev.TextDelta != "":
		_ = conn.Notify(acp.MethodSessionUpdate, acp.SessionUpdate{SessionID: sessionID, Kind: "text_chunk", TextChunk: ev.TextDelta})
	case ev.ToolOutput != "":
		_ = conn.Notify(acp.MethodSessionUpdate, acp.SessionUpdate{SessionID: sessionID, Kind: "text_chunk", TextChunk: ev.ToolOutput})
	case len(ev.ToolExecuting) > 0:
		for _, call := range ev.ToolExecuting {
			_ = conn.Notify(acp.MethodSessionUpdate, acp.SessionUpdate{
				SessionID: sessionID, Kind: "tool_call", ToolCallTitle: call.Name, ToolCallStatus: "running",
			})
		}
	case ev.ToolResult != nil:
		status := "completed"
		if ev.ToolResult.Result == nil {
			status = "failed"
		}
		_ = conn.Notify(acp.MethodSessionUpdate, acp.SessionUpdate{
			SessionID: sessionID, Kind: "tool_call", ToolCallTitle: ev.ToolResult.Name, ToolCallStatus: status,
		})
	}
}
