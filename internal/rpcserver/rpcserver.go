// Package rpcserver implements the --mcp-server JSON-RPC surface: a
// line-framed stdio server exposing initialize, tools/list, and
// tools/call, with tools/call dispatching to clemini_chat, clemini_reset,
// and clemini_rebuild. It reuses internal/acp's newline-delimited
// JSON-RPC 2.0 framing rather than a second codec, since both surfaces
// speak the same wire shape.
package rpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/evansenter/clemini-go/internal/acp"
)

// Runner is the agent-loop surface this server drives. previousInteractionID
// is empty for a session's first turn; Turn returns the new interaction id
// to retain for the next call on the same session.
type Runner interface {
	Turn(ctx context.Context, message, previousInteractionID string) (response, interactionID string, err error)
	// Rebuild fully reinitializes the runner (fresh tool registry, fresh
	// LLM client), discarding any per-session continuation state.
	Rebuild(ctx context.Context) error
}

const defaultSessionID = "default"

// Server drives one stdio JSON-RPC connection, dispatching requests to a
// Runner and tracking a per-session_id interaction id for multi-turn
// continuation.
type Server struct {
	runner Runner
	conn   *acp.Conn

	mu           sync.Mutex
	interactions map[string]string
}

// NewServer builds a Server around runner, reading/writing conn.
func NewServer(runner Runner, conn *acp.Conn) *Server {
	return &Server{runner: runner, conn: conn, interactions: make(map[string]string)}
}

// Serve reads one frame per line until the stream closes or ctx is
// canceled. Requests under "notifications/*" are acknowledged silently
// (no response frame, per the JSON-RPC notification contract); every
// other request gets exactly one response frame.
func (s *Server) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, ok := s.conn.ReadFrame()
		if !ok {
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		var req acp.Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.reply(nil, nil, &acp.Error{Code: acp.ErrParseError, Message: err.Error()})
			continue
		}

		if strings.HasPrefix(req.Method, "notifications/") {
			continue
		}

		result, rpcErr := s.dispatch(ctx, req)
		s.reply(req.ID, result, rpcErr)
	}
}

func (s *Server) reply(id any, result json.RawMessage, rpcErr *acp.Error) {
	_ = s.conn.WriteFrame(acp.Response{JSONRPC: "2.0", ID: id, Result: result, Error: rpcErr})
}

func (s *Server) dispatch(ctx context.Context, req acp.Request) (json.RawMessage, *acp.Error) {
	switch req.Method {
	case "initialize":
		return s.handleInitialize()
	case "tools/list":
		return s.handleToolsList()
	case "tools/call":
		return s.handleToolsCall(ctx, req.Params)
	default:
		return nil, &acp.Error{Code: acp.ErrMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method)}
	}
}

func (s *Server) handleInitialize() (json.RawMessage, *acp.Error) {
	raw, err := json.Marshal(map[string]any{
		"protocol_version": "2024-11-05",
		"server_info":      map[string]string{"name": "clemini", "version": "0.1.0"},
		"capabilities":     map[string]any{"tools": map[string]bool{"listChanged": false}},
	})
	if err != nil {
		return nil, &acp.Error{Code: acp.ErrInternalError, Message: err.Error()}
	}
	return raw, nil
}

func (s *Server) handleToolsList() (json.RawMessage, *acp.Error) {
	raw, err := json.Marshal(map[string]any{"tools": toolDescriptors()})
	if err != nil {
		return nil, &acp.Error{Code: acp.ErrInternalError, Message: err.Error()}
	}
	return raw, nil
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (json.RawMessage, *acp.Error) {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, &acp.Error{Code: acp.ErrInternalError, Message: "invalid tools/call params: " + err.Error()}
	}

	var (
		result any
		err    error
	)
	switch call.Name {
	case "clemini_chat":
		result, err = s.callChat(ctx, call.Arguments)
	case "clemini_reset":
		result, err = s.callReset(call.Arguments)
	case "clemini_rebuild":
		result, err = s.callRebuild(ctx)
	default:
		return nil, &acp.Error{Code: acp.ErrMethodNotFound, Message: fmt.Sprintf("unknown tool %q", call.Name)}
	}
	if err != nil {
		return nil, &acp.Error{Code: acp.ErrInternalError, Message: err.Error()}
	}

	raw, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return nil, &acp.Error{Code: acp.ErrInternalError, Message: marshalErr.Error()}
	}
	return raw, nil
}

func (s *Server) callChat(ctx context.Context, args json.RawMessage) (any, error) {
	var input struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("invalid clemini_chat arguments: %w", err)
	}
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = defaultSessionID
	}

	s.mu.Lock()
	previous := s.interactions[sessionID]
	s.mu.Unlock()

	response, interactionID, err := s.runner.Turn(ctx, input.Message, previous)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.interactions[sessionID] = interactionID
	s.mu.Unlock()

	return map[string]string{"response": response}, nil
}

func (s *Server) callReset(args json.RawMessage) (any, error) {
	var input struct {
		SessionID string `json:"session_id"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &input); err != nil {
			return nil, fmt.Errorf("invalid clemini_reset arguments: %w", err)
		}
	}
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = defaultSessionID
	}

	s.mu.Lock()
	delete(s.interactions, sessionID)
	s.mu.Unlock()

	return map[string]bool{"ok": true}, nil
}

func (s *Server) callRebuild(ctx context.Context) (any, error) {
	if err := s.runner.Rebuild(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.interactions = make(map[string]string)
	s.mu.Unlock()
	return map[string]bool{"ok": true}, nil
}

func toolDescriptors() []map[string]any {
	return []map[string]any{
		{
			"name":        "clemini_chat",
			"description": "Send a message to the agent, continuing the session's previous turn if one exists.",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message":    map[string]any{"type": "string"},
					"session_id": map[string]any{"type": "string"},
				},
				"required": []string{"message"},
			},
		},
		{
			"name":        "clemini_reset",
			"description": "Drop a session's retained interaction id, starting its next turn fresh.",
			"inputSchema": map[string]any{
				"type":       "object",
				"properties": map[string]any{"session_id": map[string]any{"type": "string"}},
			},
		},
		{
			"name":        "clemini_rebuild",
			"description": "Fully reinitialize the agent runner, discarding all sessions' continuation state.",
			"inputSchema": map[string]any{"type": "object", "properties": map[string]any{}},
		},
	}
}
