package eventbus

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/evansenter/clemini-go/pkg/model"
)

// RegisterTool wraps Store.Register.
type RegisterTool struct{ Config }

func NewRegisterTool(cfg Config) *RegisterTool { return &RegisterTool{cfg} }

func (t *RegisterTool) Declaration() model.ToolDeclaration {
	return model.ToolDeclaration{
		Name:        "event_bus_register",
		Description: "Register (or resume) a session on the event bus, keyed by (machine, client_id).",
		Parameters: objectSchema(map[string]any{
			"name":      map[string]any{"type": "string"},
			"machine":   map[string]any{"type": "string"},
			"cwd":       map[string]any{"type": "string"},
			"client_id": map[string]any{"type": "string"},
		}, []string{"name", "machine", "cwd"}),
		Required: []string{"name", "machine", "cwd"},
	}
}

func (t *RegisterTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct{ Name, Machine, Cwd, ClientID string }
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Machine) == "" {
		return errorResult(model.ErrInvalidArgument, "name and machine are required")
	}
	id, err := t.Store.Register(input.Name, input.Machine, input.Cwd, input.ClientID)
	if err != nil {
		return errorResult(model.ErrIO, "register session: "+err.Error())
	}
	return jsonResult(map[string]any{"session_id": id})
}

// HeartbeatTool wraps Store.Heartbeat.
type HeartbeatTool struct{ Config }

func NewHeartbeatTool(cfg Config) *HeartbeatTool { return &HeartbeatTool{cfg} }

func (t *HeartbeatTool) Declaration() model.ToolDeclaration {
	return model.ToolDeclaration{
		Name:        "event_bus_heartbeat",
		Description: "Refresh a session's last-heartbeat timestamp.",
		Parameters:  objectSchema(map[string]any{"session_id": map[string]any{"type": "string"}}, []string{"session_id"}),
		Required:    []string{"session_id"},
	}
}

func (t *HeartbeatTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct{ SessionID string `json:"session_id"` }
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if input.SessionID == "" {
		return errorResult(model.ErrInvalidArgument, "session_id is required")
	}
	if err := t.Store.Heartbeat(input.SessionID); err != nil {
		return errorResult(model.ErrIO, "heartbeat: "+err.Error())
	}
	return jsonResult(map[string]any{"ok": true})
}

// UnregisterTool wraps Store.Unregister.
type UnregisterTool struct{ Config }

func NewUnregisterTool(cfg Config) *UnregisterTool { return &UnregisterTool{cfg} }

func (t *UnregisterTool) Declaration() model.ToolDeclaration {
	return model.ToolDeclaration{
		Name:        "event_bus_unregister",
		Description: "Remove a session immediately, without waiting for TTL reap.",
		Parameters:  objectSchema(map[string]any{"session_id": map[string]any{"type": "string"}}, []string{"session_id"}),
		Required:    []string{"session_id"},
	}
}

func (t *UnregisterTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct{ SessionID string `json:"session_id"` }
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if input.SessionID == "" {
		return errorResult(model.ErrInvalidArgument, "session_id is required")
	}
	if err := t.Store.Unregister(input.SessionID); err != nil {
		return errorResult(model.ErrIO, "unregister: "+err.Error())
	}
	return jsonResult(map[string]any{"ok": true})
}

// ListSessionsTool wraps Store.ListSessions.
type ListSessionsTool struct{ Config }

func NewListSessionsTool(cfg Config) *ListSessionsTool { return &ListSessionsTool{cfg} }

func (t *ListSessionsTool) Declaration() model.ToolDeclaration {
	return model.ToolDeclaration{
		Name:        "event_bus_list_sessions",
		Description: "List live sessions, reaping any that have exceeded the heartbeat TTL.",
		Parameters:  objectSchema(map[string]any{}, nil),
	}
}

func (t *ListSessionsTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	sessions, err := t.Store.ListSessions()
	if err != nil {
		return errorResult(model.ErrIO, "list sessions: "+err.Error())
	}
	return jsonResult(map[string]any{"sessions": sessions})
}

// ListChannelsTool wraps Store.ListChannels.
type ListChannelsTool struct{ Config }

func NewListChannelsTool(cfg Config) *ListChannelsTool { return &ListChannelsTool{cfg} }

func (t *ListChannelsTool) Declaration() model.ToolDeclaration {
	return model.ToolDeclaration{
		Name:        "event_bus_list_channels",
		Description: "List every channel that has received an event, plus 'all', with resolved subscriber counts.",
		Parameters:  objectSchema(map[string]any{}, nil),
	}
}

func (t *ListChannelsTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	channels, err := t.Store.ListChannels()
	if err != nil {
		return errorResult(model.ErrIO, "list channels: "+err.Error())
	}
	return jsonResult(map[string]any{"channels": channels})
}
