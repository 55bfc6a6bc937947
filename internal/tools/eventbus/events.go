package eventbus

import (
	"context"
	"encoding/json"

	"github.com/evansenter/clemini-go/internal/eventbus"
	"github.com/evansenter/clemini-go/pkg/model"
)

// PublishEventTool wraps Store.PublishEvent.
type PublishEventTool struct{ Config }

func NewPublishEventTool(cfg Config) *PublishEventTool { return &PublishEventTool{cfg} }

func (t *PublishEventTool) Declaration() model.ToolDeclaration {
	return model.ToolDeclaration{
		Name:        "event_bus_publish_event",
		Description: "Append an event to a channel, optionally touching a session's heartbeat.",
		Parameters: objectSchema(map[string]any{
			"event_type": map[string]any{"type": "string"},
			"payload":    map[string]any{"type": "string"},
			"channel":    map[string]any{"type": "string"},
			"session_id": map[string]any{"type": "string"},
		}, []string{"event_type", "payload", "channel"}),
		Required: []string{"event_type", "payload", "channel"},
	}
}

func (t *PublishEventTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		EventType string `json:"event_type"`
		Payload   string `json:"payload"`
		Channel   string `json:"channel"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if input.EventType == "" || input.Channel == "" {
		return errorResult(model.ErrInvalidArgument, "event_type and channel are required")
	}
	id, err := t.Store.PublishEvent(input.EventType, input.Payload, input.Channel, input.SessionID)
	if err != nil {
		return errorResult(model.ErrIO, "publish event: "+err.Error())
	}
	return jsonResult(map[string]any{"id": id})
}

// GetEventsTool wraps Store.GetEvents.
type GetEventsTool struct{ Config }

func NewGetEventsTool(cfg Config) *GetEventsTool { return &GetEventsTool{cfg} }

func (t *GetEventsTool) Declaration() model.ToolDeclaration {
	return model.ToolDeclaration{
		Name:        "event_bus_get_events",
		Description: "Read events from a channel in id order, optionally resuming from a session's stored cursor.",
		Parameters: objectSchema(map[string]any{
			"channel":    map[string]any{"type": "string"},
			"order":      map[string]any{"type": "string", "enum": []string{"asc", "desc"}},
			"cursor":     map[string]any{"type": "integer"},
			"resume":     map[string]any{"type": "boolean"},
			"session_id": map[string]any{"type": "string"},
			"limit":      map[string]any{"type": "integer"},
		}, []string{"channel"}),
		Required: []string{"channel"},
	}
}

func (t *GetEventsTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Channel   string `json:"channel"`
		Order     string `json:"order"`
		Cursor    *int64 `json:"cursor"`
		Resume    bool   `json:"resume"`
		SessionID string `json:"session_id"`
		Limit     int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if input.Channel == "" {
		return errorResult(model.ErrInvalidArgument, "channel is required")
	}

	events, err := t.Store.GetEvents(eventbus.GetEventsOptions{
		Channel:   input.Channel,
		Order:     input.Order,
		Cursor:    input.Cursor,
		Resume:    input.Resume,
		SessionID: input.SessionID,
		Limit:     input.Limit,
	})
	if err != nil {
		return errorResult(model.ErrIO, "get events: "+err.Error())
	}
	return jsonResult(map[string]any{"events": events})
}

// PruneEventsTool wraps Store.PruneEvents.
type PruneEventsTool struct{ Config }

func NewPruneEventsTool(cfg Config) *PruneEventsTool { return &PruneEventsTool{cfg} }

func (t *PruneEventsTool) Declaration() model.ToolDeclaration {
	return model.ToolDeclaration{
		Name:        "event_bus_prune_events",
		Description: "Delete events older than the given number of days.",
		Parameters:  objectSchema(map[string]any{"days": map[string]any{"type": "integer"}}, []string{"days"}),
		Required:    []string{"days"},
	}
}

func (t *PruneEventsTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Days int `json:"days"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if input.Days <= 0 {
		return errorResult(model.ErrInvalidArgument, "days must be positive")
	}
	removed, err := t.Store.PruneEvents(input.Days)
	if err != nil {
		return errorResult(model.ErrIO, "prune events: "+err.Error())
	}
	return jsonResult(map[string]any{"removed": removed})
}
