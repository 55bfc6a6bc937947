// Package eventbus exposes the event_bus_* tools: thin wrappers over
// internal/eventbus.Store's register/heartbeat/unregister/list/publish/
// prune operations.
package eventbus

import (
	"encoding/json"

	"github.com/evansenter/clemini-go/internal/eventbus"
	"github.com/evansenter/clemini-go/pkg/model"
)

// Config is shared by every tool in this package.
type Config struct {
	Store *eventbus.Store
}

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

func objectSchema(properties map[string]any, required []string) json.RawMessage {
	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	raw, _ := json.Marshal(schema)
	return raw
}
