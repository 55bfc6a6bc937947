package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/evansenter/clemini-go/internal/observability"
	"github.com/evansenter/clemini-go/pkg/model"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Tool is the contract every dispatchable tool implements: describe
// yourself, then execute. Tool-internal failures never unwind as Go
// errors — they come back as a FunctionResult whose Error/ErrorCode are
// set, so the model can see and self-correct from them.
type Tool interface {
	Declaration() model.ToolDeclaration
	Call(ctx context.Context, args json.RawMessage) model.FunctionResult
}

// Tool parameter limits, guarding against resource exhaustion from a
// misbehaving model.
const (
	MaxToolNameLength  = 256
	MaxToolParamsBytes = 10 << 20
)

// ToolRegistry owns the set of dispatchable tools, keyed by unique name.
type ToolRegistry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	schema map[string]*jsonschema.Schema
	logger *observability.Logger
}

// NewToolRegistry creates an empty registry. Its panic-recovery path logs
// to a discarding logger until SetLogger attaches a real one; callers
// that never call SetLogger keep working exactly as before, just silent.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:  make(map[string]Tool),
		schema: make(map[string]*jsonschema.Schema),
		logger: observability.NewLogger(observability.LogConfig{Output: io.Discard}),
	}
}

// SetLogger attaches logger as the destination for Execute's panic-recovery
// warnings. A nil logger is ignored.
func (r *ToolRegistry) SetLogger(logger *observability.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds or replaces a tool, compiling its parameter schema eagerly
// so a malformed schema fails at startup rather than on first dispatch.
func (r *ToolRegistry) Register(tool Tool) error {
	decl := tool.Declaration()
	compiled, err := compileSchema(decl.Name, decl.Parameters)
	if err != nil {
		return fmt.Errorf("register tool %q: %w", decl.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[decl.Name] = tool
	r.schema[decl.Name] = compiled
	return nil
}

// Unregister removes a tool.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.schema, name)
}

// Get returns a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Declarations returns every registered tool's declaration, for building
// the LLM request's tool list.
func (r *ToolRegistry) Declarations() []model.ToolDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ToolDeclaration, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Declaration())
	}
	return out
}

func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{"type":"object"}`)
	}
	compiler := jsonschema.NewCompiler()
	url := "mem://" + name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// Execute dispatches a call by name, enforcing size limits, validating args
// against the tool's compiled schema, and recovering panics into an
// IO_ERROR result instead of letting them escape.
func (r *ToolRegistry) Execute(ctx context.Context, timeout time.Duration, call model.ToolCall) (result model.FunctionResult) {
	started := time.Now()
	r.mu.RLock()
	logger := r.logger
	r.mu.RUnlock()

	defer func() {
		result.DurationNanos = time.Since(started).Nanoseconds()
		if rec := recover(); rec != nil {
			stack := debug.Stack()
			logger.Warn(ctx, "tool panic recovered",
				"tool", call.Name, "call_id", call.ID,
				"panic", fmt.Sprintf("%v", rec), "stack", string(stack))
			result = model.FunctionResult{
				Name:      call.Name,
				CallID:    call.ID,
				Error:     fmt.Sprintf("panic: %v", rec),
				ErrorCode: model.ErrIO,
				Context:   map[string]any{"panic": true},
			}
		}
	}()

	if len(call.Name) > MaxToolNameLength {
		return model.FunctionResult{
			Name: call.Name, CallID: call.ID,
			Error: "tool name exceeds maximum length", ErrorCode: model.ErrInvalidArgument,
		}
	}
	if len(call.Args) > MaxToolParamsBytes {
		return model.FunctionResult{
			Name: call.Name, CallID: call.ID,
			Error: "tool parameters exceed maximum size", ErrorCode: model.ErrInvalidArgument,
		}
	}

	r.mu.RLock()
	tool, ok := r.tools[call.Name]
	compiled := r.schema[call.Name]
	r.mu.RUnlock()
	if !ok {
		return model.FunctionResult{
			Name: call.Name, CallID: call.ID,
			Error: "tool not found: " + call.Name, ErrorCode: model.ErrNotFound,
		}
	}

	if compiled != nil {
		var decoded any
		args := call.Args
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		if err := json.Unmarshal(args, &decoded); err != nil {
			return model.FunctionResult{
				Name: call.Name, CallID: call.ID,
				Error: "invalid JSON arguments: " + err.Error(), ErrorCode: model.ErrInvalidArgument,
			}
		}
		if err := compiled.Validate(decoded); err != nil {
			return model.FunctionResult{
				Name: call.Name, CallID: call.ID,
				Error: "arguments failed schema validation: " + err.Error(), ErrorCode: model.ErrInvalidArgument,
			}
		}
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res := tool.Call(callCtx, call.Args)
	res.Name = call.Name
	res.CallID = call.ID
	return res
}
