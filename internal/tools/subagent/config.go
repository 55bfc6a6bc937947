// Package subagent implements the task tool, which spawns a recursive
// instance of the same binary in --acp-server mode to delegate a prompt.
package subagent

import (
	"encoding/json"
	"time"

	"github.com/evansenter/clemini-go/internal/tasks"
	"github.com/evansenter/clemini-go/pkg/model"
)

// Config is shared by the task tool.
type Config struct {
	Registry *tasks.Registry
	// BinaryPath is the executable to re-invoke recursively (os.Args[0] in
	// production; a stub script in tests).
	BinaryPath string
	CWD        string
	// ForegroundTimeout bounds a non-background task call.
	ForegroundTimeout time.Duration
}

func (c Config) foregroundTimeout() time.Duration {
	if c.ForegroundTimeout > 0 {
		return c.ForegroundTimeout
	}
	return 120 * time.Second
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
