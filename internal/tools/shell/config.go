// Package shell implements the bash, kill_shell, and task_output tools
// that sit on top of the process-wide Task Registry.
package shell

import (
	"encoding/json"
	"time"

	"github.com/evansenter/clemini-go/internal/tasks"
	"github.com/evansenter/clemini-go/pkg/model"
)

// Config is shared by every tool in this package.
type Config struct {
	Registry         *tasks.Registry
	WorkingDirectory string
	DefaultTimeout   time.Duration
	MaxTimeout       time.Duration
	// RPCMode, when true, means a caution-gated command always returns
	// needs_confirmation rather than attempting an interactive stderr
	// prompt (this module has no TTY to prompt against outside the CLI's
	// own interactive loop, so both modes resolve to the same gate here;
	// the CLI surface is the one place a real prompt could be layered on
	// top of this result before resubmitting with confirmed:true).
	RPCMode bool
}

func (c Config) defaultTimeout() time.Duration {
	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout
	}
	return 60 * time.Second
}

func (c Config) maxTimeout() time.Duration {
	if c.MaxTimeout > 0 {
		return c.MaxTimeout
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
