// Package files implements the filesystem-facing tools: read, write, edit,
// and list_directory. Every path argument is resolved through a shared
// sandbox.Sandbox before any I/O happens.
package files

import (
	"encoding/json"

	"github.com/evansenter/clemini-go/internal/sandbox"
	"github.com/evansenter/clemini-go/pkg/model"
)

// Config is shared by every tool in this package.
type Config struct {
	Sandbox      *sandbox.Sandbox
	CWD          string
	MaxReadBytes int
}

func (c Config) maxRead() int {
	if c.MaxReadBytes > 0 {
		return c.MaxReadBytes
	}
	return 200_000
}

func errorResult(code model.ErrorCode, message string) model.FunctionResult {
	return model.FunctionResult{Error: message, ErrorCode: code}
}

func errorResultCtx(code model.ErrorCode, message string, context map[string]any) model.FunctionResult {
	return model.FunctionResult{Error: message, ErrorCode: code, Context: context}
}

func jsonResult(v any) model.FunctionResult {
	payload, err := json.Marshal(v)
	if err != nil {
		return errorResult(model.ErrIO, "encode result: "+err.Error())
	}
	return model.FunctionResult{Result: payload}
}
