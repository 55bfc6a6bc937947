// Package search implements the glob and grep tools: read-only filesystem
// search within a sandbox, with a fixed directory exclude list shared with
// the files package's list_directory tool.
package search

import (
	"encoding/json"

	"github.com/evansenter/clemini-go/internal/sandbox"
	"github.com/evansenter/clemini-go/pkg/model"
)

// Config is shared by glob and grep.
type Config struct {
	Sandbox *sandbox.Sandbox
	CWD     string
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
