// Package planmode exposes the enter_plan_mode and exit_plan_mode tools
// as thin wrappers over internal/planmode's lifecycle store.
package planmode

import (
	"encoding/json"

	"github.com/evansenter/clemini-go/pkg/model"
)

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
