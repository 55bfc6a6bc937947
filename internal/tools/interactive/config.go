// Package interactive implements the ask_user and todo_write tools, both of
// which are pure UI surface with no persisted state.
package interactive

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
