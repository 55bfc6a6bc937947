package planmode

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/evansenter/clemini-go/internal/planmode"
)

func TestEnterThenExitPlanMode(t *testing.T) {
	store := planmode.NewStore(t.TempDir())
	enter := NewEnterPlanModeTool(store)
	exit := NewExitPlanModeTool(store)

	res := enter.Call(context.Background(), json.RawMessage(`{}`))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if !store.Active() {
		t.Fatal("expected plan mode active after enter_plan_mode")
	}

	res = exit.Call(context.Background(), json.RawMessage(`{"allowed_prompts":["edit"]}`))
	if res.IsError() {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if store.Active() {
		t.Fatal("expected plan mode inactive after exit_plan_mode")
	}
}

func TestExitPlanModeWithoutEnterReturnsIOError(t *testing.T) {
	store := planmode.NewStore(t.TempDir())
	exit := NewExitPlanModeTool(store)

	res := exit.Call(context.Background(), json.RawMessage(`{}`))
	if !res.IsError() {
		t.Fatal("expected error exiting plan mode never entered")
	}
}
