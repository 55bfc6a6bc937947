package main

import (
	"context"

	"github.com/evansenter/clemini-go/internal/agent"
)

// loopRunner adapts the agent loop into rpcserver.Runner for --mcp-server
// mode: clemini_chat drives one turn, clemini_rebuild tears down and
// rebuilds every wired component from the same config.
type loopRunner struct {
	factory runtimeFactory
	current *runtime
}

// runtimeFactory reconstructs a runtime on demand, so clemini_rebuild can
// discard every stateful component (tool registry, sandbox, LLM client)
// and start over rather than merely clearing in-memory maps.
type runtimeFactory func(ctx context.Context) (*runtime, error)

func newLoopRunner(rt *runtime, factory runtimeFactory) *loopRunner {
	return &loopRunner{factory: factory, current: rt}
}

// Turn implements rpcserver.Runner.
func (r *loopRunner) Turn(ctx context.Context, message, previousInteractionID string) (string, string, error) {
	events, done := r.current.loop.Run(ctx, agent.Turn{
		Model:                 r.current.cfg.LLM.Model,
		PreviousInteractionID: previousInteractionID,
		UserText:              message,
	})
	for range events {
	}
	result := <-done
	if result.Err != nil {
		return "", "", result.Err
	}
	return result.Response, result.InteractionID, nil
}

// Rebuild implements rpcserver.Runner.
func (r *loopRunner) Rebuild(ctx context.Context) error {
	next, err := r.factory(ctx)
	if err != nil {
		return err
	}
	_ = r.current.Close()
	r.current = next
	return nil
}
