package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/evansenter/clemini-go/internal/agent"
	"github.com/evansenter/clemini-go/pkg/model"
)

// runPromptMode drives one turn per line of input: a single turn for
// --prompt, or a REPL reading stdin until EOF when prompt is empty. It
// retains the previous turn's interaction id across REPL iterations so a
// multi-line conversation continues the same session.
func runPromptMode(ctx context.Context, rt *runtime, prompt string, in io.Reader, out io.Writer) error {
	if strings.TrimSpace(prompt) != "" {
		_, err := runOneTurn(ctx, rt, prompt, "", out)
		return err
	}

	scanner := bufio.NewScanner(in)
	var interactionID string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		next, err := runOneTurn(ctx, rt, line, interactionID, out)
		if err != nil {
			return err
		}
		interactionID = next
	}
	return scanner.Err()
}

func runOneTurn(ctx context.Context, rt *runtime, userText, previousInteractionID string, out io.Writer) (string, error) {
	events, done := rt.loop.Run(ctx, agent.Turn{
		Model:                 rt.cfg.LLM.Model,
		PreviousInteractionID: previousInteractionID,
		UserText:              userText,
	})

	for ev := range events {
		printEvent(ev, out)
	}
	result := <-done
	if result.Err != nil {
		return "", result.Err
	}
	if result.NeedsConfirmation {
		fmt.Fprintln(out, "\n(a queued command needs confirmation; re-run task_output or bash with confirmed:true)")
	}
	return result.InteractionID, nil
}

func printEvent(ev model.AgentEvent, out io.Writer) {
	switch {
	case ev.TextDelta != "":
		fmt.Fprint(out, ev.TextDelta)
	case ev.ToolOutput != "":
		fmt.Fprintln(out, ev.ToolOutput)
	case ev.ToolExecuting != nil:
		for _, call := range ev.ToolExecuting {
			fmt.Fprintf(out, "\n[tool] %s\n", call.Name)
		}
	case ev.Complete != nil:
		fmt.Fprintln(out)
	case ev.Cancelled:
		fmt.Fprintln(out, "\n(cancelled)")
	}
}
