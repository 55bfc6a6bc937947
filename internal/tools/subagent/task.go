package subagent

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/evansenter/clemini-go/internal/acp"
	"github.com/evansenter/clemini-go/internal/agent"
	execsafety "github.com/evansenter/clemini-go/internal/exec"
	"github.com/evansenter/clemini-go/internal/tasks"
	"github.com/evansenter/clemini-go/pkg/model"
)

// TaskTool spawns a recursive subagent instance of the same binary in
// --acp-server mode and delegates prompt to it over the Agent Client
// Protocol's stdio framing.
type TaskTool struct {
	cfg Config
}

// NewTaskTool constructs a task tool around cfg.
func NewTaskTool(cfg Config) *TaskTool { return &TaskTool{cfg: cfg} }

// Declaration implements agent.Tool.
func (t *TaskTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt":     map[string]any{"type": "string"},
			"background": map[string]any{"type": "boolean"},
		},
		"required": []string{"prompt"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "task",
		Description: "Delegate a prompt to a recursive subagent instance of this program.",
		Parameters:  raw,
		Required:    []string{"prompt"},
	}
}

// Call implements agent.Tool.
func (t *TaskTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Prompt     string `json:"prompt"`
		Background bool   `json:"background"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(input.Prompt) == "" {
		return errorResult(model.ErrInvalidArgument, "prompt is required")
	}
	if t.cfg.Registry == nil || t.cfg.BinaryPath == "" {
		return errorResult(model.ErrIO, "subagent orchestration is not configured")
	}
	binaryPath, sanitizedArgs, err := execsafety.SanitizeExecutableArgs(t.cfg.BinaryPath, t.cfg.CWD)
	if err != nil {
		return errorResult(model.ErrIO, "unsafe subagent invocation: "+err.Error())
	}
	t.cfg.BinaryPath = binaryPath

	argv := []string{"--acp-server", "--cwd", sanitizedArgs[0]}

	if input.Background {
		cmd := exec.CommandContext(ctx, t.cfg.BinaryPath, argv...)
		cmd.Stdin = strings.NewReader(input.Prompt)
		id, err := tasks.StartCommand(ctx, t.cfg.Registry, "acp", model.TaskSubagent, cmd, t.cfg.CWD, nil)
		if err != nil {
			return errorResult(model.ErrIO, "spawn subagent: "+err.Error())
		}
		return jsonResult(map[string]any{"task_id": id, "status": "running"})
	}

	runCtx, cancel := context.WithTimeout(ctx, t.cfg.foregroundTimeout())
	defer cancel()

	return t.runForeground(runCtx, ctx, argv, input.Prompt)
}

// runForeground spawns the child, drives it through the Agent Client
// Protocol handshake (initialize -> new_session -> prompt), and streams
// its session_notification updates through the output sink attached to
// ctx as they arrive. runCtx bounds the whole exchange; ctx (its parent)
// is only used to read the output sink.
func (t *TaskTool) runForeground(runCtx, ctx context.Context, argv []string, prompt string) model.FunctionResult {
	cmd := exec.CommandContext(runCtx, t.cfg.BinaryPath, argv...)
	cmd.Dir = t.cfg.CWD

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errorResult(model.ErrIO, "open subagent stdin: "+err.Error())
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errorResult(model.ErrIO, "open subagent stdout: "+err.Error())
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	startedAt := time.Now()
	if err := cmd.Start(); err != nil {
		return errorResult(model.ErrIO, "start subagent: "+err.Error())
	}

	conn := acp.NewConn(stdout, stdin)
	client := acp.NewClient(conn)
	go client.Run()

	go func() {
		for update := range client.Updates() {
			line := update.TextChunk
			if line == "" {
				line = fmt.Sprintf("[%s] %s", update.ToolCallTitle, update.ToolCallStatus)
			}
			agent.EmitOutput(ctx, line)
		}
	}()

	if _, err := client.Call(runCtx, acp.MethodInitialize, acp.InitializeParams{ProtocolVersion: "1"}); err != nil {
		_ = cmd.Process.Kill()
		return t.terminate(cmd, startedAt, err)
	}

	sessionRaw, err := client.Call(runCtx, acp.MethodNewSession, acp.NewSessionParams{Cwd: t.cfg.CWD})
	if err != nil {
		_ = cmd.Process.Kill()
		return t.terminate(cmd, startedAt, err)
	}
	var session acp.NewSessionResult
	_ = json.Unmarshal(sessionRaw, &session)

	promptRaw, err := client.Call(runCtx, acp.MethodPrompt, acp.PromptParams{
		SessionID: session.SessionID, ContentBlocks: []string{prompt},
	})
	if err != nil {
		_ = cmd.Process.Kill()
		return t.terminate(cmd, startedAt, err)
	}
	var result acp.PromptResult
	_ = json.Unmarshal(promptRaw, &result)

	_ = stdin.Close()
	waitErr := cmd.Wait()

	exitCode := 0
	status := "completed"
	if waitErr != nil {
		status = "failed"
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}
	if result.Error != "" {
		status = "failed"
	}

	return jsonResult(map[string]any{
		"status":    status,
		"exit_code": exitCode,
		"response":  result.Response,
		"error":     result.Error,
		"stderr":    stderr.String(),
	})
}

func (t *TaskTool) terminate(cmd *exec.Cmd, startedAt time.Time, callErr error) model.FunctionResult {
	_ = cmd.Wait()
	if callErr == context.DeadlineExceeded {
		return model.FunctionResult{
			Error:     "subagent timed out after " + time.Since(startedAt).String(),
			ErrorCode: model.ErrTimeout,
		}
	}
	return errorResult(model.ErrIO, "subagent protocol error: "+callErr.Error())
}
