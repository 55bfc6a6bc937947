package shell

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/evansenter/clemini-go/internal/agent"
	"github.com/evansenter/clemini-go/internal/tasks"
	"github.com/evansenter/clemini-go/pkg/model"
)

// syncCaptureCap is the combined stdout/stderr capture limit for a
// foreground bash call, distinct from the Task Registry's 1 MiB background
// buffers.
const syncCaptureCap = 50_000

// echoLinesPerStream is how many of the earliest lines per stream are
// echoed live via ToolOutput; the rest are captured only.
const echoLinesPerStream = 10

// BashTool runs a shell command, gating destructive commands behind a
// blocked/caution two-phase check before anything is spawned.
type BashTool struct {
	cfg Config
}

// NewBashTool constructs a bash tool around cfg.
func NewBashTool(cfg Config) *BashTool { return &BashTool{cfg: cfg} }

// Declaration implements agent.Tool.
func (t *BashTool) Declaration() model.ToolDeclaration {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command":            map[string]any{"type": "string"},
			"description":        map[string]any{"type": "string"},
			"timeout_seconds":    map[string]any{"type": "integer", "minimum": 1},
			"confirmed":          map[string]any{"type": "boolean"},
			"working_directory":  map[string]any{"type": "string"},
			"run_in_background":  map[string]any{"type": "boolean"},
		},
		"required": []string{"command"},
	}
	raw, _ := json.Marshal(schema)
	return model.ToolDeclaration{
		Name:        "bash",
		Description: "Run a shell command, gated against destructive patterns.",
		Parameters:  raw,
		Required:    []string{"command"},
	}
}

// Call implements agent.Tool.
func (t *BashTool) Call(ctx context.Context, args json.RawMessage) model.FunctionResult {
	var input struct {
		Command           string `json:"command"`
		Description       string `json:"description"`
		TimeoutSeconds    int    `json:"timeout_seconds"`
		Confirmed         bool   `json:"confirmed"`
		WorkingDirectory  string `json:"working_directory"`
		RunInBackground   bool   `json:"run_in_background"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult(model.ErrInvalidArgument, "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(input.Command) == "" {
		return errorResult(model.ErrInvalidArgument, "command is required")
	}

	if reason := matchBlocked(input.Command); reason != "" {
		return model.FunctionResult{
			Error:     "command blocked: " + reason,
			ErrorCode: model.ErrBlocked,
			Context:   map[string]any{"pattern": reason},
		}
	}

	if matchCaution(input.Command) && !input.Confirmed {
		return model.FunctionResult{
			NeedsConfirmation: true,
			Context: map[string]any{
				"command": input.Command,
				"message": "this command matches a caution pattern; re-issue with confirmed:true to proceed",
			},
		}
	}

	workdir := input.WorkingDirectory
	if workdir == "" {
		workdir = t.cfg.WorkingDirectory
	}

	timeout := t.cfg.defaultTimeout()
	if input.TimeoutSeconds > 0 {
		timeout = time.Duration(input.TimeoutSeconds) * time.Second
	}
	if maxT := t.cfg.maxTimeout(); timeout > maxT {
		timeout = maxT
	}

	if input.RunInBackground {
		id, err := tasks.StartBackground(ctx, t.cfg.Registry, input.Command, workdir, func(stream, line string) {
			agent.EmitOutput(ctx, fmt.Sprintf("[%s] %s", stream, line))
		})
		if err != nil {
			return errorResult(model.ErrIO, "start background command: "+err.Error())
		}
		return jsonResult(map[string]any{"task_id": id, "status": "running"})
	}

	return t.runForeground(ctx, input.Command, workdir, timeout)
}

func (t *BashTool) runForeground(ctx context.Context, command, workdir string, timeout time.Duration) model.FunctionResult {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", "-c", command)
	if workdir != "" {
		cmd.Dir = workdir
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return errorResult(model.ErrIO, "pipe stdout: "+err.Error())
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return errorResult(model.ErrIO, "pipe stderr: "+err.Error())
	}
	if err := cmd.Start(); err != nil {
		return errorResult(model.ErrIO, "start command: "+err.Error())
	}

	var stdout, stderr strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go collectSync(ctx, stdoutPipe, &stdout, "stdout", &wg)
	go collectSync(ctx, stderrPipe, &stderr, "stderr", &wg)
	wg.Wait()

	waitErr := cmd.Wait()

	if runCtx.Err() == context.DeadlineExceeded {
		return model.FunctionResult{
			Error:     fmt.Sprintf("command timed out after %s", timeout),
			ErrorCode: model.ErrTimeout,
			Context: map[string]any{
				"stdout": truncateCapture(stdout.String()),
				"stderr": truncateCapture(stderr.String()),
			},
		}
	}

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	outText, outTrunc, outTotal := truncateUTF8(stdout.String(), syncCaptureCap)
	errText, errTrunc, errTotal := truncateUTF8(stderr.String(), syncCaptureCap)
	if outTrunc {
		outText += fmt.Sprintf("\n[truncated, %d bytes total]", outTotal)
	}
	if errTrunc {
		errText += fmt.Sprintf("\n[truncated, %d bytes total]", errTotal)
	}

	return jsonResult(map[string]any{
		"stdout":    outText,
		"stderr":    errText,
		"exit_code": exitCode,
	})
}

func truncateCapture(s string) string {
	text, truncated, total := truncateUTF8(s, syncCaptureCap)
	if truncated {
		text += fmt.Sprintf("\n[truncated, %d bytes total]", total)
	}
	return text
}

// truncateUTF8 caps s at capBytes, backing off to the nearest rune
// boundary so a partial multi-byte sequence is never left dangling.
func truncateUTF8(s string, capBytes int) (result string, truncated bool, total int) {
	total = len(s)
	if total <= capBytes {
		return s, false, total
	}
	cut := capBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true, total
}

func collectSync(ctx context.Context, r io.Reader, into *strings.Builder, stream string, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineCount := 0
	for scanner.Scan() {
		line := scanner.Text()
		into.WriteString(line)
		into.WriteByte('\n')
		if lineCount < echoLinesPerStream {
			agent.EmitOutput(ctx, fmt.Sprintf("[%s] %s", stream, line))
		}
		lineCount++
	}
}
