package tasks

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/evansenter/clemini-go/pkg/model"
)

// LineFunc receives each line collected from a background task's stdout or
// stderr as it arrives, tagged with the stream name ("stdout"/"stderr").
// Callers use this to echo the first few lines live; returning after N
// calls is the caller's responsibility, collection continues regardless.
type LineFunc func(stream, line string)

// StartBackground spawns `bash -c command` in workdir, registers it under
// a new "bg-<N>" id, and starts two collector goroutines that append
// stdout/stderr line-by-line into bounded 1 MiB buffers. It returns
// immediately; the caller does not wait for completion.
func StartBackground(ctx context.Context, reg *Registry, command, workdir string, onLine LineFunc) (string, error) {
	return StartCommand(ctx, reg, "bg", model.TaskBackground, exec.CommandContext(ctx, "bash", "-c", command), workdir, onLine)
}

// StartCommand registers cmd under a new "<prefix>-<N>" id and starts two
// collector goroutines that append stdout/stderr line-by-line into bounded
// 1 MiB buffers. It returns immediately; the caller does not wait for
// completion. Shared by StartBackground (shell commands) and the subagent
// orchestrator (recursive binary invocations).
func StartCommand(ctx context.Context, reg *Registry, prefix string, kind model.TaskKind, cmd *exec.Cmd, workdir string, onLine LineFunc) (string, error) {
	if workdir != "" {
		cmd.Dir = workdir
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", err
	}
	if err := cmd.Start(); err != nil {
		return "", err
	}

	id := reg.NextID(prefix)
	entry := &Entry{
		ID:        id,
		Kind:      kind,
		StartedAt: time.Now(),
		cmd:       cmd,
		stdout:    NewOutputBuffer(OutputCapBytes),
		stderr:    NewOutputBuffer(OutputCapBytes),
	}
	reg.put(id, entry)

	var wg sync.WaitGroup
	wg.Add(2)
	go collectLines(stdoutPipe, entry.stdout, "stdout", onLine, &wg)
	go collectLines(stderrPipe, entry.stderr, "stderr", onLine, &wg)

	go func() {
		wg.Wait()
		err := cmd.Wait()
		exitCode := 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		}
		entry.markCompleted(exitCode)
	}()

	return id, nil
}

func collectLines(r io.Reader, buf *OutputBuffer, stream string, onLine LineFunc, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineCount := 0
	const echoLimit = 10
	for scanner.Scan() {
		line := scanner.Text()
		buf.Write([]byte(line + "\n"))
		if onLine != nil && lineCount < echoLimit {
			onLine(stream, line)
		}
		lineCount++
	}
}
