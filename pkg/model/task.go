package model

import "time"

// TaskKind distinguishes the two Task Registry variants.
type TaskKind string

const (
	// TaskBackground is a bash child process run with run_in_background.
	TaskBackground TaskKind = "background"
	// TaskSubagent is a recursive child instance spawned via the Agent Client Protocol.
	TaskSubagent TaskKind = "subagent"
)

// TaskStatus is the lifecycle state of a registry entry.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskKilled    TaskStatus = "killed"
	TaskFailed    TaskStatus = "failed"
)

// TaskSnapshot is the read-only view task_output and kill_shell expose.
// ExitCode is -1 while running, or when the task was killed or errored.
type TaskSnapshot struct {
	ID        string     `json:"id"`
	Kind      TaskKind   `json:"kind"`
	Status    TaskStatus `json:"status"`
	Stdout    string     `json:"stdout"`
	Stderr    string     `json:"stderr"`
	ExitCode  int        `json:"exit_code"`
	StartedAt time.Time  `json:"started_at"`
	Completed bool       `json:"completed"`
}
