// Package tasks implements the Task Registry: a single process-wide map of
// namespaced background-shell and subagent entries, each with bounded
// output capture and kill semantics.
package tasks

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/evansenter/clemini-go/pkg/model"
)

// OutputCapBytes is the per-stream buffer cap for registry entries (1 MiB),
// distinct from the bash tool's own 50,000-byte synchronous capture cap.
const OutputCapBytes = 1 << 20

// Entry is one Task Registry row: a background shell or a subagent child
// process, its output buffers, and its lifecycle state.
type Entry struct {
	ID        string
	Kind      model.TaskKind
	StartedAt time.Time

	mu        sync.Mutex
	cmd       *exec.Cmd
	cancel    context.CancelFunc
	stdout    *OutputBuffer
	stderr    *OutputBuffer
	completed bool
	killed    bool
	exitCode  int
}

// Snapshot returns the current read-only view of the entry, reaping the
// child non-blockingly first if it has not already been marked completed.
func (e *Entry) Snapshot() model.TaskSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	status := model.TaskRunning
	switch {
	case e.killed:
		status = model.TaskKilled
	case e.completed && e.exitCode != 0:
		status = model.TaskFailed
	case e.completed:
		status = model.TaskCompleted
	}
	return model.TaskSnapshot{
		ID:        e.ID,
		Kind:      e.Kind,
		Status:    status,
		Stdout:    e.stdout.String(),
		Stderr:    e.stderr.String(),
		ExitCode:  e.exitCode,
		StartedAt: e.StartedAt,
		Completed: e.completed,
	}
}

func (e *Entry) markCompleted(exitCode int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.completed {
		return
	}
	e.completed = true
	e.exitCode = exitCode
	e.stdout.Finalize()
	e.stderr.Finalize()
}

// Registry is the single mutex-guarded map from namespaced ID to Entry.
// The lock is held only across map mutation, never across a blocking
// child-kill call: the child handle is read out from under the lock
// before Kill is invoked on it.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	counters map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[string]*Entry),
		counters: make(map[string]int),
	}
}

// NextID allocates the next monotonic ID for the given namespace prefix
// ("bg" or "acp").
func (r *Registry) NextID(prefix string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[prefix]++
	return fmt.Sprintf("%s-%d", prefix, r.counters[prefix])
}

// put inserts a freshly constructed entry under id.
func (r *Registry) put(id string, entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = entry
}

// Get returns the entry for id, if present.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// Kill looks up id, removes it from the registry, and kills its child if
// still alive. Returns false if id was not found.
func (r *Registry) Kill(id string) bool {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	entry.mu.Lock()
	alreadyDone := entry.completed
	cmd := entry.cmd
	cancel := entry.cancel
	entry.killed = true
	entry.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !alreadyDone && cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	entry.markCompleted(-1)
	return true
}

// List returns every current task ID, for diagnostics and shutdown sweeps.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}
