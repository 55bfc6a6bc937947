// Package planmode implements the single-writer plan-mode lifecycle: a
// read-only gate consulted by the agent loop before every tool dispatch,
// plus the enter/exit operations that allocate and finalize a plan file.
package planmode

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/evansenter/clemini-go/pkg/model"
)

// Store holds the current plan-mode state and the directory new plan
// files are allocated under. It is safe for concurrent use; the mutex
// guards both the in-memory Plan and the filesystem scan used to pick
// the next plan file name, matching the single-writer state the spec
// describes.
type Store struct {
	mu       sync.Mutex
	plansDir string
	plan     model.Plan
}

// NewStore creates a Store allocating plan files under plansDir.
func NewStore(plansDir string) *Store {
	return &Store{plansDir: plansDir}
}

// Active implements agent.PlanGate: true while plan mode is entered.
func (s *Store) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan.InPlanMode
}

// Current returns a copy of the current plan state.
func (s *Store) Current() model.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// Enter allocates a new plan file (the directory's highest existing
// "<n>.md" plus one) and marks plan mode active. Re-entering while
// already active is a no-op that returns the existing plan.
func (s *Store) Enter() (model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plan.InPlanMode {
		return s.plan, nil
	}

	if err := os.MkdirAll(s.plansDir, 0o755); err != nil {
		return model.Plan{}, fmt.Errorf("create plans dir: %w", err)
	}
	n, err := nextPlanNumber(s.plansDir)
	if err != nil {
		return model.Plan{}, err
	}
	path := filepath.Join(s.plansDir, fmt.Sprintf("%d.md", n))
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		return model.Plan{}, fmt.Errorf("allocate plan file: %w", err)
	}

	s.plan = model.Plan{InPlanMode: true, FilePath: path}
	return s.plan, nil
}

// SetSteps replaces the ordered step list of the active plan and
// persists it to the plan file.
func (s *Store) SetSteps(steps []model.PlanStep) (model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.plan.InPlanMode {
		return model.Plan{}, fmt.Errorf("plan mode is not active")
	}
	s.plan.Steps = steps
	if err := os.WriteFile(s.plan.FilePath, []byte(renderPlan(s.plan)), 0o644); err != nil {
		return model.Plan{}, fmt.Errorf("persist plan: %w", err)
	}
	return s.plan, nil
}

// Exit finalizes the active plan, clearing InPlanMode, and returns its
// final contents together with the future-permission descriptors the
// model requested be granted going forward. allowedPrompts is recorded
// verbatim; enforcing it is the caller's responsibility (the registry
// does not gate on it — the spec scopes this to a lifecycle signal).
func (s *Store) Exit(allowedPrompts []string) (model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.plan.InPlanMode {
		return model.Plan{}, fmt.Errorf("plan mode is not active")
	}

	final := s.plan
	if final.FilePath != "" {
		if err := os.WriteFile(final.FilePath, []byte(renderPlan(final)), 0o644); err != nil {
			return model.Plan{}, fmt.Errorf("persist plan: %w", err)
		}
	}

	s.plan = model.Plan{}
	_ = allowedPrompts
	return final, nil
}

// renderPlan writes the plan's steps as a simple Markdown checklist.
func renderPlan(p model.Plan) string {
	var b strings.Builder
	for _, step := range p.Steps {
		marker := "[ ]"
		switch step.Status {
		case model.StepInProgress:
			marker = "[~]"
		case model.StepCompleted:
			marker = "[x]"
		}
		fmt.Fprintf(&b, "- %s (%s) %s\n", marker, step.Priority, step.Content)
	}
	return b.String()
}

// nextPlanNumber scans plansDir for the highest existing "<n>.md" entry
// and returns one past it, matching the task registry's monotonic
// allocator but recovered from disk instead of an in-memory counter so
// numbering survives a process restart.
func nextPlanNumber(plansDir string) (int, error) {
	entries, err := os.ReadDir(plansDir)
	if err != nil {
		return 0, fmt.Errorf("scan plans dir: %w", err)
	}
	highest := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		if name == entry.Name() {
			continue
		}
		n, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}
