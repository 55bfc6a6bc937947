// Package sandbox resolves and validates filesystem paths against an
// allow-list of absolute directories, the one containment mechanism this
// runtime trusts (see Non-goals: no sandboxing stronger than path
// containment).
package sandbox

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrAccessDenied is returned when a resolved path falls outside every
// allow-list entry.
var ErrAccessDenied = errors.New("access denied: path outside allow-list")

// Sandbox holds an ordered allow-list of absolute directories. A resolved
// path is permitted iff it is within any entry after symlink resolution of
// existing ancestors.
type Sandbox struct {
	allowList []string
}

// New builds a Sandbox from one or more allow-list roots. Each root is
// cleaned to an absolute path; relative roots are rejected.
func New(roots ...string) (*Sandbox, error) {
	sb := &Sandbox{}
	for _, r := range roots {
		if err := sb.AddRoot(r); err != nil {
			return nil, err
		}
	}
	return sb, nil
}

// AddRoot appends an additional allow-list directory.
func (s *Sandbox) AddRoot(root string) error {
	if !filepath.IsAbs(root) {
		return fmt.Errorf("sandbox root must be absolute: %q", root)
	}
	s.allowList = append(s.allowList, filepath.Clean(root))
	return nil
}

// Roots returns a copy of the current allow-list.
func (s *Sandbox) Roots() []string {
	out := make([]string, len(s.allowList))
	copy(out, s.allowList)
	return out
}

// ResolveAndValidate implements the C1 contract: resolve input relative to
// cwd if needed, canonicalize the deepest existing ancestor (resolving
// symlinks), append the non-existing remainder verbatim so creating a new
// file under an allowed directory still works, and reject anything that
// does not fall under the allow-list.
func (s *Sandbox) ResolveAndValidate(input, cwd string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("path is required")
	}
	target := input
	if !filepath.IsAbs(target) {
		if !filepath.IsAbs(cwd) {
			return "", fmt.Errorf("cwd must be absolute")
		}
		target = filepath.Join(cwd, target)
	}
	target = filepath.Clean(target)

	resolved, err := canonicalizeExistingPrefix(target)
	if err != nil {
		return "", err
	}
	if !s.within(resolved) {
		return "", ErrAccessDenied
	}
	return resolved, nil
}

// ValidateExisting validates an already-absolute path (no cwd join, no
// remainder construction) against the allow-list, resolving symlinks along
// the way since the path is assumed to exist.
func (s *Sandbox) ValidateExisting(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("path must be absolute: %q", path)
	}
	resolved, err := canonicalizeExistingPrefix(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	if !s.within(resolved) {
		return "", ErrAccessDenied
	}
	return resolved, nil
}

func (s *Sandbox) within(path string) bool {
	for _, root := range s.allowList {
		if path == root {
			return true
		}
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
