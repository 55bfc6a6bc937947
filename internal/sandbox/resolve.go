package sandbox

import (
	"os"
	"path/filepath"
)

// canonicalizeExistingPrefix walks up from path to find the deepest
// existing ancestor, resolves symlinks on that ancestor, then re-appends
// the non-existing remainder verbatim. This matches the path-traversal
// guard style used elsewhere in this codebase for validating configured
// paths, generalized from a single root to an allow-list.
func canonicalizeExistingPrefix(path string) (string, error) {
	existing := path
	var remainder []string

	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			// Reached filesystem root with nothing existing; resolve as-is.
			return path, nil
		}
		remainder = append([]string{filepath.Base(existing)}, remainder...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}

	if len(remainder) == 0 {
		return resolved, nil
	}
	return filepath.Join(append([]string{resolved}, remainder...)...), nil
}
