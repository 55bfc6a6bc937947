// Package tools holds concerns shared by every individual tool package
// (files, search, shell, web, eventbus): the sandbox-aware exclude list
// glob, grep, and list_directory all honor.
package tools

import "path/filepath"

// ExcludedDirNames is the fixed set of directory names glob, grep, and
// list_directory never descend into, regardless of allow-list membership.
var ExcludedDirNames = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"dist":         true,
	"build":        true,
	".venv":        true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
}

// PathExcluded reports whether any path component of p is in the exclude
// list.
func PathExcluded(p string) bool {
	for {
		dir, base := filepath.Split(filepath.Clean(p))
		if base == "" || base == "." || base == string(filepath.Separator) {
			return false
		}
		if ExcludedDirNames[base] {
			return true
		}
		if dir == "" || dir == p {
			return false
		}
		p = filepath.Clean(dir)
	}
}
