package shell

import (
	"regexp"
	"strings"
)

// blockedPattern is one entry of the fixed, ordered list of commands bash
// refuses outright. The list is deliberately small and explicit rather than
// a general "looks dangerous" heuristic.
type blockedPattern struct {
	name string
	re   *regexp.Regexp
}

var blockedPatterns = []blockedPattern{
	{"rm of root or home", regexp.MustCompile(`(?i)\brm\s+(-\w+\s+)*(/|~)(\s|$)`)},
	{"raw disk write (dd)", regexp.MustCompile(`(?i)\bdd\s+.*\bif=`)},
	{"filesystem format (mkfs)", regexp.MustCompile(`(?i)\bmkfs(\.\w+)?\b`)},
	{"write to a block device", regexp.MustCompile(`(?i)(>|>>)\s*/dev/sd\w*`)},
	{"chmod/chown of root", regexp.MustCompile(`(?i)\b(chmod|chown)\s+(-\w+\s+)*\S+\s+/(\s|$)`)},
	{"fork bomb", regexp.MustCompile(`:\(\)\s*\{\s*:\|:&\s*\}\s*;:`)},
	{"write under /etc", regexp.MustCompile(`(?i)(>|>>)\s*/etc/\S+`)},
	{"write under /boot", regexp.MustCompile(`(?i)(>|>>)\s*/boot/\S+`)},
	{"write to a shell rc file", regexp.MustCompile(`(?i)(>|>>)\s*(~|\$HOME)?/?\.(bashrc|zshrc|profile|bash_profile)\b`)},
}

// matchBlocked returns the name of the first blocked pattern matching
// command, or "" if none match.
func matchBlocked(command string) string {
	for _, p := range blockedPatterns {
		if p.re.MatchString(command) {
			return p.name
		}
	}
	return ""
}

// cautionSubstrings gates a command behind explicit confirmation without
// refusing it outright.
var cautionSubstrings = []string{
	"sudo",
	"rm",
	"mv",
	"chmod",
	"chown",
	"kill",
	"git push --force",
	"git reset --hard",
	"cargo publish",
	"npm publish",
	"docker rm",
}

// matchCaution reports whether command contains any caution substring.
func matchCaution(command string) bool {
	for _, s := range cautionSubstrings {
		if strings.Contains(command, s) {
			return true
		}
	}
	return false
}
