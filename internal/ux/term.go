package ux

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ciVariables signal an unattended CI run when set.
var ciVariables = []string{"CI", "CONTINUOUS_INTEGRATION", "BUILD_NUMBER", "RUN_ID", "GITHUB_ACTIONS"}

// IsCI reports whether the process runs under a CI system.
func IsCI(lookup func(string) (string, bool)) bool {
	for _, name := range ciVariables {
		if v, ok := lookup(name); ok && v != "" && !strings.EqualFold(v, "false") {
			return true
		}
	}
	return false
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// IsInteractive reports whether both stdin and stdout are terminals.
func IsInteractive() bool {
	return IsTerminal(os.Stdin) && IsTerminal(os.Stdout)
}
