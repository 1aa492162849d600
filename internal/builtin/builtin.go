// Package builtin registers the tasks every hatch project has: help, compile,
// test and clean, plus the tasks a project declares in its config.
package builtin

import (
	"hatch/internal/tasks"
)

// Task names.
const (
	TaskHelp    = "help"
	TaskCompile = "compile"
	TaskTest    = "test"
	TaskClean   = "clean"

	SubtaskGetSourcePaths = "compile:get-source-paths"
)

// Options configures the built-in tasks.
type Options struct {
	Version string

	// Styled selects the terminal markdown style for help; plain text
	// otherwise.
	Styled bool

	// GlobalCacheDir is removed by "clean --global".
	GlobalCacheDir string
}

var builtinNames = map[string]bool{
	TaskHelp:              true,
	TaskCompile:           true,
	TaskTest:              true,
	TaskClean:             true,
	SubtaskGetSourcePaths: true,
}

// IsBuiltin reports whether an unscoped task name belongs to hatch itself.
func IsBuiltin(scope, name string) bool {
	return scope == "" && builtinNames[name]
}

// Register adds the built-in tasks to set.
func Register(set *tasks.Set, opts Options) {
	set.MustRegister(helpTask(opts))
	set.MustRegister(compileTask())
	set.MustRegister(getSourcePathsTask())
	set.MustRegister(testTask())
	set.MustRegister(cleanTask(opts))
}
