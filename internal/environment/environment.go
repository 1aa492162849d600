// Package environment builds the per-invocation execution environment and runs
// tasks in it.
package environment

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"hatch/internal/arguments"
	"hatch/internal/clierrors"
	"hatch/internal/config"
	"hatch/internal/logging"
	"hatch/internal/tasks"
)

// Extender augments an Environment before any task runs.
type Extender func(env *Environment)

// Environment bundles config, global arguments and the registry snapshot,
// and exposes a single Run entry point.
type Environment struct {
	config     *config.ResolvedConfig
	userConfig *config.UserConfig
	globals    arguments.GlobalArguments
	registry   tasks.Registry

	stdout io.Writer
	stderr io.Writer

	mu       sync.Mutex
	exitCode int
	values   map[string]any

	// profiling state; nil unless the flamegraph global is set
	profile *TaskProfile
	current *TaskProfile
}

// Option configures an Environment.
type Option func(*Environment)

// WithOutput sets the writers actions print to.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Environment) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// New constructs an Environment and applies extenders in order.
func New(cfg *config.ResolvedConfig, globals arguments.GlobalArguments, registry tasks.Registry,
	extenders []Extender, userConfig *config.UserConfig, opts ...Option) *Environment {
	env := &Environment{
		config:     cfg,
		userConfig: userConfig,
		globals:    globals,
		registry:   registry,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		values:     make(map[string]any),
	}
	for _, opt := range opts {
		opt(env)
	}
	for _, ext := range extenders {
		ext(env)
	}
	return env
}

func (e *Environment) Config() *config.ResolvedConfig     { return e.config }
func (e *Environment) UserConfig() *config.UserConfig     { return e.userConfig }
func (e *Environment) Globals() arguments.GlobalArguments { return e.globals }
func (e *Environment) Registry() tasks.Registry           { return e.registry }
func (e *Environment) Stdout() io.Writer                  { return e.stdout }
func (e *Environment) Stderr() io.Writer                  { return e.stderr }

// SetExitCode records the exit code the process should end with.
func (e *Environment) SetExitCode(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exitCode = code
}

// ExitCode returns the recorded exit code (0 unless an action set one).
func (e *Environment) ExitCode() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exitCode
}

// Set stores a value for extenders and actions to share.
func (e *Environment) Set(key string, v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[key] = v
}

// Value returns a value stored with Set.
func (e *Environment) Value(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.values[key]
	return v, ok
}

// EntryTaskProfile returns the profile of the first task run, or nil when
// profiling was not requested.
func (e *Environment) EntryTaskProfile() *TaskProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile
}

// Run executes a task. Absent arguments fall back to the parameter
// defaults, so nested calls from actions may pass a partial argument set.
func (e *Environment) Run(ctx context.Context, scope, name string, args arguments.TaskArguments) (any, error) {
	def, ok := e.registry.TaskDefinition(scope, name)
	if !ok {
		if scope != "" {
			return nil, clierrors.New(clierrors.UnrecognizedScopedTask, map[string]any{"scope": scope, "task": name})
		}
		return nil, clierrors.New(clierrors.UnrecognizedTask, map[string]any{"task": name, "suggestion": tasks.SuggestionSuffix(e.registry, name)})
	}
	if def.Action == nil {
		return nil, clierrors.New(clierrors.ActionNotSet, map[string]any{"task": def.TaskName()})
	}

	full := withDefaults(def, args)

	if !e.globals.Flamegraph {
		logging.RuntimeDebug("running task %s", def.TaskName())
		out, err := def.Action(ctx, full, e)
		return out, attributeError(def, err)
	}

	prof, parent := e.enterProfile(def.TaskName())
	defer e.exitProfile(prof, parent)
	out, err := def.Action(ctx, full, e)
	return out, attributeError(def, err)
}

// attributeError wraps a failure of a plugin-contributed task in a
// PluginError. Classified errors are left alone.
func attributeError(def *tasks.TaskDefinition, err error) error {
	if err == nil || def.Plugin == "" {
		return err
	}
	var cliErr *clierrors.Error
	var pluginErr *clierrors.PluginError
	if errors.As(err, &cliErr) || errors.As(err, &pluginErr) {
		return err
	}
	return clierrors.NewPluginError(def.Plugin, err.Error(), err)
}

func (e *Environment) enterProfile(name string) (prof, parent *TaskProfile) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prof = &TaskProfile{Name: name, Start: time.Now()}
	parent = e.current
	if parent == nil {
		if e.profile == nil {
			e.profile = prof
		}
	} else {
		parent.Children = append(parent.Children, prof)
	}
	e.current = prof
	return prof, parent
}

func (e *Environment) exitProfile(prof, parent *TaskProfile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	prof.End = time.Now()
	e.current = parent
}

func withDefaults(def *tasks.TaskDefinition, args arguments.TaskArguments) arguments.TaskArguments {
	full := make(arguments.TaskArguments, len(args))
	for k, v := range args {
		full[k] = v
	}
	fill := func(params []*arguments.ParamDefinition) {
		for _, p := range params {
			if _, ok := full[p.Name]; ok {
				continue
			}
			switch {
			case p.Default != nil:
				full[p.Name] = p.Default
			case p.IsFlag:
				full[p.Name] = false
			}
		}
	}
	fill(def.Params)
	fill(def.Positional)
	return full
}
