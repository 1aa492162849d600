// Package tasks holds task and scope definitions and the registry the
// dispatcher resolves command lines against.
//
// A task is a named unit of work with a parameter schema and an action.
// Tasks may live under a scope (e.g. "node start"). Subtasks exist only for
// composition from other tasks and cannot be invoked from the command line.
package tasks

import (
	"context"
	"io"

	"hatch/internal/arguments"
	"hatch/internal/config"
)

// Runtime is the view of the execution environment an action receives.
type Runtime interface {
	// Run executes another task (or subtask) with the given arguments.
	Run(ctx context.Context, scope, name string, args arguments.TaskArguments) (any, error)

	Config() *config.ResolvedConfig
	Globals() arguments.GlobalArguments
	Registry() Registry

	// SetExitCode records a non-zero process exit code without failing the
	// task, e.g. when tests ran but some failed.
	SetExitCode(code int)

	Stdout() io.Writer
	Stderr() io.Writer
}

// ActionFunc is the signature for task actions.
type ActionFunc func(ctx context.Context, args arguments.TaskArguments, rt Runtime) (any, error)

// TaskDefinition defines a task. Build one with New and the fluent setters.
type TaskDefinition struct {
	Name        string
	Scope       string
	Description string
	IsSubtask   bool

	// Plugin names the plugin that contributed the task, if any.
	Plugin string

	Params     []*arguments.ParamDefinition
	Positional []*arguments.ParamDefinition
	Action     ActionFunc
}

// New starts a task definition.
func New(name, description string) *TaskDefinition {
	return &TaskDefinition{Name: name, Description: description}
}

// NewSubtask starts a subtask definition.
func NewSubtask(name, description string) *TaskDefinition {
	return &TaskDefinition{Name: name, Description: description, IsSubtask: true}
}

// InScope places the task under a scope.
func (t *TaskDefinition) InScope(scope string) *TaskDefinition {
	t.Scope = scope
	return t
}

// FromPlugin records the contributing plugin.
func (t *TaskDefinition) FromPlugin(plugin string) *TaskDefinition {
	t.Plugin = plugin
	return t
}

// AddParam adds a required named parameter.
func (t *TaskDefinition) AddParam(name, description string, typ arguments.ArgumentType) *TaskDefinition {
	t.Params = append(t.Params, &arguments.ParamDefinition{Name: name, Description: description, Type: typ})
	return t
}

// AddOptionalParam adds an optional named parameter with a default.
func (t *TaskDefinition) AddOptionalParam(name, description string, def any, typ arguments.ArgumentType) *TaskDefinition {
	t.Params = append(t.Params, &arguments.ParamDefinition{
		Name: name, Description: description, Type: typ, Default: def, IsOptional: true,
	})
	return t
}

// AddFlag adds a boolean flag.
func (t *TaskDefinition) AddFlag(name, description string) *TaskDefinition {
	t.Params = append(t.Params, &arguments.ParamDefinition{
		Name: name, Description: description, Type: arguments.Boolean, Default: false, IsOptional: true, IsFlag: true,
	})
	return t
}

// AddPositionalParam adds a required positional parameter.
func (t *TaskDefinition) AddPositionalParam(name, description string, typ arguments.ArgumentType) *TaskDefinition {
	t.Positional = append(t.Positional, &arguments.ParamDefinition{Name: name, Description: description, Type: typ})
	return t
}

// AddOptionalPositionalParam adds an optional positional parameter.
func (t *TaskDefinition) AddOptionalPositionalParam(name, description string, def any, typ arguments.ArgumentType) *TaskDefinition {
	t.Positional = append(t.Positional, &arguments.ParamDefinition{
		Name: name, Description: description, Type: typ, Default: def, IsOptional: true,
	})
	return t
}

// AddVariadicPositionalParam adds a trailing positional that collects the
// remaining tokens. It is optional; def may be nil.
func (t *TaskDefinition) AddVariadicPositionalParam(name, description string, def any, typ arguments.ArgumentType) *TaskDefinition {
	t.Positional = append(t.Positional, &arguments.ParamDefinition{
		Name: name, Description: description, Type: typ, Default: def, IsOptional: true, IsVariadic: true,
	})
	return t
}

// SetAction sets the task action.
func (t *TaskDefinition) SetAction(fn ActionFunc) *TaskDefinition {
	t.Action = fn
	return t
}

// TaskName implements arguments.TaskSchema.
func (t *TaskDefinition) TaskName() string {
	if t.Scope != "" {
		return t.Scope + " " + t.Name
	}
	return t.Name
}

// NamedParams implements arguments.TaskSchema.
func (t *TaskDefinition) NamedParams() []*arguments.ParamDefinition {
	return t.Params
}

// PositionalParams implements arguments.TaskSchema.
func (t *TaskDefinition) PositionalParams() []*arguments.ParamDefinition {
	return t.Positional
}

// Validate checks that the definition is well formed.
func (t *TaskDefinition) Validate() error {
	if t.Name == "" {
		return ErrTaskNameEmpty
	}

	seen := make(map[string]bool)
	for _, g := range arguments.GlobalParams {
		seen[g.Name] = true
	}
	for _, p := range append(append([]*arguments.ParamDefinition{}, t.Params...), t.Positional...) {
		if seen[p.Name] {
			return ErrParamClash
		}
		seen[p.Name] = true
	}

	optionalSeen := false
	for i, p := range t.Positional {
		if p.IsVariadic && i != len(t.Positional)-1 {
			return ErrPositionalOrder
		}
		if p.IsOptional {
			optionalSeen = true
		} else if optionalSeen {
			return ErrPositionalOrder
		}
	}
	return nil
}

// ScopeDefinition groups tasks under a shared prefix.
type ScopeDefinition struct {
	Name        string
	Description string
	Tasks       map[string]*TaskDefinition
}
