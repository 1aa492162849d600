package tasks

import "errors"

// Task registry errors.
var (
	// ErrTaskNameEmpty is returned when a task has no name.
	ErrTaskNameEmpty = errors.New("task name cannot be empty")

	// ErrScopeNameEmpty is returned when a scope has no name.
	ErrScopeNameEmpty = errors.New("scope name cannot be empty")

	// ErrScopeNotFound is returned when a task names an unregistered scope.
	ErrScopeNotFound = errors.New("scope not registered")

	// ErrParamClash is returned when a task parameter reuses a global
	// parameter name or another parameter of the same task.
	ErrParamClash = errors.New("parameter name clash")

	// ErrPositionalOrder is returned for a required positional after an
	// optional one, or a variadic positional that is not last.
	ErrPositionalOrder = errors.New("invalid positional parameter order")
)
