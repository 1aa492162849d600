package tasks

import (
	"fmt"
	"sort"
	"sync"

	"hatch/internal/clierrors"
	"hatch/internal/logging"
)

// Registry is the read-only lookup the dispatcher and environment need.
// Plugins and loaders may supply any implementation.
type Registry interface {
	TaskDefinition(scope, name string) (*TaskDefinition, bool)
	TaskDefinitions() map[string]*TaskDefinition
	ScopeDefinitions() map[string]*ScopeDefinition
}

// Set holds registered tasks and scopes.
// It is thread-safe and supports registration at runtime.
type Set struct {
	mu     sync.RWMutex
	tasks  map[string]*TaskDefinition
	scopes map[string]*ScopeDefinition
}

// NewSet creates a new empty task set.
func NewSet() *Set {
	return &Set{
		tasks:  make(map[string]*TaskDefinition),
		scopes: make(map[string]*ScopeDefinition),
	}
}

// RegisterScope declares a scope. Declaring an existing scope again updates
// its description when one is given.
func (s *Set) RegisterScope(name, description string) (*ScopeDefinition, error) {
	if name == "" {
		return nil, ErrScopeNameEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, clash := s.tasks[name]; clash {
		return nil, clierrors.New(clierrors.TaskScopeClash, map[string]any{"name": name})
	}
	if scope, ok := s.scopes[name]; ok {
		if description != "" {
			scope.Description = description
		}
		return scope, nil
	}
	scope := &ScopeDefinition{Name: name, Description: description, Tasks: make(map[string]*TaskDefinition)}
	s.scopes[name] = scope
	logging.ConfigDebug("Registered scope: %s", name)
	return scope, nil
}

// Register adds a task. Registering a task that already exists overrides it.
func (s *Set) Register(task *TaskDefinition) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task %q: %w", task.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if task.Scope == "" {
		if _, clash := s.scopes[task.Name]; clash {
			return clierrors.New(clierrors.TaskScopeClash, map[string]any{"name": task.Name})
		}
		if _, exists := s.tasks[task.Name]; exists {
			logging.ConfigDebug("Overriding task: %s", task.Name)
		}
		s.tasks[task.Name] = task
		logging.ConfigDebug("Registered task: %s (subtask=%v)", task.Name, task.IsSubtask)
		return nil
	}

	scope, ok := s.scopes[task.Scope]
	if !ok {
		return fmt.Errorf("%w: %s", ErrScopeNotFound, task.Scope)
	}
	scope.Tasks[task.Name] = task
	logging.ConfigDebug("Registered task: %s %s (subtask=%v)", task.Scope, task.Name, task.IsSubtask)
	return nil
}

// MustRegister registers a task and panics on error.
// Use this for static task registration at init time.
func (s *Set) MustRegister(task *TaskDefinition) {
	if err := s.Register(task); err != nil {
		panic(fmt.Sprintf("failed to register task %s: %v", task.Name, err))
	}
}

// TaskDefinition returns a task by scope and name.
func (s *Set) TaskDefinition(scope, name string) (*TaskDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if scope == "" {
		t, ok := s.tasks[name]
		return t, ok
	}
	sd, ok := s.scopes[scope]
	if !ok {
		return nil, false
	}
	t, ok := sd.Tasks[name]
	return t, ok
}

// TaskDefinitions returns a snapshot of the unscoped tasks.
func (s *Set) TaskDefinitions() map[string]*TaskDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*TaskDefinition, len(s.tasks))
	for k, v := range s.tasks {
		out[k] = v
	}
	return out
}

// ScopeDefinitions returns a snapshot of the scopes.
func (s *Set) ScopeDefinitions() map[string]*ScopeDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*ScopeDefinition, len(s.scopes))
	for k, v := range s.scopes {
		out[k] = v
	}
	return out
}

// Names returns all unscoped task names, sorted.
func Names(r Registry) []string {
	defs := r.TaskDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsScope reports whether name is a scope in r.
func IsScope(r Registry, name string) bool {
	_, ok := r.ScopeDefinitions()[name]
	return ok
}
