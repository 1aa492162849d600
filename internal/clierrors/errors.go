// Package clierrors defines the hatch error taxonomy.
//
// Every user-facing failure the CLI knows how to explain is an *Error built
// from a Descriptor with a stable number (printed as HT<number>). Plugins
// raise *PluginError. Anything else reaching the top-level boundary is an
// unexpected error.
package clierrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorPrefix precedes every descriptor number in user output.
const ErrorPrefix = "HT"

// Descriptor describes one kind of known CLI error.
type Descriptor struct {
	Number int
	Title  string

	// Message is a template; {name} placeholders are replaced with the
	// matching message argument.
	Message string

	// ShouldBeReported marks errors that indicate a bug rather than a user
	// mistake and are worth sending to the error-reporting channel.
	ShouldBeReported bool
}

// Code returns the printable error code, e.g. "HT1".
func (d *Descriptor) Code() string {
	return fmt.Sprintf("%s%d", ErrorPrefix, d.Number)
}

// Error is a known, classified CLI error.
type Error struct {
	Descriptor *Descriptor
	Args       map[string]any
	Parent     error

	message string
}

// New builds an error from a descriptor and its message arguments.
func New(d *Descriptor, args map[string]any) *Error {
	return &Error{
		Descriptor: d,
		Args:       args,
		message:    applyTemplate(d.Message, args),
	}
}

// Wrap is like New but records the error that caused it.
func Wrap(d *Descriptor, args map[string]any, parent error) *Error {
	e := New(d, args)
	e.Parent = parent
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Descriptor.Code(), e.message)
}

// Message returns the formatted message without the code prefix.
func (e *Error) Message() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.Parent
}

// Is matches any *Error sharing the same descriptor, so errors.Is works
// against sentinel values built with New(d, nil).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Descriptor == e.Descriptor
}

// Is reports whether err is (or wraps) a CLI error of the given descriptor.
func Is(err error, d *Descriptor) bool {
	var cliErr *Error
	if errors.As(err, &cliErr) {
		return cliErr.Descriptor == d
	}
	return false
}

// PluginError is raised by task actions contributed by a plugin.
type PluginError struct {
	Plugin  string
	Message string
	Parent  error
}

// NewPluginError creates a plugin error; parent may be nil.
func NewPluginError(plugin, message string, parent error) *PluginError {
	return &PluginError{Plugin: plugin, Message: message, Parent: parent}
}

func (e *PluginError) Error() string {
	return e.Message
}

func (e *PluginError) Unwrap() error {
	return e.Parent
}

// Kind is the top-level classification of an error.
type Kind int

const (
	KindCLI Kind = iota
	KindPlugin
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindCLI:
		return "cli"
	case KindPlugin:
		return "plugin"
	default:
		return "unexpected"
	}
}

// Classify sorts err into one of the three top-level kinds. A CLI error
// wrapped anywhere in the chain wins over a plugin error.
func Classify(err error) Kind {
	var cliErr *Error
	if errors.As(err, &cliErr) {
		return KindCLI
	}
	var pluginErr *PluginError
	if errors.As(err, &pluginErr) {
		return KindPlugin
	}
	return KindUnexpected
}

func applyTemplate(tmpl string, args map[string]any) string {
	if len(args) == 0 {
		return tmpl
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(args[k]))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
