// Package arguments splits raw command lines in three phases: global
// arguments, scope/task names, and task arguments.
package arguments

import (
	"strconv"
	"strings"
	"unicode"
)

// ParamDefinition describes one global or task parameter. Name is camelCase;
// on the command line it is written in kebab-case with a "--" prefix.
type ParamDefinition struct {
	Name        string
	Description string
	Type        ArgumentType
	Default     any
	IsOptional  bool
	IsFlag      bool
	IsVariadic  bool
}

const paramPrefix = "--"

// CLIName returns the command-line form of a camelCase parameter name.
func CLIName(name string) string {
	var b strings.Builder
	b.WriteString(paramPrefix)
	for _, r := range name {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParamName converts a "--kebab-case" token back to its camelCase name.
func ParamName(arg string) string {
	s := strings.TrimPrefix(arg, paramPrefix)
	var b strings.Builder
	upper := false
	for _, r := range s {
		if r == '-' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EnvVarName returns the HATCH_SCREAMING_SNAKE variable for a parameter.
func EnvVarName(name string) string {
	var b strings.Builder
	b.WriteString("HATCH_")
	for _, r := range name {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func hasParamNameFormat(arg string) bool {
	return strings.HasPrefix(arg, paramPrefix)
}

func hasInvalidCasing(arg string) bool {
	return strings.ToLower(arg) != arg
}

// Global parameter names.
const (
	ParamConfig          = "config"
	ParamShowStackTraces = "showStackTraces"
	ParamVersion         = "version"
	ParamHelp            = "help"
	ParamEmoji           = "emoji"
	ParamVerbose         = "verbose"
	ParamMaxMemory       = "maxMemory"
	ParamTSConfig        = "tsconfig"
	ParamFlamegraph      = "flamegraph"
	ParamTypecheck       = "typecheck"
)

// GlobalParams is the table of parameters every invocation accepts.
var GlobalParams = []*ParamDefinition{
	{Name: ParamConfig, Description: "A hatch config file.", Type: InputFile, IsOptional: true},
	{Name: ParamShowStackTraces, Description: "Show stack traces (always enabled on CI servers).", Type: Boolean, IsFlag: true, IsOptional: true, Default: false},
	{Name: ParamVersion, Description: "Shows hatch's version.", Type: Boolean, IsFlag: true, IsOptional: true, Default: false},
	{Name: ParamHelp, Description: "Shows this message, or a task's help if its name is provided.", Type: Boolean, IsFlag: true, IsOptional: true, Default: false},
	{Name: ParamEmoji, Description: "Use emoji in messages.", Type: Boolean, IsFlag: true, IsOptional: true, Default: false},
	{Name: ParamVerbose, Description: "Enables hatch verbose logging.", Type: Boolean, IsFlag: true, IsOptional: true, Default: false},
	{Name: ParamMaxMemory, Description: "The maximum amount of memory that hatch can use.", Type: Int, IsOptional: true},
	{Name: ParamTSConfig, Description: "A TypeScript config file.", Type: InputFile, IsOptional: true},
	{Name: ParamFlamegraph, Description: "Generate a flamegraph of your hatch tasks.", Type: Boolean, IsFlag: true, IsOptional: true, Default: false},
	{Name: ParamTypecheck, Description: "Enable TypeScript type-checking of your scripts/tests.", Type: Boolean, IsFlag: true, IsOptional: true, Default: false},
}

// GlobalArguments holds the fully-defaulted global parameters of one run.
type GlobalArguments struct {
	Config          string
	ShowStackTraces bool
	Version         bool
	Help            bool
	Emoji           bool
	Verbose         bool
	MaxMemory       int
	TSConfig        string
	Flamegraph      bool
	Typecheck       bool
}

func globalsFromValues(values map[string]any) GlobalArguments {
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}
	flag := func(k string) bool {
		b, _ := values[k].(bool)
		return b
	}
	maxMemory, _ := values[ParamMaxMemory].(int)
	return GlobalArguments{
		Config:          str(ParamConfig),
		ShowStackTraces: flag(ParamShowStackTraces),
		Version:         flag(ParamVersion),
		Help:            flag(ParamHelp),
		Emoji:           flag(ParamEmoji),
		Verbose:         flag(ParamVerbose),
		MaxMemory:       maxMemory,
		TSConfig:        str(ParamTSConfig),
		Flamegraph:      flag(ParamFlamegraph),
		Typecheck:       flag(ParamTypecheck),
	}
}

// ToArgs re-serializes the non-default values as command-line tokens.
// Parsing the result yields the same GlobalArguments.
func (g GlobalArguments) ToArgs() []string {
	var out []string
	addFlag := func(name string, set bool) {
		if set {
			out = append(out, CLIName(name))
		}
	}
	addValue := func(name, v string) {
		if v != "" {
			out = append(out, CLIName(name), v)
		}
	}
	addValue(ParamConfig, g.Config)
	addFlag(ParamShowStackTraces, g.ShowStackTraces)
	addFlag(ParamVersion, g.Version)
	addFlag(ParamHelp, g.Help)
	addFlag(ParamEmoji, g.Emoji)
	addFlag(ParamVerbose, g.Verbose)
	if g.MaxMemory != 0 {
		out = append(out, CLIName(ParamMaxMemory), strconv.Itoa(g.MaxMemory))
	}
	addValue(ParamTSConfig, g.TSConfig)
	addFlag(ParamFlamegraph, g.Flamegraph)
	addFlag(ParamTypecheck, g.Typecheck)
	return out
}

// TaskArguments maps parameter names to parsed values.
type TaskArguments map[string]any

// String returns a string argument, or "" if absent.
func (a TaskArguments) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Bool returns a boolean argument, or false if absent.
func (a TaskArguments) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Strings returns a variadic argument's values as strings.
func (a TaskArguments) Strings(name string) []string {
	switch v := a[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
