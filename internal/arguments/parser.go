package arguments

import (
	"hatch/internal/clierrors"
	"hatch/internal/logging"
)

// TaskHelp is the task run when no task name is given.
const TaskHelp = "help"

// GlobalParseResult is the outcome of phase 1.
type GlobalParseResult struct {
	Globals GlobalArguments

	// ScopeOrTaskName is the first non-parameter token. It may be empty
	// even when HasToken is set, e.g. for a literal "" argument.
	ScopeOrTaskName string
	HasToken        bool

	// UnparsedArgs starts with ScopeOrTaskName (when present) followed by
	// every token that was not a global parameter.
	UnparsedArgs []string
}

// ScopeAndTask is the outcome of phase 2.
type ScopeAndTask struct {
	ScopeName     string
	TaskName      string
	RemainingArgs []string
}

// TaskSchema is the parameter schema phase 3 maps tokens onto.
type TaskSchema interface {
	TaskName() string
	NamedParams() []*ParamDefinition
	PositionalParams() []*ParamDefinition
}

func indexDefinitions(defs []*ParamDefinition) map[string]*ParamDefinition {
	out := make(map[string]*ParamDefinition, len(defs))
	for _, d := range defs {
		out[d.Name] = d
	}
	return out
}

// ParseGlobalArguments is phase 1. Known global parameters are consumed
// wherever they appear. Before the scope-or-task token any other "--" token
// is an error; after it, unknown tokens are kept verbatim for the later
// phases. envArgs (from EnvArguments) sit between defaults and the command
// line in precedence.
func ParseGlobalArguments(defs []*ParamDefinition, envArgs map[string]any, rawArgs []string) (*GlobalParseResult, error) {
	byName := indexDefinitions(defs)
	cliArgs := make(map[string]any)
	result := &GlobalParseResult{UnparsedArgs: []string{}}

	for i := 0; i < len(rawArgs); i++ {
		arg := rawArgs[i]
		isKnown := false
		if hasParamNameFormat(arg) {
			_, isKnown = byName[ParamName(arg)]
		}

		if !result.HasToken {
			if !hasParamNameFormat(arg) {
				result.HasToken = true
				result.ScopeOrTaskName = arg
				result.UnparsedArgs = append(result.UnparsedArgs, arg)
				continue
			}
			if hasInvalidCasing(arg) {
				return nil, clierrors.New(clierrors.ParamNameInvalidCasing, map[string]any{"param": arg})
			}
			if !isKnown {
				return nil, clierrors.New(clierrors.UnrecognizedCommandLineArg, map[string]any{"argument": arg})
			}
		} else if !isKnown || hasInvalidCasing(arg) {
			result.UnparsedArgs = append(result.UnparsedArgs, arg)
			continue
		}

		next, err := parseParamAt(rawArgs, i, byName, cliArgs)
		if err != nil {
			return nil, err
		}
		i = next
	}

	values := make(map[string]any, len(defs))
	for _, d := range defs {
		switch {
		case cliArgs[d.Name] != nil:
			values[d.Name] = cliArgs[d.Name]
		case envArgs[d.Name] != nil:
			values[d.Name] = envArgs[d.Name]
		case d.Default != nil:
			values[d.Name] = d.Default
		case d.IsFlag:
			values[d.Name] = false
		}
	}
	result.Globals = globalsFromValues(values)

	logging.ArgsDebug("global arguments parsed: token=%q unparsed=%v", result.ScopeOrTaskName, result.UnparsedArgs)
	return result, nil
}

// parseParamAt consumes the parameter at index i (and its value, if any)
// into out and returns the index of the last consumed token.
func parseParamAt(rawArgs []string, i int, defs map[string]*ParamDefinition, out map[string]any) (int, error) {
	arg := rawArgs[i]
	name := ParamName(arg)
	def := defs[name]

	if _, seen := out[name]; seen {
		return i, clierrors.New(clierrors.RepeatedParam, map[string]any{"param": arg})
	}

	if def.IsFlag {
		out[name] = true
		return i, nil
	}

	if i+1 >= len(rawArgs) {
		return i, clierrors.New(clierrors.MissingTaskArgument, map[string]any{"param": arg})
	}
	value, err := def.Type.Parse(name, rawArgs[i+1])
	if err != nil {
		return i, err
	}
	out[name] = value
	return i + 1, nil
}

// ParseScopeAndTaskNames is phase 2. isScope reports whether a name is a
// registered scope. An unknown first token is returned as the task name so
// the registry lookup can produce the error.
func ParseScopeAndTaskNames(unparsed []string, isScope func(name string) bool) (*ScopeAndTask, error) {
	if len(unparsed) == 0 {
		return &ScopeAndTask{TaskName: TaskHelp, RemainingArgs: []string{}}, nil
	}

	first := unparsed[0]
	if isScope(first) {
		if len(unparsed) < 2 {
			return nil, clierrors.New(clierrors.MissingTaskForScope, map[string]any{"scope": first})
		}
		return &ScopeAndTask{
			ScopeName:     first,
			TaskName:      unparsed[1],
			RemainingArgs: append([]string{}, unparsed[2:]...),
		}, nil
	}

	return &ScopeAndTask{
		TaskName:      first,
		RemainingArgs: append([]string{}, unparsed[1:]...),
	}, nil
}

// ParseTaskArguments is phase 3: named parameters first, then positionals in
// declaration order, then defaults.
func ParseTaskArguments(schema TaskSchema, rawArgs []string) (TaskArguments, error) {
	named := schema.NamedParams()
	byName := indexDefinitions(named)
	values := make(map[string]any)
	var positional []string

	for i := 0; i < len(rawArgs); i++ {
		arg := rawArgs[i]
		if !hasParamNameFormat(arg) {
			positional = append(positional, arg)
			continue
		}
		if hasInvalidCasing(arg) {
			return nil, clierrors.New(clierrors.ParamNameInvalidCasing, map[string]any{"param": arg})
		}
		if _, ok := byName[ParamName(arg)]; !ok {
			return nil, clierrors.New(clierrors.UnrecognizedParamName, map[string]any{"param": arg})
		}
		next, err := parseParamAt(rawArgs, i, byName, values)
		if err != nil {
			return nil, err
		}
		i = next
	}

	args := TaskArguments{}
	for _, d := range named {
		v, ok := values[d.Name]
		switch {
		case ok:
			args[d.Name] = v
		case d.Default != nil:
			args[d.Name] = d.Default
		case d.IsFlag:
			args[d.Name] = false
		case !d.IsOptional:
			return nil, clierrors.New(clierrors.MissingTaskArgument, map[string]any{"param": CLIName(d.Name)})
		}
	}

	if err := parsePositionals(schema.PositionalParams(), positional, args); err != nil {
		return nil, err
	}

	logging.ArgsDebug("task arguments parsed for %s: %v", schema.TaskName(), args)
	return args, nil
}

func parsePositionals(defs []*ParamDefinition, raw []string, out TaskArguments) error {
	hasVariadic := false
	for i, d := range defs {
		if d.IsVariadic {
			hasVariadic = true
			values := make([]any, 0, len(raw)-min(i, len(raw)))
			for _, r := range raw[min(i, len(raw)):] {
				v, err := d.Type.Parse(d.Name, r)
				if err != nil {
					return err
				}
				values = append(values, v)
			}
			if len(values) == 0 {
				if !d.IsOptional {
					return clierrors.New(clierrors.MissingPositionalArg, map[string]any{"param": d.Name})
				}
				if d.Default != nil {
					out[d.Name] = d.Default
					continue
				}
			}
			out[d.Name] = values
			continue
		}

		if i >= len(raw) {
			if !d.IsOptional {
				return clierrors.New(clierrors.MissingPositionalArg, map[string]any{"param": d.Name})
			}
			if d.Default != nil {
				out[d.Name] = d.Default
			}
			continue
		}
		v, err := d.Type.Parse(d.Name, raw[i])
		if err != nil {
			return err
		}
		out[d.Name] = v
	}

	if !hasVariadic && len(raw) > len(defs) {
		return clierrors.New(clierrors.UnrecognizedPositionalArg, map[string]any{"argument": raw[len(defs)]})
	}
	return nil
}
