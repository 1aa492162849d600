package clierrors

// General errors (HT1-HT99).
var (
	NotInsideProject = &Descriptor{
		Number:  1,
		Title:   "You are not inside a hatch project",
		Message: "You are not inside a hatch project.",
	}
	NonLocalInstallation = &Descriptor{
		Number: 2,
		Title:  "hatch is not installed or installed globally",
		Message: "Trying to use a non-local installation of hatch, which is not supported.\n" +
			"Please install hatch locally in {root} (or link it into .hatch/bin) and run it from there.",
	}
	NotInsideProjectOnWindows = &Descriptor{
		Number: 3,
		Title:  "Project creation is not available here",
		Message: "You are not inside a project and project creation cannot run on Windows from a " +
			"non-interactive terminal.\nSet HATCH_CREATE_PROJECT_WITH_DEFAULTS=true or run hatch init from an interactive shell.",
	}
	NotInInteractiveShell = &Descriptor{
		Number: 4,
		Title:  "Not inside an interactive shell",
		Message: "You are trying to initialize a project but you are not in an interactive shell.\n" +
			"Set HATCH_CREATE_PROJECT_WITH_DEFAULTS=true (or HATCH_CREATE_TYPESCRIPT_PROJECT_WITH_DEFAULTS=true) to create one with the default options.",
	}
	TypecheckInNonTypedProject = &Descriptor{
		Number:  5,
		Title:   "--typecheck used in an untyped project",
		Message: "Trying to use the --typecheck flag, but the project is not configured for TypeScript.",
	}
	ProjectAlreadyExists = &Descriptor{
		Number:  6,
		Title:   "Project already exists",
		Message: "A hatch config file already exists at {path}; refusing to overwrite it.",
	}
)

// Task errors (HT200-HT299).
var (
	UnrecognizedTask = &Descriptor{
		Number:  201,
		Title:   "Unrecognized task",
		Message: "Unrecognized task '{task}'{suggestion}",
	}
	UnrecognizedScopedTask = &Descriptor{
		Number:  202,
		Title:   "Unrecognized scoped task",
		Message: "Unrecognized task '{task}' under scope '{scope}'",
	}
	RunningSubtaskFromCli = &Descriptor{
		Number:  203,
		Title:   "Subtask run from the command line",
		Message: "Trying to run the {name} subtask from the CLI, which is not supported. Subtasks can only be run from other tasks.",
	}
	TaskScopeClash = &Descriptor{
		Number:  204,
		Title:   "Task and scope share a name",
		Message: "A task and a scope can't share the name '{name}'.",
	}
	ActionNotSet = &Descriptor{
		Number:           205,
		Title:            "Task has no action",
		Message:          "No action set for task '{task}'.",
		ShouldBeReported: true,
	}
)

// Argument errors (HT300-HT399).
var (
	InvalidValueForType = &Descriptor{
		Number:  301,
		Title:   "Invalid argument type",
		Message: "Invalid value {value} for argument {name} of type {type}",
	}
	InvalidEnvVarValue = &Descriptor{
		Number:  302,
		Title:   "Invalid environment variable value",
		Message: "Invalid environment variable {variable}'s value: {value}",
	}
	UnrecognizedCommandLineArg = &Descriptor{
		Number:  303,
		Title:   "Unrecognized command line argument",
		Message: "Unrecognised command line argument {argument}.\nNote that task arguments must come after the task name.",
	}
	MissingTaskArgument = &Descriptor{
		Number:  304,
		Title:   "Missing task argument",
		Message: "The '{param}' parameter expects a value, but none was passed.",
	}
	RepeatedParam = &Descriptor{
		Number:  305,
		Title:   "Repeated parameter",
		Message: "Parameter {param} was passed more than once.",
	}
	MissingTaskForScope = &Descriptor{
		Number:  306,
		Title:   "Scope without task",
		Message: "Scope '{scope}' was used without a task name. Run 'hatch help {scope}' to list its tasks.",
	}
	UnrecognizedParamName = &Descriptor{
		Number:  307,
		Title:   "Unrecognized param name",
		Message: "Unrecognized param {param}",
	}
	MissingPositionalArg = &Descriptor{
		Number:  308,
		Title:   "Missing positional argument",
		Message: "Missing positional argument {param}",
	}
	UnrecognizedPositionalArg = &Descriptor{
		Number:  309,
		Title:   "Unrecognized positional argument",
		Message: "Unrecognized positional argument {argument}",
	}
	ParamNameInvalidCasing = &Descriptor{
		Number:  310,
		Title:   "Invalid param name casing",
		Message: "Invalid param {param}. Command line params must be lowercase.",
	}
	InvalidInputFile = &Descriptor{
		Number:  311,
		Title:   "Invalid input file",
		Message: "Invalid input file {file} for argument {name}: {reason}",
	}
	InvalidArgumentValue = &Descriptor{
		Number:  312,
		Title:   "Invalid argument value",
		Message: "Invalid argument '{argument}': {reason}",
	}
)

// Internal errors (HT900-HT999).
var (
	AssertionFailed = &Descriptor{
		Number:           900,
		Title:            "Invariant violation",
		Message:          "An internal invariant was violated: {message}",
		ShouldBeReported: true,
	}
)
