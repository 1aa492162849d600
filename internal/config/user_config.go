package config

// UserConfig is the project config exactly as written in hatch.config.yaml,
// before defaults and path resolution.
type UserConfig struct {
	Paths    PathsConfig            `yaml:"paths"`
	Compiler CompilerConfig         `yaml:"compiler"`
	Test     TestConfig             `yaml:"test"`
	Scopes   map[string]ScopeConfig `yaml:"scopes"`
	Tasks    []TaskConfig           `yaml:"tasks"`
	Logging  LoggingConfig          `yaml:"logging"`
}

// PathsConfig locates project directories. Relative paths are resolved
// against the directory holding the config file.
type PathsConfig struct {
	Root      string `yaml:"root"`
	Sources   string `yaml:"sources"`
	Tests     string `yaml:"tests"`
	Cache     string `yaml:"cache"`
	Artifacts string `yaml:"artifacts"`
}

// CompilerConfig configures the primary build task.
type CompilerConfig struct {
	Version       string   `yaml:"version"`
	Command       []string `yaml:"command"`
	OptimizerRuns int      `yaml:"optimizer_runs"`

	// ViaIR enables the intermediate-representation pipeline. Test failures
	// under it get an extra advisory after the run.
	ViaIR bool `yaml:"via_ir"`
}

// TestConfig configures the test task.
type TestConfig struct {
	Command []string `yaml:"command"`
}

// ScopeConfig declares a scope for config-declared tasks.
type ScopeConfig struct {
	Description string `yaml:"description"`
}

// TaskConfig declares a task that runs an external command.
type TaskConfig struct {
	Name        string   `yaml:"name"`
	Scope       string   `yaml:"scope"`
	Description string   `yaml:"description"`
	Command     []string `yaml:"command"`
	Subtask     bool     `yaml:"subtask"`
}
