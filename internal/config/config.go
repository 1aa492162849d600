// Package config loads hatch.config.yaml into a resolved configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"hatch/internal/logging"
)

// Config file names searched for, in order.
var ConfigFileNames = []string{"hatch.config.yaml", "hatch.config.yml"}

// DefaultCompilerVersion is used when the config does not pin one.
const DefaultCompilerVersion = "0.8.24"

// ErrUnsupportedConfigFormat is returned for config files the loader
// cannot read.
var ErrUnsupportedConfigFormat = errors.New("unsupported config file format")

// ResolvedConfig is the config after defaults, env overrides and path
// resolution.
type ResolvedConfig struct {
	Paths    ResolvedPaths
	Compiler CompilerConfig
	Test     TestConfig
	Scopes   map[string]ScopeConfig
	Tasks    []TaskConfig
	Logging  LoggingConfig
}

// ResolvedPaths holds absolute project paths.
type ResolvedPaths struct {
	Root       string
	ConfigFile string
	Sources    string
	Tests      string
	Cache      string
	Artifacts  string
}

// DefaultConfig returns the default user configuration.
func DefaultConfig() *UserConfig {
	return &UserConfig{
		Paths: PathsConfig{
			Sources:   "contracts",
			Tests:     "test",
			Cache:     "cache",
			Artifacts: "artifacts",
		},
		Compiler: CompilerConfig{
			Version:       DefaultCompilerVersion,
			OptimizerRuns: 200,
		},
		Scopes: map[string]ScopeConfig{},
	}
}

// Load reads the config file at path and returns the resolved config and
// the user config as written. Errors are returned as-is so the caller can
// report them unchanged.
func Load(path string) (*ResolvedConfig, *UserConfig, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, nil, fmt.Errorf("%w: %s (use hatch.config.yaml)", ErrUnsupportedConfigFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}

	user := &UserConfig{}
	if err := yaml.Unmarshal(data, user); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	merged := DefaultConfig()
	if err := yaml.Unmarshal(data, merged); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	merged.applyEnvOverrides()

	if err := merged.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	resolved, err := resolve(merged, path)
	if err != nil {
		return nil, nil, err
	}
	logging.ConfigDebug("config loaded from %s (root=%s, tasks=%d, scopes=%d)",
		path, resolved.Paths.Root, len(resolved.Tasks), len(resolved.Scopes))
	return resolved, user, nil
}

// Save writes a user config as YAML.
func (c *UserConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *UserConfig) applyEnvOverrides() {
	if v := os.Getenv("HATCH_COMPILER_VERSION"); v != "" {
		c.Compiler.Version = v
	}
	if v := os.Getenv("HATCH_VIA_IR"); v != "" {
		c.Compiler.ViaIR = v == "true" || v == "1"
	}
}

// Validate validates the configuration.
func (c *UserConfig) Validate() error {
	if c.Compiler.OptimizerRuns < 0 {
		return fmt.Errorf("compiler.optimizer_runs must be >= 0, got %d", c.Compiler.OptimizerRuns)
	}
	seen := make(map[string]bool)
	for i, t := range c.Tasks {
		if t.Name == "" {
			return fmt.Errorf("tasks[%d]: name is required", i)
		}
		if len(t.Command) == 0 {
			return fmt.Errorf("task %q: command is required", t.Name)
		}
		if t.Scope != "" {
			if _, ok := c.Scopes[t.Scope]; !ok {
				return fmt.Errorf("task %q: scope %q is not declared under scopes", t.Name, t.Scope)
			}
		}
		key := t.Scope + "/" + t.Name
		if seen[key] {
			return fmt.Errorf("task %q declared twice", t.Name)
		}
		seen[key] = true
	}
	return nil
}

func resolve(c *UserConfig, configPath string) (*ResolvedConfig, error) {
	absConfig, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	root := filepath.Dir(absConfig)
	if c.Paths.Root != "" {
		root = resolvePath(root, c.Paths.Root)
	}

	return &ResolvedConfig{
		Paths: ResolvedPaths{
			Root:       root,
			ConfigFile: absConfig,
			Sources:    resolvePath(root, c.Paths.Sources),
			Tests:      resolvePath(root, c.Paths.Tests),
			Cache:      resolvePath(root, c.Paths.Cache),
			Artifacts:  resolvePath(root, c.Paths.Artifacts),
		},
		Compiler: c.Compiler,
		Test:     c.Test,
		Scopes:   c.Scopes,
		Tasks:    c.Tasks,
		Logging:  c.Logging,
	}, nil
}

func resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
