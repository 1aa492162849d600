package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"hatch/internal/logging"
)

// TSConfigFile is the TypeScript config that marks a typed project.
const TSConfigFile = "tsconfig.json"

// IsTypedProject reports whether the project runs in TypeScript mode: an
// explicit tsconfig was given, or one sits beside the config file.
func IsTypedProject(configPath, tsconfig string) bool {
	if tsconfig != "" {
		return true
	}
	if configPath == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(filepath.Dir(configPath), TSConfigFile))
	return err == nil && !info.IsDir()
}

// TypedSupport exports the settings child tools need to run TypeScript.
type TypedSupport struct {
	// Setenv defaults to os.Setenv.
	Setenv func(key, value string) error
}

// Load configures the support layer. tsconfig defaults to the file beside
// the config; typecheck turns off transpile-only mode.
func (s TypedSupport) Load(configPath, tsconfig string, typecheck bool) (map[string]string, error) {
	setenv := s.Setenv
	if setenv == nil {
		setenv = os.Setenv
	}
	if tsconfig == "" {
		tsconfig = filepath.Join(filepath.Dir(configPath), TSConfigFile)
	}

	vars := map[string]string{
		"TS_NODE_PROJECT":        tsconfig,
		"TS_NODE_TRANSPILE_ONLY": strconv.FormatBool(!typecheck),
		"TS_NODE_FILES":          "true",
	}
	for k, v := range vars {
		if err := setenv(k, v); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	logging.ProjectDebug("typescript support loaded (tsconfig=%s, typecheck=%v)", tsconfig, typecheck)
	return vars, nil
}
