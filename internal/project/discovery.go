// Package project locates hatch projects, checks how hatch was installed
// into them, detects TypeScript mode and scaffolds new projects.
package project

import (
	"os"
	"path/filepath"

	"hatch/internal/config"
	"hatch/internal/logging"
)

// FindConfig walks upward from dir and returns the first hatch config file
// found.
func FindConfig(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		if path, ok := configIn(dir); ok {
			logging.ProjectDebug("found config %s", path)
			return path, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// IsInsideProject reports whether dir or one of its parents holds a config.
func IsInsideProject(dir string) bool {
	_, ok := FindConfig(dir)
	return ok
}

func configIn(dir string) (string, bool) {
	for _, name := range config.ConfigFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
