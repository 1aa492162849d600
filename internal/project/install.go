package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AllowNonLocalEnv bypasses the installation guard when set to "true".
const AllowNonLocalEnv = "HATCH_ALLOW_NON_LOCAL_INSTALLATION"

// LinkedBinary is where a project links its hatch binary, relative to the
// project root.
var LinkedBinary = filepath.Join(".hatch", "bin", "hatch")

// InstallChecker decides whether the running binary belongs to a project.
type InstallChecker struct {
	// Executable returns the running binary path; os.Executable by default.
	Executable func() (string, error)
}

// IsLocalInstallation reports whether the running binary lives under root,
// or is the one root links into .hatch/bin.
func (c InstallChecker) IsLocalInstallation(root string) (bool, error) {
	executable := c.Executable
	if executable == nil {
		executable = os.Executable
	}
	exe, err := executable()
	if err != nil {
		return false, fmt.Errorf("failed to locate hatch binary: %w", err)
	}
	exe = realPath(exe)
	root = realPath(root)

	if isWithin(root, exe) {
		return true, nil
	}

	linked := filepath.Join(root, LinkedBinary)
	if _, err := os.Lstat(linked); err != nil {
		return false, nil
	}
	return realPath(linked) == exe, nil
}

func realPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return p
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
