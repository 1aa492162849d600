package project

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"hatch/internal/clierrors"
	"hatch/internal/config"
	"hatch/internal/logging"
)

// Environment toggles for unattended project creation.
const (
	CreateWithDefaultsEnv           = "HATCH_CREATE_PROJECT_WITH_DEFAULTS"
	CreateTypeScriptWithDefaultsEnv = "HATCH_CREATE_TYPESCRIPT_PROJECT_WITH_DEFAULTS"
)

// Variant is the kind of project to scaffold.
type Variant int

const (
	VariantPlain Variant = iota
	VariantTypeScript
)

func (v Variant) String() string {
	if v == VariantTypeScript {
		return "typescript"
	}
	return "plain"
}

// Creator scaffolds new projects.
type Creator struct {
	Out         io.Writer
	Lookup      func(string) (string, bool)
	Interactive bool
	GOOS        string

	// Choose asks which variant to create. Only called when Interactive.
	Choose func(ctx context.Context) (Variant, error)
}

// CreateResult describes a scaffolded project.
type CreateResult struct {
	Root       string
	ConfigFile string
	Variant    Variant
	Files      []string
}

const gitignore = `node_modules
.env

# hatch files
/cache
/artifacts
`

// Create scaffolds a project in dir. It never overwrites an existing config.
func (c *Creator) Create(ctx context.Context, dir string, emoji bool) (*CreateResult, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project dir: %w", err)
	}
	if existing, ok := configIn(root); ok {
		return nil, clierrors.New(clierrors.ProjectAlreadyExists, map[string]any{"path": existing})
	}

	variant, err := c.variant(ctx)
	if err != nil {
		return nil, err
	}
	logging.ProjectDebug("creating %s project in %s", variant, root)

	res := &CreateResult{
		Root:       root,
		ConfigFile: filepath.Join(root, config.ConfigFileNames[0]),
		Variant:    variant,
	}

	if err := config.DefaultConfig().Save(res.ConfigFile); err != nil {
		return nil, err
	}
	res.Files = append(res.Files, res.ConfigFile)

	for _, sub := range []string{"contracts", "test"} {
		path := filepath.Join(root, sub)
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", sub, err)
		}
		res.Files = append(res.Files, path)
	}

	if err := writeIfMissing(filepath.Join(root, ".gitignore"), []byte(gitignore)); err != nil {
		return nil, err
	}
	res.Files = append(res.Files, filepath.Join(root, ".gitignore"))

	if variant == VariantTypeScript {
		data, err := json.MarshalIndent(defaultTSConfig(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tsconfig: %w", err)
		}
		path := filepath.Join(root, TSConfigFile)
		if err := writeIfMissing(path, data); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, path)
	}

	c.printCreated(res, emoji)
	return res, nil
}

func (c *Creator) variant(ctx context.Context) (Variant, error) {
	if c.envSet(CreateTypeScriptWithDefaultsEnv) {
		return VariantTypeScript, nil
	}
	if c.envSet(CreateWithDefaultsEnv) {
		return VariantPlain, nil
	}
	if !c.Interactive || c.Choose == nil {
		if c.GOOS == "windows" {
			return 0, clierrors.New(clierrors.NotInsideProjectOnWindows, nil)
		}
		return 0, clierrors.New(clierrors.NotInInteractiveShell, nil)
	}
	return c.Choose(ctx)
}

func (c *Creator) envSet(name string) bool {
	if c.Lookup == nil {
		return false
	}
	v, ok := c.Lookup(name)
	return ok && strings.EqualFold(v, "true")
}

func (c *Creator) printCreated(res *CreateResult, emoji bool) {
	if c.Out == nil {
		return
	}
	prefix := ""
	if emoji {
		prefix = "✨ "
	}
	fmt.Fprintf(c.Out, "%sProject created %s\n\n", prefix, prefix)
	for _, f := range res.Files {
		rel, err := filepath.Rel(res.Root, f)
		if err != nil {
			rel = f
		}
		fmt.Fprintf(c.Out, "  %s\n", rel)
	}
	fmt.Fprintln(c.Out, "\nRun hatch help to see the available tasks.")
}

func writeIfMissing(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func defaultTSConfig() map[string]any {
	return map[string]any{
		"compilerOptions": map[string]any{
			"target":            "es2020",
			"module":            "commonjs",
			"esModuleInterop":   true,
			"strict":            true,
			"skipLibCheck":      true,
			"resolveJsonModule": true,
		},
	}
}
