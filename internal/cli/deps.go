package cli

import (
	"context"
	"io"
	"os"
	"runtime"
	"time"

	"hatch/internal/analytics"
	"hatch/internal/arguments"
	"hatch/internal/config"
	"hatch/internal/environment"
	"hatch/internal/logging"
	"hatch/internal/project"
	"hatch/internal/reporter"
	"hatch/internal/tasks"
	"hatch/internal/userstate"
	"hatch/internal/ux"
)

// Prompter asks the interactive questions the dispatcher needs.
type Prompter interface {
	ConfirmTelemetry(ctx context.Context) (bool, error)
	ConfirmExtension(ctx context.Context) (bool, error)
	ChooseProjectVariant(ctx context.Context) (project.Variant, error)
	SecretValue(ctx context.Context, key string) (string, error)
}

// ProjectCreator scaffolds a project for init.
type ProjectCreator interface {
	Create(ctx context.Context, dir string, emoji bool) (*project.CreateResult, error)
}

// InstallChecker verifies hatch is installed into the project.
type InstallChecker interface {
	IsLocalInstallation(root string) (bool, error)
}

// TypedSupport loads the TypeScript support layer.
type TypedSupport interface {
	Load(configPath, tsconfig string, typecheck bool) (map[string]string, error)
}

// ConfigLoader loads a project config.
type ConfigLoader func(path string) (*config.ResolvedConfig, *config.UserConfig, error)

// Deps are the collaborators of a Dispatcher.
type Deps struct {
	Stdout io.Writer
	Stderr io.Writer

	Environ     []string
	Getwd       func() (string, error)
	GOOS        string
	Interactive bool

	LoadConfig ConfigLoader
	Creator    ProjectCreator
	Install    InstallChecker
	Typed      TypedSupport
	Prompter   Prompter
	State      *userstate.Manager

	NewAnalytics func(enabled bool, clientID string) *analytics.Client
	NewReporter  func(enabled bool) *reporter.Reporter

	// Registrations add plugin tasks after the built-in and config tasks.
	Registrations []func(set *tasks.Set) error
	Extenders     []environment.Extender

	// InitLogging is called once the verbose flag is known.
	InitLogging func(verbose bool) error

	Now func() time.Time
}

// DefaultDeps wires the real implementations for the running process.
func DefaultDeps() (Deps, error) {
	environ := os.Environ()
	lookup := arguments.LookupFromEnviron(environ)

	stateDir, err := userstate.DefaultDir(lookup)
	if err != nil {
		return Deps{}, err
	}
	interactive := ux.IsInteractive()
	prompter := ux.NewTermPrompter(os.Stdin, os.Stdout, ux.NewStyles(os.Stdout, lookup))

	return Deps{
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Environ:     environ,
		Getwd:       os.Getwd,
		GOOS:        runtime.GOOS,
		Interactive: interactive,
		LoadConfig:  config.Load,
		Creator: &project.Creator{
			Out:         os.Stdout,
			Lookup:      lookup,
			Interactive: interactive,
			GOOS:        runtime.GOOS,
			Choose:      prompter.ChooseProjectVariant,
		},
		Install:  project.InstallChecker{},
		Typed:    project.TypedSupport{},
		Prompter: prompter,
		State:    userstate.NewManager(stateDir),
		NewAnalytics: func(enabled bool, clientID string) *analytics.Client {
			return analytics.New(enabled, clientID, analytics.Options{Version: Version})
		},
		NewReporter: func(enabled bool) *reporter.Reporter {
			return reporter.New(enabled, reporter.Options{Version: Version})
		},
		InitLogging: func(verbose bool) error {
			_, err := logging.Initialize(verbose)
			return err
		},
		Now: time.Now,
	}, nil
}

func (d *Deps) fillDefaults() {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}
	if d.Getwd == nil {
		d.Getwd = os.Getwd
	}
	if d.GOOS == "" {
		d.GOOS = runtime.GOOS
	}
	if d.LoadConfig == nil {
		d.LoadConfig = config.Load
	}
	if d.Install == nil {
		d.Install = project.InstallChecker{}
	}
	if d.Typed == nil {
		d.Typed = project.TypedSupport{}
	}
	if d.NewAnalytics == nil {
		d.NewAnalytics = func(enabled bool, clientID string) *analytics.Client {
			return analytics.New(enabled, clientID, analytics.Options{Version: Version})
		}
	}
	if d.NewReporter == nil {
		d.NewReporter = func(enabled bool) *reporter.Reporter {
			return reporter.New(enabled, reporter.Options{Version: Version})
		}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}
