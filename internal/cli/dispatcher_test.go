package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hatch/internal/analytics"
	"hatch/internal/arguments"
	"hatch/internal/builtin"
	"hatch/internal/clierrors"
	"hatch/internal/config"
	"hatch/internal/environment"
	"hatch/internal/project"
	"hatch/internal/tasks"
	"hatch/internal/userstate"
)

type fakePrompter struct {
	telemetry      bool
	telemetryCalls int
	extension      bool
	extensionCalls int
	secret         string
	secretCalls    int
}

func (p *fakePrompter) ConfirmTelemetry(ctx context.Context) (bool, error) {
	p.telemetryCalls++
	return p.telemetry, nil
}

func (p *fakePrompter) ConfirmExtension(ctx context.Context) (bool, error) {
	p.extensionCalls++
	return p.extension, nil
}

func (p *fakePrompter) ChooseProjectVariant(ctx context.Context) (project.Variant, error) {
	return project.VariantPlain, nil
}

func (p *fakePrompter) SecretValue(ctx context.Context, key string) (string, error) {
	p.secretCalls++
	return p.secret, nil
}

type harness struct {
	dir    string
	deps   Deps
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	state  *userstate.Manager
}

func newHarness(t *testing.T, dir string, environ ...string) *harness {
	t.Helper()
	h := &harness{
		dir:    dir,
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		state:  userstate.NewManager(t.TempDir()),
	}
	environ = append([]string{project.AllowNonLocalEnv + "=true"}, environ...)
	h.deps = Deps{
		Stdout:  h.stdout,
		Stderr:  h.stderr,
		Environ: environ,
		Getwd:   func() (string, error) { return dir, nil },
		GOOS:    "linux",
		State:   h.state,
		Creator: &project.Creator{
			Out:    h.stdout,
			Lookup: arguments.LookupFromEnviron(environ),
			GOOS:   "linux",
		},
	}
	return h
}

func (h *harness) run(t *testing.T, argv ...string) (Result, error) {
	t.Helper()
	h.stdout.Reset()
	h.stderr.Reset()
	return New(h.deps).Dispatch(context.Background(), argv)
}

func newProject(t *testing.T, edit func(c *config.UserConfig)) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	if edit != nil {
		edit(cfg)
	}
	require.NoError(t, cfg.Save(filepath.Join(dir, config.ConfigFileNames[0])))
	return dir
}

func registerSample(action tasks.ActionFunc) func(set *tasks.Set) error {
	return func(set *tasks.Set) error {
		return set.Register(tasks.New("sample", "Sample task").SetAction(action))
	}
}

func noop(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
	return nil, nil
}

func lastState(res Result) string {
	if len(res.States) == 0 {
		return ""
	}
	return res.States[len(res.States)-1]
}

func TestVersionPrintsOnlyVersion(t *testing.T) {
	h := newHarness(t, newProject(t, nil))
	loads := 0
	h.deps.LoadConfig = func(path string) (*config.ResolvedConfig, *config.UserConfig, error) {
		loads++
		return config.Load(path)
	}

	res, err := h.run(t, "--version", "compile")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, Version+"\n", h.stdout.String())
	assert.Equal(t, StateVersion, lastState(res))
	assert.Zero(t, loads)
}

func TestUnknownGlobalBeforeTaskFails(t *testing.T) {
	h := newHarness(t, newProject(t, nil))

	res, err := h.run(t, "--nope", "compile")
	assert.True(t, clierrors.Is(err, clierrors.UnrecognizedCommandLineArg))
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, StateParseGlobal, lastState(res))
}

func TestUnknownTaskReportsNameAndSuggestion(t *testing.T) {
	h := newHarness(t, newProject(t, nil))

	res, err := h.run(t, "foo")
	require.Error(t, err)
	assert.True(t, clierrors.Is(err, clierrors.UnrecognizedTask))
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, h.stderr.String(), "Error HT201")
	assert.Contains(t, h.stderr.String(), "foo")

	_, err = h.run(t, "complie")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Did you mean 'compile'")
}

func TestUnknownScopedTask(t *testing.T) {
	dir := newProject(t, func(c *config.UserConfig) {
		c.Scopes = map[string]config.ScopeConfig{"deploy": {Description: "Deployments"}}
		c.Tasks = []config.TaskConfig{{Name: "prod", Scope: "deploy", Command: []string{"true"}}}
	})
	h := newHarness(t, dir)

	_, err := h.run(t, "deploy", "staging")
	assert.True(t, clierrors.Is(err, clierrors.UnrecognizedScopedTask))

	_, err = h.run(t, "deploy")
	assert.True(t, clierrors.Is(err, clierrors.MissingTaskForScope))
}

func TestSubtaskCannotRunFromCLI(t *testing.T) {
	h := newHarness(t, newProject(t, nil))

	res, err := h.run(t, builtin.SubtaskGetSourcePaths)
	assert.True(t, clierrors.Is(err, clierrors.RunningSubtaskFromCli))
	assert.Equal(t, StateTaskLookup, lastState(res))
}

func TestHelpFlagRemapsToHelpTask(t *testing.T) {
	h := newHarness(t, newProject(t, nil))

	res, err := h.run(t, "--help", "compile")
	require.NoError(t, err)
	assert.Equal(t, builtin.TaskHelp, res.Task)
	assert.Contains(t, res.States, StateHelpRemap)
	assert.Equal(t, StateNormalExit, lastState(res))
	assert.Contains(t, h.stdout.String(), "Compiles the entire project")
}

func TestNoTaskInsideProjectRunsHelp(t *testing.T) {
	h := newHarness(t, newProject(t, nil))

	res, err := h.run(t)
	require.NoError(t, err)
	assert.Equal(t, builtin.TaskHelp, res.Task)
	assert.Contains(t, h.stdout.String(), Version)
}

func TestUnknownTokenOutsideProject(t *testing.T) {
	h := newHarness(t, t.TempDir())

	res, err := h.run(t, "foo")
	assert.True(t, clierrors.Is(err, clierrors.NotInsideProject))
	assert.Equal(t, StateProjectMembership, lastState(res))
	assert.Contains(t, h.stderr.String(), "please report it here")
	assert.NotContains(t, h.stderr.String(), "For more info go to")
}

func TestImplicitInitIsDeprecated(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, project.CreateWithDefaultsEnv+"=true")

	res, err := h.run(t)
	require.NoError(t, err)
	assert.Equal(t, StateLegacyImplicitInit, lastState(res))
	assert.FileExists(t, filepath.Join(dir, config.ConfigFileNames[0]))
	assert.Contains(t, h.stderr.String(), "deprecated")
}

func TestEmptyTokenIsNotImplicitInit(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, project.CreateWithDefaultsEnv+"=true")

	res, err := h.run(t, "")
	assert.True(t, clierrors.Is(err, clierrors.NotInsideProject))
	assert.Equal(t, StateProjectMembership, lastState(res))
	assert.NoFileExists(t, filepath.Join(dir, config.ConfigFileNames[0]))
}

func TestExplicitInit(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, project.CreateWithDefaultsEnv+"=true")

	res, err := h.run(t, "init")
	require.NoError(t, err)
	assert.Equal(t, StateInit, lastState(res))
	assert.FileExists(t, filepath.Join(dir, config.ConfigFileNames[0]))
	assert.NotContains(t, h.stderr.String(), "deprecated")

	_, err = h.run(t, "init")
	assert.True(t, clierrors.Is(err, clierrors.ProjectAlreadyExists))
}

func TestInitOutsideInteractiveShellFails(t *testing.T) {
	h := newHarness(t, t.TempDir())

	_, err := h.run(t, "init")
	assert.True(t, clierrors.Is(err, clierrors.NotInInteractiveShell))
}

type denyInstall struct{}

func (denyInstall) IsLocalInstallation(root string) (bool, error) { return false, nil }

func TestNonLocalInstallationRejected(t *testing.T) {
	dir := newProject(t, nil)
	h := newHarness(t, dir)
	h.deps.Environ = nil
	h.deps.Install = denyInstall{}

	res, err := h.run(t, "compile")
	assert.True(t, clierrors.Is(err, clierrors.NonLocalInstallation))
	assert.Equal(t, StateInstallation, lastState(res))
}

func TestTypecheckInUntypedProject(t *testing.T) {
	h := newHarness(t, newProject(t, nil))

	_, err := h.run(t, "--typecheck", "compile")
	assert.True(t, clierrors.Is(err, clierrors.TypecheckInNonTypedProject))
}

func TestConfigLoadErrorReturnedUnchanged(t *testing.T) {
	h := newHarness(t, newProject(t, nil))
	boom := assert.AnError
	h.deps.LoadConfig = func(path string) (*config.ResolvedConfig, *config.UserConfig, error) {
		return nil, nil, boom
	}

	res, err := h.run(t, "compile")
	assert.Same(t, boom, err)
	assert.Equal(t, StateConfigLoad, lastState(res))
	assert.Contains(t, h.stderr.String(), "An unexpected error occurred")
}

func TestPluginTaskFailureIsReportedAsPluginError(t *testing.T) {
	h := newHarness(t, newProject(t, nil))
	h.deps.Registrations = []func(*tasks.Set) error{func(set *tasks.Set) error {
		return set.Register(tasks.New("gas", "Reports gas usage").FromPlugin("gas-reporter").SetAction(
			func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
				return nil, errors.New("no price feed")
			}))
	}}

	res, err := h.run(t, "gas")
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, clierrors.KindPlugin, clierrors.Classify(err))
	assert.Contains(t, h.stderr.String(), "Error in plugin gas-reporter: no price feed")
	assert.Contains(t, h.stderr.String(), "For more info run hatch with --show-stack-traces")
}

func TestTestTaskExitCodePropagates(t *testing.T) {
	h := newHarness(t, newProject(t, nil))
	h.deps.Registrations = []func(*tasks.Set) error{func(set *tasks.Set) error {
		return set.Register(tasks.New(builtin.TaskTest, "failing tests").SetAction(
			func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
				rt.SetExitCode(3)
				return nil, nil
			}))
	}}

	code := New(h.deps).Run(context.Background(), []string{"test"})
	assert.Equal(t, 3, code)
}

func TestTaskArgumentsReachAction(t *testing.T) {
	h := newHarness(t, newProject(t, nil))
	var got string
	h.deps.Registrations = []func(*tasks.Set) error{func(set *tasks.Set) error {
		return set.Register(tasks.New("greet", "").
			AddParam("name", "", arguments.String).
			SetAction(func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
				got = args.String("name")
				return nil, nil
			}))
	}}

	_, err := h.run(t, "greet", "--name", "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", got)

	_, err = h.run(t, "greet")
	assert.True(t, clierrors.Is(err, clierrors.MissingTaskArgument))
}

func TestFlamegraphWritten(t *testing.T) {
	dir := newProject(t, nil)
	h := newHarness(t, dir)
	h.deps.Registrations = []func(*tasks.Set) error{registerSample(noop)}

	_, err := h.run(t, "--flamegraph", "sample")
	require.NoError(t, err)
	path := filepath.Join(dir, "cache", environment.FlamegraphFile)
	assert.FileExists(t, path)
	assert.Contains(t, h.stdout.String(), path)
}

func TestExtendersSeeEnvironment(t *testing.T) {
	h := newHarness(t, newProject(t, nil))
	h.deps.Extenders = []environment.Extender{func(env *environment.Environment) { env.Set("greeting", "hi") }}
	var seen any
	h.deps.Registrations = []func(*tasks.Set) error{registerSample(
		func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
			seen, _ = rt.(*environment.Environment).Value("greeting")
			return nil, nil
		})}

	_, err := h.run(t, "sample")
	require.NoError(t, err)
	assert.Equal(t, "hi", seen)
}

func TestTelemetryConsentAskedOnce(t *testing.T) {
	h := newHarness(t, newProject(t, nil), DisableAnalyticsEnv+"=true")
	prompter := &fakePrompter{telemetry: true}
	h.deps.Prompter = prompter
	h.deps.Interactive = true
	h.deps.Registrations = []func(*tasks.Set) error{registerSample(noop)}

	_, err := h.run(t, "sample")
	require.NoError(t, err)
	_, err = h.run(t, "sample")
	require.NoError(t, err)

	assert.Equal(t, 1, prompter.telemetryCalls)
	consent, ok := h.state.TelemetryConsent()
	assert.True(t, ok)
	assert.True(t, consent)
}

func TestTelemetryConsentSkipped(t *testing.T) {
	cases := map[string]struct {
		environ        []string
		argv           []string
		nonInteractive bool
	}{
		"ci":              {environ: []string{"CI=true"}, argv: []string{"sample"}},
		"disabled":        {environ: []string{DisableTelemetryPromptEnv + "=true"}, argv: []string{"sample"}},
		"help":            {argv: []string{"help"}},
		"non-interactive": {argv: []string{"sample"}, nonInteractive: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, newProject(t, nil), tc.environ...)
			prompter := &fakePrompter{}
			h.deps.Prompter = prompter
			h.deps.Interactive = !tc.nonInteractive
			h.deps.Registrations = []func(*tasks.Set) error{registerSample(noop)}

			_, err := h.run(t, tc.argv...)
			require.NoError(t, err)
			assert.Zero(t, prompter.telemetryCalls)
			_, ok := h.state.TelemetryConsent()
			assert.False(t, ok)
		})
	}
}

// steppingClock returns start on the first call and start+step afterwards.
func steppingClock(step time.Duration) func() time.Time {
	start := time.Unix(1700000000, 0)
	calls := 0
	return func() time.Time {
		calls++
		if calls == 1 {
			return start
		}
		return start.Add(step)
	}
}

func analyticsHarness(t *testing.T, handler http.HandlerFunc) *harness {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	h := newHarness(t, newProject(t, nil))
	require.NoError(t, h.state.SetTelemetryConsent(true))
	h.deps.Registrations = []func(*tasks.Set) error{registerSample(noop)}
	h.deps.NewAnalytics = func(enabled bool, clientID string) *analytics.Client {
		require.True(t, enabled)
		return analytics.New(enabled, clientID, analytics.Options{Endpoint: srv.URL, Version: Version})
	}
	return h
}

func TestSlowTaskAwaitsHit(t *testing.T) {
	var hits atomic.Int32
	h := analyticsHarness(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	h.deps.Now = steppingClock(time.Second)

	_, err := h.run(t, "sample")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFastTaskAbortsHit(t *testing.T) {
	cancelled := make(chan struct{}, 1)
	h := analyticsHarness(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		cancelled <- struct{}{}
	})
	h.deps.Now = steppingClock(10 * time.Millisecond)

	_, err := h.run(t, "sample")
	require.NoError(t, err)

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("pending hit was not aborted")
	}
}

func TestPostRunExtensionPromptOnce(t *testing.T) {
	h := newHarness(t, newProject(t, nil), DisableTelemetryPromptEnv+"=true")
	prompter := &fakePrompter{extension: true}
	h.deps.Prompter = prompter
	h.deps.Interactive = true
	h.deps.Registrations = []func(*tasks.Set) error{func(set *tasks.Set) error {
		return set.Register(tasks.New(builtin.TaskTest, "").SetAction(noop))
	}}

	_, err := h.run(t, "test")
	require.NoError(t, err)
	assert.Contains(t, h.stdout.String(), extensionInstallHint)

	_, err = h.run(t, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, prompter.extensionCalls)
	assert.True(t, h.state.ExtensionPrompted())
}

func TestPostRunViaIRWarning(t *testing.T) {
	dir := newProject(t, func(c *config.UserConfig) { c.Compiler.ViaIR = true })
	h := newHarness(t, dir, DisableTelemetryPromptEnv+"=true")
	require.NoError(t, h.state.MarkExtensionPrompted())
	h.deps.Interactive = true
	h.deps.Registrations = []func(*tasks.Set) error{func(set *tasks.Set) error {
		return set.Register(tasks.New(builtin.TaskTest, "").SetAction(
			func(ctx context.Context, args arguments.TaskArguments, rt tasks.Runtime) (any, error) {
				rt.SetExitCode(1)
				return nil, nil
			}))
	}}

	res, err := h.run(t, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, h.stderr.String(), "viaIR")
}

func TestConfigTaskRuns(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires sh")
	}
	dir := newProject(t, func(c *config.UserConfig) {
		c.Tasks = []config.TaskConfig{{Name: "hello", Command: []string{"sh", "-c", "echo hello from config"}}}
	})
	h := newHarness(t, dir)

	res, err := h.run(t, "hello")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, h.stdout.String(), "hello from config")
}
