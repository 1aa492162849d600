// Package cli is the hatch command dispatcher.
//
// A run walks a fixed sequence of states. Each state either lets the run
// proceed, finishes it, or fails it with an error; errors are caught once,
// at the top, where they are classified, reported and turned into exit
// code 1.
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"hatch/internal/analytics"
	"hatch/internal/arguments"
	"hatch/internal/builtin"
	"hatch/internal/clierrors"
	"hatch/internal/config"
	"hatch/internal/environment"
	"hatch/internal/logging"
	"hatch/internal/project"
	"hatch/internal/reporter"
	"hatch/internal/tasks"
	"hatch/internal/ux"
)

// Reserved first tokens handled before any task lookup.
const (
	CommandInit    = "init"
	CommandSecrets = "secrets"
)

// Operational environment toggles.
const (
	DisableTelemetryPromptEnv = "HATCH_DISABLE_TELEMETRY_PROMPT"
	DisableAnalyticsEnv       = "HATCH_DISABLE_ANALYTICS"
)

const extensionInstallHint = "code --install-extension hatch.hatch-vscode"

type outcome int

const (
	proceed outcome = iota
	done
)

// State names, in the order a run visits them.
const (
	StateParseGlobal         = "parse-global"
	StateVersion             = "version"
	StateInit                = "init"
	StateLegacyImplicitInit  = "legacy-implicit-init"
	StateProjectMembership   = "project-membership"
	StateSecrets             = "secrets"
	StateInstallation        = "installation"
	StateLanguageMode        = "language-mode"
	StateConfigLoad          = "config-load"
	StateScopeTaskResolution = "scope-task-resolution"
	StateTelemetryConsent    = "telemetry-consent"
	StateAnalyticsArmed      = "analytics-armed"
	StateHelpRemap           = "help-remap"
	StateTaskLookup          = "task-lookup"
	StateExecute             = "execute"
	StatePostRunAdvisories   = "post-run-advisories"
	StateNormalExit          = "normal-exit"
)

type state struct {
	name string
	run  func(inv *invocation, ctx context.Context) (outcome, error)
}

var states = []state{
	{StateParseGlobal, (*invocation).parseGlobal},
	{StateVersion, (*invocation).versionShortCircuit},
	{StateInit, (*invocation).initShortCircuit},
	{StateLegacyImplicitInit, (*invocation).legacyImplicitInit},
	{StateProjectMembership, (*invocation).projectMembershipGuard},
	{StateSecrets, (*invocation).secretsShortCircuit},
	{StateInstallation, (*invocation).installationGuard},
	{StateLanguageMode, (*invocation).languageModeDetection},
	{StateConfigLoad, (*invocation).configLoad},
	{StateScopeTaskResolution, (*invocation).scopeTaskResolution},
	{StateTelemetryConsent, (*invocation).telemetryConsentGate},
	{StateAnalyticsArmed, (*invocation).analyticsArmed},
	{StateHelpRemap, (*invocation).helpRemap},
	{StateTaskLookup, (*invocation).taskLookupAndArgParse},
	{StateExecute, (*invocation).environmentExecute},
	{StatePostRunAdvisories, (*invocation).postRunAdvisories},
	{StateNormalExit, (*invocation).normalExit},
}

// Dispatcher runs hatch command lines.
type Dispatcher struct {
	deps   Deps
	lookup arguments.LookupFunc
	styles ux.Styles
}

// New creates a dispatcher. Unset collaborators fall back to the real
// implementations where one exists.
func New(deps Deps) *Dispatcher {
	deps.fillDefaults()
	lookup := arguments.LookupFromEnviron(deps.Environ)
	styles := ux.PlainStyles(deps.Stderr)
	if deps.Interactive {
		styles = ux.NewStyles(deps.Stderr, lookup)
	}
	return &Dispatcher{deps: deps, lookup: lookup, styles: styles}
}

// Result describes a finished dispatch.
type Result struct {
	ExitCode int

	// States lists the states visited, the last one being where the run
	// finished or failed.
	States []string

	// Scope and Task name what was resolved to run, if the run got that far.
	Scope string
	Task  string
}

// invocation is the state of a single run.
type invocation struct {
	d     *Dispatcher
	trace []string

	globals  arguments.GlobalArguments
	token    string
	hasToken bool
	unparsed []string

	cwd        string
	configPath string

	resolved   *config.ResolvedConfig
	userConfig *config.UserConfig
	registry   *tasks.Set

	scope     string
	task      string
	remaining []string
	taskArgs  arguments.TaskArguments
	remapped  bool

	consent   bool
	hasAnswer bool
	hit       *analytics.Hit

	env      *environment.Environment
	exitCode int
}

// Run dispatches argv and returns the process exit code. Any error is
// reported to stderr (and to the error-reporting channel when enabled).
func (d *Dispatcher) Run(ctx context.Context, argv []string) int {
	res, _ := d.Dispatch(ctx, argv)
	return res.ExitCode
}

// Dispatch runs the state machine. The returned error has already been
// reported; it is returned for callers that want to inspect it.
func (d *Dispatcher) Dispatch(ctx context.Context, argv []string) (Result, error) {
	inv := &invocation{d: d}
	err := inv.dispatch(ctx, argv)

	res := Result{ExitCode: inv.exitCode, States: inv.trace, Scope: inv.scope, Task: inv.task}
	if err != nil {
		d.handleError(inv, err)
		res.ExitCode = 1
	}
	return res, err
}

func (inv *invocation) dispatch(ctx context.Context, argv []string) error {
	inv.unparsed = argv
	for _, s := range states {
		inv.trace = append(inv.trace, s.name)
		out, err := s.run(inv, ctx)
		if err != nil {
			logging.CLIDebug("state %s failed: %v", s.name, err)
			return err
		}
		if out == done {
			logging.CLIDebug("run finished in state %s", s.name)
			return nil
		}
	}
	return nil
}

func (inv *invocation) parseGlobal(ctx context.Context) (outcome, error) {
	envArgs, err := arguments.EnvArguments(arguments.GlobalParams, inv.d.lookup)
	if err != nil {
		return done, err
	}
	parsed, err := arguments.ParseGlobalArguments(arguments.GlobalParams, envArgs, inv.unparsed)
	if err != nil {
		return done, err
	}
	inv.globals = parsed.Globals
	inv.token = parsed.ScopeOrTaskName
	inv.hasToken = parsed.HasToken
	inv.unparsed = parsed.UnparsedArgs

	if inv.d.deps.InitLogging != nil {
		if err := inv.d.deps.InitLogging(inv.globals.Verbose); err != nil {
			return done, err
		}
	}
	logging.CLIDebug("hatch %s starting (token=%q)", Version, inv.token)

	cwd, err := inv.d.deps.Getwd()
	if err != nil {
		return done, fmt.Errorf("failed to get working directory: %w", err)
	}
	inv.cwd = cwd
	return proceed, nil
}

func (inv *invocation) versionShortCircuit(ctx context.Context) (outcome, error) {
	if !inv.globals.Version {
		return proceed, nil
	}
	fmt.Fprintln(inv.d.deps.Stdout, Version)
	return done, nil
}

func (inv *invocation) initShortCircuit(ctx context.Context) (outcome, error) {
	if inv.token != CommandInit {
		return proceed, nil
	}
	return done, inv.createProject(ctx)
}

// legacyImplicitInit keeps the old behaviour of scaffolding a project when
// hatch runs with no task outside any project. A given token, even an
// unknown one, never triggers it.
func (inv *invocation) legacyImplicitInit(ctx context.Context) (outcome, error) {
	if inv.hasToken || inv.globals.Config != "" || project.IsInsideProject(inv.cwd) {
		return proceed, nil
	}
	if err := inv.createProject(ctx); err != nil {
		return done, err
	}
	fmt.Fprintln(inv.d.deps.Stderr, inv.d.styles.Warning.Render(
		"Creating a project by running hatch without arguments is deprecated. Please use 'hatch init' instead."))
	return done, nil
}

func (inv *invocation) createProject(ctx context.Context) error {
	if inv.d.deps.Creator == nil {
		return clierrors.New(clierrors.AssertionFailed, map[string]any{"message": "no project creator configured"})
	}
	_, err := inv.d.deps.Creator.Create(ctx, inv.cwd, inv.globals.Emoji)
	return err
}

func (inv *invocation) projectMembershipGuard(ctx context.Context) (outcome, error) {
	if inv.globals.Config != "" {
		path, err := filepath.Abs(inv.globals.Config)
		if err != nil {
			return done, fmt.Errorf("failed to resolve config path: %w", err)
		}
		inv.configPath = path
		return proceed, nil
	}
	path, ok := project.FindConfig(inv.cwd)
	if !ok {
		return done, clierrors.New(clierrors.NotInsideProject, nil)
	}
	inv.configPath = path
	return proceed, nil
}

func (inv *invocation) secretsShortCircuit(ctx context.Context) (outcome, error) {
	if inv.token != CommandSecrets || len(inv.unparsed) <= 1 {
		return proceed, nil
	}
	return done, inv.runSecrets(ctx, inv.unparsed)
}

func (inv *invocation) installationGuard(ctx context.Context) (outcome, error) {
	if inv.envTrue(project.AllowNonLocalEnv) {
		return proceed, nil
	}
	root := filepath.Dir(inv.configPath)
	local, err := inv.d.deps.Install.IsLocalInstallation(root)
	if err != nil {
		return done, err
	}
	if !local {
		return done, clierrors.New(clierrors.NonLocalInstallation, map[string]any{"root": root})
	}
	return proceed, nil
}

func (inv *invocation) languageModeDetection(ctx context.Context) (outcome, error) {
	if project.IsTypedProject(inv.configPath, inv.globals.TSConfig) {
		if _, err := inv.d.deps.Typed.Load(inv.configPath, inv.globals.TSConfig, inv.globals.Typecheck); err != nil {
			return done, err
		}
		return proceed, nil
	}
	if inv.globals.Typecheck {
		return done, clierrors.New(clierrors.TypecheckInNonTypedProject, nil)
	}
	return proceed, nil
}

// configLoad errors are returned unchanged.
func (inv *invocation) configLoad(ctx context.Context) (outcome, error) {
	resolved, userConfig, err := inv.d.deps.LoadConfig(inv.configPath)
	if err != nil {
		return done, err
	}
	inv.resolved = resolved
	inv.userConfig = userConfig

	for category, enabled := range resolved.Logging.Categories {
		logging.SetCategoryEnabled(logging.Category(category), enabled)
	}

	set := tasks.NewSet()
	opts := builtin.Options{Version: Version, Styled: inv.d.deps.Interactive}
	if inv.d.deps.State != nil {
		opts.GlobalCacheDir = inv.d.deps.State.CacheDir()
	}
	builtin.Register(set, opts)
	if err := builtin.RegisterConfigTasks(set, resolved); err != nil {
		return done, err
	}
	for _, register := range inv.d.deps.Registrations {
		if err := register(set); err != nil {
			return done, err
		}
	}
	inv.registry = set
	return proceed, nil
}

func (inv *invocation) scopeTaskResolution(ctx context.Context) (outcome, error) {
	st, err := arguments.ParseScopeAndTaskNames(inv.unparsed, func(name string) bool {
		return tasks.IsScope(inv.registry, name)
	})
	if err != nil {
		return done, err
	}
	inv.scope = st.ScopeName
	inv.task = st.TaskName
	inv.remaining = st.RemainingArgs
	return proceed, nil
}

func (inv *invocation) isHelpRequest() bool {
	return inv.globals.Help || (inv.scope == "" && inv.task == builtin.TaskHelp)
}

// telemetryConsentGate asks for consent once. A failed or skipped prompt
// never blocks the run.
func (inv *invocation) telemetryConsentGate(ctx context.Context) (outcome, error) {
	store := inv.d.deps.State
	if store == nil {
		return proceed, nil
	}
	inv.consent, inv.hasAnswer = store.TelemetryConsent()
	if inv.hasAnswer || inv.isHelpRequest() || inv.unattended() ||
		!inv.d.deps.Interactive || inv.envTrue(DisableTelemetryPromptEnv) || inv.d.deps.Prompter == nil {
		return proceed, nil
	}

	consent, err := inv.d.deps.Prompter.ConfirmTelemetry(ctx)
	if err != nil {
		logging.CLIWarn("telemetry prompt failed: %v", err)
		return proceed, nil
	}
	if err := store.SetTelemetryConsent(consent); err != nil {
		logging.CLIWarn("failed to save telemetry consent: %v", err)
	}
	inv.consent, inv.hasAnswer = consent, true
	return proceed, nil
}

func (inv *invocation) analyticsEnabled() bool {
	return inv.consent && !ux.IsCI(inv.d.lookup) && !inv.envTrue(DisableAnalyticsEnv)
}

func (inv *invocation) analyticsArmed(ctx context.Context) (outcome, error) {
	enabled := inv.analyticsEnabled()
	clientID := ""
	if enabled && inv.d.deps.State != nil {
		id, err := inv.d.deps.State.ClientID()
		if err != nil {
			logging.AnalyticsDebug("no analytics client id: %v", err)
		}
		clientID = id
	}
	client := inv.d.deps.NewAnalytics(enabled, clientID)
	inv.hit = client.SendTaskHit(inv.scope, inv.task, builtin.IsBuiltin(inv.scope, inv.task))
	return proceed, nil
}

func (inv *invocation) helpRemap(ctx context.Context) (outcome, error) {
	if !inv.globals.Help || (inv.scope == "" && inv.task == builtin.TaskHelp) {
		return proceed, nil
	}
	inv.taskArgs = arguments.TaskArguments{}
	if inv.scope != "" {
		inv.taskArgs["scopeOrTask"] = inv.scope
		inv.taskArgs["task"] = inv.task
	} else {
		inv.taskArgs["scopeOrTask"] = inv.task
	}
	inv.scope = ""
	inv.task = builtin.TaskHelp
	inv.remapped = true
	return proceed, nil
}

func (inv *invocation) taskLookupAndArgParse(ctx context.Context) (outcome, error) {
	if inv.remapped {
		return proceed, nil
	}
	def, ok := inv.registry.TaskDefinition(inv.scope, inv.task)
	if !ok {
		inv.abortHit()
		if inv.scope != "" {
			return done, clierrors.New(clierrors.UnrecognizedScopedTask, map[string]any{"scope": inv.scope, "task": inv.task})
		}
		return done, clierrors.New(clierrors.UnrecognizedTask, map[string]any{
			"task":       inv.task,
			"suggestion": tasks.SuggestionSuffix(inv.registry, inv.task),
		})
	}
	if def.IsSubtask {
		inv.abortHit()
		return done, clierrors.New(clierrors.RunningSubtaskFromCli, map[string]any{"name": def.TaskName()})
	}

	args, err := arguments.ParseTaskArguments(def, inv.remaining)
	if err != nil {
		inv.abortHit()
		return done, err
	}
	inv.taskArgs = args
	return proceed, nil
}

func (inv *invocation) abortHit() {
	if inv.hit != nil {
		inv.hit.Abort()
	}
}

func (inv *invocation) environmentExecute(ctx context.Context) (outcome, error) {
	deps := inv.d.deps
	inv.env = environment.New(inv.resolved, inv.globals, inv.registry, deps.Extenders, inv.userConfig,
		environment.WithOutput(deps.Stdout, deps.Stderr))

	start := deps.Now()
	_, runErr := inv.env.Run(ctx, inv.scope, inv.task, inv.taskArgs)
	elapsed := deps.Now().Sub(start)

	if analytics.ShouldAwait(elapsed, inv.scope, inv.task) {
		logging.AnalyticsDebug("task took %s, waiting for task hit", elapsed)
		inv.hit.Wait()
	} else {
		inv.hit.Abort()
	}

	profileErr := inv.writeProfile()
	if runErr != nil {
		return done, runErr
	}
	if profileErr != nil {
		return done, profileErr
	}
	return proceed, nil
}

func (inv *invocation) writeProfile() error {
	if !inv.globals.Flamegraph {
		return nil
	}
	profile := inv.env.EntryTaskProfile()
	if profile == nil {
		return clierrors.New(clierrors.AssertionFailed, map[string]any{"message": "no profile was captured for the entry task"})
	}
	path, err := environment.WriteFlamegraph(profile, inv.resolved.Paths.Cache)
	if err != nil {
		return err
	}
	fmt.Fprintf(inv.d.deps.Stdout, "Created flamegraph file %s\n", path)
	return nil
}

func (inv *invocation) postRunAdvisories(ctx context.Context) (outcome, error) {
	if inv.scope != "" || inv.task != builtin.TaskTest || !inv.d.deps.Interactive || inv.unattended() {
		return proceed, nil
	}

	store := inv.d.deps.State
	if store != nil && inv.d.deps.Prompter != nil && !store.ExtensionPrompted() {
		install, err := inv.d.deps.Prompter.ConfirmExtension(ctx)
		if err != nil {
			logging.CLIWarn("extension prompt failed: %v", err)
		} else {
			if err := store.MarkExtensionPrompted(); err != nil {
				logging.CLIWarn("failed to record extension prompt: %v", err)
			}
			if install {
				fmt.Fprintf(inv.d.deps.Stdout, "Run `%s` to install it.\n", extensionInstallHint)
			}
		}
	}

	if inv.env.ExitCode() != 0 && inv.resolved.Compiler.ViaIR {
		fmt.Fprintln(inv.d.deps.Stderr, inv.d.styles.Warning.Render(
			"Your compiler config enables viaIR. Some test tools do not support it yet; "+
				"if tests fail unexpectedly, try running them with via_ir disabled."))
	}
	return proceed, nil
}

func (inv *invocation) normalExit(ctx context.Context) (outcome, error) {
	if inv.env != nil {
		inv.exitCode = inv.env.ExitCode()
	}
	logging.CLIDebug("finished running task %q with exit code %d", inv.task, inv.exitCode)
	return done, nil
}

func (inv *invocation) unattended() bool {
	return ux.IsCI(inv.d.lookup)
}

func (inv *invocation) envTrue(name string) bool {
	v, ok := inv.d.lookup(name)
	return ok && strings.EqualFold(v, "true")
}

// reporterFor builds the error-reporting channel from the recorded consent.
func (d *Dispatcher) reporterFor(inv *invocation) *reporter.Reporter {
	consent := inv.consent
	if !inv.hasAnswer && d.deps.State != nil {
		consent, _ = d.deps.State.TelemetryConsent()
	}
	enabled := consent && !ux.IsCI(d.lookup) && !inv.envTrue(DisableAnalyticsEnv)
	return d.deps.NewReporter(enabled)
}
