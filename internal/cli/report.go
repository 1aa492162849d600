package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"hatch/internal/clierrors"
	"hatch/internal/logging"
	"hatch/internal/reporter"
	"hatch/internal/ux"
)

const (
	errorDocsURL = "https://hatch.dev/"
	reportBugURL = "https://github.com/hatch-dev/hatch/issues/new"
)

// handleError prints err the way its kind calls for and forwards it to the
// error-reporting channel.
func (d *Dispatcher) handleError(inv *invocation, err error) {
	w := d.deps.Stderr
	kind := clierrors.Classify(err)
	logging.CLI("run failed (%s): %v", kind, err)

	showChain := inv.globals.ShowStackTraces || ux.IsCI(d.lookup) || kind == clierrors.KindUnexpected

	var cliErr *clierrors.Error
	var pluginErr *clierrors.PluginError
	switch kind {
	case clierrors.KindCLI:
		errors.As(err, &cliErr)
		fmt.Fprintln(w, d.styles.Error.Render(fmt.Sprintf("Error %s: %s", cliErr.Descriptor.Code(), cliErr.Message())))
	case clierrors.KindPlugin:
		errors.As(err, &pluginErr)
		fmt.Fprintln(w, d.styles.Error.Render(fmt.Sprintf("Error in plugin %s: %s", pluginErr.Plugin, pluginErr.Message)))
	default:
		fmt.Fprintln(w, d.styles.Error.Render("An unexpected error occurred:"))
		fmt.Fprintln(w, err.Error())
	}
	fmt.Fprintln(w)

	switch {
	case showChain:
		printCauseChain(w, err)
	case kind == clierrors.KindCLI && cliErr.Descriptor != clierrors.NotInsideProject:
		fmt.Fprintln(w, d.styles.Muted.Render(fmt.Sprintf(
			"For more info go to %s%s or run hatch with --show-stack-traces", errorDocsURL, cliErr.Descriptor.Code())))
	case kind == clierrors.KindPlugin:
		fmt.Fprintln(w, d.styles.Muted.Render("For more info run hatch with --show-stack-traces"))
	}

	if kind == clierrors.KindUnexpected || clierrors.Is(err, clierrors.NotInsideProject) {
		fmt.Fprintf(w, "\nIf you think this is a bug in hatch, please report it here: %s\n", reportBugURL)
	}

	rep := d.reporterFor(inv)
	rep.ReportError(err)
	if !rep.Close(reporter.FlushTimeout) {
		logging.ReporterDebug("some error reports were not sent")
	}
}

// printCauseChain prints err and every error it wraps, outermost first.
func printCauseChain(w io.Writer, err error) {
	depth := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		prefix := strings.Repeat("  ", depth)
		if depth > 0 {
			prefix += "caused by: "
		}
		fmt.Fprintf(w, "%s%s (%T)\n", prefix, e.Error(), e)
		depth++
	}
}
