// Package reporter sends error reports for failures that look like bugs.
//
// Reporting is best effort: reports are queued to a background sender, Close
// flushes for at most a fixed deadline, and delivery failures are only logged.
package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"
	"time"

	"hatch/internal/clierrors"
	"hatch/internal/logging"
)

const (
	DefaultEndpoint = "https://errors.hatch.dev/v1/reports"

	// FlushTimeout bounds how long the process waits for pending reports
	// before exiting.
	FlushTimeout = time.Second

	queueSize = 8
)

// Options configures a Reporter.
type Options struct {
	Endpoint   string
	Version    string
	HTTPClient *http.Client
}

// Reporter queues and sends error reports.
type Reporter struct {
	enabled  bool
	endpoint string
	version  string
	http     *http.Client

	queue  chan report
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

type report struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Plugin  string `json:"plugin,omitempty"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Version string `json:"version"`
	OS      string `json:"os"`
}

// New creates a reporter. A disabled reporter drops every report and starts
// no goroutine.
func New(enabled bool, opts Options) *Reporter {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	r := &Reporter{
		enabled:  enabled,
		endpoint: opts.Endpoint,
		version:  opts.Version,
		http:     opts.HTTPClient,
	}
	if !enabled {
		return r
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.queue = make(chan report, queueSize)
	r.wg.Add(1)
	go r.loop()
	return r
}

// Enabled reports whether reports are sent.
func (r *Reporter) Enabled() bool {
	return r.enabled
}

// ShouldReport decides whether err is worth a report. Known CLI errors are
// user mistakes unless their descriptor says otherwise.
func ShouldReport(err error) bool {
	if err == nil {
		return false
	}
	var cliErr *clierrors.Error
	if errors.As(err, &cliErr) {
		return cliErr.Descriptor.ShouldBeReported
	}
	return true
}

// ReportError queues err for sending. It never blocks; when the queue is
// full the report is dropped.
func (r *Reporter) ReportError(err error) {
	if !r.enabled || !ShouldReport(err) {
		return
	}

	rep := report{
		Kind:    clierrors.Classify(err).String(),
		Message: err.Error(),
		Detail:  fmt.Sprintf("%+v", err),
		Version: r.version,
		OS:      runtime.GOOS,
	}
	var cliErr *clierrors.Error
	if errors.As(err, &cliErr) {
		rep.Code = cliErr.Descriptor.Code()
	}
	var pluginErr *clierrors.PluginError
	if errors.As(err, &pluginErr) {
		rep.Plugin = pluginErr.Plugin
	}

	select {
	case r.queue <- rep:
	default:
		logging.ReporterWarn("error report queue full, dropping report")
	}
}

// Close stops accepting reports and waits up to timeout for the queued ones
// to be sent. It reports whether everything was flushed.
func (r *Reporter) Close(timeout time.Duration) bool {
	if !r.enabled {
		return true
	}
	r.closeOnce.Do(func() { close(r.queue) })

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return true
	case <-time.After(timeout):
		logging.ReporterWarn("error reports not flushed within %s", timeout)
		r.cancel()
		<-done
		return false
	}
}

func (r *Reporter) loop() {
	defer r.wg.Done()
	for rep := range r.queue {
		if err := r.send(rep); err != nil {
			logging.ReporterDebug("error report not sent: %v", err)
		}
	}
}

func (r *Reporter) send(rep report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(r.ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("report request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("report endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
