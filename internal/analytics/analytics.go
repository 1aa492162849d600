// Package analytics sends anonymous "task hit" events.
//
// A hit is sent in the background as soon as the task to run is known. The
// dispatcher later either waits for it (slow tasks) or aborts it (fast ones),
// so a quick command never pays for the network round trip.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"
	"time"

	"hatch/internal/logging"
)

const (
	// DefaultEndpoint receives task hits.
	DefaultEndpoint = "https://telemetry.hatch.dev/v1/hits"

	// AwaitThreshold is the task duration from which a pending hit is
	// awaited instead of aborted.
	AwaitThreshold = 300 * time.Millisecond

	// PrimaryBuildTask is never worth waiting on: it runs as a prelude to
	// almost every other task.
	PrimaryBuildTask = "compile"

	defaultTimeout = 5 * time.Second
)

// Options configures a Client.
type Options struct {
	Endpoint   string
	Version    string
	HTTPClient *http.Client
}

// Client sends task hits. The zero value is not usable; use New.
type Client struct {
	enabled  bool
	clientID string
	endpoint string
	version  string
	http     *http.Client
}

// New creates a client. A disabled client never touches the network.
func New(enabled bool, clientID string, opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		enabled:  enabled && clientID != "",
		clientID: clientID,
		endpoint: opts.Endpoint,
		version:  opts.Version,
		http:     opts.HTTPClient,
	}
}

// Enabled reports whether hits are actually sent.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Hit is an in-flight task hit. Abort and Wait may be called in any order and
// more than once.
type Hit struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func settledHit() *Hit {
	h := &Hit{cancel: func() {}, done: make(chan struct{})}
	close(h.done)
	return h
}

// Abort cancels the send. It never fails, even when the send already
// finished or is racing to finish.
func (h *Hit) Abort() {
	h.once.Do(h.cancel)
}

// Wait blocks until the send settles.
func (h *Hit) Wait() {
	<-h.done
}

// Err returns the send error once settled; nil while in flight.
func (h *Hit) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

type hitPayload struct {
	ClientID string `json:"client_id"`
	TaskKind string `json:"task_kind"`
	Task     string `json:"task,omitempty"`
	Version  string `json:"version"`
	OS       string `json:"os"`
}

// SendTaskHit starts sending a hit for the given task without waiting for it.
// Names of custom tasks are not sent, only the fact that one ran.
func (c *Client) SendTaskHit(scope, task string, builtin bool) *Hit {
	if !c.enabled {
		return settledHit()
	}

	payload := hitPayload{
		ClientID: c.clientID,
		TaskKind: "custom",
		Version:  c.version,
		OS:       runtime.GOOS,
	}
	if builtin {
		payload.TaskKind = "builtin"
		payload.Task = task
		if scope != "" {
			payload.Task = scope + " " + task
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hit{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer cancel()
		h.err = c.post(ctx, payload)
		if h.err != nil {
			logging.AnalyticsDebug("task hit not sent: %v", h.err)
		}
	}()
	return h
}

func (c *Client) post(ctx context.Context, payload hitPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal hit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("analytics request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("analytics endpoint returned status %d", resp.StatusCode)
	}
	logging.AnalyticsDebug("task hit sent (%s)", payload.TaskKind)
	return nil
}

// ShouldAwait decides whether a pending hit is awaited after a task ran for
// elapsed. Fast tasks and the unscoped primary build task abort it instead.
func ShouldAwait(elapsed time.Duration, scope, task string) bool {
	if scope == "" && task == PrimaryBuildTask {
		return false
	}
	return elapsed >= AwaitThreshold
}
