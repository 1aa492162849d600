package reporter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hatch/internal/clierrors"
)

type sink struct {
	mu      sync.Mutex
	reports []report
}

func (s *sink) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var rep report
	if err := json.NewDecoder(req.Body).Decode(&rep); err == nil {
		s.mu.Lock()
		s.reports = append(s.reports, rep)
		s.mu.Unlock()
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *sink) all() []report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]report(nil), s.reports...)
}

func newTestReporter(t *testing.T, url string) *Reporter {
	t.Helper()
	transport := &http.Transport{}
	t.Cleanup(transport.CloseIdleConnections)
	return New(true, Options{Endpoint: url, Version: "1.2.3", HTTPClient: &http.Client{Transport: transport}})
}

func TestShouldReport(t *testing.T) {
	assert.False(t, ShouldReport(nil))
	assert.False(t, ShouldReport(clierrors.New(clierrors.UnrecognizedTask, map[string]any{"task": "x"})))
	assert.True(t, ShouldReport(clierrors.New(clierrors.ActionNotSet, map[string]any{"task": "x"})))
	assert.True(t, ShouldReport(errors.New("boom")))
	assert.True(t, ShouldReport(clierrors.NewPluginError("hatch-foo", "bad", nil)))
}

func TestReportAndFlush(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := &sink{}
	srv := httptest.NewServer(s)
	defer srv.Close()

	r := newTestReporter(t, srv.URL)
	r.ReportError(errors.New("boom"))
	r.ReportError(clierrors.NewPluginError("hatch-foo", "plugin failed", nil))
	r.ReportError(clierrors.New(clierrors.UnrecognizedTask, map[string]any{"task": "x"}))

	require.True(t, r.Close(FlushTimeout))
	require.True(t, r.Close(FlushTimeout))

	reports := s.all()
	require.Len(t, reports, 2)
	assert.Equal(t, "unexpected", reports[0].Kind)
	assert.Equal(t, "plugin", reports[1].Kind)
	assert.Equal(t, "hatch-foo", reports[1].Plugin)
}

func TestCloseIsBounded(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-release:
		case <-req.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	r := newTestReporter(t, srv.URL)
	r.ReportError(errors.New("slow"))

	start := time.Now()
	assert.False(t, r.Close(50*time.Millisecond))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDisabledReporter(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := New(false, Options{})
	assert.False(t, r.Enabled())
	r.ReportError(errors.New("ignored"))
	assert.True(t, r.Close(FlushTimeout))
}
