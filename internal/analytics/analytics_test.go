package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu   sync.Mutex
	hits []hitPayload
}

func (r *recorder) handler(delay <-chan struct{}) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if delay != nil {
			select {
			case <-delay:
			case <-req.Context().Done():
				return
			}
		}
		var p hitPayload
		if err := json.NewDecoder(req.Body).Decode(&p); err == nil {
			r.mu.Lock()
			r.hits = append(r.hits, p)
			r.mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (r *recorder) all() []hitPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]hitPayload(nil), r.hits...)
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	transport := &http.Transport{}
	t.Cleanup(transport.CloseIdleConnections)
	return New(true, "client-1", Options{
		Endpoint:   srv.URL,
		Version:    "1.2.3",
		HTTPClient: &http.Client{Transport: transport},
	})
}

func TestSendTaskHitBuiltin(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(nil))
	defer srv.Close()

	c := newTestClient(t, srv)
	h := c.SendTaskHit("", "test", true)
	h.Wait()
	require.NoError(t, h.Err())

	hits := rec.all()
	require.Len(t, hits, 1)
	assert.Equal(t, "client-1", hits[0].ClientID)
	assert.Equal(t, "builtin", hits[0].TaskKind)
	assert.Equal(t, "test", hits[0].Task)
	assert.Equal(t, "1.2.3", hits[0].Version)
}

func TestSendTaskHitCustomOmitsName(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(nil))
	defer srv.Close()

	h := newTestClient(t, srv).SendTaskHit("deploy", "prod", false)
	h.Wait()

	hits := rec.all()
	require.Len(t, hits, 1)
	assert.Equal(t, "custom", hits[0].TaskKind)
	assert.Empty(t, hits[0].Task)
}

func TestAbortSettlesPendingHit(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(release))
	defer srv.Close()
	defer close(release)

	h := newTestClient(t, srv).SendTaskHit("", "test", true)
	h.Abort()
	h.Abort()

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("aborted hit did not settle")
	}
	assert.Error(t, h.Err())
	assert.Empty(t, rec.all())
}

func TestDisabledClientIsSettled(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New(false, "client-1", Options{})
	assert.False(t, c.Enabled())
	h := c.SendTaskHit("", "test", true)
	h.Wait()
	h.Abort()
	assert.NoError(t, h.Err())

	assert.False(t, New(true, "", Options{}).Enabled())
}

func TestShouldAwait(t *testing.T) {
	cases := []struct {
		elapsed time.Duration
		scope   string
		task    string
		want    bool
	}{
		{100 * time.Millisecond, "", "test", false},
		{299 * time.Millisecond, "", "test", false},
		{300 * time.Millisecond, "", "test", true},
		{2 * time.Second, "", "test", true},
		{2 * time.Second, "", "compile", false},
		{2 * time.Second, "solc", "compile", true},
		{10 * time.Millisecond, "solc", "compile", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ShouldAwait(tc.elapsed, tc.scope, tc.task), "%s %q %s", tc.elapsed, tc.scope, tc.task)
	}
}
