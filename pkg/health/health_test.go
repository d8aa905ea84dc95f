package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePool simulates the database pool behind the readiness probe.
type fakePool struct {
	mu  sync.Mutex
	err error
}

func (p *fakePool) Ping(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakePool) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func serve(t *testing.T, h http.HandlerFunc, path string) (int, statusBody) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h(w, req)

	var body statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLive_AllProbesUp(t *testing.T) {
	s := NewService()
	s.Liveness("goroutines", time.Second, Goroutines(100000))

	code, body := serve(t, s.Live, "/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestLive_ProbeDownAfterConsecutiveFailures(t *testing.T) {
	pool := &fakePool{err: errors.New("connection refused")}
	s := NewService()
	s.Liveness("postgres", time.Second, Ping(pool))
	p := s.liveness[0]

	ctx := context.Background()

	// Two failures stay under the damping threshold.
	p.observe(ctx)
	p.observe(ctx)
	code, _ := serve(t, s.Live, "/livez")
	assert.Equal(t, http.StatusOK, code, "probe must not flap on %d failures", failsToDown-1)

	// The third flips it down and the endpoint surfaces the ping error.
	p.observe(ctx)
	code, body := serve(t, s.Live, "/livez")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Checks["postgres"], "connection refused")
}

func TestLive_ProbeRecovers(t *testing.T) {
	pool := &fakePool{err: errors.New("down")}
	s := NewService()
	s.Liveness("postgres", time.Second, Ping(pool))
	p := s.liveness[0]

	ctx := context.Background()
	for range failsToDown {
		p.observe(ctx)
	}
	code, _ := serve(t, s.Live, "/livez")
	require.Equal(t, http.StatusServiceUnavailable, code)

	// One clean ping brings it back.
	pool.setErr(nil)
	p.observe(ctx)
	code, body := serve(t, s.Live, "/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestReady_GatedBySetReady(t *testing.T) {
	s := NewService()
	s.Readiness("postgres", time.Second, Ping(&fakePool{}))

	// Probes are fine but the server has not opened the gate yet.
	code, body := serve(t, s.Ready, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "service")

	s.SetReady(true)
	code, body = serve(t, s.Ready, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)

	// Graceful shutdown closes the gate again.
	s.SetReady(false)
	code, _ = serve(t, s.Ready, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestReady_OneProbeDownOthersUp(t *testing.T) {
	broken := &fakePool{err: errors.New("too many connections")}
	s := NewService()
	s.Readiness("postgres", time.Second, Ping(broken))
	s.Readiness("goroutines", time.Second, Goroutines(100000))
	s.SetReady(true)

	ctx := context.Background()
	for range failsToDown {
		s.readiness[0].observe(ctx)
	}
	s.readiness[1].observe(ctx)

	code, body := serve(t, s.Ready, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "postgres")
	assert.NotContains(t, body.Checks, "goroutines")
}

func TestStartStop(t *testing.T) {
	pool := &fakePool{}
	s := NewService()
	s.Readiness("postgres", time.Second, Ping(pool))
	s.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, 10*time.Millisecond)

	// Endpoints are safe to hit while probes are ticking.
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				s.Live(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				s.Ready(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()

	s.Stop()
	s.Stop() // idempotent
}

func TestGoroutines(t *testing.T) {
	assert.NoError(t, Goroutines(100000)(context.Background()))

	err := Goroutines(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit 0")
}
