// Package health backs the API server's /livez and /readyz endpoints.
//
// Liveness reflects process health; readiness gates traffic on the
// dependencies a storefront request actually needs, which for this service
// means the PostgreSQL pool. Probes run on background tickers and flip state
// only on consecutive results, so a single slow database ping does not bounce
// the instance out of the load balancer.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Check reports whether one dependency is usable. A nil return means healthy.
type Check func(ctx context.Context) error

// Flap damping: a probe goes down after failsToDown consecutive failures and
// comes back after passesToUp consecutive passes.
const (
	failsToDown = 3
	passesToUp  = 1
)

// probe is one named check plus its damped state. observe is only ever called
// from the probe's own ticker goroutine; up and lastErr are the handoff to
// the HTTP endpoints.
type probe struct {
	name    string
	timeout time.Duration
	check   Check

	up      atomic.Bool
	lastErr atomic.Pointer[error]

	fails  int
	passes int
}

func (p *probe) observe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.passes = 0
		if p.fails++; p.fails >= failsToDown {
			p.up.Store(false)
		}
		return
	}
	p.fails = 0
	if p.passes++; p.passes >= passesToUp {
		p.up.Store(true)
	}
}

// failure returns the damped failure state and the most recent error.
func (p *probe) failure() (string, bool) {
	if p.up.Load() {
		return "", false
	}
	if errp := p.lastErr.Load(); errp != nil && *errp != nil {
		return (*errp).Error(), true
	}
	return "probe is down", true
}

// Service owns the liveness and readiness probes for the API server.
//
// Readiness is additionally gated by SetReady: the server flips it on once
// migrations have run and everything is wired, and off again at the start of
// graceful shutdown so the load balancer drains before the listener closes.
type Service struct {
	ready atomic.Bool

	mu        sync.Mutex
	liveness  []*probe
	readiness []*probe
	stop      context.CancelFunc
}

// NewService returns a Service with no probes and readiness off.
func NewService() *Service {
	return &Service{}
}

func newProbe(name string, timeout time.Duration, check Check) *probe {
	p := &probe{name: name, timeout: timeout, check: check}
	p.up.Store(true) // a probe is presumed up until it fails failsToDown times
	return p
}

// Liveness registers a process-health probe served on /livez.
func (s *Service) Liveness(name string, timeout time.Duration, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, newProbe(name, timeout, check))
}

// Readiness registers a dependency probe served on /readyz.
func (s *Service) Readiness(name string, timeout time.Duration, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, newProbe(name, timeout, check))
}

// Start launches one ticker goroutine per registered probe. Register all
// probes before calling Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.stop = cancel
	probes := make([]*probe, 0, len(s.liveness)+len(s.readiness))
	probes = append(probes, s.liveness...)
	probes = append(probes, s.readiness...)
	s.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			p.observe(ctx)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.observe(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// SetReady flips the manual readiness gate.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Live serves the liveness endpoint: 200 while every liveness probe is up,
// 503 with per-probe errors otherwise.
func (s *Service) Live(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	probes := append([]*probe(nil), s.liveness...)
	s.mu.Unlock()

	writeStatus(w, down(probes))
}

// Ready serves the readiness endpoint: 200 only when the manual gate is on
// and every readiness probe is up.
func (s *Service) Ready(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	probes := append([]*probe(nil), s.readiness...)
	s.mu.Unlock()

	failures := down(probes)
	if !s.ready.Load() {
		failures["service"] = "not accepting traffic"
	}
	writeStatus(w, failures)
}

func down(probes []*probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		if msg, failed := p.failure(); failed {
			failures[p.name] = msg
		}
	}
	return failures
}

// statusBody is the JSON shape served on both endpoints.
type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	body := statusBody{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		body.Status = "unhealthy"
		body.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
