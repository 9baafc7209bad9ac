// Package health provides Kubernetes-style liveness and readiness endpoints.
//
// Registered checks run periodically in a single background goroutine; the
// HTTP endpoints report the most recent results without blocking on the
// checked components.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[string]
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.fn(checkCtx); err != nil {
		msg := err.Error()
		c.lastErr.Store(&msg)
		c.healthy.Store(false)
		return
	}
	c.lastErr.Store(nil)
	c.healthy.Store(true)
}

// Health manages liveness and readiness checks for a service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a Health service in the not-ready state; call SetReady(true)
// once initialization has finished.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that gates /livez.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a check that gates /readyz.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn))
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true) // assume healthy until the first run says otherwise
	return c
}

// Start launches the background loop running every check at the given
// interval. Each check also runs once immediately.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})

	checks := make([]*check, 0, len(h.liveness)+len(h.readiness))
	checks = append(checks, h.liveness...)
	checks = append(checks, h.readiness...)

	go func() {
		defer close(h.done)
		for _, c := range checks {
			c.run(loopCtx)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				for _, c := range checks {
					c.run(loopCtx)
				}
			}
		}
	}()
}

// Stop terminates the background loop and waits for it to exit.
func (h *Health) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// SetReady flips the readiness gate, independent of check results. Used to
// drain traffic before shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// LiveEndpoint serves the liveness probe.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := append([]*check(nil), h.liveness...)
	h.mu.RUnlock()

	respond(w, true, checks)
}

// ReadyEndpoint serves the readiness probe. It fails while SetReady(false) or
// while any readiness check is unhealthy.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := append([]*check(nil), h.readiness...)
	h.mu.RUnlock()

	respond(w, h.ready.Load(), checks)
}

func respond(w http.ResponseWriter, gate bool, checks []*check) {
	type entry struct {
		Healthy bool   `json:"healthy"`
		Error   string `json:"error,omitempty"`
	}

	healthy := gate
	results := make(map[string]entry, len(checks))
	for _, c := range checks {
		e := entry{Healthy: c.healthy.Load()}
		if msg := c.lastErr.Load(); msg != nil {
			e.Error = *msg
		}
		if !e.Healthy {
			healthy = false
		}
		results[c.name] = e
	}

	w.Header().Set("Content-Type", "application/json")
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"healthy": healthy,
		"checks":  results,
	})
}
