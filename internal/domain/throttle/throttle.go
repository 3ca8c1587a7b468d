// Package throttle bounds how often a named update scope may recompute its
// snapshot. Callers always get the most recent available data immediately;
// at most one computation runs per scope at a time, and signaled demand is
// satisfied by a single trailing refresh when the interval expires.
package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/attunehq/attune/pkg/logger"
	"github.com/attunehq/attune/pkg/metrics"
)

// ComputeFunc produces a fresh snapshot for a scope.
type ComputeFunc func(ctx context.Context) (any, error)

// Scope is one throttled update channel with its own interval and cached
// snapshot. Scopes share no state and cannot deadlock each other.
type Scope struct {
	name     string
	interval time.Duration
	compute  ComputeFunc // default compute used for signaled refreshes
	publish  func(any)   // broadcast hook, called outside the lock
	clock    func() time.Time
	logger   logger.Logger

	mu            sync.Mutex
	lastRefresh   time.Time
	lastStart     time.Time
	cached        any
	hasCached     bool
	stale         bool
	inFlight      bool
	pendingSignal bool
	timer         *time.Timer
}

// NewScope creates a scope with the given name and minimum refresh interval.
func NewScope(name string, interval time.Duration, opts ...ScopeOption) *Scope {
	s := &Scope{
		name:     name,
		interval: interval,
		clock:    time.Now,
		logger:   logger.Get().Named("throttle"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the scope name.
func (s *Scope) Name() string { return s.name }

// Cached returns the current snapshot without triggering anything.
func (s *Scope) Cached() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached, s.hasCached
}

// Stale reports whether the cached snapshot has been signaled out of date.
func (s *Scope) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// RequestUpdate returns a snapshot for the scope, recomputing at most once
// per interval:
//  1. inside the interval with a cached snapshot: return it unchanged, even
//     if marked stale;
//  2. a computation already in flight: return the cached snapshot without
//     starting a second one; no caller ever blocks on another's work;
//  3. otherwise run compute (outside the lock), install the result, and
//     return it.
//
// Snapshot installation is monotonic by computation start time: a result
// whose start predates the currently installed one is discarded.
func (s *Scope) RequestUpdate(ctx context.Context, compute ComputeFunc) (any, error) {
	s.mu.Lock()
	now := s.clock()

	if s.hasCached && now.Sub(s.lastRefresh) < s.interval {
		cached := s.cached
		s.mu.Unlock()
		metrics.RecordThrottleFastPath(s.name)
		return cached, nil
	}

	if s.inFlight {
		cached := s.cached
		s.mu.Unlock()
		metrics.RecordThrottleCoalesced(s.name)
		return cached, nil
	}

	s.inFlight = true
	start := now
	s.mu.Unlock()

	metrics.RecordThrottleRefresh(s.name)
	value, err := compute(ctx)
	elapsed := s.clock().Sub(start)
	metrics.RecordRefreshLatency(s.name, float64(elapsed.Milliseconds()))

	s.mu.Lock()
	s.inFlight = false

	if err != nil {
		// Keep serving the previous snapshot; the worst outcome here is
		// stale data for one more interval.
		cached := s.cached
		s.mu.Unlock()
		s.logger.Warn(ctx, "scope refresh failed",
			logger.String("scope", s.name),
			logger.Error(err),
		)
		return cached, err
	}

	if start.Before(s.lastStart) {
		cached := s.cached
		s.mu.Unlock()
		metrics.RecordThrottleDiscarded(s.name)
		return cached, nil
	}

	s.lastStart = start
	s.cached = value
	s.hasCached = true
	s.stale = false
	s.lastRefresh = s.clock()
	rearm := s.pendingSignal
	s.pendingSignal = false
	publish := s.publish
	s.mu.Unlock()

	if publish != nil {
		publish(value)
	}
	if rearm {
		// Data changed while we were computing; one more trailing refresh
		// picks it up after the interval.
		s.scheduleTrailing()
	}
	return value, nil
}

// Signal records that the scope's data changed and a refresh is desired.
// It never computes synchronously: if the interval has elapsed the refresh
// runs on its own goroutine, otherwise a single trailing timer fires the
// refresh the moment the interval expires.
func (s *Scope) Signal(ctx context.Context) {
	s.mu.Lock()
	if s.compute == nil {
		s.mu.Unlock()
		return
	}

	s.stale = true
	if s.inFlight {
		s.pendingSignal = true
		s.mu.Unlock()
		return
	}

	now := s.clock()
	remaining := s.interval - now.Sub(s.lastRefresh)
	if !s.hasCached || remaining <= 0 {
		s.mu.Unlock()
		go s.refresh()
		return
	}

	if s.timer == nil {
		s.timer = time.AfterFunc(remaining, func() {
			s.mu.Lock()
			s.timer = nil
			s.mu.Unlock()
			s.refresh()
		})
	}
	s.mu.Unlock()
}

// Reset restores the scope to its initial state: no cached snapshot, no
// pending demand. Acts as a barrier for in-flight computations, whose
// results will be discarded on completion.
func (s *Scope) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.cached = nil
	s.hasCached = false
	s.stale = false
	s.pendingSignal = false
	s.lastRefresh = time.Time{}
	// In-flight computations started before the reset must not publish.
	s.lastStart = s.clock()
}

// scheduleTrailing arms the trailing-edge timer if not already armed.
func (s *Scope) scheduleTrailing() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil || s.compute == nil {
		return
	}
	remaining := s.interval - s.clock().Sub(s.lastRefresh)
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	s.timer = time.AfterFunc(remaining, func() {
		s.mu.Lock()
		s.timer = nil
		s.mu.Unlock()
		s.refresh()
	})
}

// refresh runs the scope's default compute through the normal request path.
func (s *Scope) refresh() {
	s.mu.Lock()
	compute := s.compute
	s.mu.Unlock()
	if compute == nil {
		return
	}
	if _, err := s.RequestUpdate(context.Background(), compute); err != nil {
		s.logger.Warn(context.Background(), "signaled refresh failed",
			logger.String("scope", s.name),
			logger.Error(err),
		)
	}
}

// Controller owns the named scopes. Constructed once at startup and passed
// by handle into request-handling contexts; there is no ambient global.
type Controller struct {
	mu     sync.Mutex
	scopes map[string]*Scope
}

// NewController creates an empty controller.
func NewController() *Controller {
	return &Controller{scopes: make(map[string]*Scope)}
}

// Register adds a scope to the controller.
func (c *Controller) Register(s *Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scopes[s.name] = s
}

// Scope looks up a scope by name.
func (c *Controller) Scope(name string) (*Scope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.scopes[name]
	return s, ok
}

// Reset restores every scope to its initial state (full game restart).
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.scopes {
		s.Reset()
	}
}
