// Package dispatch translates domain events into scoped cache invalidations
// and throttle-scope wake-ups. It is the single place that decides between
// per-team invalidation and a full clear, and it never recomputes anything
// itself: timing stays with the throttle controller.
package dispatch

import (
	"context"
	"sync"

	"github.com/attunehq/attune/internal/domain/model"
	"github.com/attunehq/attune/pkg/logger"
	"github.com/attunehq/attune/pkg/metrics"
)

// Invalidator is the slice of the snapshot cache the dispatcher needs.
type Invalidator interface {
	// InvalidateScope marks stale every entry keyed by the identifier as a
	// complete key component. Returns the number of entries marked.
	InvalidateScope(identifier string) int

	// Clear wipes the cache unconditionally.
	Clear()
}

// Signaler is a throttle scope that can be woken up.
type Signaler interface {
	Signal(ctx context.Context)
}

// Resetter restores throttle state for a full game restart.
type Resetter interface {
	Reset()
}

// Dispatcher routes events to the cache and the two update scopes. It also
// accumulates which teams need a quick refresh; the compute path drains
// that set when the throttle decides it is time.
type Dispatcher struct {
	cache    Invalidator
	quick    Signaler
	full     Signaler
	throttle Resetter
	logger   logger.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a dispatcher wired to the cache, the two scopes, and the
// throttle reset handle.
func New(cache Invalidator, quick, full Signaler, throttle Resetter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cache:    cache,
		quick:    quick,
		full:     full,
		throttle: throttle,
		pending:  make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = logger.Get().Named("dispatch")
	}

	return d
}

// Dispatch applies one domain event. Invalidation only marks entries stale
// and signals scopes; the next throttled update decides whether to serve
// cached data or recompute.
func (d *Dispatcher) Dispatch(ctx context.Context, e model.Event) {
	metrics.RecordEventDispatched(e.Kind.String())

	switch e.Kind {
	case model.AnswerSubmitted, model.RoundInitiated:
		count := d.cache.InvalidateScope(e.TeamID)
		d.markPending(e.TeamID)
		d.logger.Debug(ctx, "team data invalidation",
			logger.String("kind", e.Kind.String()),
			logger.String("team", e.TeamID),
			logger.Int("entries", count),
		)
		d.quick.Signal(ctx)

	case model.TeamStateChanged:
		count := d.cache.InvalidateScope(e.TeamID)
		d.markPending(e.TeamID)
		d.logger.Debug(ctx, "team state invalidation",
			logger.String("team", e.TeamID),
			logger.Int("entries", count),
		)
		// Roster changes affect the whole-dashboard view as well.
		d.quick.Signal(ctx)
		d.full.Signal(ctx)

	case model.MetricModeToggled:
		// Cached values mean nothing under the other mode; staleness
		// semantics are deliberately bypassed.
		d.cache.Clear()
		d.logger.Info(ctx, "metric mode toggled, cache cleared")
		d.quick.Signal(ctx)
		d.full.Signal(ctx)

	case model.GameReset:
		d.cache.Clear()
		d.throttle.Reset()
		d.clearPending()
		d.logger.Info(ctx, "game reset, cache and throttle state cleared")
	}
}

// DrainPending returns and clears the set of teams awaiting a quick
// refresh.
func (d *Dispatcher) DrainPending() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 {
		return nil
	}
	teams := make([]string, 0, len(d.pending))
	for t := range d.pending {
		teams = append(teams, t)
	}
	d.pending = make(map[string]struct{})
	return teams
}

// MarkPending queues a team for the next quick refresh without dispatching
// an event. Used by read paths that discover a team missing from the quick
// snapshot.
func (d *Dispatcher) MarkPending(teamID string) {
	d.markPending(teamID)
}

func (d *Dispatcher) markPending(teamID string) {
	if teamID == "" {
		return
	}
	d.mu.Lock()
	d.pending[teamID] = struct{}{}
	d.mu.Unlock()
}

func (d *Dispatcher) clearPending() {
	d.mu.Lock()
	d.pending = make(map[string]struct{})
	d.mu.Unlock()
}
