// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/attunehq/attune/internal/adapters/mq/queue"
	workerpool "github.com/attunehq/attune/internal/adapters/mq/worker"
	"github.com/attunehq/attune/internal/adapters/repository"
	"github.com/attunehq/attune/internal/domain/cache"
	"github.com/attunehq/attune/internal/domain/dispatch"
	"github.com/attunehq/attune/internal/domain/model"
	"github.com/attunehq/attune/internal/domain/stats"
	"github.com/attunehq/attune/internal/domain/throttle"
	"github.com/attunehq/attune/pkg/logger"
	"github.com/attunehq/attune/pkg/metrics"
)

// Throttle scope names. The quick scope governs per-team snapshot reads,
// the full scope governs whole-dashboard rebuilds.
const (
	ScopeQuick = "quick"
	ScopeFull  = "full"
)

// Overview is one team's row on the dashboard.
type Overview struct {
	TeamID   string         `json:"team_id"`
	Snapshot stats.Snapshot `json:"snapshot"`
	Digest   stats.Digest   `json:"digest"`
}

// Dashboard is the whole-game view built by the full scope.
type Dashboard struct {
	Mode        string     `json:"mode"`
	GeneratedAt time.Time  `json:"generated_at"`
	Teams       []Overview `json:"teams"`
}

// Service wires the history store, statistics engine, snapshot cache,
// throttle scopes, and event pipeline into the live metrics subsystem.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	snapCache  *cache.Cache
	engine     *stats.Engine
	controller *throttle.Controller
	quick      *throttle.Scope
	full       *throttle.Scope
	dispatcher *dispatch.Dispatcher
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool

	// mode holds the current model.MetricMode for the whole game.
	mode atomic.Int32

	// Configuration
	workerCount           int
	queueSize             int
	cacheMaxEntries       int
	shardCount            int
	staleSweepInterval    time.Duration
	quickInterval         time.Duration
	fullInterval          time.Duration
	significanceThreshold float64
	publish               func(any)

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:        runtime.NumCPU() * 2,
		queueSize:          100_000,
		cacheMaxEntries:    4_096,
		shardCount:         16,
		staleSweepInterval: time.Minute,
		quickInterval:      2 * time.Second,
		fullInterval:       10 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting live metrics service...")

	s.store = repository.NewMemStore(
		repository.WithShardCount(s.shardCount),
	)
	s.snapCache = cache.New(
		cache.WithMaxEntries(s.cacheMaxEntries),
		cache.WithSweepInterval(s.staleSweepInterval),
	)

	engineOpts := []stats.Option{}
	if s.significanceThreshold > 0 {
		engineOpts = append(engineOpts, stats.WithSignificanceThreshold(s.significanceThreshold))
	}
	s.engine = stats.New(engineOpts...)

	s.quick = throttle.NewScope(ScopeQuick, s.quickInterval,
		throttle.WithCompute(s.quickComputeFor("")),
	)
	fullOpts := []throttle.ScopeOption{
		throttle.WithCompute(s.computeDashboard),
	}
	if s.publish != nil {
		fullOpts = append(fullOpts, throttle.WithPublish(s.publish))
	}
	s.full = throttle.NewScope(ScopeFull, s.fullInterval, fullOpts...)

	s.controller = throttle.NewController()
	s.controller.Register(s.quick)
	s.controller.Register(s.full)

	s.dispatcher = dispatch.New(s.snapCache, s.quick, s.full, s.controller)

	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.dispatcher)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "live metrics service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("cacheMaxEntries", s.cacheMaxEntries),
		logger.Duration("quickInterval", s.quickInterval),
		logger.Duration("fullInterval", s.fullInterval),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping live metrics service...")

	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}
	if s.snapCache != nil {
		s.snapCache.Close()
	}

	s.started = false
	s.logger.Info(ctx, "live metrics service stopped")
}

// Mode returns the current metric mode.
func (s *Service) Mode() model.MetricMode {
	return model.MetricMode(s.mode.Load())
}

// RecordRound appends a dealt round to the team's history and schedules the
// team's snapshots for invalidation.
func (s *Service) RecordRound(ctx context.Context, r model.RoundRecord) error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	if err := s.store.AppendRound(ctx, r); err != nil {
		return err
	}
	s.enqueue(ctx, model.Event{
		EventID: uuid.NewString(),
		Kind:    model.RoundInitiated,
		TeamID:  r.TeamID,
		TS:      time.Now(),
	})
	return nil
}

// SubmitAnswer appends a player's answer and schedules the team's snapshots
// for invalidation.
func (s *Service) SubmitAnswer(ctx context.Context, a model.AnswerRecord) error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	if err := s.store.AppendAnswer(ctx, a); err != nil {
		return err
	}
	s.enqueue(ctx, model.Event{
		EventID: uuid.NewString(),
		Kind:    model.AnswerSubmitted,
		TeamID:  a.TeamID,
		TS:      time.Now(),
	})
	return nil
}

// SetTeamState flips a team's dashboard visibility.
func (s *Service) SetTeamState(ctx context.Context, teamID string, active bool) error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	if teamID == "" {
		return repository.ErrEmptyTeamID
	}
	s.store.SetTeamActive(ctx, teamID, active)
	s.enqueue(ctx, model.Event{
		EventID: uuid.NewString(),
		Kind:    model.TeamStateChanged,
		TeamID:  teamID,
		TS:      time.Now(),
	})
	return nil
}

// ToggleMode flips the game-wide metric mode and returns the new mode. The
// dispatcher clears the cache outright: values computed under the old mode
// mean nothing under the new one.
func (s *Service) ToggleMode(ctx context.Context) (model.MetricMode, error) {
	if !s.isStarted() {
		return 0, ErrNotStarted
	}

	var next model.MetricMode
	for {
		cur := s.mode.Load()
		next = model.MetricMode(cur).Toggled()
		if s.mode.CompareAndSwap(cur, int32(next)) {
			break
		}
	}

	s.enqueue(ctx, model.Event{
		EventID: uuid.NewString(),
		Kind:    model.MetricModeToggled,
		TS:      time.Now(),
	})
	return next, nil
}

// ResetGame wipes all history and returns every component to its initial
// state.
func (s *Service) ResetGame(ctx context.Context) error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	s.store.Clear(ctx)
	s.enqueue(ctx, model.Event{
		EventID: uuid.NewString(),
		Kind:    model.GameReset,
		TS:      time.Now(),
	})
	return nil
}

// TeamSnapshot returns the current-mode snapshot for one team. Reads go
// through the quick scope so a burst of viewers costs one computation per
// interval; a viewer is never blocked behind a refresh.
func (s *Service) TeamSnapshot(ctx context.Context, teamID string) (stats.Snapshot, error) {
	if !s.isStarted() {
		return stats.Snapshot{}, ErrNotStarted
	}
	if teamID == "" {
		return stats.Snapshot{}, repository.ErrEmptyTeamID
	}

	mode := s.Mode()
	v, err := s.quick.RequestUpdate(ctx, s.quickComputeFor(teamID))
	if err == nil {
		if m, ok := v.(map[string]stats.Snapshot); ok {
			// A snapshot computed under a flipped mode is not servable,
			// stale-but-usable only stretches within one mode.
			if snap, found := m[teamID]; found && snap.Mode == mode {
				return snap, nil
			}
		}
	}

	// The team has not made it into the quick snapshot yet. Queue it for
	// the next refresh and serve through the selective cache meanwhile.
	s.dispatcher.MarkPending(teamID)
	s.quick.Signal(ctx)
	return s.computeTeam(ctx, teamID, mode), nil
}

// TeamDigest returns the cheap history fingerprint for one team.
func (s *Service) TeamDigest(ctx context.Context, teamID string) (stats.Digest, error) {
	if !s.isStarted() {
		return stats.Digest{}, ErrNotStarted
	}
	if teamID == "" {
		return stats.Digest{}, repository.ErrEmptyTeamID
	}

	key := cache.NewKey(cache.FamilyDigest, teamID)
	if v, ok := s.snapCache.Get(key, false); ok {
		if d, isDigest := v.(stats.Digest); isDigest {
			return d, nil
		}
	}

	rounds, answers := s.store.History(ctx, teamID)
	d := stats.ComputeDigest(rounds, answers)
	s.snapCache.Set(key, d)
	return d, nil
}

// DashboardView returns the whole-game dashboard through the full scope.
func (s *Service) DashboardView(ctx context.Context) (Dashboard, error) {
	if !s.isStarted() {
		return Dashboard{}, ErrNotStarted
	}

	v, err := s.full.RequestUpdate(ctx, s.computeDashboard)
	if err == nil {
		if d, ok := v.(Dashboard); ok {
			return d, nil
		}
	}
	if cached, ok := s.full.Cached(); ok {
		if d, isDash := cached.(Dashboard); isDash {
			return d, nil
		}
	}
	return Dashboard{Mode: s.Mode().String(), GeneratedAt: time.Now()}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	out := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"mode":        s.Mode().String(),
	}

	if s.started {
		teams, rounds, answers := s.store.Counts(ctx)
		cs := s.snapCache.Stats()

		out["queueLength"] = s.eventQueue.Len(ctx)
		out["teams"] = teams
		out["rounds"] = rounds
		out["answers"] = answers
		out["cache"] = map[string]uint64{
			"hits":          cs.Hits,
			"misses":        cs.Misses,
			"staleServes":   cs.StaleServes,
			"evictions":     cs.Evictions,
			"invalidations": cs.Invalidations,
			"staleRemoved":  cs.StaleRemoved,
		}
		out["cacheEntries"] = s.snapCache.Len()
		out["cacheStale"] = s.snapCache.StaleLen()
	}

	return out
}

// enqueue pushes an event onto the pipeline. A full queue drops the event:
// history is already durable, so the worst outcome is one stale interval.
func (s *Service) enqueue(ctx context.Context, e model.Event) {
	if !s.eventQueue.Enqueue(ctx, e) {
		s.logger.Warn(ctx, "event queue full, dropping event",
			logger.String("kind", e.Kind.String()),
			logger.String("team", e.TeamID),
		)
	}
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// familyFor maps a metric mode to its cache key family.
func familyFor(mode model.MetricMode) string {
	if mode == model.ModeSuccessRate {
		return cache.FamilySuccess
	}
	return cache.FamilyCorrelation
}

// quickComputeFor builds the quick scope's compute. The quick snapshot is an
// accumulated map of per-team snapshots; each refresh recomputes only the
// teams invalidated since the last one (plus extra, when a read misses),
// carrying the rest forward. Entries computed under a stale mode are
// recomputed too, so a mode flip leaves no residue.
func (s *Service) quickComputeFor(extra string) throttle.ComputeFunc {
	return func(ctx context.Context) (any, error) {
		mode := s.Mode()

		next := make(map[string]stats.Snapshot)
		if prev, ok := s.quick.Cached(); ok {
			if m, isMap := prev.(map[string]stats.Snapshot); isMap {
				for id, snap := range m {
					next[id] = snap
				}
			}
		}

		dirty := make(map[string]struct{})
		for _, id := range s.dispatcher.DrainPending() {
			dirty[id] = struct{}{}
		}
		if extra != "" {
			dirty[extra] = struct{}{}
		}
		for id, snap := range next {
			if snap.Mode != mode {
				dirty[id] = struct{}{}
			}
		}

		for id := range dirty {
			next[id] = s.computeTeam(ctx, id, mode)
		}
		return next, nil
	}
}

// computeDashboard rebuilds the whole-game view for every active team.
func (s *Service) computeDashboard(ctx context.Context) (any, error) {
	mode := s.Mode()
	teams := s.store.ActiveTeams(ctx)

	d := Dashboard{
		Mode:        mode.String(),
		GeneratedAt: time.Now(),
		Teams:       make([]Overview, 0, len(teams)),
	}
	for _, id := range teams {
		rounds, answers := s.store.History(ctx, id)
		d.Teams = append(d.Teams, Overview{
			TeamID:   id,
			Snapshot: s.computeTeam(ctx, id, mode),
			Digest:   stats.ComputeDigest(rounds, answers),
		})
	}
	return d, nil
}

// computeTeam returns the team's snapshot for mode, via the selective cache.
// A fresh cached value short-circuits; otherwise the engine recomputes and
// the result replaces the stale entry. A panicking computation falls back to
// the stale value, then to the empty snapshot: a broken team must not take
// the dashboard down.
func (s *Service) computeTeam(ctx context.Context, teamID string, mode model.MetricMode) (snap stats.Snapshot) {
	key := cache.NewKey(familyFor(mode), teamID)

	if v, ok := s.snapCache.Get(key, false); ok {
		if cached, isSnap := v.(stats.Snapshot); isSnap && cached.Mode == mode {
			return cached
		}
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordEngineComputeError()
			s.logger.Error(ctx, "snapshot computation panicked",
				logger.String("team", teamID),
				logger.Any("panic", r),
			)
			if v, ok := s.snapCache.Get(key, true); ok {
				if cached, isSnap := v.(stats.Snapshot); isSnap {
					snap = cached
					return
				}
			}
			snap = s.engine.Empty(mode)
		}
	}()

	rounds, answers := s.store.History(ctx, teamID)

	start := time.Now()
	snap = s.engine.Compute(mode, rounds, answers)
	metrics.RecordEngineComputeLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordSnapshotComputed(mode.String())

	s.snapCache.Set(key, snap)
	s.snapCache.Set(cache.NewKey(cache.FamilyDigest, teamID), stats.ComputeDigest(rounds, answers))
	return snap
}
