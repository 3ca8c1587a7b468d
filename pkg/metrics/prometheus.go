// Package metrics provides Prometheus metrics for the attune live-metrics service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the attune service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Cache Metrics - The selective cache is the heart of the system
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheStaleServes   prometheus.Counter
	cacheEvictions     prometheus.Counter
	cacheInvalidations prometheus.Counter
	cacheStaleRemoved  prometheus.Counter
	cacheEntries       prometheus.Gauge
	cacheStaleEntries  prometheus.Gauge

	// Throttle Metrics - Per-scope refresh behavior
	throttleFastPath  *prometheus.CounterVec
	throttleCoalesced *prometheus.CounterVec
	throttleRefreshes *prometheus.CounterVec
	throttleDiscarded *prometheus.CounterVec
	refreshLatency    *prometheus.HistogramVec

	// Engine Metrics - Statistics computation cost
	engineComputeLatency prometheus.Histogram
	engineComputeErrors  prometheus.Counter
	snapshotsComputed    *prometheus.CounterVec

	// Event Metrics - Domain event flow
	eventsDispatched *prometheus.CounterVec
	eventsDropped    prometheus.Counter

	// Queue Metrics - In-memory event queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker Metrics
	workerActiveCount prometheus.Gauge
	workerErrors      prometheus.Counter

	// Team Metrics - Business scale
	totalTeams  prometheus.Gauge
	activeTeams prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     prometheus.Counter

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "attune",
		subsystem:        "live",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Cache Metrics - Hit/miss behavior drives recomputation cost
	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Total number of cache hits",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Total number of cache misses (including stale entries skipped by fresh-only reads)",
	})

	m.cacheStaleServes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_stale_serves_total",
		Help:      "Total number of reads answered with a stale-but-usable entry",
	})

	m.cacheEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_evictions_total",
		Help:      "Total number of LRU evictions",
	})

	m.cacheInvalidations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_invalidations_total",
		Help:      "Total number of entries marked stale by scoped invalidation",
	})

	m.cacheStaleRemoved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_stale_removed_total",
		Help:      "Total number of stale entries reclaimed by the sweep",
	})

	m.cacheEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_entries",
		Help:      "Current number of cache entries",
	})

	m.cacheStaleEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_stale_entries",
		Help:      "Current number of entries marked stale",
	})

	// Throttle Metrics - How often scopes defer vs recompute
	m.throttleFastPath = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "throttle_fast_path_total",
			Help:      "Requests answered with the cached snapshot inside the scope interval",
		},
		[]string{"scope"},
	)

	m.throttleCoalesced = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "throttle_coalesced_total",
			Help:      "Requests answered with the cached snapshot because a computation was in flight",
		},
		[]string{"scope"},
	)

	m.throttleRefreshes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "throttle_refreshes_total",
			Help:      "Fresh computations started per scope",
		},
		[]string{"scope"},
	)

	m.throttleDiscarded = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "throttle_discarded_results_total",
			Help:      "Computation results discarded because a newer computation already published",
		},
		[]string{"scope"},
	)

	m.refreshLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "throttle_refresh_latency_milliseconds",
			Help:      "Latency of scope refresh computations in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"scope"},
	)

	// Engine Metrics - Statistics computation cost
	m.engineComputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "engine_compute_latency_milliseconds",
		Help:      "Per-team statistics computation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.engineComputeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "engine_compute_errors_total",
		Help:      "Total number of isolated per-team computation failures",
	})

	m.snapshotsComputed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "snapshots_computed_total",
			Help:      "Total number of fresh snapshots computed, by metric mode",
		},
		[]string{"mode"},
	)

	// Event Metrics - Domain event flow through the dispatcher
	m.eventsDispatched = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_dispatched_total",
			Help:      "Total number of domain events translated into invalidations, by kind",
		},
		[]string{"kind"},
	)

	m.eventsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_dropped_total",
		Help:      "Total number of domain events dropped due to queue saturation",
	})

	// Queue Metrics
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the event queue (backlog indicator)",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue utilization ratio (current size / capacity)",
	})

	m.queueEnqueueTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of events enqueued",
	})

	m.queueDequeueTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of events dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of enqueue errors",
	})

	// Worker Metrics
	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active_count",
		Help:      "Number of active dispatch workers",
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of worker errors",
	})

	// Team Metrics
	m.totalTeams = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_teams",
		Help:      "Total number of teams with recorded history",
	})

	m.activeTeams = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_teams",
		Help:      "Number of teams currently active on the dashboard",
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_rate_limited_total",
		Help:      "Total number of requests rejected by the per-client rate limiter",
	})

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheStaleServe increments the stale-serve counter.
func RecordCacheStaleServe() {
	globalManager.cacheStaleServes.Inc()
}

// RecordCacheEviction increments the eviction counter.
func RecordCacheEviction() {
	globalManager.cacheEvictions.Inc()
}

// RecordCacheInvalidations adds to the invalidation counter.
func RecordCacheInvalidations(count int) {
	globalManager.cacheInvalidations.Add(float64(count))
}

// RecordCacheStaleRemoved adds to the stale-reclamation counter.
func RecordCacheStaleRemoved(count int) {
	globalManager.cacheStaleRemoved.Add(float64(count))
}

// UpdateCacheEntries sets the current entry count gauge.
func UpdateCacheEntries(count int) {
	globalManager.cacheEntries.Set(float64(count))
}

// UpdateCacheStaleEntries sets the current stale entry count gauge.
func UpdateCacheStaleEntries(count int) {
	globalManager.cacheStaleEntries.Set(float64(count))
}

// RecordThrottleFastPath increments the fast-path counter for a scope.
func RecordThrottleFastPath(scope string) {
	globalManager.throttleFastPath.WithLabelValues(scope).Inc()
}

// RecordThrottleCoalesced increments the coalesced-request counter for a scope.
func RecordThrottleCoalesced(scope string) {
	globalManager.throttleCoalesced.WithLabelValues(scope).Inc()
}

// RecordThrottleRefresh increments the refresh counter for a scope.
func RecordThrottleRefresh(scope string) {
	globalManager.throttleRefreshes.WithLabelValues(scope).Inc()
}

// RecordThrottleDiscarded increments the discarded-result counter for a scope.
func RecordThrottleDiscarded(scope string) {
	globalManager.throttleDiscarded.WithLabelValues(scope).Inc()
}

// RecordRefreshLatency records a scope refresh latency in milliseconds.
func RecordRefreshLatency(scope string, latencyMs float64) {
	globalManager.refreshLatency.WithLabelValues(scope).Observe(latencyMs)
}

// RecordEngineComputeLatency records per-team computation latency in milliseconds.
func RecordEngineComputeLatency(latencyMs float64) {
	globalManager.engineComputeLatency.Observe(latencyMs)
}

// RecordEngineComputeError increments the isolated computation failure counter.
func RecordEngineComputeError() {
	globalManager.engineComputeErrors.Inc()
}

// RecordSnapshotComputed increments the snapshot counter for a metric mode.
func RecordSnapshotComputed(mode string) {
	globalManager.snapshotsComputed.WithLabelValues(mode).Inc()
}

// RecordEventDispatched increments the dispatched-event counter for a kind.
func RecordEventDispatched(kind string) {
	globalManager.eventsDispatched.WithLabelValues(kind).Inc()
}

// RecordEventDropped increments the dropped-event counter.
func RecordEventDropped() {
	globalManager.eventsDropped.Inc()
}

// UpdateQueueSize sets the current queue size gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio gauge.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueTotal.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueTotal.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the active worker gauge.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateTotalTeams sets the total team gauge.
func UpdateTotalTeams(count int) {
	globalManager.totalTeams.Set(float64(count))
}

// UpdateActiveTeams sets the active team gauge.
func UpdateActiveTeams(count int) {
	globalManager.activeTeams.Set(float64(count))
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPRateLimited increments the rate-limited request counter.
func RecordHTTPRateLimited() {
	globalManager.httpRateLimited.Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
