// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file, and environment variables.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of event dispatch workers.
	WorkerCount int `koanf:"worker_count"`

	// CacheMaxEntries caps the snapshot cache before LRU eviction kicks in.
	CacheMaxEntries int `koanf:"cache_max_entries"`

	// StaleSweepIntervalMS is how often the cache removes stale entries.
	StaleSweepIntervalMS int `koanf:"stale_sweep_interval_ms"`

	// QuickIntervalMS throttles per-team snapshot refreshes.
	QuickIntervalMS int `koanf:"quick_interval_ms"`

	// FullIntervalMS throttles whole-dashboard refreshes.
	FullIntervalMS int `koanf:"full_interval_ms"`

	// SignificanceThreshold bounds the standard error under which a
	// correlation matrix counts as significant.
	SignificanceThreshold float64 `koanf:"significance_threshold"`

	// ShardCount configures the number of shards in the history store.
	ShardCount int `koanf:"shard_count"`

	// RateLimitRPS and RateLimitBurst bound per-client HTTP traffic.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		EventQueueSize:        100_000,
		WorkerCount:           runtime.NumCPU() * 4,
		CacheMaxEntries:       4_096,
		StaleSweepIntervalMS:  60_000,
		QuickIntervalMS:       2_000,
		FullIntervalMS:        10_000,
		SignificanceThreshold: 0.15,
		ShardCount:            16,
		RateLimitRPS:          50,
		RateLimitBurst:        100,
	}
}
