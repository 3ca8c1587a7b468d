package cache

import "time"

// Default cache configuration constants.
const (
	defaultMaxEntries = 1024
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithMaxEntries bounds the number of entries before LRU eviction kicks in.
// Zero or negative leaves the cache unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// WithSweepInterval enables the background stale-entry sweeper. A zero or
// negative interval disables it; stale entries then live until overwritten,
// evicted, or cleared.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Cache) {
		c.sweepInterval = d
	}
}

// WithClock overrides the time source for entry write stamps. Used in tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}
