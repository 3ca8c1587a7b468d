package service

import (
	"time"

	"github.com/attunehq/attune/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of event dispatch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCacheMaxEntries caps the snapshot cache.
func WithCacheMaxEntries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheMaxEntries = n
		}
	}
}

// WithShardCount sets the history store's shard count.
func WithShardCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithStaleSweepInterval sets how often stale cache entries are reclaimed.
// Zero disables the sweeper.
func WithStaleSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.staleSweepInterval = d
		}
	}
}

// WithIntervals sets the quick and full refresh intervals.
func WithIntervals(quick, full time.Duration) Option {
	return func(s *Service) {
		if quick > 0 {
			s.quickInterval = quick
		}
		if full > 0 {
			s.fullInterval = full
		}
	}
}

// WithSignificanceThreshold sets the correlation significance bound.
func WithSignificanceThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.significanceThreshold = threshold
		}
	}
}

// WithPublisher sets the hook invoked with every dashboard installed by a
// signaled full refresh. Must be set before Start.
func WithPublisher(publish func(any)) Option {
	return func(s *Service) {
		s.publish = publish
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
