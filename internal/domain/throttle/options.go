package throttle

import (
	"time"

	"github.com/attunehq/attune/pkg/logger"
)

// ScopeOption applies a configuration option to a Scope.
type ScopeOption func(*Scope)

// WithCompute sets the default compute used for signaled refreshes.
// A scope without one ignores Signal and only refreshes on RequestUpdate.
func WithCompute(compute ComputeFunc) ScopeOption {
	return func(s *Scope) {
		s.compute = compute
	}
}

// WithPublish sets the broadcast hook invoked with every installed snapshot.
func WithPublish(publish func(any)) ScopeOption {
	return func(s *Scope) {
		s.publish = publish
	}
}

// WithClock overrides the scope's time source. Used in tests.
func WithClock(clock func() time.Time) ScopeOption {
	return func(s *Scope) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the scope.
func WithLogger(l logger.Logger) ScopeOption {
	return func(s *Scope) {
		if l != nil {
			s.logger = l
		}
	}
}
