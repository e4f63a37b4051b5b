// Package revocation remembers logged-out token ids until the token would have
// expired anyway. Three backends share one contract: Redis for multi-instance
// deployments, PostgreSQL when only a database is configured, and memory.
package revocation

import (
	"fmt"
	"time"

	"claimdesk/internal/platform/metrics"
	"claimdesk/pkg/platform/sentinel"
)

// Clock returns the current time.
type Clock func() time.Time

type settings struct {
	clock   Clock
	metrics *metrics.Metrics
}

// Option configures any of the revocation lists.
type Option func(*settings)

// WithClock pins the clock. Redis ignores it since expiry happens server side.
func WithClock(clock Clock) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetrics records lookup latency per backend.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

func apply(opts []Option) settings {
	s := settings{clock: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s settings) observe(backend string, start time.Time) {
	s.metrics.ObserveRevocationCheck(backend, time.Since(start))
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
