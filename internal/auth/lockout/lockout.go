// Package lockout throttles password guessing. Each username gets a failure
// counter that lives for one window; reaching the limit locks the name out for
// a fixed period. A successful login clears both.
package lockout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"claimdesk/internal/platform/metrics"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/requestcontext"
)

// Config tunes the limiter. MaxFailures <= 0 disables it.
type Config struct {
	MaxFailures  int
	Window       time.Duration
	LockDuration time.Duration
}

var DefaultConfig = Config{
	MaxFailures:  5,
	Window:       15 * time.Minute,
	LockDuration: 15 * time.Minute,
}

// Store keeps counters and locks. Implementations expire both on their own.
type Store interface {
	// RecordFailure bumps key's counter, opening a window when none is open,
	// and returns the count inside the current window.
	RecordFailure(ctx context.Context, key string, window time.Duration) (int, error)
	Lock(ctx context.Context, key string, d time.Duration) error
	// LockedFor returns the remaining lock time, zero when key is not locked.
	LockedFor(ctx context.Context, key string) (time.Duration, error)
	Clear(ctx context.Context, key string) error
}

// Limiter is safe to use as a nil pointer, which disables throttling.
type Limiter struct {
	store   Store
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// New returns nil when cfg disables throttling.
func New(store Store, cfg Config, opts ...Option) *Limiter {
	if cfg.MaxFailures <= 0 || store == nil {
		return nil
	}
	l := &Limiter{store: store, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func key(username string) string {
	return "login:" + strings.ToLower(strings.TrimSpace(username))
}

// Check fails with CodeRateLimited while username is locked. Store errors fail open.
func (l *Limiter) Check(ctx context.Context, username string) error {
	if l == nil {
		return nil
	}
	remaining, err := l.store.LockedFor(ctx, key(username))
	if err != nil {
		l.storeFailed(ctx, "check", err)
		return nil
	}
	if remaining <= 0 {
		return nil
	}
	secs := int(remaining.Round(time.Second) / time.Second)
	return dErrors.New(dErrors.CodeRateLimited,
		fmt.Sprintf("too many failed logins, retry in %d seconds", max(secs, 1)))
}

// RecordFailure counts one failed attempt and locks username once the limit is hit.
func (l *Limiter) RecordFailure(ctx context.Context, username string) {
	if l == nil {
		return
	}
	k := key(username)
	n, err := l.store.RecordFailure(ctx, k, l.cfg.Window)
	if err != nil {
		l.storeFailed(ctx, "record", err)
		return
	}
	if n < l.cfg.MaxFailures {
		return
	}
	if err := l.store.Lock(ctx, k, l.cfg.LockDuration); err != nil {
		l.storeFailed(ctx, "lock", err)
		return
	}
	l.metrics.IncrementLoginLockouts()
	l.logger.WarnContext(ctx, "login locked out",
		"request_id", requestcontext.RequestID(ctx),
		"failures", n,
		"lock_duration", l.cfg.LockDuration,
	)
}

// Clear forgets username's failures after a successful login.
func (l *Limiter) Clear(ctx context.Context, username string) {
	if l == nil {
		return
	}
	if err := l.store.Clear(ctx, key(username)); err != nil {
		l.storeFailed(ctx, "clear", err)
	}
}

func (l *Limiter) storeFailed(ctx context.Context, op string, err error) {
	l.logger.ErrorContext(ctx, "login lockout store failed",
		"request_id", requestcontext.RequestID(ctx),
		"op", op,
		"error", err,
	)
}
