package lockout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimdesk/internal/platform/logger"
	"claimdesk/internal/platform/metrics"
	dErrors "claimdesk/pkg/domain-errors"
)

type failingStore struct{}

func (failingStore) RecordFailure(context.Context, string, time.Duration) (int, error) {
	return 0, errors.New("redis: connection refused")
}
func (failingStore) Lock(context.Context, string, time.Duration) error {
	return errors.New("redis: connection refused")
}
func (failingStore) LockedFor(context.Context, string) (time.Duration, error) {
	return 0, errors.New("redis: connection refused")
}
func (failingStore) Clear(context.Context, string) error {
	return errors.New("redis: connection refused")
}

func newClockedLimiter(cfg Config) (*Limiter, *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryStore(WithClock(func() time.Time { return now }))
	return New(store, cfg, WithLogger(logger.Discard())), &now
}

func TestNew_DisabledIsNil(t *testing.T) {
	assert.Nil(t, New(NewInMemoryStore(), Config{MaxFailures: 0}))
	assert.Nil(t, New(nil, DefaultConfig))

	var l *Limiter
	ctx := context.Background()
	assert.NoError(t, l.Check(ctx, "ana"))
	l.RecordFailure(ctx, "ana")
	l.Clear(ctx, "ana")
}

func TestLimiter_LocksAtThreshold(t *testing.T) {
	ctx := context.Background()
	l, _ := newClockedLimiter(Config{MaxFailures: 3, Window: time.Minute, LockDuration: 5 * time.Minute})

	for range 2 {
		l.RecordFailure(ctx, "ana")
	}
	require.NoError(t, l.Check(ctx, "ana"))

	l.RecordFailure(ctx, "ana")
	err := l.Check(ctx, "ana")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
	assert.Equal(t, "too many failed logins, retry in 300 seconds", dErrors.MessageOf(err))

	assert.Error(t, l.Check(ctx, "  ANA "), "usernames are keyed case-insensitively")
	assert.NoError(t, l.Check(ctx, "ben"))
}

func TestLimiter_WindowResets(t *testing.T) {
	ctx := context.Background()
	l, now := newClockedLimiter(Config{MaxFailures: 3, Window: time.Minute, LockDuration: 5 * time.Minute})

	l.RecordFailure(ctx, "ana")
	l.RecordFailure(ctx, "ana")
	*now = now.Add(2 * time.Minute)
	l.RecordFailure(ctx, "ana")

	assert.NoError(t, l.Check(ctx, "ana"))
}

func TestLimiter_LockExpires(t *testing.T) {
	ctx := context.Background()
	l, now := newClockedLimiter(Config{MaxFailures: 1, Window: time.Minute, LockDuration: 5 * time.Minute})

	l.RecordFailure(ctx, "ana")
	require.Error(t, l.Check(ctx, "ana"))

	*now = now.Add(4*time.Minute + 59*time.Second)
	err := l.Check(ctx, "ana")
	require.Error(t, err)
	assert.Equal(t, "too many failed logins, retry in 1 seconds", dErrors.MessageOf(err))

	*now = now.Add(time.Second)
	assert.NoError(t, l.Check(ctx, "ana"))
}

func TestLimiter_ClearForgets(t *testing.T) {
	ctx := context.Background()
	l, _ := newClockedLimiter(Config{MaxFailures: 2, Window: time.Minute, LockDuration: time.Minute})

	l.RecordFailure(ctx, "ana")
	l.Clear(ctx, "ana")
	l.RecordFailure(ctx, "ana")
	assert.NoError(t, l.Check(ctx, "ana"))

	l.RecordFailure(ctx, "ana")
	require.Error(t, l.Check(ctx, "ana"))
	l.Clear(ctx, "ana")
	assert.NoError(t, l.Check(ctx, "ana"))
}

func TestLimiter_StoreErrorsFailOpen(t *testing.T) {
	ctx := context.Background()
	l := New(failingStore{}, DefaultConfig, WithLogger(logger.Discard()))

	l.RecordFailure(ctx, "ana")
	l.Clear(ctx, "ana")
	assert.NoError(t, l.Check(ctx, "ana"))
}

func TestInMemoryStore_DropsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewInMemoryStore(WithClock(func() time.Time { return now }))

	n, err := s.RecordFailure(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	now = now.Add(time.Hour)
	d, err := s.LockedFor(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, d)
	assert.Empty(t, s.entries)
}

func TestLimiter_CountsLockouts(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	l := New(NewInMemoryStore(), Config{MaxFailures: 2, Window: time.Minute, LockDuration: time.Minute},
		WithLogger(logger.Discard()), WithMetrics(m))

	for range 3 {
		l.RecordFailure(ctx, "ana")
	}
	assert.InDelta(t, 2, promtest.ToFloat64(m.LoginLockouts), 0)
}
