package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimdesk/internal/platform/metrics"
	"claimdesk/pkg/platform/sentinel"
)

func TestInMemoryTRL(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	trl := NewInMemoryTRL(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, trl.RevokeToken(ctx, "jti-1", time.Minute))

	revoked, err := trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = trl.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entries lapse with the token")
}

func TestInMemoryTRL_RejectsNonPositiveTTL(t *testing.T) {
	trl := NewInMemoryTRL()
	err := trl.RevokeToken(context.Background(), "jti", 0)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestInMemoryTRL_SweepsExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	trl := NewInMemoryTRL(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, trl.RevokeToken(ctx, "old", time.Second))
	now = now.Add(time.Minute)
	require.NoError(t, trl.RevokeToken(ctx, "new", time.Minute))

	assert.Len(t, trl.revoked, 1)
}

func TestInMemoryTRL_ShorterTTLNeverShortens(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	trl := NewInMemoryTRL(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, trl.RevokeToken(ctx, "jti", time.Hour))
	require.NoError(t, trl.RevokeToken(ctx, "jti", time.Second))
	now = now.Add(time.Minute)

	revoked, err := trl.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestInMemoryTRL_ObservesLookups(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	trl := NewInMemoryTRL(WithMetrics(m))
	ctx := context.Background()

	_, err := trl.IsRevoked(ctx, "a")
	require.NoError(t, err)
	_, err = trl.IsRevoked(ctx, "b")
	require.NoError(t, err)
	_, err = trl.IsRevoked(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(m.RevocationChecks))
	assert.Equal(t, uint64(2), histogramCount(t, m, "memory"))
}

func histogramCount(t *testing.T, m *metrics.Metrics, backend string) uint64 {
	t.Helper()
	var out dto.Metric
	obs, err := m.RevocationChecks.GetMetricWithLabelValues(backend)
	require.NoError(t, err)
	require.NoError(t, obs.(prometheus.Metric).Write(&out))
	return out.GetHistogram().GetSampleCount()
}
