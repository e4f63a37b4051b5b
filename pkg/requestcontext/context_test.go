package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"claimdesk/pkg/domain"
)

func TestZeroValuesWhenUnset(t *testing.T) {
	ctx := context.Background()
	assert.True(t, Principal(ctx).IsZero())
	assert.Empty(t, TokenID(ctx))
	assert.True(t, TokenExpiry(ctx).IsZero())
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Minute)
}

func TestRoundTrip(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	p := domain.Principal{ID: 9, Role: domain.RoleAdjuster}

	ctx := WithPrincipal(context.Background(), p)
	ctx = WithToken(ctx, "jti-9", at.Add(time.Hour))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTime(ctx, at)

	assert.Equal(t, p, Principal(ctx))
	assert.Equal(t, "jti-9", TokenID(ctx))
	assert.Equal(t, at.Add(time.Hour), TokenExpiry(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, at, Now(ctx))
}
