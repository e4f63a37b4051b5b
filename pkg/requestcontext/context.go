// Package requestcontext carries request-scoped values from HTTP middleware to
// services without services importing net/http. Every getter returns the zero
// value when the key was never set, so background callers need no setup.
package requestcontext

import (
	"context"
	"time"

	"claimdesk/pkg/domain"
)

type key int

const (
	principalKey key = iota
	tokenKey
	requestIDKey
	requestTimeKey
)

// token is the access token that authenticated the request.
type token struct {
	id        string
	expiresAt time.Time
}

func value[T any](ctx context.Context, k key) T {
	v, _ := ctx.Value(k).(T)
	return v
}

// Principal is the authenticated caller, or the zero Principal.
func Principal(ctx context.Context) domain.Principal {
	return value[domain.Principal](ctx, principalKey)
}

func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// TokenID is the jti of the presented access token. Logout revokes it.
func TokenID(ctx context.Context) string {
	return value[token](ctx, tokenKey).id
}

// TokenExpiry bounds how long a revocation of TokenID must be remembered.
func TokenExpiry(ctx context.Context) time.Time {
	return value[token](ctx, tokenKey).expiresAt
}

func WithToken(ctx context.Context, jti string, expiresAt time.Time) context.Context {
	return context.WithValue(ctx, tokenKey, token{id: jti, expiresAt: expiresAt})
}

func RequestID(ctx context.Context) string {
	return value[string](ctx, requestIDKey)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// Now is the time the request arrived. Outside a request it is time.Now, so
// seeding and tests without WithTime still get a clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}
