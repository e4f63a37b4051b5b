package testutil

import (
	"context"
	"net/http"
	"time"

	"claimdesk/pkg/domain"
	"claimdesk/pkg/requestcontext"
)

// WithPrincipal adds an authenticated principal to the request context.
// This simulates what RequireAuth does for authenticated requests.
func WithPrincipal(req *http.Request, p domain.Principal) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
}

// WithToken adds the presented token's id and expiry, as RequireAuth would.
func WithToken(req *http.Request, jti string, expiresAt time.Time) *http.Request {
	return req.WithContext(requestcontext.WithToken(req.Context(), jti, expiresAt))
}

// WithTime pins the request clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// Policyholder, Adjuster and Admin build principals for handler tests.
func Policyholder(id domain.UserID) domain.Principal {
	return domain.Principal{ID: id, Username: "holder", Role: domain.RolePolicyholder}
}

func Adjuster(id domain.UserID) domain.Principal {
	return domain.Principal{ID: id, Username: "adjuster", Role: domain.RoleAdjuster}
}

func Admin(id domain.UserID) domain.Principal {
	return domain.Principal{ID: id, Username: "admin", Role: domain.RoleAdmin}
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
