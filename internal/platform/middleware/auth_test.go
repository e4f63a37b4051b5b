package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

type stubRevocations struct {
	revoked bool
	err     error
}

func (s stubRevocations) IsTokenRevoked(context.Context, string) (bool, error) {
	return s.revoked, s.err
}

type stubLoader struct {
	principal domain.Principal
	err       error
}

func (s stubLoader) LoadPrincipal(context.Context, domain.UserID) (domain.Principal, error) {
	return s.principal, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireAuth(t *testing.T) {
	validClaims := &JWTClaims{UserID: 7, JTI: "jti-7", ExpiresAt: time.Now().Add(time.Hour)}
	holder := domain.Principal{ID: 7, Username: "ana", Role: domain.RolePolicyholder}

	tests := []struct {
		name       string
		header     string
		validator  stubValidator
		revocation stubRevocations
		loader     stubLoader
		wantStatus int
		wantCode   string
	}{
		{"missing header", "", stubValidator{claims: validClaims}, stubRevocations{}, stubLoader{principal: holder}, http.StatusUnauthorized, "unauthorized"},
		{"wrong scheme", "Basic abc", stubValidator{claims: validClaims}, stubRevocations{}, stubLoader{principal: holder}, http.StatusUnauthorized, "unauthorized"},
		{"invalid token", "Bearer bad", stubValidator{err: errors.New("bad signature")}, stubRevocations{}, stubLoader{principal: holder}, http.StatusUnauthorized, "unauthorized"},
		{"revoked token", "Bearer ok", stubValidator{claims: validClaims}, stubRevocations{revoked: true}, stubLoader{principal: holder}, http.StatusUnauthorized, "unauthorized"},
		{"revocation store down", "Bearer ok", stubValidator{claims: validClaims}, stubRevocations{err: errors.New("dial tcp")}, stubLoader{principal: holder}, http.StatusServiceUnavailable, "storage_unavailable"},
		{"unknown subject", "Bearer ok", stubValidator{claims: validClaims}, stubRevocations{}, stubLoader{err: dErrors.New(dErrors.CodeNotFound, "user not found")}, http.StatusUnauthorized, "unauthorized"},
		{"disabled account", "Bearer ok", stubValidator{claims: validClaims}, stubRevocations{}, stubLoader{principal: domain.Principal{ID: 7, Role: domain.RoleAdmin, Disabled: true}}, http.StatusUnauthorized, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
			h := RequireAuth(tt.validator, tt.revocation, tt.loader, discardLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/claim/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.False(t, called)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantCode)
		})
	}

	t.Run("valid token injects principal and token", func(t *testing.T) {
		var got domain.Principal
		var jti string
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got = requestcontext.Principal(r.Context())
			jti = requestcontext.TokenID(r.Context())
		})
		h := RequireAuth(stubValidator{claims: validClaims}, stubRevocations{}, stubLoader{principal: holder}, discardLogger())(next)

		req := httptest.NewRequest(http.MethodGet, "/claim/1", nil)
		req.Header.Set("Authorization", "Bearer ok")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, holder, got)
		assert.Equal(t, "jti-7", jti)
	})
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireRole(discardLogger(), domain.RoleAdmin)(next)

	serve := func(p domain.Principal) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/users/2/disable", nil)
		req = req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusNoContent, serve(domain.Principal{ID: 1, Role: domain.RoleAdmin}).Code)
	assert.Equal(t, http.StatusForbidden, serve(domain.Principal{ID: 2, Role: domain.RoleAdjuster}).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(domain.Principal{}).Code)
}
