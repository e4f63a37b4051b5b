package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimdesk/internal/access"
	"claimdesk/internal/auth/password"
	"claimdesk/internal/auth/service"
	"claimdesk/internal/auth/store/revocation"
	"claimdesk/internal/auth/store/user"
	jwttoken "claimdesk/internal/jwt_token"
	"claimdesk/internal/platform/logger"
	"claimdesk/internal/platform/middleware"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/testutil"
)

type authFixture struct {
	router http.Handler
	users  *user.InMemoryUserStore
	svc    *service.Service
}

func newAuthRouter(t *testing.T) *authFixture {
	t.Helper()
	log := logger.Discard()
	users := user.New()
	jwt := jwttoken.NewJWTService("test-signing-key-0123456789abcdef", "claimdesk", "claimdesk-api")
	svc := service.New(users, jwt, revocation.NewInMemoryTRL(), access.NewGuard(), time.Hour,
		service.WithLogger(log),
		service.WithHasher(password.NewHasher(password.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})),
	)
	h := New(svc, log)

	r := chi.NewRouter()
	h.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwttoken.NewJWTServiceAdapter(jwt), svc, svc, log))
		h.RegisterProtected(r)
	})
	return &authFixture{router: r, users: users, svc: svc}
}

func (f *authFixture) login(t *testing.T, username, pw string) string {
	t.Helper()
	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
		map[string]string{"username": username, "password": pw}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := testutil.UnmarshalResponse[LoginResponse](t, rr)
	return resp.Token
}

func (f *authFixture) register(t *testing.T, username string) {
	t.Helper()
	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register",
		map[string]string{"username": username, "email": username + "@example.com", "password": "correct horse"}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestRegister(t *testing.T) {
	f := newAuthRouter(t)

	testutil.Given(t, "a new username", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register",
			map[string]string{"username": "ana", "email": "ana@example.com", "password": "correct horse"}))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[RegisterResponse](t, rr)
		assert.Equal(t, domain.UserID(1), resp.UserID)
	})

	testutil.Given(t, "the same username in another case", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register",
			map[string]string{"username": "ANA", "email": "imposter@example.com", "password": "correct horse"}))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "duplicate_key")

		u, err := f.users.FindByUsername(context.Background(), "ana")
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", u.Email)
	})

	testutil.Given(t, "an unknown field", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register",
			map[string]string{"username": "ben", "email": "ben@example.com", "password": "correct horse", "role": "admin"}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
		_, err := f.users.FindByUsername(context.Background(), "ben")
		require.Error(t, err)
	})

	testutil.Given(t, "a short password", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register",
			map[string]string{"username": "ben", "email": "ben@example.com", "password": "short"}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}

func TestLogin(t *testing.T) {
	f := newAuthRouter(t)
	f.register(t, "ana")

	testutil.When(t, "credentials are correct", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"username": "ana", "password": "correct horse"}))
		testutil.AssertStatusOK(t, rr)
		assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
		resp := testutil.UnmarshalResponse[LoginResponse](t, rr)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Equal(t, int64(3600), resp.ExpiresIn)
	})

	testutil.When(t, "the password is wrong", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"username": "ana", "password": "wrong horse"}))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "invalid_credentials")
	})

	testutil.When(t, "the user does not exist", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"username": "ghost", "password": "correct horse"}))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "invalid_credentials")
	})
}

func TestMeAndLogout(t *testing.T) {
	f := newAuthRouter(t)
	f.register(t, "ana")
	token := f.login(t, "ana", "correct horse")

	authed := func(method, path string) *http.Request {
		return testutil.WithBearer(testutil.NewRequest(t, method, path), token)
	}

	rr := testutil.DoRequest(f.router, authed(http.MethodGet, "/auth/me"))
	testutil.AssertStatusOK(t, rr)
	me := testutil.UnmarshalResponse[UserResponse](t, rr)
	assert.Equal(t, "ana", me.Username)
	assert.Equal(t, domain.RolePolicyholder, me.Role)
	assert.NotContains(t, rr.Body.String(), "argon2id")

	rr = testutil.DoRequest(f.router, authed(http.MethodPost, "/auth/logout"))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = testutil.DoRequest(f.router, authed(http.MethodGet, "/auth/me"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestMe_RequiresToken(t *testing.T) {
	f := newAuthRouter(t)
	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/auth/me"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestMe_DisabledUserLosesAccess(t *testing.T) {
	f := newAuthRouter(t)
	f.register(t, "ana")
	token := f.login(t, "ana", "correct horse")

	require.NoError(t, f.users.Disable(context.Background(), 1, time.Now()))

	rr := testutil.DoRequest(f.router, testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/auth/me"), token))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}
