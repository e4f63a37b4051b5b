package admin

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimdesk/internal/access"
	authmodels "claimdesk/internal/auth/models"
	"claimdesk/internal/auth/password"
	"claimdesk/internal/auth/service"
	"claimdesk/internal/auth/store/revocation"
	"claimdesk/internal/auth/store/user"
	jwttoken "claimdesk/internal/jwt_token"
	"claimdesk/internal/platform/logger"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/testutil"
)

func newAdminRouter(t *testing.T) (http.Handler, *user.InMemoryUserStore) {
	t.Helper()
	log := logger.Discard()
	users := user.New()
	svc := service.New(users,
		jwttoken.NewJWTService("test-signing-key-0123456789abcdef", "claimdesk", "claimdesk-api"),
		revocation.NewInMemoryTRL(), access.NewGuard(), time.Hour,
		service.WithLogger(log),
		service.WithHasher(password.NewHasher(password.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})),
	)
	for _, name := range []string{"root", "ana"} {
		_, err := svc.Register(context.Background(), &authmodels.RegisterRequest{
			Username: name, Email: name + "@example.com", Password: "correct horse",
		})
		require.NoError(t, err)
	}
	require.NoError(t, users.UpdateRole(context.Background(), 1, domain.RoleAdmin, time.Now()))

	r := chi.NewRouter()
	New(svc, log).Register(r)
	return r, users
}

func as(req *http.Request, p domain.Principal) *http.Request {
	return testutil.WithPrincipal(req, p)
}

func TestSetRole(t *testing.T) {
	router, users := newAdminRouter(t)
	root := testutil.Admin(1)

	testutil.When(t, "an admin promotes a policyholder", func(t *testing.T) {
		rr := testutil.DoRequest(router, as(testutil.NewRequestWithBody(t, http.MethodPost,
			"/admin/users/2/role", `{"role":"Adjuster"}`), root))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[UserResponse](t, rr)
		assert.Equal(t, domain.RoleAdjuster, resp.Role)
		assert.Equal(t, "ana", resp.Username)
		assert.NotContains(t, rr.Body.String(), "argon2id")

		u, err := users.FindByID(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdjuster, u.Role)
	})

	tests := []struct {
		name      string
		principal domain.Principal
		path      string
		body      string
		status    int
		code      string
	}{
		{"non-admin", testutil.Adjuster(2), "/admin/users/2/role", `{"role":"admin"}`, http.StatusForbidden, "forbidden"},
		{"unknown role", root, "/admin/users/2/role", `{"role":"superuser"}`, http.StatusBadRequest, "validation_error"},
		{"missing role", root, "/admin/users/2/role", `{}`, http.StatusBadRequest, "validation_error"},
		{"self demotion", root, "/admin/users/1/role", `{"role":"policyholder"}`, http.StatusBadRequest, "validation_error"},
		{"unknown user", root, "/admin/users/99/role", `{"role":"adjuster"}`, http.StatusNotFound, "not_found"},
		{"bad id", root, "/admin/users/zero/role", `{"role":"adjuster"}`, http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := testutil.DoRequest(router, as(testutil.NewRequestWithBody(t, http.MethodPost, tt.path, tt.body), tt.principal))
			testutil.AssertStatusAndError(t, rr, tt.status, tt.code)
		})
	}
}

func TestDisable(t *testing.T) {
	router, users := newAdminRouter(t)
	root := testutil.Admin(1)

	rr := testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodPost, "/admin/users/2/disable"), testutil.Policyholder(2)))
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

	rr = testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodPost, "/admin/users/2/disable"), root))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	u, err := users.FindByID(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, u.IsDisabled())

	rr = testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodPost, "/admin/users/1/disable"), root))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodPost, "/admin/users/99/disable"), root))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestListUsers(t *testing.T) {
	router, users := newAdminRouter(t)
	root := testutil.Admin(1)
	require.NoError(t, users.Disable(context.Background(), 2, time.Now()))

	testutil.When(t, "an admin lists accounts", func(t *testing.T) {
		rr := testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodGet, "/admin/users"), root))
		testutil.AssertStatusOK(t, rr)
		assert.NotContains(t, rr.Body.String(), "argon2id")

		resp := *testutil.UnmarshalResponse[[]UserResponse](t, rr)
		require.Len(t, resp, 2)
		assert.Equal(t, "root", resp[0].Username)
		assert.Equal(t, domain.RoleAdmin, resp[0].Role)
		assert.False(t, resp[0].Disabled)
		assert.Equal(t, "ana", resp[1].Username)
		assert.True(t, resp[1].Disabled)
	})

	testutil.When(t, "staff without admin rights ask", func(t *testing.T) {
		rr := testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodGet, "/admin/users"), testutil.Adjuster(2)))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})
}

func TestEnable(t *testing.T) {
	router, users := newAdminRouter(t)
	root := testutil.Admin(1)

	rr := testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodPost, "/admin/users/2/disable"), root))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodPost, "/admin/users/2/enable"), testutil.Policyholder(2)))
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

	rr = testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodPost, "/admin/users/2/enable"), root))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	u, err := users.FindByID(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, u.IsDisabled())
	assert.Nil(t, u.DisabledAt)

	rr = testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodPost, "/admin/users/99/enable"), root))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}
