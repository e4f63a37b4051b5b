package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"CLAIMDESK_ADDR", "APP_ENV", "DATABASE_URL", "REDIS_URL", "JWT_SIGNING_KEY", "CLAIM_MAX_REOPENS", "STORE_TIMEOUT", "TOKEN_TTL", "DATABASE_DRIVER", "LOGIN_MAX_FAILURES", "LOGIN_FAILURE_WINDOW", "LOGIN_LOCKOUT"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 3*time.Second, cfg.Database.StoreTimeout)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 1, cfg.Claims.MaxReopens)
	assert.Equal(t, 5, cfg.Auth.LoginMaxFailures)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LoginLockout)
	assert.Equal(t, devSigningKey, cfg.Auth.JWTSigningKey)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.Admin.Enabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CLAIMDESK_ADDR", ":9090")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("CLAIM_MAX_REOPENS", "-1")
	t.Setenv("BOOTSTRAP_ADMIN_USERNAME", "root")
	t.Setenv("BOOTSTRAP_ADMIN_PASSWORD", "correct-horse")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 750*time.Millisecond, cfg.Database.StoreTimeout)
	assert.Equal(t, -1, cfg.Claims.MaxReopens)
	assert.True(t, cfg.Admin.Enabled())
}

func TestFromEnv_CollectsAllErrors(t *testing.T) {
	t.Setenv("STORE_TIMEOUT", "soon")
	t.Setenv("CLAIM_MAX_REOPENS", "many")
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_TIMEOUT")
	assert.Contains(t, err.Error(), "CLAIM_MAX_REOPENS")
	assert.Contains(t, err.Error(), "DATABASE_DRIVER")
}

func TestFromEnv_LoginLockout(t *testing.T) {
	t.Setenv("LOGIN_MAX_FAILURES", "0")
	t.Setenv("LOGIN_LOCKOUT", "0s")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Zero(t, cfg.Auth.LoginMaxFailures)

	t.Setenv("LOGIN_MAX_FAILURES", "3")
	_, err = FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOGIN_LOCKOUT")
}

func TestFromEnv_ProductionRequiresSigningKey(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CLAIMDESK_TEST_ONLY=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("CLAIMDESK_TEST_ONLY") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("CLAIMDESK_TEST_ONLY"))

	require.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}
