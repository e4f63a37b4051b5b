package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	RequestTimeout time.Duration

	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Claims   ClaimsConfig
	Admin    BootstrapAdmin
}

// DatabaseConfig selects the PostgreSQL backend. An empty URL means in-memory stores.
type DatabaseConfig struct {
	URL          string
	Driver       string
	MaxOpenConns int
	MaxIdleConns int
	StoreTimeout time.Duration
}

// RedisConfig selects the Redis revocation list. An empty URL means in-memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig holds access token settings.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	TokenTTL      time.Duration

	// Failed logins per username before it is locked. 0 disables lockout.
	LoginMaxFailures   int
	LoginFailureWindow time.Duration
	LoginLockout       time.Duration
}

// ClaimsConfig holds lifecycle tunables. MaxReopens < 0 means unlimited.
type ClaimsConfig struct {
	MaxReopens int
}

// BootstrapAdmin seeds the first administrator when all fields are set.
type BootstrapAdmin struct {
	Username string
	Email    string
	Password string
}

// Enabled reports whether an admin should be seeded.
func (b BootstrapAdmin) Enabled() bool {
	return b.Username != "" && b.Password != ""
}

// IsProduction reports whether the process runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

const devSigningKey = "dev-secret-key-change-in-production"

// LoadEnvFile preloads variables from a dotenv file. Variables already present
// in the environment win. A missing default file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []string
	p := parser{errs: &errs}

	cfg := Server{
		Addr:           envOr("CLAIMDESK_ADDR", ":8080"),
		Environment:    strings.ToLower(envOr("APP_ENV", "development")),
		LogLevel:       strings.ToLower(envOr("LOG_LEVEL", "info")),
		RequestTimeout: p.duration("REQUEST_TIMEOUT", 15*time.Second),
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			Driver:       strings.ToLower(envOr("DATABASE_DRIVER", "pgx")),
			MaxOpenConns: p.int("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: p.int("DB_MAX_IDLE_CONNS", 5),
			StoreTimeout: p.duration("STORE_TIMEOUT", 3*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 1),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Auth: AuthConfig{
			JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
			JWTIssuer:     envOr("JWT_ISSUER", "claimdesk"),
			JWTAudience:   envOr("JWT_AUDIENCE", "claimdesk-api"),
			TokenTTL:      p.duration("TOKEN_TTL", time.Hour),

			LoginMaxFailures:   p.int("LOGIN_MAX_FAILURES", 5),
			LoginFailureWindow: p.duration("LOGIN_FAILURE_WINDOW", 15*time.Minute),
			LoginLockout:       p.duration("LOGIN_LOCKOUT", 15*time.Minute),
		},
		Claims: ClaimsConfig{
			MaxReopens: p.int("CLAIM_MAX_REOPENS", 1),
		},
		Admin: BootstrapAdmin{
			Username: strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_USERNAME")),
			Email:    strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
			Password: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
	}

	if cfg.Auth.JWTSigningKey == "" {
		if cfg.IsProduction() {
			errs = append(errs, "JWT_SIGNING_KEY is required in production")
		}
		// production returns the error collected above
		cfg.Auth.JWTSigningKey = devSigningKey
	}
	switch cfg.Database.Driver {
	case "pgx", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("DATABASE_DRIVER must be pgx or postgres, got %q", cfg.Database.Driver))
	}
	if cfg.Auth.TokenTTL <= 0 {
		errs = append(errs, "TOKEN_TTL must be positive")
	}
	if cfg.Auth.LoginMaxFailures > 0 && (cfg.Auth.LoginFailureWindow <= 0 || cfg.Auth.LoginLockout <= 0) {
		errs = append(errs, "LOGIN_FAILURE_WINDOW and LOGIN_LOCKOUT must be positive when LOGIN_MAX_FAILURES is set")
	}
	if cfg.Database.StoreTimeout <= 0 {
		errs = append(errs, "STORE_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return Server{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// parser collects every malformed value so startup reports them together.
type parser struct {
	errs *[]string
}

func (p parser) duration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: invalid duration %q", key, raw))
		return fallback
	}
	return d
}

func (p parser) int(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: invalid integer %q", key, raw))
		return fallback
	}
	return n
}
