package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"claimdesk/internal/access"
	"claimdesk/internal/admin"
	authhandler "claimdesk/internal/auth/handler"
	"claimdesk/internal/auth/lockout"
	authservice "claimdesk/internal/auth/service"
	"claimdesk/internal/auth/store/revocation"
	"claimdesk/internal/auth/store/user"
	claimhandler "claimdesk/internal/claim/handler"
	"claimdesk/internal/claim/lifecycle"
	claimservice "claimdesk/internal/claim/service"
	claimstore "claimdesk/internal/claim/store"
	jwttoken "claimdesk/internal/jwt_token"
	"claimdesk/internal/platform/config"
	"claimdesk/internal/platform/httpserver"
	"claimdesk/internal/platform/logger"
	"claimdesk/internal/platform/metrics"
	"claimdesk/internal/platform/middleware"
	"claimdesk/internal/platform/postgres"
	"claimdesk/internal/platform/redis"
	policyhandler "claimdesk/internal/policy/handler"
	policyservice "claimdesk/internal/policy/service"
	policystore "claimdesk/internal/policy/store"
	httptransport "claimdesk/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "claimdesk: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		addr    string
		envFile string
		migrate bool
	)
	flags := pflag.NewFlagSet("claimdesk", pflag.ContinueOnError)
	flags.StringVar(&addr, "addr", "", "listen address (overrides CLAIMDESK_ADDR)")
	flags.StringVar(&envFile, "env-file", "", "dotenv file to preload (default .env when present)")
	flags.BoolVar(&migrate, "migrate", false, "apply the embedded schema before serving")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := openInfra(ctx, cfg, migrate, log)
	if err != nil {
		return err
	}
	defer infra.close(log)

	router, err := buildRouter(ctx, cfg, infra, log)
	if err != nil {
		return err
	}
	srv := httpserver.New(cfg.Addr, router, cfg.RequestTimeout, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting claimdesk", "addr", cfg.Addr, "env", cfg.Environment, "storage", infra.mode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// infra holds the optional backing services. Nil fields mean in-memory mode.
type infra struct {
	db    *sql.DB
	redis *redis.Client
}

func openInfra(ctx context.Context, cfg config.Server, migrate bool, log *slog.Logger) (*infra, error) {
	in := &infra{}
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		in.db = db
		if migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				in.close(log)
				return nil, err
			}
			log.Info("schema applied")
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.close(log)
		return nil, err
	}
	in.redis = client
	return in, nil
}

func (in *infra) mode() string {
	if in.db != nil {
		return "postgres"
	}
	return "memory"
}

func (in *infra) close(log *slog.Logger) {
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			log.Error("closing redis", "error", err)
		}
	}
	if in.db != nil {
		if err := in.db.Close(); err != nil {
			log.Error("closing database", "error", err)
		}
	}
}

func (in *infra) healthChecks() map[string]httptransport.HealthCheck {
	checks := map[string]httptransport.HealthCheck{}
	if in.db != nil {
		db := in.db
		checks["postgres"] = func(ctx context.Context) error { return postgres.Health(ctx, db) }
	}
	if in.redis != nil {
		checks["redis"] = in.redis.Health
	}
	return checks
}

func (in *infra) revocationList(cfg config.Server, m *metrics.Metrics) authservice.RevocationList {
	switch {
	case in.redis != nil:
		return revocation.NewRedisTRL(in.redis.Client, revocation.WithMetrics(m))
	case in.db != nil:
		return revocation.NewPostgresTRL(in.db, cfg.Database.StoreTimeout, revocation.WithMetrics(m))
	default:
		return revocation.NewInMemoryTRL(revocation.WithMetrics(m))
	}
}

// loginLimiter keeps failure counters in Redis when available so every
// instance sees the same lockouts.
func (in *infra) loginLimiter(cfg config.Server, log *slog.Logger, m *metrics.Metrics) *lockout.Limiter {
	var store lockout.Store = lockout.NewInMemoryStore()
	if in.redis != nil {
		store = lockout.NewRedisStore(in.redis.Client)
	}
	return lockout.New(store, lockout.Config{
		MaxFailures:  cfg.Auth.LoginMaxFailures,
		Window:       cfg.Auth.LoginFailureWindow,
		LockDuration: cfg.Auth.LoginLockout,
	}, lockout.WithLogger(log), lockout.WithMetrics(m))
}

type stores struct {
	users    authservice.UserStore
	policies policyservice.Store
	claims   claimservice.Store
	// lifecycle is the claim store seen through the compare-and-set write.
	lifecycle lifecycle.Store
	// policyReader backs claim submission.
	policyReader claimservice.PolicyReader
}

func (in *infra) stores(cfg config.Server) stores {
	if in.db != nil {
		timeout := cfg.Database.StoreTimeout
		policies := policystore.NewPostgres(in.db, timeout)
		claims := claimstore.NewPostgres(in.db, timeout)
		return stores{
			users:        user.NewPostgres(in.db, timeout),
			policies:     policies,
			claims:       claims,
			lifecycle:    claims,
			policyReader: policies,
		}
	}
	users := user.New()
	policies := policystore.NewInMemory(users)
	claims := claimstore.NewInMemory(users, policies)
	policies.UseReferenceChecker(claims)
	return stores{
		users:        users,
		policies:     policies,
		claims:       claims,
		lifecycle:    claims,
		policyReader: policies,
	}
}

func buildRouter(ctx context.Context, cfg config.Server, in *infra, log *slog.Logger) (http.Handler, error) {
	m := metrics.New()
	guard := access.NewGuard()
	st := in.stores(cfg)

	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	auth := authservice.New(st.users, jwt, in.revocationList(cfg, m), guard, cfg.Auth.TokenTTL,
		authservice.WithLogger(log),
		authservice.WithMetrics(m),
		authservice.WithLockout(in.loginLimiter(cfg, log, m)),
	)
	if cfg.Admin.Enabled() {
		u, created, err := auth.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		log.Info("bootstrap admin ready", "user_id", u.ID, "created", created)
	}

	manager := lifecycle.New(st.lifecycle, cfg.Claims.MaxReopens,
		lifecycle.WithLogger(log),
		lifecycle.WithMetrics(m),
	)
	policies := policyservice.New(st.policies, guard,
		policyservice.WithLogger(log),
		policyservice.WithMetrics(m),
	)
	claims := claimservice.New(st.claims, st.policyReader, manager, guard,
		claimservice.WithLogger(log),
		claimservice.WithMetrics(m),
	)

	return httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        m,
		Gatherer:       prometheus.DefaultGatherer,
		RequestTimeout: cfg.RequestTimeout,
		HealthChecks:   in.healthChecks(),
		Authenticate:   middleware.RequireAuth(jwttoken.NewJWTServiceAdapter(jwt), auth, auth, log),
		Auth:           authhandler.New(auth, log),
		Policies:       policyhandler.New(policies, log),
		Claims:         claimhandler.New(claims, log),
		Admin:          admin.New(auth, log),
	}), nil
}
