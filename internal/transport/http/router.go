// Package httptransport composes the HTTP surface: shared middleware, health
// and metrics endpoints, and the public and authenticated route groups.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"claimdesk/internal/admin"
	authhandler "claimdesk/internal/auth/handler"
	claimhandler "claimdesk/internal/claim/handler"
	"claimdesk/internal/platform/metrics"
	"claimdesk/internal/platform/middleware"
	policyhandler "claimdesk/internal/policy/handler"
	"claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/httputil"
)

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// Deps is everything the router mounts. Nil handlers are skipped.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	HealthChecks   map[string]HealthCheck

	// Authenticate is RequireAuth configured with the token validator and principal loader.
	Authenticate func(http.Handler) http.Handler

	Auth     *authhandler.Handler
	Policies *policyhandler.Handler
	Claims   *claimhandler.Handler
	Admin    *admin.Handler
}

const healthTimeout = 2 * time.Second

// NewRouter wires every endpoint behind the shared middleware chain.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(d.Logger, d.Metrics))
	r.Use(middleware.Recovery(d.Logger))
	if d.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(d.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no such route"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{Error: "method_not_allowed"})
	})

	r.Get("/healthz", healthHandler(d.HealthChecks))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	if d.Auth != nil {
		d.Auth.RegisterPublic(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(d.Authenticate)
		if d.Auth != nil {
			d.Auth.RegisterProtected(r)
		}
		if d.Policies != nil {
			d.Policies.Register(r)
		}
		if d.Claims != nil {
			d.Claims.Register(r)
		}
		if d.Admin != nil {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(d.Logger, domain.RoleAdmin))
				d.Admin.Register(r)
			})
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler reports 503 when any check fails. Checks run in name order.
func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
		}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Status = "unavailable"
				resp.Checks[name] = "down"
				continue
			}
			resp.Checks[name] = "up"
		}
		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
