package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
	UsersRegistered     prometheus.Counter
	LoginFailures       prometheus.Counter
	PoliciesCreated     prometheus.Counter
	ClaimsSubmitted     prometheus.Counter
	ClaimTransitions    *prometheus.CounterVec
	RevocationChecks    *prometheus.HistogramVec
	LoginLockouts       prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers metrics on reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claimdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_users_registered_total",
			Help: "Total number of users registered",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_login_failures_total",
			Help: "Total number of rejected login attempts",
		}),
		PoliciesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_policies_created_total",
			Help: "Total number of policies created",
		}),
		ClaimsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_claims_submitted_total",
			Help: "Total number of claims submitted",
		}),
		ClaimTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimdesk_claim_transitions_total",
			Help: "Claim status transition attempts by edge and outcome",
		}, []string{"from", "to", "outcome"}),
		RevocationChecks: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claimdesk_token_revocation_check_seconds",
			Help:    "Latency of token revocation lookups by backend",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .1},
		}, []string{"backend"}),
		LoginLockouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_login_lockouts_total",
			Help: "Usernames locked out after repeated failed logins",
		}),
	}
}

// ObserveHTTPRequest records one request's latency.
func (m *Metrics) ObserveHTTPRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// IncrementUsersRegistered increments the users registered counter by 1
func (m *Metrics) IncrementUsersRegistered() {
	if m == nil {
		return
	}
	m.UsersRegistered.Inc()
}

// IncrementLoginFailures increments the login failures counter by 1
func (m *Metrics) IncrementLoginFailures() {
	if m == nil {
		return
	}
	m.LoginFailures.Inc()
}

// IncrementPoliciesCreated increments the policies created counter by 1
func (m *Metrics) IncrementPoliciesCreated() {
	if m == nil {
		return
	}
	m.PoliciesCreated.Inc()
}

// IncrementClaimsSubmitted increments the claims submitted counter by 1
func (m *Metrics) IncrementClaimsSubmitted() {
	if m == nil {
		return
	}
	m.ClaimsSubmitted.Inc()
}

// RecordTransition counts a transition attempt. outcome is "applied" or an error code.
func (m *Metrics) RecordTransition(from, to, outcome string) {
	if m == nil {
		return
	}
	m.ClaimTransitions.WithLabelValues(from, to, outcome).Inc()
}

// ObserveRevocationCheck records one revocation lookup against backend.
func (m *Metrics) ObserveRevocationCheck(backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.RevocationChecks.WithLabelValues(backend).Observe(d.Seconds())
}

func (m *Metrics) IncrementLoginLockouts() {
	if m == nil {
		return
	}
	m.LoginLockouts.Inc()
}
