// Package lifecycle owns the claim status state machine.
//
//	Pending -> UnderReview -> Approved | Rejected -> Closed
//	Approved | Rejected -> Reopened -> UnderReview
//
// Staff (adjusters and admins) may take every edge. A policyholder may only
// reopen a rejected claim. Edge legality is decided before the role check, so an
// illegal request is reported as such whoever sends it.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"claimdesk/internal/claim/models"
	"claimdesk/internal/platform/metrics"
	"claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/requestcontext"
)

// edges is the transition graph. Closed has no way out.
var edges = map[models.Status][]models.Status{
	models.StatusPending:     {models.StatusUnderReview},
	models.StatusUnderReview: {models.StatusApproved, models.StatusRejected},
	models.StatusApproved:    {models.StatusClosed, models.StatusReopened},
	models.StatusRejected:    {models.StatusClosed, models.StatusReopened},
	models.StatusReopened:    {models.StatusUnderReview},
}

// IsEdge reports whether from -> to is part of the graph.
func IsEdge(from, to models.Status) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next lists the statuses reachable from from.
func Next(from models.Status) []models.Status {
	return append([]models.Status(nil), edges[from]...)
}

// RoleMayTake reports whether role may move a claim along from -> to.
func RoleMayTake(role domain.Role, from, to models.Status) bool {
	if role.IsStaff() {
		return true
	}
	return role == domain.RolePolicyholder && from == models.StatusRejected && to == models.StatusReopened
}

// UnlimitedReopens disables the reopen cap.
const UnlimitedReopens = -1

// Outcome labels for the transitions metric.
const (
	OutcomeApplied   = "applied"
	OutcomeInvalid   = "invalid"
	OutcomeForbidden = "forbidden"
	OutcomeStale     = "stale"
	OutcomeError     = "error"
)

// Store persists a status change. UpdateStatus must write next only when the
// stored row still has the status and version the caller read, and must append
// t in the same write. A mismatch returns sentinel.ErrStale.
type Store interface {
	UpdateStatus(ctx context.Context, next *models.Claim, expectedStatus models.Status, expectedVersion int64, t *models.Transition) error
}

// Manager validates and applies transitions.
type Manager struct {
	store      Store
	maxReopens int
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) {
		m.tracer = t
	}
}

// New builds a Manager. maxReopens caps how often one claim may be reopened:
// 0 disables reopening and a negative value lifts the cap.
func New(store Store, maxReopens int, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		maxReopens: maxReopens,
		logger:     slog.Default(),
		tracer:     otel.Tracer("claimdesk/claim/lifecycle"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check decides whether actor may move c to requested without touching storage.
func (m *Manager) Check(c *models.Claim, requested models.Status, actor domain.Principal) error {
	if !requested.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown status "+string(requested))
	}
	if !IsEdge(c.Status, requested) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"cannot move claim from "+string(c.Status)+" to "+string(requested))
	}
	if requested == models.StatusReopened && !m.reopenAllowed(c) {
		return dErrors.New(dErrors.CodeInvalidTransition, "claim has reached its reopen limit")
	}
	if actor.Disabled || !RoleMayTake(actor.Role, c.Status, requested) {
		return dErrors.New(dErrors.CodeForbidden,
			"role "+string(actor.Role)+" may not move claim from "+string(c.Status)+" to "+string(requested))
	}
	return nil
}

func (m *Manager) reopenAllowed(c *models.Claim) bool {
	if m.maxReopens < 0 {
		return true
	}
	return c.ReopenCount < m.maxReopens
}

// Transition applies requested to c and persists it with compare-and-set.
// c is left untouched; the stored claim and its history entry are returned.
func (m *Manager) Transition(ctx context.Context, c *models.Claim, requested models.Status, actor domain.Principal, note string) (*models.Claim, *models.Transition, error) {
	ctx, span := m.tracer.Start(ctx, "lifecycle.Transition", trace.WithAttributes(
		attribute.Int64("claim.id", int64(c.ID)),
		attribute.String("claim.from", string(c.Status)),
		attribute.String("claim.to", string(requested)),
		attribute.String("actor.role", string(actor.Role)),
	))
	defer span.End()

	from := c.Status
	if err := m.Check(c, requested, actor); err != nil {
		outcome := OutcomeInvalid
		if dErrors.HasCode(err, dErrors.CodeForbidden) {
			outcome = OutcomeForbidden
		}
		m.record(ctx, span, c, requested, actor, outcome, err)
		return nil, nil, err
	}

	now := requestcontext.Now(ctx)
	next := applyTo(c, requested, now)
	t := &models.Transition{
		ID:         uuid.New(),
		ClaimID:    c.ID,
		From:       from,
		To:         requested,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Note:       note,
		OccurredAt: now,
	}

	if err := m.store.UpdateStatus(ctx, next, from, c.Version, t); err != nil {
		var out error
		outcome := OutcomeError
		switch {
		case errors.Is(err, sentinel.ErrStale):
			outcome = OutcomeStale
			out = dErrors.New(dErrors.CodeStaleState, "claim changed since it was read; reload and retry")
		case errors.Is(err, sentinel.ErrNotFound):
			out = dErrors.New(dErrors.CodeNotFound, "claim not found")
		case errors.Is(err, sentinel.ErrDanglingReference):
			out = dErrors.New(dErrors.CodeDanglingReference, "claim or actor no longer exists")
		case errors.Is(err, sentinel.ErrUnavailable):
			out = dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to persist transition")
		default:
			out = dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist transition")
		}
		m.record(ctx, span, c, requested, actor, outcome, out)
		return nil, nil, out
	}

	m.record(ctx, span, c, requested, actor, OutcomeApplied, nil)
	return next, t, nil
}

// applyTo returns the claim as it will look after moving to status.
func applyTo(c *models.Claim, status models.Status, now time.Time) *models.Claim {
	next := *c
	next.Status = status
	next.Version = c.Version + 1
	next.UpdatedAt = now
	if status == models.StatusReopened {
		next.ReopenCount = c.ReopenCount + 1
	}
	return &next
}

func (m *Manager) record(ctx context.Context, span trace.Span, c *models.Claim, to models.Status, actor domain.Principal, outcome string, err error) {
	m.metrics.RecordTransition(string(c.Status), string(to), outcome)
	span.SetAttributes(attribute.String("claim.outcome", outcome))

	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"claim_id", c.ID,
		"from", c.Status,
		"to", to,
		"actor_id", actor.ID,
		"actor_role", actor.Role,
		"outcome", outcome,
	}
	switch outcome {
	case OutcomeApplied:
		m.logger.InfoContext(ctx, "claim transitioned", attrs...)
	case OutcomeError:
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		m.logger.ErrorContext(ctx, "claim transition failed", append(attrs, "error", err)...)
	default:
		m.logger.WarnContext(ctx, "claim transition rejected", append(attrs, "error", err)...)
	}
}
