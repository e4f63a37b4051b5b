package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,PolicyReader,Transitioner

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"claimdesk/internal/access"
	"claimdesk/internal/claim/models"
	"claimdesk/internal/platform/metrics"
	policymodels "claimdesk/internal/policy/models"
	"claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/requestcontext"
)

// Store persists claims and their comments. Status changes go through the lifecycle manager.
type Store interface {
	Create(ctx context.Context, c *models.Claim) error
	FindByID(ctx context.Context, id domain.ClaimID) (*models.Claim, error)
	ListByUser(ctx context.Context, userID domain.UserID) ([]*models.Claim, error)
	ListByStatus(ctx context.Context, statuses []models.Status) ([]*models.Claim, error)
	ListTransitions(ctx context.Context, id domain.ClaimID) ([]*models.Transition, error)
	AddComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, id domain.ClaimID) ([]*models.Comment, error)
}

// PolicyReader resolves the policy a claim is filed against.
type PolicyReader interface {
	FindByID(ctx context.Context, id domain.PolicyID) (*policymodels.Policy, error)
}

// Transitioner applies status changes. lifecycle.Manager implements it.
type Transitioner interface {
	Transition(ctx context.Context, c *models.Claim, requested models.Status, actor domain.Principal, note string) (*models.Claim, *models.Transition, error)
}

// DefaultQueue is what reviewers see when they do not filter by status.
var DefaultQueue = []models.Status{models.StatusPending, models.StatusUnderReview, models.StatusReopened}

// Service orchestrates claim submission, lookup, review and comments.
type Service struct {
	store     Store
	policies  PolicyReader
	lifecycle Transitioner
	guard     *access.Guard
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(store Store, policies PolicyReader, lifecycle Transitioner, guard *access.Guard, opts ...Option) *Service {
	s := &Service{
		store:     store,
		policies:  policies,
		lifecycle: lifecycle,
		guard:     guard,
		logger:    slog.Default(),
		tracer:    otel.Tracer("claimdesk/claim/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit files a Pending claim for req.UserID. The policy must exist, belong to
// the claimant if it is owned, and cover the claimed amount. The store repeats
// the coverage check atomically with the insert.
func (s *Service) Submit(ctx context.Context, actor domain.Principal, req *models.SubmitClaimRequest) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "claim.Submit", trace.WithAttributes(
		attribute.Int64("claim.user_id", int64(req.UserID)),
		attribute.Int64("claim.policy_id", int64(req.PolicyID)),
	))
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(actor, access.ActionSubmitClaim, access.OwnedBy(req.UserID)); err != nil {
		return nil, err
	}

	policy, err := s.policies.FindByID(ctx, req.PolicyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeDanglingReference, "policy does not exist")
		}
		return nil, storeError(err, "failed to load policy")
	}
	if !policy.Covers(req.UserID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "policy belongs to another user")
	}
	if req.Amount != nil && *req.Amount > policy.Coverage {
		return nil, dErrors.New(dErrors.CodeValidation, "amount exceeds policy coverage of "+policy.Coverage.String())
	}

	c := models.NewClaim(req.UserID, req.PolicyID, req.Description, req.Amount, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, c); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrDanglingReference):
			return nil, dErrors.New(dErrors.CodeDanglingReference, "user or policy does not exist")
		case errors.Is(err, sentinel.ErrInvalidState):
			// coverage was lowered after the check above
			return nil, dErrors.New(dErrors.CodeValidation, "amount exceeds policy coverage")
		}
		return nil, storeError(err, "failed to create claim")
	}

	span.SetAttributes(attribute.Int64("claim.id", int64(c.ID)))
	s.logger.InfoContext(ctx, "claim submitted",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID,
		"user_id", c.UserID,
		"claim_id", c.ID,
		"policy_id", c.PolicyID,
	)
	s.metrics.IncrementClaimsSubmitted()
	return c, nil
}

// ListForUser returns userID's claims.
func (s *Service) ListForUser(ctx context.Context, actor domain.Principal, userID domain.UserID) ([]*models.Claim, error) {
	if err := s.guard.Authorize(actor, access.ActionListClaims, access.OwnedBy(userID)); err != nil {
		return nil, err
	}
	claims, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "failed to list claims")
	}
	return claims, nil
}

// Get returns a claim with its history and comments.
func (s *Service) Get(ctx context.Context, actor domain.Principal, id domain.ClaimID) (*models.Detail, error) {
	ctx, span := s.tracer.Start(ctx, "claim.Get", trace.WithAttributes(attribute.Int64("claim.id", int64(id))))
	defer span.End()

	c, err := s.load(ctx, actor, id, access.ActionViewClaim)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListTransitions(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load claim history")
	}
	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load claim comments")
	}
	return &models.Detail{Claim: c, Transitions: history, Comments: comments}, nil
}

// Transition moves a claim to req.RequestedStatus. When req.ExpectedStatus is set
// and the claim has already moved on, the request fails as stale before any write.
func (s *Service) Transition(ctx context.Context, actor domain.Principal, id domain.ClaimID, req *models.TransitionRequest) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "claim.Transition", trace.WithAttributes(
		attribute.Int64("claim.id", int64(id)),
		attribute.String("claim.requested", string(req.RequestedStatus)),
	))
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.load(ctx, actor, id, access.ActionTransitionClaim)
	if err != nil {
		return nil, err
	}
	if req.ExpectedStatus != nil && *req.ExpectedStatus != c.Status {
		return nil, dErrors.New(dErrors.CodeStaleState,
			"claim is "+string(c.Status)+", not "+string(*req.ExpectedStatus))
	}

	next, _, err := s.lifecycle.Transition(ctx, c, req.RequestedStatus, actor, req.Note)
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Comment attaches a remark to a claim. Anyone who may view the claim may comment.
func (s *Service) Comment(ctx context.Context, actor domain.Principal, id domain.ClaimID, req *models.CommentRequest) (*models.Comment, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, actor, id, access.ActionCommentClaim); err != nil {
		return nil, err
	}

	comment := models.NewComment(id, actor, req.Body, requestcontext.Now(ctx))
	if err := s.store.AddComment(ctx, comment); err != nil {
		if errors.Is(err, sentinel.ErrDanglingReference) {
			return nil, dErrors.New(dErrors.CodeDanglingReference, "claim or author no longer exists")
		}
		return nil, storeError(err, "failed to add comment")
	}

	s.logger.InfoContext(ctx, "claim comment added",
		"request_id", requestcontext.RequestID(ctx),
		"claim_id", id,
		"author_id", actor.ID,
	)
	return comment, nil
}

// Queue lists claims awaiting review. Empty statuses means DefaultQueue.
func (s *Service) Queue(ctx context.Context, actor domain.Principal, statuses []models.Status) ([]*models.Claim, error) {
	if err := s.guard.Authorize(actor, access.ActionReviewQueue, access.Target{}); err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		statuses = DefaultQueue
	}
	claims, err := s.store.ListByStatus(ctx, statuses)
	if err != nil {
		return nil, storeError(err, "failed to list review queue")
	}
	return claims, nil
}

// load fetches a claim and authorizes action against its owner.
func (s *Service) load(ctx context.Context, actor domain.Principal, id domain.ClaimID, action access.Action) (*models.Claim, error) {
	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load claim")
	}
	if err := s.guard.Authorize(actor, action, access.OwnedBy(c.UserID)); err != nil {
		s.logger.WarnContext(ctx, "claim access denied",
			"request_id", requestcontext.RequestID(ctx),
			"claim_id", id,
			"actor_id", actor.ID,
			"action", action,
		)
		return nil, err
	}
	return c, nil
}

func storeError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "claim not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
