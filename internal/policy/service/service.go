package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"claimdesk/internal/access"
	"claimdesk/internal/platform/metrics"
	"claimdesk/internal/policy/models"
	"claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/requestcontext"
)

// Store persists policies.
type Store interface {
	Create(ctx context.Context, p *models.Policy) error
	FindByID(ctx context.Context, id domain.PolicyID) (*models.Policy, error)
	List(ctx context.Context) ([]*models.Policy, error)
	UpdateTerms(ctx context.Context, id domain.PolicyID, u models.TermsUpdate, now time.Time) (*models.Policy, error)
}

// Service manages the policy catalog.
type Service struct {
	store   Store
	guard   *access.Guard
	logger  *slog.Logger
	metrics *metrics.Metrics
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

func New(store Store, guard *access.Guard, opts ...Option) *Service {
	s := &Service{
		store:  store,
		guard:  guard,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds a policy. Only admins may create policies.
func (s *Service) Create(ctx context.Context, actor domain.Principal, req *models.CreatePolicyRequest) (*models.Policy, error) {
	if err := s.guard.Authorize(actor, access.ActionCreatePolicy, access.Target{}); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := models.NewPolicy(req.Name, *req.Premium, *req.Coverage, req.Owner(), requestcontext.Now(ctx))
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrDanglingReference) {
			return nil, dErrors.New(dErrors.CodeDanglingReference, "policy owner does not exist")
		}
		return nil, storeError(err, "failed to create policy")
	}

	s.logger.InfoContext(ctx, "policy created",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID,
		"policy_id", p.ID,
		"owner_id", p.OwnerID,
	)
	s.metrics.IncrementPoliciesCreated()
	return p, nil
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context, actor domain.Principal) ([]*models.Policy, error) {
	if err := s.guard.Authorize(actor, access.ActionListPolicies, access.Target{}); err != nil {
		return nil, err
	}
	policies, err := s.store.List(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list policies")
	}
	return policies, nil
}

// Get returns one policy.
func (s *Service) Get(ctx context.Context, actor domain.Principal, id domain.PolicyID) (*models.Policy, error) {
	if err := s.guard.Authorize(actor, access.ActionListPolicies, access.Target{}); err != nil {
		return nil, err
	}
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load policy")
	}
	return p, nil
}

// Update renames a policy or changes its terms. Premium and coverage are frozen
// once any claim references the policy.
func (s *Service) Update(ctx context.Context, actor domain.Principal, id domain.PolicyID, req *models.UpdatePolicyRequest) (*models.Policy, error) {
	if err := s.guard.Authorize(actor, access.ActionUpdatePolicy, access.Target{}); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.store.UpdateTerms(ctx, id, req.Update(), requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodePolicyInUse, "premium and coverage cannot change once claims reference the policy")
		}
		return nil, storeError(err, "failed to update policy")
	}

	s.logger.InfoContext(ctx, "policy updated",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID,
		"policy_id", id,
	)
	return p, nil
}

func storeError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "policy not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
