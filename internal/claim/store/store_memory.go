package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"claimdesk/internal/claim/models"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

// UserChecker stands in for the user foreign key.
type UserChecker interface {
	Exists(ctx context.Context, id domain.UserID) (bool, error)
}

// PolicyGate stands in for the policy foreign key and keeps the policy's
// coverage fixed while fn runs. A missing policy returns ErrNotFound.
type PolicyGate interface {
	HoldCoverage(ctx context.Context, id domain.PolicyID, fn func(coverage domain.Amount) error) error
}

// InMemoryClaimStore keeps claims, their history and comments under one RWMutex.
// Locks are always taken policy store first, then this store: Create inserts
// inside HoldCoverage and the policy store calls ReferencesPolicy while holding
// its own lock.
type InMemoryClaimStore struct {
	mu          sync.RWMutex
	nextID      domain.ClaimID
	claims      map[domain.ClaimID]*models.Claim
	transitions map[domain.ClaimID][]*models.Transition
	comments    map[domain.ClaimID][]*models.Comment
	users       UserChecker
	policies    PolicyGate
}

// NewInMemory constructs an empty claim store. A nil checker or gate skips that reference check.
func NewInMemory(users UserChecker, policies PolicyGate) *InMemoryClaimStore {
	return &InMemoryClaimStore{
		claims:      make(map[domain.ClaimID]*models.Claim),
		transitions: make(map[domain.ClaimID][]*models.Transition),
		comments:    make(map[domain.ClaimID][]*models.Comment),
		users:       users,
		policies:    policies,
	}
}

func live(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("claim store: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *InMemoryClaimStore) checkUser(ctx context.Context, id domain.UserID) error {
	if s.users == nil {
		return nil
	}
	ok, err := s.users.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d: %w", id, sentinel.ErrDanglingReference)
	}
	return nil
}

func (s *InMemoryClaimStore) Create(ctx context.Context, c *models.Claim) error {
	if err := live(ctx); err != nil {
		return err
	}
	if err := s.checkUser(ctx, c.UserID); err != nil {
		return err
	}
	if s.policies == nil {
		s.insert(c)
		return nil
	}

	err := s.policies.HoldCoverage(ctx, c.PolicyID, func(coverage domain.Amount) error {
		if c.Amount != nil && *c.Amount > coverage {
			return fmt.Errorf("claim amount %s exceeds coverage %s: %w", c.Amount, coverage, sentinel.ErrInvalidState)
		}
		s.insert(c)
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("policy %d: %w", c.PolicyID, sentinel.ErrDanglingReference)
	}
	return err
}

func (s *InMemoryClaimStore) insert(c *models.Claim) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	s.claims[c.ID] = cloneClaim(c)
}

func (s *InMemoryClaimStore) FindByID(ctx context.Context, id domain.ClaimID) (*models.Claim, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[id]
	if !ok {
		return nil, fmt.Errorf("claim %d: %w", id, sentinel.ErrNotFound)
	}
	return cloneClaim(c), nil
}

// ListByUser returns userID's claims, oldest first.
func (s *InMemoryClaimStore) ListByUser(ctx context.Context, userID domain.UserID) ([]*models.Claim, error) {
	return s.list(ctx, func(c *models.Claim) bool { return c.UserID == userID })
}

// ListByStatus returns claims in any of statuses, oldest first.
func (s *InMemoryClaimStore) ListByStatus(ctx context.Context, statuses []models.Status) ([]*models.Claim, error) {
	return s.list(ctx, func(c *models.Claim) bool { return slices.Contains(statuses, c.Status) })
}

func (s *InMemoryClaimStore) list(ctx context.Context, keep func(*models.Claim) bool) ([]*models.Claim, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Claim, 0)
	for _, c := range s.claims {
		if keep(c) {
			out = append(out, cloneClaim(c))
		}
	}
	slices.SortFunc(out, func(a, b *models.Claim) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// UpdateStatus swaps in next only if the stored claim still has expectedStatus
// and expectedVersion, and appends t in the same critical section.
func (s *InMemoryClaimStore) UpdateStatus(ctx context.Context, next *models.Claim, expectedStatus models.Status, expectedVersion int64, t *models.Transition) error {
	if err := live(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.claims[next.ID]
	if !ok {
		return fmt.Errorf("claim %d: %w", next.ID, sentinel.ErrNotFound)
	}
	if current.Status != expectedStatus || current.Version != expectedVersion {
		return fmt.Errorf("claim %d at %s/v%d, expected %s/v%d: %w",
			next.ID, current.Status, current.Version, expectedStatus, expectedVersion, sentinel.ErrStale)
	}
	s.claims[next.ID] = cloneClaim(next)
	stored := *t
	s.transitions[next.ID] = append(s.transitions[next.ID], &stored)
	return nil
}

func (s *InMemoryClaimStore) ListTransitions(ctx context.Context, id domain.ClaimID) ([]*models.Transition, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Transition, 0, len(s.transitions[id]))
	for _, t := range s.transitions[id] {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemoryClaimStore) AddComment(ctx context.Context, c *models.Comment) error {
	if err := live(ctx); err != nil {
		return err
	}
	if err := s.checkUser(ctx, c.AuthorID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[c.ClaimID]; !ok {
		return fmt.Errorf("claim %d: %w", c.ClaimID, sentinel.ErrDanglingReference)
	}
	stored := *c
	s.comments[c.ClaimID] = append(s.comments[c.ClaimID], &stored)
	return nil
}

func (s *InMemoryClaimStore) ListComments(ctx context.Context, id domain.ClaimID) ([]*models.Comment, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Comment, 0, len(s.comments[id]))
	for _, c := range s.comments[id] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// ReferencesPolicy reports whether any claim points at policyID.
func (s *InMemoryClaimStore) ReferencesPolicy(ctx context.Context, policyID domain.PolicyID) (bool, error) {
	if err := live(ctx); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.claims {
		if c.PolicyID == policyID {
			return true, nil
		}
	}
	return false, nil
}

func cloneClaim(c *models.Claim) *models.Claim {
	cp := *c
	if c.Amount != nil {
		amount := *c.Amount
		cp.Amount = &amount
	}
	return &cp
}
