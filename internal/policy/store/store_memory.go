package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"claimdesk/internal/policy/models"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

// UserChecker reports whether a user exists; it stands in for the owner foreign key.
type UserChecker interface {
	Exists(ctx context.Context, id domain.UserID) (bool, error)
}

// ReferenceChecker reports whether any claim references a policy.
type ReferenceChecker interface {
	ReferencesPolicy(ctx context.Context, id domain.PolicyID) (bool, error)
}

// InMemoryPolicyStore keeps policies in a map guarded by an RWMutex.
type InMemoryPolicyStore struct {
	mu       sync.RWMutex
	nextID   domain.PolicyID
	policies map[domain.PolicyID]*models.Policy
	users    UserChecker
	refs     ReferenceChecker
}

// NewInMemory constructs an empty policy store. users may be nil, in which case
// owner ids are not checked.
func NewInMemory(users UserChecker) *InMemoryPolicyStore {
	return &InMemoryPolicyStore{
		policies: make(map[domain.PolicyID]*models.Policy),
		users:    users,
	}
}

// UseReferenceChecker wires the claim store in after both stores exist.
func (s *InMemoryPolicyStore) UseReferenceChecker(refs ReferenceChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs = refs
}

func live(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("policy store: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *InMemoryPolicyStore) Create(ctx context.Context, p *models.Policy) error {
	if err := live(ctx); err != nil {
		return err
	}
	if p.HasOwner() && s.users != nil {
		ok, err := s.users.Exists(ctx, p.OwnerID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("policy owner %d: %w", p.OwnerID, sentinel.ErrDanglingReference)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	stored := *p
	s.policies[p.ID] = &stored
	return nil
}

func (s *InMemoryPolicyStore) FindByID(ctx context.Context, id domain.PolicyID) (*models.Policy, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok {
		return nil, fmt.Errorf("policy %d: %w", id, sentinel.ErrNotFound)
	}
	found := *p
	return &found, nil
}

// HoldCoverage runs fn with the policy's coverage while holding the read lock, so
// UpdateTerms cannot change the terms until fn returns. fn must not call back
// into this store. A missing policy fails with ErrNotFound without calling fn.
func (s *InMemoryPolicyStore) HoldCoverage(ctx context.Context, id domain.PolicyID, fn func(coverage domain.Amount) error) error {
	if err := live(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok {
		return fmt.Errorf("policy %d: %w", id, sentinel.ErrNotFound)
	}
	return fn(p.Coverage)
}

// List returns every policy ordered by id.
func (s *InMemoryPolicyStore) List(ctx context.Context) ([]*models.Policy, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		found := *p
		out = append(out, &found)
	}
	slices.SortFunc(out, func(a, b *models.Policy) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// UpdateTerms applies u. Changing premium or coverage of a referenced policy
// fails with ErrInvalidState.
func (s *InMemoryPolicyStore) UpdateTerms(ctx context.Context, id domain.PolicyID, u models.TermsUpdate, now time.Time) (*models.Policy, error) {
	if err := live(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[id]
	if !ok {
		return nil, fmt.Errorf("policy %d: %w", id, sentinel.ErrNotFound)
	}
	if u.ChangesTerms(p) && s.refs != nil {
		referenced, err := s.refs.ReferencesPolicy(ctx, id)
		if err != nil {
			return nil, err
		}
		if referenced {
			return nil, fmt.Errorf("policy %d is referenced by claims: %w", id, sentinel.ErrInvalidState)
		}
	}
	u.Apply(p, now)
	updated := *p
	return &updated, nil
}
