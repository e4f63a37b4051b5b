package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"claimdesk/internal/policy/models"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

type stubUsers map[domain.UserID]bool

func (u stubUsers) Exists(_ context.Context, id domain.UserID) (bool, error) {
	return u[id], nil
}

type stubRefs struct {
	referenced map[domain.PolicyID]bool
	err        error
}

func (r *stubRefs) ReferencesPolicy(_ context.Context, id domain.PolicyID) (bool, error) {
	return r.referenced[id], r.err
}

type InMemoryPolicyStoreSuite struct {
	suite.Suite
	store *InMemoryPolicyStore
	refs  *stubRefs
	now   time.Time
}

func TestInMemoryPolicyStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryPolicyStoreSuite))
}

func (s *InMemoryPolicyStoreSuite) SetupTest() {
	s.store = NewInMemory(stubUsers{1: true})
	s.refs = &stubRefs{referenced: map[domain.PolicyID]bool{}}
	s.store.UseReferenceChecker(s.refs)
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func (s *InMemoryPolicyStoreSuite) create(name string, owner domain.UserID) *models.Policy {
	p := models.NewPolicy(name, 12000, 5_000_000, owner, s.now)
	s.Require().NoError(s.store.Create(context.Background(), p))
	return p
}

func (s *InMemoryPolicyStoreSuite) TestCreate() {
	s.Run("template and owned policies get sequential ids", func() {
		a := s.create("Basic", 0)
		b := s.create("Premium", 1)
		s.Equal(domain.PolicyID(1), a.ID)
		s.Equal(domain.PolicyID(2), b.ID)
	})

	s.Run("unknown owner is a dangling reference", func() {
		p := models.NewPolicy("Ghost", 1, 1, 99, s.now)
		err := s.store.Create(context.Background(), p)
		s.ErrorIs(err, sentinel.ErrDanglingReference)
	})
}

func (s *InMemoryPolicyStoreSuite) TestFindAndList() {
	first := s.create("Basic", 0)
	s.create("Premium", 1)

	found, err := s.store.FindByID(context.Background(), first.ID)
	s.Require().NoError(err)
	s.Equal("Basic", found.Name)

	found.Name = "mutated"
	again, err := s.store.FindByID(context.Background(), first.ID)
	s.Require().NoError(err)
	s.Equal("Basic", again.Name, "callers must get copies")

	_, err = s.store.FindByID(context.Background(), 42)
	s.ErrorIs(err, sentinel.ErrNotFound)

	all, err := s.store.List(context.Background())
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(domain.PolicyID(1), all[0].ID)
	s.Equal(domain.PolicyID(2), all[1].ID)
}

func (s *InMemoryPolicyStoreSuite) TestUpdateTerms() {
	ctx := context.Background()
	later := s.now.Add(time.Hour)

	s.Run("unreferenced policy accepts new terms", func() {
		p := s.create("Basic", 0)
		premium := domain.Amount(15000)
		updated, err := s.store.UpdateTerms(ctx, p.ID, models.TermsUpdate{Premium: &premium}, later)
		s.Require().NoError(err)
		s.Equal(premium, updated.Premium)
		s.Equal(later, updated.UpdatedAt)
	})

	s.Run("referenced policy rejects term changes", func() {
		p := s.create("Locked", 0)
		s.refs.referenced[p.ID] = true
		coverage := domain.Amount(1)
		_, err := s.store.UpdateTerms(ctx, p.ID, models.TermsUpdate{Coverage: &coverage}, later)
		s.ErrorIs(err, sentinel.ErrInvalidState)

		found, err := s.store.FindByID(ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(domain.Amount(5_000_000), found.Coverage)
	})

	s.Run("referenced policy may still be renamed", func() {
		p := s.create("Old name", 0)
		s.refs.referenced[p.ID] = true
		name := "New name"
		same := p.Premium
		updated, err := s.store.UpdateTerms(ctx, p.ID, models.TermsUpdate{Name: &name, Premium: &same}, later)
		s.Require().NoError(err)
		s.Equal("New name", updated.Name)
	})

	s.Run("reference check failure is surfaced", func() {
		p := s.create("Flaky", 0)
		s.refs.err = errors.New("boom")
		defer func() { s.refs.err = nil }()
		premium := domain.Amount(1)
		_, err := s.store.UpdateTerms(ctx, p.ID, models.TermsUpdate{Premium: &premium}, later)
		s.Error(err)
	})

	s.Run("unknown policy", func() {
		name := "x"
		_, err := s.store.UpdateTerms(ctx, 404, models.TermsUpdate{Name: &name}, later)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryPolicyStoreSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.store.List(ctx)
	s.ErrorIs(err, sentinel.ErrUnavailable)
}
