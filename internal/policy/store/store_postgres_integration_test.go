//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"claimdesk/internal/auth/models"
	"claimdesk/internal/auth/store/user"
	policymodels "claimdesk/internal/policy/models"
	"claimdesk/internal/policy/store"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/testutil/containers"
)

type PostgresPolicyStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresPolicyStore
	users    *user.PostgresStore
	now      time.Time
}

func TestPostgresPolicyStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresPolicyStoreSuite))
}

func (s *PostgresPolicyStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB, 3*time.Second)
	s.users = user.NewPostgres(s.postgres.DB, 3*time.Second)
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresPolicyStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "claim_comments", "claim_transitions", "claims", "policies", "users")
	s.Require().NoError(err)
}

func (s *PostgresPolicyStoreSuite) TestCreateListAndAmounts() {
	ctx := context.Background()
	owner := models.NewUser("ana", "ana@example.com", "$argon2id$stub", s.now)
	s.Require().NoError(s.users.Create(ctx, owner))

	template := policymodels.NewPolicy("Basic", 12050, 10_000_000, 0, s.now)
	owned := policymodels.NewPolicy("Home", 99, 1, owner.ID, s.now)
	s.Require().NoError(s.store.Create(ctx, template))
	s.Require().NoError(s.store.Create(ctx, owned))

	all, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(domain.Amount(12050), all[0].Premium)
	s.Equal(domain.Amount(10_000_000), all[0].Coverage)
	s.False(all[0].HasOwner())
	s.Equal(owner.ID, all[1].OwnerID)
}

func (s *PostgresPolicyStoreSuite) TestUnknownOwnerIsDangling() {
	err := s.store.Create(context.Background(), policymodels.NewPolicy("Ghost", 1, 1, 777, s.now))
	s.ErrorIs(err, sentinel.ErrDanglingReference)
}

func (s *PostgresPolicyStoreSuite) TestUpdateTermsLockedByClaims() {
	ctx := context.Background()
	owner := models.NewUser("ben", "ben@example.com", "$argon2id$stub", s.now)
	s.Require().NoError(s.users.Create(ctx, owner))
	p := policymodels.NewPolicy("Auto", 5000, 100000, 0, s.now)
	s.Require().NoError(s.store.Create(ctx, p))

	premium := domain.Amount(6000)
	updated, err := s.store.UpdateTerms(ctx, p.ID, policymodels.TermsUpdate{Premium: &premium}, s.now)
	s.Require().NoError(err)
	s.Equal(premium, updated.Premium)

	_, err = s.postgres.DB.ExecContext(ctx, `
		INSERT INTO claims (user_id, policy_id, description, created_at, updated_at)
		VALUES ($1, $2, 'dent', $3, $3)`, int64(owner.ID), int64(p.ID), s.now)
	s.Require().NoError(err)

	premium = 7000
	_, err = s.store.UpdateTerms(ctx, p.ID, policymodels.TermsUpdate{Premium: &premium}, s.now)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	name := "Auto Plus"
	renamed, err := s.store.UpdateTerms(ctx, p.ID, policymodels.TermsUpdate{Name: &name}, s.now)
	s.Require().NoError(err)
	s.Equal("Auto Plus", renamed.Name)
	s.Equal(domain.Amount(6000), renamed.Premium)

	_, err = s.store.UpdateTerms(ctx, 9999, policymodels.TermsUpdate{Name: &name}, s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
