package user

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"claimdesk/internal/auth/models"
	"claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
	now   time.Time
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = New()
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) newUser(username string) *models.User {
	return models.NewUser(username, username+"@example.com", "$argon2id$stub", s.now)
}

func (s *InMemoryUserStoreSuite) TestCreate() {
	s.Run("assigns sequential ids", func() {
		a := s.newUser("ana")
		b := s.newUser("ben")
		s.Require().NoError(s.store.Create(context.Background(), a))
		s.Require().NoError(s.store.Create(context.Background(), b))
		s.Equal(domain.UserID(1), a.ID)
		s.Equal(domain.UserID(2), b.ID)
	})

	s.Run("duplicate username is a conflict and keeps the first record", func() {
		store := New()
		first := s.newUser("carla")
		s.Require().NoError(store.Create(context.Background(), first))

		dup := models.NewUser("CARLA", "other@example.com", "$argon2id$other", s.now)
		err := store.Create(context.Background(), dup)
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		found, err := store.FindByUsername(context.Background(), "carla")
		s.Require().NoError(err)
		s.Equal("carla@example.com", found.Email)
		s.Equal(first.ID, found.ID)
	})
}

func (s *InMemoryUserStoreSuite) TestLookupBehavior() {
	u := s.newUser("dora")
	s.Require().NoError(s.store.Create(context.Background(), u))

	s.Run("returns user by ID when exists", func() {
		found, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)
		s.Equal(u, found)
	})

	s.Run("returns user by username case-insensitively", func() {
		found, err := s.store.FindByUsername(context.Background(), "DORA")
		s.Require().NoError(err)
		s.Equal(u.ID, found.ID)
	})

	s.Run("returns ErrNotFound when user does not exist", func() {
		_, err := s.store.FindByID(context.Background(), 999)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindByUsername(context.Background(), "nobody")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned records are copies", func() {
		found, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)
		found.Role = domain.RoleAdmin
		again, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)
		s.Equal(domain.RolePolicyholder, again.Role)
	})
}

func (s *InMemoryUserStoreSuite) TestRoleAndDisable() {
	u := s.newUser("eli")
	s.Require().NoError(s.store.Create(context.Background(), u))
	later := s.now.Add(time.Hour)

	s.Require().NoError(s.store.UpdateRole(context.Background(), u.ID, domain.RoleAdjuster, later))
	s.Require().NoError(s.store.Disable(context.Background(), u.ID, later))
	s.Require().NoError(s.store.Disable(context.Background(), u.ID, later.Add(time.Hour)))

	found, err := s.store.FindByID(context.Background(), u.ID)
	s.Require().NoError(err)
	s.Equal(domain.RoleAdjuster, found.Role)
	s.Require().NotNil(found.DisabledAt)
	s.Equal(later, *found.DisabledAt)
	s.True(found.Principal().Disabled)

	s.ErrorIs(s.store.UpdateRole(context.Background(), 404, domain.RoleAdmin, later), sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestEnableAndList() {
	ctx := context.Background()
	a, b := s.newUser("fay"), s.newUser("gus")
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))
	s.Require().NoError(s.store.Disable(ctx, b.ID, s.now))

	listed, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(a.ID, listed[0].ID)
	s.True(listed[1].IsDisabled())

	listed[1].DisabledAt = nil
	s.Require().NoError(s.store.Enable(ctx, a.ID, s.now))

	again, err := s.store.FindByID(ctx, b.ID)
	s.Require().NoError(err)
	s.True(again.IsDisabled())

	s.Require().NoError(s.store.Enable(ctx, b.ID, s.now.Add(time.Minute)))
	again, err = s.store.FindByID(ctx, b.ID)
	s.Require().NoError(err)
	s.False(again.IsDisabled())
	s.Equal(s.now.Add(time.Minute), again.UpdatedAt)

	s.ErrorIs(s.store.Enable(ctx, 404, s.now), sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestCancelledContextIsUnavailable() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.store.Create(ctx, s.newUser("fay"))
	s.ErrorIs(err, sentinel.ErrUnavailable)
}

func (s *InMemoryUserStoreSuite) TestConcurrentDuplicateUsername() {
	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(context.Background(), s.newUser("gus"))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}
