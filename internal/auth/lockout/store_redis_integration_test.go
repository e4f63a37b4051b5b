//go:build integration

package lockout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"claimdesk/internal/auth/lockout"
	"claimdesk/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *lockout.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = lockout.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestFailuresShareOneWindow() {
	ctx := context.Background()
	for want := 1; want <= 3; want++ {
		n, err := s.store.RecordFailure(ctx, "login:ana", 30*time.Second)
		s.Require().NoError(err)
		s.Equal(want, n)
	}

	ttl, err := s.redis.Client.TTL(ctx, "lockout:fail:login:ana").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, 30*time.Second)
}

func (s *RedisStoreSuite) TestLockAndClear() {
	ctx := context.Background()

	d, err := s.store.LockedFor(ctx, "login:ana")
	s.Require().NoError(err)
	s.Zero(d)

	s.Require().NoError(s.store.Lock(ctx, "login:ana", time.Minute))
	d, err = s.store.LockedFor(ctx, "login:ana")
	s.Require().NoError(err)
	s.Greater(d, 50*time.Second)
	s.LessOrEqual(d, time.Minute)

	_, err = s.store.RecordFailure(ctx, "login:ana", time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Clear(ctx, "login:ana"))

	d, err = s.store.LockedFor(ctx, "login:ana")
	s.Require().NoError(err)
	s.Zero(d)
	exists, err := s.redis.Client.Exists(ctx, "lockout:fail:login:ana").Result()
	s.Require().NoError(err)
	s.Zero(exists)
}

func (s *RedisStoreSuite) TestLimiterOverRedis() {
	ctx := context.Background()
	l := lockout.New(s.store, lockout.Config{MaxFailures: 2, Window: time.Minute, LockDuration: time.Minute})

	l.RecordFailure(ctx, "Ana")
	s.NoError(l.Check(ctx, "ana"))
	l.RecordFailure(ctx, "ana")
	s.Error(l.Check(ctx, "ana"))
}
