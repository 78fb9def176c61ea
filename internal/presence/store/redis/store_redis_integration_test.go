//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	presenceredis "shiplog/internal/presence/store/redis"
	"shiplog/pkg/testutil/containers"
)

type RedisPresenceSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *presenceredis.Store
	ctx   context.Context
}

func TestRedisPresenceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisPresenceSuite))
}

func (s *RedisPresenceSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = presenceredis.New(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisPresenceSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisPresenceSuite) TestCountActiveWithinWindow() {
	now := time.Now()
	s.Require().NoError(s.store.Touch(s.ctx, "U1", now))
	s.Require().NoError(s.store.Touch(s.ctx, "U2", now.Add(-10*time.Minute)))
	s.Require().NoError(s.store.Touch(s.ctx, "U3", now.Add(-time.Hour)))

	count, err := s.store.CountActive(s.ctx, now, 15*time.Minute)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *RedisPresenceSuite) TestRepeatedTouchCountsOnce() {
	now := time.Now()
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.store.Touch(s.ctx, "U1", now.Add(time.Duration(i)*time.Second)))
	}

	count, err := s.store.CountActive(s.ctx, now.Add(5*time.Second), 15*time.Minute)
	s.Require().NoError(err)
	s.Equal(1, count)
}

// CountActive trims expired members; once trimmed, an actor only reappears
// after a fresh heartbeat.
func (s *RedisPresenceSuite) TestStaleHeartbeatsTrimmed() {
	now := time.Now()
	s.Require().NoError(s.store.Touch(s.ctx, "U1", now.Add(-time.Hour)))

	count, err := s.store.CountActive(s.ctx, now, 15*time.Minute)
	s.Require().NoError(err)
	s.Zero(count)

	members, err := s.redis.Client.ZCard(s.ctx, "shiplog:presence").Result()
	s.Require().NoError(err)
	s.Zero(members, "stale member survived the trim")

	s.Require().NoError(s.store.Touch(s.ctx, "U1", now))
	count, err = s.store.CountActive(s.ctx, now, 15*time.Minute)
	s.Require().NoError(err)
	s.Equal(1, count)
}
