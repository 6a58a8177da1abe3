//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taskhub/pkg/testutil/containers"
)

type RedisSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *Redis
	ctx   context.Context
}

func TestRedisSuite(t *testing.T) {
	suite.Run(t, new(RedisSuite))
}

func (s *RedisSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = NewRedis(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisSuite) TestAllowUpToLimit() {
	for i := range 3 {
		res, err := s.store.Allow(s.ctx, "rl:auth:10.0.0.1", 3, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := s.store.Allow(s.ctx, "rl:auth:10.0.0.1", 3, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(3, res.Limit)
	s.WithinDuration(time.Now().Add(time.Minute), res.ResetAt, 5*time.Second)

	ttl, err := s.redis.Client.PTTL(s.ctx, "rl:auth:10.0.0.1").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisSuite) TestWindowSlides() {
	start := time.Now()
	s.store.now = func() time.Time { return start }
	defer func() { s.store.now = time.Now }()

	for range 2 {
		_, err := s.store.Allow(s.ctx, "slide", 2, time.Minute)
		s.Require().NoError(err)
	}
	res, err := s.store.Allow(s.ctx, "slide", 2, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)

	s.store.now = func() time.Time { return start.Add(time.Minute + time.Millisecond) }
	res, err = s.store.Allow(s.ctx, "slide", 2, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisSuite) TestReset() {
	for range 2 {
		_, err := s.store.Allow(s.ctx, "reset", 2, time.Minute)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Reset(s.ctx, "reset"))

	res, err := s.store.Allow(s.ctx, "reset", 2, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
