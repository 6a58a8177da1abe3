package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 5
	testWindow = time.Minute
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	clock time.Time
	ctx   context.Context
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store.now = func() time.Time { return s.clock }
	s.ctx = context.Background()
}

func (s *InMemorySuite) allowN(key string, n int) {
	for range n {
		res, err := s.store.Allow(s.ctx, key, testLimit, testWindow)
		s.Require().NoError(err)
		s.Require().True(res.Allowed)
	}
}

func (s *InMemorySuite) TestAllow() {
	s.Run("first request", func() {
		res, err := s.store.Allow(s.ctx, "first", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(testLimit, res.Limit)
		s.Equal(testLimit-1, res.Remaining)
		s.Equal(s.clock.Add(testWindow), res.ResetAt)
	})

	s.Run("last slot leaves nothing remaining", func() {
		s.allowN("fill", testLimit-1)
		res, err := s.store.Allow(s.ctx, "fill", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(0, res.Remaining)
	})

	s.Run("over the limit is denied", func() {
		s.allowN("over", testLimit)
		res, err := s.store.Allow(s.ctx, "over", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Equal(testLimit, res.Limit)
		s.Equal(0, res.Remaining)
	})

	s.Run("keys are independent", func() {
		s.allowN("a", testLimit)
		res, err := s.store.Allow(s.ctx, "b", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
	})
}

func (s *InMemorySuite) TestWindowSlides() {
	start := s.clock
	s.allowN("slide", 3)
	s.clock = start.Add(30 * time.Second)
	s.allowN("slide", 2)

	res, err := s.store.Allow(s.ctx, "slide", testLimit, testWindow)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(start.Add(testWindow), res.ResetAt)

	// the first three leave the window, the later two stay
	s.clock = start.Add(testWindow + time.Second)
	res, err = s.store.Allow(s.ctx, "slide", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(res.Allowed)
	s.Equal(testLimit-3, res.Remaining)
}

func (s *InMemorySuite) TestEmptiedWindowsAreEvicted() {
	start := s.clock
	for _, key := range []string{"a", "b", "c"} {
		s.allowN(key, 1)
	}
	s.Len(s.store.buckets, 3)

	s.clock = start.Add(testWindow + sweepInterval)
	s.allowN("d", 1)
	s.Len(s.store.buckets, 1)
	s.Contains(s.store.buckets, "d")
}

func (s *InMemorySuite) TestReset() {
	s.allowN("reset", testLimit)
	s.Require().NoError(s.store.Reset(s.ctx, "reset"))

	res, err := s.store.Allow(s.ctx, "reset", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *InMemorySuite) TestConcurrentRequestsNeverExceedLimit() {
	const workers = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.store.Allow(s.ctx, "race", testLimit, testWindow)
			if err != nil || !res.Allowed {
				return
			}
			mu.Lock()
			allowed++
			mu.Unlock()
		}()
	}
	wg.Wait()
	s.Equal(testLimit, allowed)
}
