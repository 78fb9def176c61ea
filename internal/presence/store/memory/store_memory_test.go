package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MemoryPresenceSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestMemoryPresenceSuite(t *testing.T) {
	suite.Run(t, new(MemoryPresenceSuite))
}

func (s *MemoryPresenceSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *MemoryPresenceSuite) TestCountActiveWithinWindow() {
	now := time.Now()
	s.Require().NoError(s.store.Touch(s.ctx, "U1", now))
	s.Require().NoError(s.store.Touch(s.ctx, "U2", now.Add(-10*time.Minute)))
	s.Require().NoError(s.store.Touch(s.ctx, "U3", now.Add(-time.Hour)))

	count, err := s.store.CountActive(s.ctx, now, 15*time.Minute)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *MemoryPresenceSuite) TestRepeatedTouchCountsOnce() {
	now := time.Now()
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.store.Touch(s.ctx, "U1", now.Add(time.Duration(i)*time.Second)))
	}

	count, err := s.store.CountActive(s.ctx, now.Add(5*time.Second), 15*time.Minute)
	s.Require().NoError(err)
	s.Equal(1, count)
}

// An out-of-order heartbeat must never move an actor's last-seen backwards.
func (s *MemoryPresenceSuite) TestStaleTouchIgnored() {
	now := time.Now()
	s.Require().NoError(s.store.Touch(s.ctx, "U1", now))
	s.Require().NoError(s.store.Touch(s.ctx, "U1", now.Add(-time.Hour)))

	count, err := s.store.CountActive(s.ctx, now, 15*time.Minute)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *MemoryPresenceSuite) TestEmptyStore() {
	count, err := s.store.CountActive(s.ctx, time.Now(), 15*time.Minute)
	s.Require().NoError(err)
	s.Zero(count)
}
