// Package memory is the in-process presence store for single-node
// deployments and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"shiplog/pkg/domain"
)

type Store struct {
	mu       sync.RWMutex
	lastSeen map[domain.ActorID]time.Time
}

func New() *Store {
	return &Store{lastSeen: make(map[domain.ActorID]time.Time)}
}

func (s *Store) Touch(_ context.Context, actorID domain.ActorID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if at.After(s.lastSeen[actorID]) {
		s.lastSeen[actorID] = at
	}
	return nil
}

func (s *Store) CountActive(_ context.Context, now time.Time, window time.Duration) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := now.Add(-window)
	count := 0
	for _, seen := range s.lastSeen {
		if !seen.Before(cutoff) {
			count++
		}
	}
	return count, nil
}
