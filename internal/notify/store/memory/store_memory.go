// Package memory is the in-memory notification store used for local
// development and unit tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"shiplog/internal/notify"
	"shiplog/pkg/domain"
)

type Store struct {
	mu sync.RWMutex

	// order preserves creation order; byID guards duplicate creates.
	order []uuid.UUID
	byID  map[uuid.UUID]*notify.Notification

	lastTS time.Time
}

func New() *Store {
	return &Store{byID: make(map[uuid.UUID]*notify.Notification)}
}

func (s *Store) Create(_ context.Context, n *notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byID[n.ID]; ok {
		*n = *existing
		return nil
	}

	now := time.Now()
	if now.Before(s.lastTS) {
		now = s.lastTS
	}
	s.lastTS = now
	n.CreatedAt = now

	stored := *n
	s.byID[n.ID] = &stored
	s.order = append(s.order, n.ID)
	return nil
}

func (s *Store) ListUnconsumed(_ context.Context, recipient domain.ActorID, limit int) ([]notify.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = clampLimit(limit)
	var out []notify.Notification
	for _, id := range s.order {
		n := s.byID[id]
		if n.RecipientID != recipient || n.Consumed {
			continue
		}
		out = append(out, *n)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) ListRecent(_ context.Context, recipient domain.ActorID, limit int) ([]notify.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = clampLimit(limit)
	var out []notify.Notification
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		n := s.byID[s.order[i]]
		if n.RecipientID == recipient {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*notify.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[id]
	if !ok {
		return nil, notify.ErrNotFound
	}
	out := *n
	return &out, nil
}

func (s *Store) MarkConsumed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.byID[id]; ok {
		n.Consumed = true
	}
	return nil
}

func (s *Store) CountUnconsumed(_ context.Context, recipient domain.ActorID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.byID {
		if n.RecipientID == recipient && !n.Consumed {
			count++
		}
	}
	return count, nil
}

func (s *Store) PendingByCategory(_ context.Context) (map[notify.Category]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[notify.Category]int)
	for _, n := range s.byID {
		if !n.Consumed {
			counts[n.Category]++
		}
	}
	return counts, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
