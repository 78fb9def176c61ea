package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"shiplog/pkg/domain"
	dErrors "shiplog/pkg/domain-errors"
)

// Service owns the notification rules the store does not: callers see their
// own notifications, consumption is owner-only, and a repeated consume is a
// no-op rather than an error.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Pending returns the caller's unconsumed notifications, oldest first.
func (s *Service) Pending(ctx context.Context, caller domain.Caller, limit int) ([]Notification, error) {
	if caller.ActorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller required")
	}
	list, err := s.store.ListUnconsumed(ctx, caller.ActorID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "notification query failed")
	}
	return list, nil
}

// Recent returns the caller's notifications regardless of consumption,
// newest first.
func (s *Service) Recent(ctx context.Context, caller domain.Caller, limit int) ([]Notification, error) {
	if caller.ActorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller required")
	}
	list, err := s.store.ListRecent(ctx, caller.ActorID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "notification query failed")
	}
	return list, nil
}

// Consume marks one of the caller's notifications as handled. Unknown IDs
// and repeated consumes succeed silently, so poller acknowledgement retries
// are safe. Consuming someone else's notification is forbidden.
func (s *Service) Consume(ctx context.Context, caller domain.Caller, id uuid.UUID) error {
	if caller.ActorID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller required")
	}

	n, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "notification lookup failed")
	}
	if n.RecipientID != caller.ActorID && !caller.IsAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "notification belongs to another recipient")
	}
	if n.Consumed {
		return nil
	}
	if err := s.store.MarkConsumed(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "notification update failed")
	}
	return nil
}
