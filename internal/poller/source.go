package poller

import (
	"context"

	"github.com/google/uuid"

	"shiplog/internal/notify"
	"shiplog/pkg/domain"
)

// StoreSource serves a poller straight from the notification store, for
// single-binary deployments and tests where no HTTP hop is needed.
type StoreSource struct {
	store     notify.Store
	recipient domain.ActorID
}

func NewStoreSource(store notify.Store, recipient domain.ActorID) *StoreSource {
	return &StoreSource{store: store, recipient: recipient}
}

func (s *StoreSource) Pending(ctx context.Context, limit int) ([]notify.Notification, error) {
	return s.store.ListUnconsumed(ctx, s.recipient, limit)
}

func (s *StoreSource) Acknowledge(ctx context.Context, id uuid.UUID) error {
	return s.store.MarkConsumed(ctx, id)
}
