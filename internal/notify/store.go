package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"shiplog/pkg/domain"
)

// ErrNotFound is the store-level sentinel for an unknown notification ID.
var ErrNotFound = errors.New("notification not found")

// Store persists notifications. Create assigns CreatedAt (write-commit time)
// on the passed notification. There is no delete; consumption is the only
// state change and it is one-way.
type Store interface {
	// Create persists the notification. Creating an ID that already exists
	// is a silent no-op, which makes event redelivery safe.
	Create(ctx context.Context, n *Notification) error

	// ListUnconsumed returns the recipient's pending notifications, oldest
	// first, capped at limit.
	ListUnconsumed(ctx context.Context, recipient domain.ActorID, limit int) ([]Notification, error)

	// ListRecent returns the recipient's notifications regardless of
	// consumption, newest first, capped at limit.
	ListRecent(ctx context.Context, recipient domain.ActorID, limit int) ([]Notification, error)

	// Get returns one notification or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Notification, error)

	// MarkConsumed flips the consumed flag. Already-consumed and unknown IDs
	// are no-ops.
	MarkConsumed(ctx context.Context, id uuid.UUID) error

	CountUnconsumed(ctx context.Context, recipient domain.ActorID) (int, error)

	// PendingByCategory counts unconsumed notifications across all
	// recipients, keyed by category. Feeds the dashboard.
	PendingByCategory(ctx context.Context) (map[Category]int, error)
}
