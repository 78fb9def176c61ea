// Package notify defines the notification model and store. Notifications are
// created by the dispatcher from notable system events and consumed by
// polling clients; a notification never changes after creation except for the
// one-way Consumed flip.
package notify

import (
	"time"

	"github.com/google/uuid"

	"shiplog/pkg/domain"
)

// Category drives how a client presents a notification.
type Category string

const (
	CategoryMessage Category = "message"
	CategoryAlert   Category = "alert"
	CategorySuccess Category = "success"
	CategoryError   Category = "error"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryMessage, CategoryAlert, CategorySuccess, CategoryError:
		return true
	}
	return false
}

// Notification is one message addressed to one recipient. CreatedAt is
// store-assigned commit time. SourceID ties the notification back to the
// SystemEvent (or other source record) it was derived from.
type Notification struct {
	ID          uuid.UUID      `json:"id"`
	RecipientID domain.ActorID `json:"recipient_id"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Category    Category       `json:"category"`
	SourceID    uuid.UUID      `json:"source_id"`
	CreatedAt   time.Time      `json:"created_at"`
	Consumed    bool           `json:"consumed"`
}

// idNamespace scopes deterministic notification IDs. Fixed forever: changing
// it would defeat replay dedup across deployments.
var idNamespace = uuid.MustParse("8f3c1d2a-4b6e-4a0f-9c7d-2e5b8a1f6c03")

// DeterministicID derives the notification ID from the source event and the
// recipient, so redelivering the same event to the same recipient produces
// the same ID and the store's conflict guard makes creation a no-op.
func DeterministicID(sourceID uuid.UUID, recipient domain.ActorID) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(sourceID.String()+"/"+recipient.String()))
}
