// Package domain holds transport-free primitives shared by every engine
// module: actor and entity identifiers, roles, and the caller identity the
// read API requires on every call.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "shiplog/pkg/domain-errors"
)

// ActorID identifies a user of the operational application. Entity and actor
// identifiers are caller-assigned strings ("U1", "MR001"), not UUIDs, because
// the business collaborators own their numbering schemes.
type ActorID string

// ParseActorID validates an actor identifier at a trust boundary.
func ParseActorID(s string) (ActorID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "actor id must not be empty")
	}
	return ActorID(s), nil
}

func (a ActorID) String() string { return string(a) }
func (a ActorID) IsNil() bool    { return a == "" }

// EntityRef names one business entity: a maintenance request, a drill report,
// a fuel log, a message thread.
type EntityRef struct {
	Type string
	ID   string
}

// ParseEntityRef validates an entity reference at a trust boundary.
func ParseEntityRef(entityType, entityID string) (EntityRef, error) {
	entityType = strings.TrimSpace(entityType)
	entityID = strings.TrimSpace(entityID)
	if entityType == "" || entityID == "" {
		return EntityRef{}, dErrors.New(dErrors.CodeInvalidInput, "entity type and id must not be empty")
	}
	return EntityRef{Type: entityType, ID: entityID}, nil
}

func (e EntityRef) IsNil() bool { return e.Type == "" && e.ID == "" }

// NotificationID is a UUID so dispatch can derive it deterministically from
// its cause (uuid.NewSHA1 over source + recipient).
type NotificationID uuid.UUID

// ParseNotificationID validates a notification identifier.
func ParseNotificationID(s string) (NotificationID, error) {
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return NotificationID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid notification id")
	}
	return NotificationID(u), nil
}

func (n NotificationID) String() string { return uuid.UUID(n).String() }
func (n NotificationID) IsNil() bool    { return uuid.UUID(n) == uuid.Nil }
