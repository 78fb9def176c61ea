// Package audit defines the append-only record types the engine persists:
// fine-grained field changes, coarse audit records, severity-classified
// system events, and high-volume activity entries. All four are immutable
// once written; only SystemEvent.Processed flips, as dispatch bookkeeping.
package audit

import (
	"time"

	"github.com/google/uuid"

	"shiplog/pkg/domain"
)

// Severity classifies system events for monitoring and alerting.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

var severityOrder = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityError:    2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is at or above the given minimum severity.
// Unknown severities sort below info so a bad filter never hides errors.
func (s Severity) AtLeast(min Severity) bool {
	return severityOrder[s] >= severityOrder[min]
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	_, ok := severityOrder[s]
	return ok
}

// ActionType names the logically significant mutation an AuditRecord covers.
type ActionType string

const (
	ActionCreate        ActionType = "create"
	ActionUpdate        ActionType = "update"
	ActionDelete        ActionType = "delete"
	ActionApprove       ActionType = "approve"
	ActionReject        ActionType = "reject"
	ActionSubmit        ActionType = "submit"
	ActionComment       ActionType = "comment"
	ActionLogin         ActionType = "login"
	ActionLogout        ActionType = "logout"
	ActionFlagEmergency ActionType = "flag_emergency"
)

// RecordStatus marks whether the recorded mutation completed.
type RecordStatus string

const (
	StatusCompleted RecordStatus = "completed"
	StatusFailed    RecordStatus = "failed"
)

// NotableActions is the configurable set of action types that also emit a
// derived SystemEvent (and from there, notifications).
type NotableActions map[ActionType]bool

// DefaultNotableActions covers lifecycle transitions users care about.
func DefaultNotableActions() NotableActions {
	return NotableActions{
		ActionCreate:        true,
		ActionApprove:       true,
		ActionReject:        true,
		ActionSubmit:        true,
		ActionFlagEmergency: true,
	}
}

// FieldChange is one before/after value of a single field. Immutable once
// written; several FieldChanges may share one AuditRecord.
type FieldChange struct {
	ID         uuid.UUID      `json:"id"`
	AuditID    uuid.UUID      `json:"audit_id"`
	Timestamp  time.Time      `json:"timestamp"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Field      string         `json:"field_name"`
	OldValue   string         `json:"old_value"`
	NewValue   string         `json:"new_value"`
	ActorID    domain.ActorID `json:"actor_id"`
	Reason     string         `json:"reason,omitempty"`
}

// AuditRecord is one coarse-grained record per logically significant
// mutation. Seq is the store-assigned insert sequence used as the stable
// pagination cursor; Timestamp is the store's write-commit time, never
// client-supplied.
type AuditRecord struct {
	ID           uuid.UUID      `json:"id"`
	Seq          int64          `json:"seq"`
	Timestamp    time.Time      `json:"timestamp"`
	ActorID      domain.ActorID `json:"actor_id"`
	Action       ActionType     `json:"action_type"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	OldValue     string         `json:"old_value"`
	NewValue     string         `json:"new_value"`
	Origin       string         `json:"origin_address"`
	Status       RecordStatus   `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// EntityRef returns the entity this record mutated.
func (r AuditRecord) EntityRef() domain.EntityRef {
	return domain.EntityRef{Type: r.EntityType, ID: r.EntityID}
}

// SystemEvent is an operationally significant occurrence, independent of
// per-field history. Processed marks that dispatch has handled it.
type SystemEvent struct {
	ID         uuid.UUID         `json:"id"`
	Seq        int64             `json:"seq"`
	Timestamp  time.Time         `json:"timestamp"`
	EventType  string            `json:"event_type"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Payload    map[string]string `json:"payload,omitempty"`
	Severity   Severity          `json:"severity"`
	Processed  bool              `json:"processed"`
}

// ActivityEntry is the coarsest, highest-volume per-actor action log.
type ActivityEntry struct {
	ID        uuid.UUID      `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	ActorID   domain.ActorID `json:"actor_id"`
	Label     string         `json:"activity_label"`
	Details   string         `json:"details,omitempty"`
	Origin    string         `json:"origin_address,omitempty"`
}

// Internal event types the engine itself emits.
const (
	EventStoreRecovered = "store_recovered"
	EventDispatchFailed = "dispatch_failed"
)
