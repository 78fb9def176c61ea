package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"shiplog/pkg/domain"
)

// TrailFilter narrows the audit trail. Zero values mean "no filter".
type TrailFilter struct {
	ActorID    domain.ActorID
	Action     ActionType
	EntityType string
	Since      time.Time
}

// TrailPage is one cursor page of the audit trail, newest first.
// NextCursor is 0 when the scan is exhausted; otherwise pass it back to
// continue below the last row already returned. Because the cursor is the
// insert sequence, rows inserted mid-scan (which get higher sequences) can
// never reappear in or vanish from later pages.
type TrailPage struct {
	Records    []AuditRecord `json:"records"`
	NextCursor int64         `json:"next_cursor"`
}

// DashboardCounts are the aggregates the store computes in one pass.
// Presence and notification pending counts are layered in by the query
// service from their own stores.
type DashboardCounts struct {
	ActiveUsers1h int `json:"active_users_1h"`
	Activities1h  int `json:"activities_1h"`
	Errors1h      int `json:"errors_1h"`
}

// Store is the single source of truth for the four append-only record kinds.
//
// Append methods assign ID, Seq, and Timestamp (write-commit time) on the
// passed record before returning, so callers observe exactly what was
// persisted. Apart from MarkEventProcessed there is no update or delete.
type Store interface {
	// AppendChange persists one AuditRecord and its FieldChanges as an
	// atomic unit: either all rows commit or none do.
	AppendChange(ctx context.Context, record *AuditRecord, changes []*FieldChange) error
	AppendSystemEvent(ctx context.Context, event *SystemEvent) error
	AppendActivity(ctx context.Context, entry *ActivityEntry) error

	// MarkEventProcessed flags a system event as handled by dispatch.
	MarkEventProcessed(ctx context.Context, eventID uuid.UUID) error

	EntityHistory(ctx context.Context, entity domain.EntityRef, limit int) ([]FieldChange, error)
	ActorTimeline(ctx context.Context, actorID domain.ActorID, since time.Time, limit int) ([]ActivityEntry, error)
	// SystemEvents returns events since the cutoff at or above minSeverity,
	// newest first. A nil minSeverity returns everything, which always
	// includes error and critical.
	SystemEvents(ctx context.Context, since time.Time, minSeverity *Severity) ([]SystemEvent, error)
	TrailPage(ctx context.Context, filter TrailFilter, cursor int64, pageSize int) (TrailPage, error)
	DashboardCounts(ctx context.Context, now time.Time) (DashboardCounts, error)
}
