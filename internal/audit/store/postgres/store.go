// Package postgres is the durable audit store. It is pure I/O; rules such as
// the notable-action set or strictness live in the recorder.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"shiplog/internal/audit"
	"shiplog/pkg/domain"
)

// Store persists audit records in PostgreSQL. Sequences come from BIGSERIAL
// columns and timestamps from the database clock, so ordering and cursor
// stability hold across concurrent writers.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS audit_records (
			id UUID PRIMARY KEY,
			seq BIGSERIAL UNIQUE NOT NULL,
			ts TIMESTAMPTZ NOT NULL DEFAULT now(),
			actor_id TEXT NOT NULL,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			old_value TEXT NOT NULL DEFAULT '',
			new_value TEXT NOT NULL DEFAULT '',
			origin TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_audit_records_actor ON audit_records (actor_id, seq DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_records_ts ON audit_records (ts);

		CREATE TABLE IF NOT EXISTS field_changes (
			id UUID PRIMARY KEY,
			audit_id UUID NOT NULL REFERENCES audit_records (id),
			ts TIMESTAMPTZ NOT NULL DEFAULT now(),
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			field TEXT NOT NULL,
			old_value TEXT NOT NULL DEFAULT '',
			new_value TEXT NOT NULL DEFAULT '',
			actor_id TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_field_changes_entity ON field_changes (entity_type, entity_id, ts DESC);

		CREATE TABLE IF NOT EXISTS system_events (
			id UUID PRIMARY KEY,
			seq BIGSERIAL UNIQUE NOT NULL,
			ts TIMESTAMPTZ NOT NULL DEFAULT now(),
			event_type TEXT NOT NULL,
			entity_type TEXT NOT NULL DEFAULT '',
			entity_id TEXT NOT NULL DEFAULT '',
			payload JSONB,
			severity TEXT NOT NULL,
			processed BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_system_events_ts ON system_events (ts DESC);

		CREATE TABLE IF NOT EXISTS activity_entries (
			id UUID PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL DEFAULT now(),
			actor_id TEXT NOT NULL,
			label TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			origin TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_activity_entries_actor ON activity_entries (actor_id, ts DESC);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// AppendChange writes one AuditRecord and its FieldChanges in a single
// transaction so the unit commits or rolls back together.
func (s *Store) AppendChange(ctx context.Context, record *audit.AuditRecord, changes []*audit.FieldChange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append change: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	record.ID = uuid.New()
	query := `
		INSERT INTO audit_records (id, actor_id, action, entity_type, entity_id, old_value, new_value, origin, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq, ts
	`
	err = tx.QueryRowContext(ctx, query,
		record.ID,
		record.ActorID.String(),
		string(record.Action),
		record.EntityType,
		record.EntityID,
		record.OldValue,
		record.NewValue,
		record.Origin,
		string(record.Status),
		record.ErrorMessage,
	).Scan(&record.Seq, &record.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	for _, change := range changes {
		change.ID = uuid.New()
		change.AuditID = record.ID
		change.Timestamp = record.Timestamp
		_, err = tx.ExecContext(ctx, `
			INSERT INTO field_changes (id, audit_id, ts, entity_type, entity_id, field, old_value, new_value, actor_id, reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			change.ID,
			change.AuditID,
			change.Timestamp,
			change.EntityType,
			change.EntityID,
			change.Field,
			change.OldValue,
			change.NewValue,
			change.ActorID.String(),
			change.Reason,
		)
		if err != nil {
			return fmt.Errorf("insert field change: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append change: %w", err)
	}
	return nil
}

func (s *Store) AppendSystemEvent(ctx context.Context, event *audit.SystemEvent) error {
	event.ID = uuid.New()

	var payload []byte
	if len(event.Payload) > 0 {
		b, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		payload = b
	}

	query := `
		INSERT INTO system_events (id, event_type, entity_type, entity_id, payload, severity, processed)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING seq, ts
	`
	err := s.db.QueryRowContext(ctx, query,
		event.ID,
		event.EventType,
		event.EntityType,
		event.EntityID,
		nullableBytes(payload),
		string(event.Severity),
	).Scan(&event.Seq, &event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert system event: %w", err)
	}
	return nil
}

func (s *Store) AppendActivity(ctx context.Context, entry *audit.ActivityEntry) error {
	entry.ID = uuid.New()
	query := `
		INSERT INTO activity_entries (id, actor_id, label, details, origin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ts
	`
	err := s.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.ActorID.String(),
		entry.Label,
		entry.Details,
		entry.Origin,
	).Scan(&entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, eventID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE system_events SET processed = TRUE WHERE id = $1 AND processed = FALSE`, eventID)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

func (s *Store) EntityHistory(ctx context.Context, entity domain.EntityRef, limit int) ([]audit.FieldChange, error) {
	query := `
		SELECT id, audit_id, ts, entity_type, entity_id, field, old_value, new_value, actor_id, reason
		FROM field_changes
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY ts DESC, id DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, entity.Type, entity.ID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query entity history: %w", err)
	}
	defer rows.Close()

	var history []audit.FieldChange
	for rows.Next() {
		var c audit.FieldChange
		var actorID string
		if err := rows.Scan(&c.ID, &c.AuditID, &c.Timestamp, &c.EntityType, &c.EntityID, &c.Field, &c.OldValue, &c.NewValue, &actorID, &c.Reason); err != nil {
			return nil, fmt.Errorf("scan field change: %w", err)
		}
		c.ActorID = domain.ActorID(actorID)
		history = append(history, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field changes: %w", err)
	}
	return history, nil
}

func (s *Store) ActorTimeline(ctx context.Context, actorID domain.ActorID, since time.Time, limit int) ([]audit.ActivityEntry, error) {
	query := `
		SELECT id, ts, actor_id, label, details, origin
		FROM activity_entries
		WHERE actor_id = $1 AND ts >= $2
		ORDER BY ts DESC, id DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, actorID.String(), since, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query actor timeline: %w", err)
	}
	defer rows.Close()

	var timeline []audit.ActivityEntry
	for rows.Next() {
		var entry audit.ActivityEntry
		var actor string
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &actor, &entry.Label, &entry.Details, &entry.Origin); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		entry.ActorID = domain.ActorID(actor)
		timeline = append(timeline, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity entries: %w", err)
	}
	return timeline, nil
}

func (s *Store) SystemEvents(ctx context.Context, since time.Time, minSeverity *audit.Severity) ([]audit.SystemEvent, error) {
	query := `
		SELECT id, seq, ts, event_type, entity_type, entity_id, payload, severity, processed
		FROM system_events
		WHERE ts >= $1
	`
	args := []any{since}
	if minSeverity != nil {
		query += ` AND severity = ANY($2)`
		args = append(args, pq.Array(severitiesAtLeast(*minSeverity)))
	}
	query += ` ORDER BY seq DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query system events: %w", err)
	}
	defer rows.Close()

	var events []audit.SystemEvent
	for rows.Next() {
		var event audit.SystemEvent
		var severity string
		var payload []byte
		if err := rows.Scan(&event.ID, &event.Seq, &event.Timestamp, &event.EventType, &event.EntityType, &event.EntityID, &payload, &severity, &event.Processed); err != nil {
			return nil, fmt.Errorf("scan system event: %w", err)
		}
		event.Severity = audit.Severity(severity)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal event payload: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate system events: %w", err)
	}
	return events, nil
}

func (s *Store) TrailPage(ctx context.Context, filter audit.TrailFilter, cursor int64, pageSize int) (audit.TrailPage, error) {
	pageSize = clampLimit(pageSize)

	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if cursor > 0 {
		conditions = append(conditions, "seq < "+arg(cursor))
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "ts >= "+arg(filter.Since))
	}
	if filter.ActorID != "" {
		conditions = append(conditions, "actor_id = "+arg(filter.ActorID.String()))
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = "+arg(string(filter.Action)))
	}
	if filter.EntityType != "" {
		conditions = append(conditions, "entity_type = "+arg(filter.EntityType))
	}

	query := `
		SELECT id, seq, ts, actor_id, action, entity_type, entity_id, old_value, new_value, origin, status, error_message
		FROM audit_records
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY seq DESC LIMIT " + arg(pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return audit.TrailPage{}, fmt.Errorf("query audit trail: %w", err)
	}
	defer rows.Close()

	page := audit.TrailPage{}
	for rows.Next() {
		record, err := scanAuditRecord(rows)
		if err != nil {
			return audit.TrailPage{}, err
		}
		page.Records = append(page.Records, record)
	}
	if err := rows.Err(); err != nil {
		return audit.TrailPage{}, fmt.Errorf("iterate audit records: %w", err)
	}
	if len(page.Records) == pageSize {
		page.NextCursor = page.Records[len(page.Records)-1].Seq
	}
	return page, nil
}

func (s *Store) DashboardCounts(ctx context.Context, now time.Time) (audit.DashboardCounts, error) {
	cutoff := now.Add(-time.Hour)
	var counts audit.DashboardCounts

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT actor_id)
		FROM activity_entries
		WHERE ts >= $1
	`, cutoff).Scan(&counts.Activities1h, &counts.ActiveUsers1h)
	if err != nil {
		return counts, fmt.Errorf("count activities: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM system_events
		WHERE ts >= $1 AND severity IN ('error', 'critical')
	`, cutoff).Scan(&counts.Errors1h)
	if err != nil {
		return counts, fmt.Errorf("count error events: %w", err)
	}
	return counts, nil
}

type auditRecordRow interface {
	Scan(dest ...any) error
}

func scanAuditRecord(row auditRecordRow) (audit.AuditRecord, error) {
	var record audit.AuditRecord
	var actorID, action, status string
	err := row.Scan(
		&record.ID,
		&record.Seq,
		&record.Timestamp,
		&actorID,
		&action,
		&record.EntityType,
		&record.EntityID,
		&record.OldValue,
		&record.NewValue,
		&record.Origin,
		&status,
		&record.ErrorMessage,
	)
	if err != nil {
		return record, fmt.Errorf("scan audit record: %w", err)
	}
	record.ActorID = domain.ActorID(actorID)
	record.Action = audit.ActionType(action)
	record.Status = audit.RecordStatus(status)
	return record, nil
}

func severitiesAtLeast(min audit.Severity) []string {
	all := []audit.Severity{audit.SeverityInfo, audit.SeverityWarning, audit.SeverityError, audit.SeverityCritical}
	var out []string
	for _, s := range all {
		if s.AtLeast(min) {
			out = append(out, string(s))
		}
	}
	return out
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
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
