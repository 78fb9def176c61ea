// Package postgres is the durable notification store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shiplog/internal/notify"
	"shiplog/pkg/domain"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the notifications table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY,
			recipient_id TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			source_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			consumed BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_recipient_pending
			ON notifications (recipient_id, created_at) WHERE NOT consumed;
		CREATE INDEX IF NOT EXISTS idx_notifications_recipient_recent
			ON notifications (recipient_id, created_at DESC);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure notifications schema: %w", err)
	}
	return nil
}

// Create inserts the notification. A duplicate ID is a no-op; the stored
// row's created_at is read back either way so the caller sees commit time.
func (s *Store) Create(ctx context.Context, n *notify.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, title, body, category, source_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		n.ID,
		n.RecipientID.String(),
		n.Title,
		n.Body,
		string(n.Category),
		n.SourceID,
	).Scan(&n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.QueryRowContext(ctx,
			`SELECT created_at, consumed FROM notifications WHERE id = $1`, n.ID,
		).Scan(&n.CreatedAt, &n.Consumed)
	}
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Store) ListUnconsumed(ctx context.Context, recipient domain.ActorID, limit int) ([]notify.Notification, error) {
	query := `
		SELECT id, recipient_id, title, body, category, source_id, created_at, consumed
		FROM notifications
		WHERE recipient_id = $1 AND NOT consumed
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`
	return s.list(ctx, query, recipient.String(), clampLimit(limit))
}

func (s *Store) ListRecent(ctx context.Context, recipient domain.ActorID, limit int) ([]notify.Notification, error) {
	query := `
		SELECT id, recipient_id, title, body, category, source_id, created_at, consumed
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return s.list(ctx, query, recipient.String(), clampLimit(limit))
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*notify.Notification, error) {
	query := `
		SELECT id, recipient_id, title, body, category, source_id, created_at, consumed
		FROM notifications
		WHERE id = $1
	`
	var n notify.Notification
	var recipient, category string
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&n.ID, &recipient, &n.Title, &n.Body, &category, &n.SourceID, &n.CreatedAt, &n.Consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notify.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	n.RecipientID = domain.ActorID(recipient)
	n.Category = notify.Category(category)
	return &n, nil
}

func (s *Store) MarkConsumed(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET consumed = TRUE WHERE id = $1 AND NOT consumed`, id)
	if err != nil {
		return fmt.Errorf("mark notification consumed: %w", err)
	}
	return nil
}

func (s *Store) CountUnconsumed(ctx context.Context, recipient domain.ActorID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT consumed`,
		recipient.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unconsumed notifications: %w", err)
	}
	return count, nil
}

func (s *Store) PendingByCategory(ctx context.Context) (map[notify.Category]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM notifications WHERE NOT consumed GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("count pending by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[notify.Category]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("scan pending count: %w", err)
		}
		counts[notify.Category(category)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending counts: %w", err)
	}
	return counts, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]notify.Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []notify.Notification
	for rows.Next() {
		var n notify.Notification
		var recipient, category string
		if err := rows.Scan(&n.ID, &recipient, &n.Title, &n.Body, &category, &n.SourceID, &n.CreatedAt, &n.Consumed); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.RecipientID = domain.ActorID(recipient)
		n.Category = notify.Category(category)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
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
