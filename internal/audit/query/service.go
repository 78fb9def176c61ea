// Package query is the engine's read side: history, timelines, event feeds,
// trail pagination, CSV export, and dashboard aggregates. Every operation is
// side-effect-free and takes the caller explicitly; ownership and admin rules
// are enforced here, not trusted from transport.
package query

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"shiplog/internal/audit"
	"shiplog/internal/notify"
	"shiplog/internal/presence"
	"shiplog/pkg/domain"
	dErrors "shiplog/pkg/domain-errors"
)

// onlineWindow is the dashboard's definition of "online".
const onlineWindow = 15 * time.Minute

// exportPageSize is the cursor page size the CSV export walks with.
const exportPageSize = 500

// Dashboard is the aggregate snapshot the dashboard endpoint serves.
type Dashboard struct {
	ActiveUsers1h     int                     `json:"active_users_1h"`
	Activities1h      int                     `json:"activities_1h"`
	Errors1h          int                     `json:"errors_1h"`
	Online15m         int                     `json:"online_15m"`
	PendingByCategory map[notify.Category]int `json:"pending_by_category"`
}

// Service answers read queries over the audit store, layering in presence
// and notification counts for the dashboard. Presence and notifications are
// optional; when absent their dashboard fields stay zero.
type Service struct {
	store         audit.Store
	presence      presence.Store
	notifications notify.Store
	tracer        trace.Tracer
}

type Option func(*Service)

func WithPresence(p presence.Store) Option {
	return func(s *Service) { s.presence = p }
}

func WithNotifications(n notify.Store) Option {
	return func(s *Service) { s.notifications = n }
}

func New(store audit.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tracer: otel.Tracer("shiplog/audit/query"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EntityHistory returns the newest-first field changes for one entity. Any
// authenticated caller may read entity history.
func (s *Service) EntityHistory(ctx context.Context, caller domain.Caller, entity domain.EntityRef, limit int) ([]audit.FieldChange, error) {
	ctx, span := s.tracer.Start(ctx, "query.EntityHistory")
	defer span.End()

	if caller.ActorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller required")
	}
	if entity.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "entity reference required")
	}
	history, err := s.store.EntityHistory(ctx, entity, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "entity history query failed")
	}
	return history, nil
}

// ActorTimeline returns the actor's activity inside the window, newest
// first. Callers may read their own timeline; admins may read anyone's.
func (s *Service) ActorTimeline(ctx context.Context, caller domain.Caller, actorID domain.ActorID, window time.Duration, limit int) ([]audit.ActivityEntry, error) {
	ctx, span := s.tracer.Start(ctx, "query.ActorTimeline")
	defer span.End()

	if !caller.CanReadTimeline(actorID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "timeline belongs to another actor")
	}
	since := time.Now().Add(-clampWindow(window))
	timeline, err := s.store.ActorTimeline(ctx, actorID, since, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "timeline query failed")
	}
	return timeline, nil
}

// SystemEvents returns events inside the window at or above minSeverity,
// newest first. A nil minSeverity returns everything, which by the severity
// ordering always includes error and critical. Admin only.
func (s *Service) SystemEvents(ctx context.Context, caller domain.Caller, window time.Duration, minSeverity *audit.Severity) ([]audit.SystemEvent, error) {
	ctx, span := s.tracer.Start(ctx, "query.SystemEvents")
	defer span.End()

	if !caller.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "system events require admin role")
	}
	if minSeverity != nil && !minSeverity.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown severity %q", *minSeverity)
	}
	since := time.Now().Add(-clampWindow(window))
	events, err := s.store.SystemEvents(ctx, since, minSeverity)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "system events query failed")
	}
	return events, nil
}

// Trail returns one cursor page of the filtered audit trail. Pass the
// returned NextCursor to continue; 0 means the scan is done. Admin only.
func (s *Service) Trail(ctx context.Context, caller domain.Caller, window time.Duration, filter audit.TrailFilter, cursor int64, pageSize int) (audit.TrailPage, error) {
	ctx, span := s.tracer.Start(ctx, "query.Trail")
	defer span.End()

	if !caller.IsAdmin() {
		return audit.TrailPage{}, dErrors.New(dErrors.CodeForbidden, "audit trail requires admin role")
	}
	if cursor < 0 {
		return audit.TrailPage{}, dErrors.New(dErrors.CodeInvalidInput, "cursor must not be negative")
	}
	filter.Since = time.Now().Add(-clampWindow(window))
	page, err := s.store.TrailPage(ctx, filter, cursor, pageSize)
	if err != nil {
		return audit.TrailPage{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "trail query failed")
	}
	return page, nil
}

// exportColumns is the fixed CSV column order. Appending is fine; reordering
// breaks downstream imports.
var exportColumns = []string{
	"seq", "timestamp", "actor_id", "action_type", "entity_type", "entity_id",
	"old_value", "new_value", "origin_address", "status", "error_message",
}

// ExportCSV streams the filtered trail as CSV, oldest page last, walking the
// same seq cursor as Trail so concurrent inserts cannot duplicate or drop
// rows. On error the stream stops mid-file; the caller surfaces the failure.
// Admin only.
func (s *Service) ExportCSV(ctx context.Context, caller domain.Caller, window time.Duration, filter audit.TrailFilter, w io.Writer) error {
	ctx, span := s.tracer.Start(ctx, "query.ExportCSV")
	defer span.End()

	if !caller.IsAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "audit export requires admin role")
	}
	filter.Since = time.Now().Add(-clampWindow(window))

	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	cursor := int64(0)
	for {
		page, err := s.store.TrailPage(ctx, filter, cursor, exportPageSize)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "trail export failed")
		}
		for _, record := range page.Records {
			row := []string{
				strconv.FormatInt(record.Seq, 10),
				record.Timestamp.UTC().Format(time.RFC3339Nano),
				record.ActorID.String(),
				string(record.Action),
				record.EntityType,
				record.EntityID,
				record.OldValue,
				record.NewValue,
				record.Origin,
				string(record.Status),
				record.ErrorMessage,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
		if page.NextCursor == 0 {
			break
		}
		cursor = page.NextCursor
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// DashboardMetrics returns the aggregate snapshot. Admin only. Presence or
// notification store failures zero their fields rather than failing the
// whole dashboard.
func (s *Service) DashboardMetrics(ctx context.Context, caller domain.Caller) (Dashboard, error) {
	ctx, span := s.tracer.Start(ctx, "query.DashboardMetrics")
	defer span.End()

	if !caller.IsAdmin() {
		return Dashboard{}, dErrors.New(dErrors.CodeForbidden, "dashboard requires admin role")
	}

	now := time.Now()
	counts, err := s.store.DashboardCounts(ctx, now)
	if err != nil {
		return Dashboard{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "dashboard query failed")
	}
	dash := Dashboard{
		ActiveUsers1h:     counts.ActiveUsers1h,
		Activities1h:      counts.Activities1h,
		Errors1h:          counts.Errors1h,
		PendingByCategory: map[notify.Category]int{},
	}

	if s.presence != nil {
		if online, err := s.presence.CountActive(ctx, now, onlineWindow); err == nil {
			dash.Online15m = online
		}
	}
	if s.notifications != nil {
		if pending, err := s.notifications.PendingByCategory(ctx); err == nil {
			dash.PendingByCategory = pending
		}
	}
	return dash, nil
}

// clampWindow defaults unset windows to 24h and caps lookback at 90 days.
func clampWindow(window time.Duration) time.Duration {
	if window <= 0 {
		return 24 * time.Hour
	}
	if window > 90*24*time.Hour {
		return 90 * 24 * time.Hour
	}
	return window
}
