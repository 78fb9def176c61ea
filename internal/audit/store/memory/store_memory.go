// Package memory is the in-memory audit store used for local development and
// unit tests. For production use the postgres store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"shiplog/internal/audit"
	"shiplog/pkg/domain"
)

// Store keeps all records in append-order slices guarded by one mutex, so
// write-commit time under the lock is globally monotonic non-decreasing.
type Store struct {
	mu sync.RWMutex

	records    []audit.AuditRecord
	changes    []audit.FieldChange
	events     []audit.SystemEvent
	activities []audit.ActivityEntry

	recordSeq int64
	eventSeq  int64
	lastTS    time.Time
}

func New() *Store {
	return &Store{}
}

// commitTime returns a timestamp that never moves backwards. Must be called
// while holding s.mu.
func (s *Store) commitTime() time.Time {
	now := time.Now()
	if now.Before(s.lastTS) {
		now = s.lastTS
	}
	s.lastTS = now
	return now
}

func (s *Store) AppendChange(_ context.Context, record *audit.AuditRecord, changes []*audit.FieldChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.commitTime()
	s.recordSeq++

	record.ID = uuid.New()
	record.Seq = s.recordSeq
	record.Timestamp = now
	s.records = append(s.records, *record)

	for _, change := range changes {
		change.ID = uuid.New()
		change.AuditID = record.ID
		change.Timestamp = now
		s.changes = append(s.changes, *change)
	}
	return nil
}

func (s *Store) AppendSystemEvent(_ context.Context, event *audit.SystemEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eventSeq++
	event.ID = uuid.New()
	event.Seq = s.eventSeq
	event.Timestamp = s.commitTime()
	s.events = append(s.events, *event)
	return nil
}

func (s *Store) AppendActivity(_ context.Context, entry *audit.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = uuid.New()
	entry.Timestamp = s.commitTime()
	s.activities = append(s.activities, *entry)
	return nil
}

func (s *Store) MarkEventProcessed(_ context.Context, eventID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID == eventID {
			s.events[i].Processed = true
			return nil
		}
	}
	return nil
}

func (s *Store) EntityHistory(_ context.Context, entity domain.EntityRef, limit int) ([]audit.FieldChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = clampLimit(limit)
	var history []audit.FieldChange
	for i := len(s.changes) - 1; i >= 0 && len(history) < limit; i-- {
		c := s.changes[i]
		if c.EntityType == entity.Type && c.EntityID == entity.ID {
			history = append(history, c)
		}
	}
	return history, nil
}

func (s *Store) ActorTimeline(_ context.Context, actorID domain.ActorID, since time.Time, limit int) ([]audit.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = clampLimit(limit)
	var timeline []audit.ActivityEntry
	for i := len(s.activities) - 1; i >= 0 && len(timeline) < limit; i-- {
		entry := s.activities[i]
		if entry.Timestamp.Before(since) {
			break
		}
		if entry.ActorID == actorID {
			timeline = append(timeline, entry)
		}
	}
	return timeline, nil
}

func (s *Store) SystemEvents(_ context.Context, since time.Time, minSeverity *audit.Severity) ([]audit.SystemEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []audit.SystemEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		event := s.events[i]
		if event.Timestamp.Before(since) {
			break
		}
		if minSeverity != nil && !event.Severity.AtLeast(*minSeverity) {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *Store) TrailPage(_ context.Context, filter audit.TrailFilter, cursor int64, pageSize int) (audit.TrailPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pageSize = clampLimit(pageSize)
	page := audit.TrailPage{}
	for i := len(s.records) - 1; i >= 0; i-- {
		record := s.records[i]
		if cursor > 0 && record.Seq >= cursor {
			continue
		}
		if !matchesTrail(record, filter) {
			continue
		}
		page.Records = append(page.Records, record)
		if len(page.Records) == pageSize {
			page.NextCursor = record.Seq
			break
		}
	}
	return page, nil
}

func (s *Store) DashboardCounts(_ context.Context, now time.Time) (audit.DashboardCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := now.Add(-time.Hour)
	var counts audit.DashboardCounts

	actors := make(map[domain.ActorID]struct{})
	for i := len(s.activities) - 1; i >= 0; i-- {
		entry := s.activities[i]
		if entry.Timestamp.Before(cutoff) {
			break
		}
		counts.Activities1h++
		actors[entry.ActorID] = struct{}{}
	}
	counts.ActiveUsers1h = len(actors)

	for i := len(s.events) - 1; i >= 0; i-- {
		event := s.events[i]
		if event.Timestamp.Before(cutoff) {
			break
		}
		if event.Severity.AtLeast(audit.SeverityError) {
			counts.Errors1h++
		}
	}
	return counts, nil
}

func matchesTrail(record audit.AuditRecord, filter audit.TrailFilter) bool {
	if !filter.Since.IsZero() && record.Timestamp.Before(filter.Since) {
		return false
	}
	if filter.ActorID != "" && record.ActorID != filter.ActorID {
		return false
	}
	if filter.Action != "" && record.Action != filter.Action {
		return false
	}
	if filter.EntityType != "" && record.EntityType != filter.EntityType {
		return false
	}
	return true
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
