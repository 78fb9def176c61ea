package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shiplog/internal/audit"
	"shiplog/pkg/domain"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) appendChange(actor domain.ActorID, action audit.ActionType, entityID string) *audit.AuditRecord {
	record := &audit.AuditRecord{
		ActorID:    actor,
		Action:     action,
		EntityType: "maintenance_request",
		EntityID:   entityID,
		Status:     audit.StatusCompleted,
	}
	change := &audit.FieldChange{
		EntityType: "maintenance_request",
		EntityID:   entityID,
		Field:      "status",
		OldValue:   "draft",
		NewValue:   "submitted",
		ActorID:    actor,
	}
	s.Require().NoError(s.store.AppendChange(s.ctx, record, []*audit.FieldChange{change}))
	return record
}

func (s *MemoryStoreSuite) TestAppendChange() {
	s.Run("assigns id seq and timestamp", func() {
		record := s.appendChange("U1", audit.ActionSubmit, "MR001")
		s.NotZero(record.ID)
		s.Equal(int64(1), record.Seq)
		s.False(record.Timestamp.IsZero())
	})

	s.Run("sequence increases per record", func() {
		first := s.appendChange("U1", audit.ActionCreate, "MR002")
		second := s.appendChange("U1", audit.ActionUpdate, "MR002")
		s.Greater(second.Seq, first.Seq)
	})

	s.Run("field changes share the record commit time", func() {
		record := &audit.AuditRecord{
			ActorID: "U2", Action: audit.ActionUpdate,
			EntityType: "fuel_log", EntityID: "FL001",
			Status: audit.StatusCompleted,
		}
		changes := []*audit.FieldChange{
			{EntityType: "fuel_log", EntityID: "FL001", Field: "volume", ActorID: "U2"},
			{EntityType: "fuel_log", EntityID: "FL001", Field: "unit", ActorID: "U2"},
		}
		s.Require().NoError(s.store.AppendChange(s.ctx, record, changes))
		s.Equal(record.Timestamp, changes[0].Timestamp)
		s.Equal(record.Timestamp, changes[1].Timestamp)
		s.Equal(record.ID, changes[0].AuditID)
	})
}

func (s *MemoryStoreSuite) TestTimestampsMonotonic() {
	var last time.Time
	for i := 0; i < 100; i++ {
		record := s.appendChange("U1", audit.ActionUpdate, "MR001")
		s.False(record.Timestamp.Before(last), "timestamp went backwards at record %d", i)
		last = record.Timestamp
	}
}

func (s *MemoryStoreSuite) TestEntityHistory() {
	s.appendChange("U1", audit.ActionCreate, "MR001")
	s.appendChange("U2", audit.ActionUpdate, "MR001")
	s.appendChange("U1", audit.ActionUpdate, "MR999")

	history, err := s.store.EntityHistory(s.ctx, domain.EntityRef{Type: "maintenance_request", ID: "MR001"}, 0)
	s.Require().NoError(err)
	s.Len(history, 2)
	// Newest first.
	s.Equal(domain.ActorID("U2"), history[0].ActorID)
}

func (s *MemoryStoreSuite) TestActorTimeline() {
	for i := 0; i < 3; i++ {
		entry := &audit.ActivityEntry{ActorID: "U1", Label: fmt.Sprintf("action-%d", i)}
		s.Require().NoError(s.store.AppendActivity(s.ctx, entry))
	}
	s.Require().NoError(s.store.AppendActivity(s.ctx, &audit.ActivityEntry{ActorID: "U2", Label: "other"}))

	s.Run("filters by actor newest first", func() {
		timeline, err := s.store.ActorTimeline(s.ctx, "U1", time.Time{}, 0)
		s.Require().NoError(err)
		s.Len(timeline, 3)
		s.Equal("action-2", timeline[0].Label)
	})

	s.Run("respects limit", func() {
		timeline, err := s.store.ActorTimeline(s.ctx, "U1", time.Time{}, 2)
		s.Require().NoError(err)
		s.Len(timeline, 2)
	})

	s.Run("window cutoff excludes older entries", func() {
		timeline, err := s.store.ActorTimeline(s.ctx, "U1", time.Now().Add(time.Hour), 0)
		s.Require().NoError(err)
		s.Empty(timeline)
	})
}

func (s *MemoryStoreSuite) TestSystemEvents() {
	severities := []audit.Severity{
		audit.SeverityInfo, audit.SeverityWarning, audit.SeverityError, audit.SeverityCritical,
	}
	for _, severity := range severities {
		event := &audit.SystemEvent{EventType: "test", Severity: severity}
		s.Require().NoError(s.store.AppendSystemEvent(s.ctx, event))
	}

	s.Run("nil filter returns everything", func() {
		events, err := s.store.SystemEvents(s.ctx, time.Time{}, nil)
		s.Require().NoError(err)
		s.Len(events, 4)
	})

	s.Run("min severity filters below threshold", func() {
		minSeverity := audit.SeverityError
		events, err := s.store.SystemEvents(s.ctx, time.Time{}, &minSeverity)
		s.Require().NoError(err)
		s.Len(events, 2)
		for _, event := range events {
			s.True(event.Severity.AtLeast(audit.SeverityError))
		}
	})

	s.Run("warning threshold keeps error and critical", func() {
		minSeverity := audit.SeverityWarning
		events, err := s.store.SystemEvents(s.ctx, time.Time{}, &minSeverity)
		s.Require().NoError(err)
		s.Len(events, 3)
	})
}

func (s *MemoryStoreSuite) TestMarkEventProcessed() {
	event := &audit.SystemEvent{EventType: "test", Severity: audit.SeverityInfo}
	s.Require().NoError(s.store.AppendSystemEvent(s.ctx, event))

	s.Require().NoError(s.store.MarkEventProcessed(s.ctx, event.ID))
	events, err := s.store.SystemEvents(s.ctx, time.Time{}, nil)
	s.Require().NoError(err)
	s.True(events[0].Processed)

	// Repeat is a no-op.
	s.Require().NoError(s.store.MarkEventProcessed(s.ctx, event.ID))
}

func (s *MemoryStoreSuite) TestTrailPage() {
	for i := 0; i < 25; i++ {
		s.appendChange("U1", audit.ActionUpdate, fmt.Sprintf("MR%03d", i))
	}

	s.Run("first page newest first with cursor", func() {
		page, err := s.store.TrailPage(s.ctx, audit.TrailFilter{}, 0, 10)
		s.Require().NoError(err)
		s.Len(page.Records, 10)
		s.Equal(int64(25), page.Records[0].Seq)
		s.Equal(int64(16), page.NextCursor)
	})

	s.Run("cursor continues below previous page", func() {
		page, err := s.store.TrailPage(s.ctx, audit.TrailFilter{}, 16, 10)
		s.Require().NoError(err)
		s.Len(page.Records, 10)
		s.Equal(int64(15), page.Records[0].Seq)
	})

	s.Run("exhausted scan returns zero cursor", func() {
		page, err := s.store.TrailPage(s.ctx, audit.TrailFilter{}, 6, 10)
		s.Require().NoError(err)
		s.Len(page.Records, 5)
		s.Zero(page.NextCursor)
	})

	s.Run("filter by action", func() {
		s.appendChange("U9", audit.ActionApprove, "MR500")
		page, err := s.store.TrailPage(s.ctx, audit.TrailFilter{Action: audit.ActionApprove}, 0, 10)
		s.Require().NoError(err)
		s.Len(page.Records, 1)
		s.Equal(domain.ActorID("U9"), page.Records[0].ActorID)
	})
}

// TestTrailPageStableUnderConcurrentInserts paginates while writers keep
// appending: no record visible at scan start may be skipped or repeated.
func (s *MemoryStoreSuite) TestTrailPageStableUnderConcurrentInserts() {
	const initial = 30
	for i := 0; i < initial; i++ {
		s.appendChange("U1", audit.ActionUpdate, fmt.Sprintf("MR%03d", i))
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				record := &audit.AuditRecord{
					ActorID: "U2", Action: audit.ActionCreate,
					EntityType: "maintenance_request", EntityID: "CONCURRENT",
					Status: audit.StatusCompleted,
				}
				_ = s.store.AppendChange(s.ctx, record, nil)
			}
		}
	}()

	seen := make(map[int64]bool)
	cursor := int64(0)
	for {
		page, err := s.store.TrailPage(s.ctx, audit.TrailFilter{}, cursor, 7)
		s.Require().NoError(err)
		for _, record := range page.Records {
			s.False(seen[record.Seq], "seq %d returned twice", record.Seq)
			seen[record.Seq] = true
		}
		if page.NextCursor == 0 {
			break
		}
		cursor = page.NextCursor
	}
	close(stop)
	wg.Wait()

	// Every record that existed when the scan started must have been seen.
	for seq := int64(1); seq <= initial; seq++ {
		s.True(seen[seq], "seq %d missing from paginated scan", seq)
	}
}

func (s *MemoryStoreSuite) TestDashboardCounts() {
	s.Require().NoError(s.store.AppendActivity(s.ctx, &audit.ActivityEntry{ActorID: "U1", Label: "a"}))
	s.Require().NoError(s.store.AppendActivity(s.ctx, &audit.ActivityEntry{ActorID: "U1", Label: "b"}))
	s.Require().NoError(s.store.AppendActivity(s.ctx, &audit.ActivityEntry{ActorID: "U2", Label: "c"}))
	s.Require().NoError(s.store.AppendSystemEvent(s.ctx, &audit.SystemEvent{EventType: "x", Severity: audit.SeverityError}))
	s.Require().NoError(s.store.AppendSystemEvent(s.ctx, &audit.SystemEvent{EventType: "y", Severity: audit.SeverityInfo}))

	counts, err := s.store.DashboardCounts(s.ctx, time.Now())
	s.Require().NoError(err)
	s.Equal(3, counts.Activities1h)
	s.Equal(2, counts.ActiveUsers1h)
	s.Equal(1, counts.Errors1h)
}
