package httptransport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"shiplog/internal/audit"
	"shiplog/internal/audit/query"
	"shiplog/internal/notify"
	"shiplog/internal/transport/http/mocks"
	"shiplog/pkg/domain"
	dErrors "shiplog/pkg/domain-errors"
	"shiplog/pkg/testutil"
)

// newAuditRouter mounts the audit handler on a fresh router, the same way
// NewRouter does, minus the auth middleware. Identity is injected per
// request with testutil.WithCaller.
func newAuditRouter(t *testing.T) (*mocks.MockQueryService, *chi.Mux) {
	t.Helper()
	ctrl := gomock.NewController(t)
	queries := mocks.NewMockQueryService(ctrl)

	r := chi.NewRouter()
	NewAuditHandler(queries, testutil.DiscardLogger()).Register(r)
	return queries, r
}

func TestAuditHandler_handleUserActivity_HappyPath(t *testing.T) {
	queries, router := newAuditRouter(t)

	timeline := []audit.ActivityEntry{{ActorID: "U1", Label: "login"}}
	queries.EXPECT().
		ActorTimeline(gomock.Any(), domain.Caller{ActorID: "U1", Role: domain.RoleCrew}, domain.ActorID("U1"), 6*time.Hour, 20).
		Return(timeline, nil).
		Times(1)

	req := testutil.NewRequest(t, "GET", "/audit/user-activity/U1?hours=6&limit=20")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "U1", domain.RoleCrew))

	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONHasKey(t, rr, "activities")
}

func TestAuditHandler_handleUserActivity_InvalidActorID(t *testing.T) {
	_, router := newAuditRouter(t)

	req := testutil.NewRequest(t, "GET", "/audit/user-activity/%20")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "U1", domain.RoleCrew))

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestAuditHandler_handleUserActivity_Forbidden(t *testing.T) {
	queries, router := newAuditRouter(t)

	queries.EXPECT().
		ActorTimeline(gomock.Any(), gomock.Any(), domain.ActorID("U2"), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeForbidden, "timeline access denied")).
		Times(1)

	req := testutil.NewRequest(t, "GET", "/audit/user-activity/U2")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "U1", domain.RoleCrew))

	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
}

func TestAuditHandler_handleEntityHistory(t *testing.T) {
	queries, router := newAuditRouter(t)

	queries.EXPECT().
		EntityHistory(gomock.Any(), gomock.Any(), domain.EntityRef{Type: "maintenance_request", ID: "MR001"}, 0).
		Return([]audit.FieldChange{{EntityID: "MR001", Field: "status"}}, nil).
		Times(1)

	req := testutil.NewRequest(t, "GET", "/audit/entity-history/maintenance_request/MR001")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "U1", domain.RoleCrew))

	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONHasKey(t, rr, "changes")
}

func TestAuditHandler_AdminRoutesRejectNonAdmins(t *testing.T) {
	_, router := newAuditRouter(t)

	paths := []string{
		"/audit/system-events",
		"/audit/trail",
		"/audit/dashboard",
		"/audit/export",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req := testutil.NewRequest(t, "GET", path)
			rr := testutil.DoRequest(router, testutil.WithCaller(req, "U1", domain.RoleSupervisor))
			testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
		})
	}
}

func TestAuditHandler_handleSystemEvents(t *testing.T) {
	queries, router := newAuditRouter(t)

	warning := audit.SeverityWarning
	queries.EXPECT().
		SystemEvents(gomock.Any(), gomock.Any(), time.Duration(0), &warning).
		Return([]audit.SystemEvent{{EventType: "dispatch_failed", Severity: audit.SeverityError}}, nil).
		Times(1)

	req := testutil.NewRequest(t, "GET", "/audit/system-events?severity=warning")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "ADMIN", domain.RoleAdmin))

	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONHasKey(t, rr, "events")
}

func TestAuditHandler_handleTrail(t *testing.T) {
	queries, router := newAuditRouter(t)

	page := audit.TrailPage{
		Records:    []audit.AuditRecord{{Seq: 42, ActorID: "U1"}},
		NextCursor: 42,
	}
	queries.EXPECT().
		Trail(gomock.Any(), gomock.Any(), gomock.Any(), audit.TrailFilter{ActorID: "U1"}, int64(100), 10).
		Return(page, nil).
		Times(1)

	req := testutil.NewRequest(t, "GET", "/audit/trail?actor_id=U1&cursor=100&page_size=10")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "ADMIN", domain.RoleAdmin))

	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "next_cursor", float64(42))
}

func TestAuditHandler_handleTrail_InvalidCursor(t *testing.T) {
	_, router := newAuditRouter(t)

	req := testutil.NewRequest(t, "GET", "/audit/trail?cursor=banana")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "ADMIN", domain.RoleAdmin))

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestAuditHandler_handleDashboard(t *testing.T) {
	queries, router := newAuditRouter(t)

	dash := query.Dashboard{
		ActiveUsers1h: 3,
		Activities1h:  17,
		Errors1h:      1,
		Online15m:     2,
		PendingByCategory: map[notify.Category]int{
			notify.CategoryAlert: 4,
		},
	}
	queries.EXPECT().
		DashboardMetrics(gomock.Any(), domain.Caller{ActorID: "ADMIN", Role: domain.RoleAdmin}).
		Return(dash, nil).
		Times(1)

	req := testutil.NewRequest(t, "GET", "/audit/dashboard")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "ADMIN", domain.RoleAdmin))

	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "active_users_1h", float64(3))
}

func TestAuditHandler_handleExport_StreamsCSV(t *testing.T) {
	queries, router := newAuditRouter(t)

	queries.EXPECT().
		ExportCSV(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Caller, _ time.Duration, _ audit.TrailFilter, w io.Writer) error {
			_, err := fmt.Fprintln(w, "seq,timestamp,actor_id")
			return err
		}).
		Times(1)

	req := testutil.NewRequest(t, "GET", "/audit/export")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "ADMIN", domain.RoleAdmin))

	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "seq,timestamp,actor_id")
}

// A failure before any bytes hit the wire still gets a JSON error envelope.
func TestAuditHandler_handleExport_ErrorBeforeFirstByte(t *testing.T) {
	queries, router := newAuditRouter(t)

	queries.EXPECT().
		ExportCSV(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(dErrors.New(dErrors.CodeUnavailable, "store unreachable")).
		Times(1)

	req := testutil.NewRequest(t, "GET", "/audit/export")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "ADMIN", domain.RoleAdmin))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	testutil.AssertErrorCode(t, rr, "unavailable")
}
