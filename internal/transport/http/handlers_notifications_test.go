package httptransport

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"shiplog/internal/notify"
	"shiplog/internal/transport/http/mocks"
	"shiplog/pkg/domain"
	dErrors "shiplog/pkg/domain-errors"
	"shiplog/pkg/testutil"
)

func newNotificationRouter(t *testing.T) (*mocks.MockNotificationService, *chi.Mux) {
	t.Helper()
	ctrl := gomock.NewController(t)
	notifications := mocks.NewMockNotificationService(ctrl)

	r := chi.NewRouter()
	NewNotificationHandler(notifications, testutil.DiscardLogger()).Register(r)
	return notifications, r
}

func TestNotificationHandler_handleList_Pending(t *testing.T) {
	notifications, router := newNotificationRouter(t)

	pending := []notify.Notification{{
		ID:          uuid.New(),
		RecipientID: "U1",
		Title:       "Maintenance request MR001 approved",
		Category:    notify.CategorySuccess,
	}}
	notifications.EXPECT().
		Pending(gomock.Any(), domain.Caller{ActorID: "U1", Role: domain.RoleCrew}, 50).
		Return(pending, nil).
		Times(1)

	req := testutil.NewRequest(t, "GET", "/notifications?limit=50")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "U1", domain.RoleCrew))

	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONHasKey(t, rr, "notifications")
}

func TestNotificationHandler_handleList_IncludeConsumed(t *testing.T) {
	notifications, router := newNotificationRouter(t)

	notifications.EXPECT().
		Recent(gomock.Any(), gomock.Any(), 0).
		Return(nil, nil).
		Times(1)

	req := testutil.NewRequest(t, "GET", "/notifications?include_consumed=true")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "U1", domain.RoleCrew))

	testutil.AssertStatusOK(t, rr)
	// A nil slice from the service still renders as an empty JSON array.
	assert.Contains(t, rr.Body.String(), `"notifications":[]`)
}

func TestNotificationHandler_handleConsume_HappyPath(t *testing.T) {
	notifications, router := newNotificationRouter(t)

	id := uuid.New()
	notifications.EXPECT().
		Consume(gomock.Any(), domain.Caller{ActorID: "U1", Role: domain.RoleCrew}, id).
		Return(nil).
		Times(1)

	req := testutil.NewRequest(t, "POST", "/notifications/"+id.String()+"/consume")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "U1", domain.RoleCrew))

	testutil.AssertStatus(t, rr, http.StatusNoContent)
}

func TestNotificationHandler_handleConsume_InvalidID(t *testing.T) {
	_, router := newNotificationRouter(t)

	req := testutil.NewRequest(t, "POST", "/notifications/not-a-uuid/consume")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "U1", domain.RoleCrew))

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestNotificationHandler_handleConsume_Forbidden(t *testing.T) {
	notifications, router := newNotificationRouter(t)

	id := uuid.New()
	notifications.EXPECT().
		Consume(gomock.Any(), gomock.Any(), id).
		Return(dErrors.New(dErrors.CodeForbidden, "notification belongs to another recipient")).
		Times(1)

	req := testutil.NewRequest(t, "POST", "/notifications/"+id.String()+"/consume")
	rr := testutil.DoRequest(router, testutil.WithCaller(req, "U2", domain.RoleCrew))

	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
}
