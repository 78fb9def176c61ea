package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"shiplog/internal/notify"
	"shiplog/internal/transport/http/shared"
	"shiplog/pkg/domain"
	dErrors "shiplog/pkg/domain-errors"
	"shiplog/pkg/requestcontext"
)

//go:generate mockgen -source=handlers_notifications.go -destination=mocks/notification_service_mock.go -package=mocks

// NotificationService is the poller-facing surface: list what is pending and
// acknowledge what was handled.
type NotificationService interface {
	Pending(ctx context.Context, caller domain.Caller, limit int) ([]notify.Notification, error)
	Recent(ctx context.Context, caller domain.Caller, limit int) ([]notify.Notification, error)
	Consume(ctx context.Context, caller domain.Caller, id uuid.UUID) error
}

type NotificationHandler struct {
	notifications NotificationService
	logger        *slog.Logger
}

func NewNotificationHandler(notifications NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// Register mounts the notification routes. RequireAuth must already be in
// the chain.
func (h *NotificationHandler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Post("/notifications/{id}/consume", h.handleConsume)
}

func (h *NotificationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)

	list := h.notifications.Pending
	if r.URL.Query().Get("include_consumed") == "true" {
		list = h.notifications.Recent
	}

	notifications, err := list(ctx, caller, intParam(r, "limit"))
	if err != nil {
		h.logger.WarnContext(ctx, "notification list failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"notifications": emptyIfNil(notifications)})
}

func (h *NotificationHandler) handleConsume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid notification id"))
		return
	}

	if err := h.notifications.Consume(ctx, requestcontext.Caller(ctx), id); err != nil {
		h.logger.WarnContext(ctx, "notification consume failed",
			"notification_id", id,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
