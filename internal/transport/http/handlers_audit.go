package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"shiplog/internal/audit"
	"shiplog/internal/audit/query"
	"shiplog/internal/platform/middleware"
	"shiplog/internal/transport/http/shared"
	"shiplog/pkg/domain"
	dErrors "shiplog/pkg/domain-errors"
	"shiplog/pkg/requestcontext"
)

//go:generate mockgen -source=handlers_audit.go -destination=mocks/query_service_mock.go -package=mocks

// QueryService is the read surface the audit handlers expose.
type QueryService interface {
	EntityHistory(ctx context.Context, caller domain.Caller, entity domain.EntityRef, limit int) ([]audit.FieldChange, error)
	ActorTimeline(ctx context.Context, caller domain.Caller, actorID domain.ActorID, window time.Duration, limit int) ([]audit.ActivityEntry, error)
	SystemEvents(ctx context.Context, caller domain.Caller, window time.Duration, minSeverity *audit.Severity) ([]audit.SystemEvent, error)
	Trail(ctx context.Context, caller domain.Caller, window time.Duration, filter audit.TrailFilter, cursor int64, pageSize int) (audit.TrailPage, error)
	ExportCSV(ctx context.Context, caller domain.Caller, window time.Duration, filter audit.TrailFilter, w io.Writer) error
	DashboardMetrics(ctx context.Context, caller domain.Caller) (query.Dashboard, error)
}

// AuditHandler serves the audit read endpoints.
type AuditHandler struct {
	queries QueryService
	logger  *slog.Logger
}

func NewAuditHandler(queries QueryService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{queries: queries, logger: logger}
}

// Register mounts the audit routes. RequireAuth must already be in the chain;
// admin-only routes add their own gate.
func (h *AuditHandler) Register(r chi.Router) {
	r.Get("/audit/user-activity/{actor_id}", h.handleUserActivity)
	r.Get("/audit/entity-history/{entity_type}/{entity_id}", h.handleEntityHistory)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(h.logger))
		r.Get("/audit/system-events", h.handleSystemEvents)
		r.Get("/audit/trail", h.handleTrail)
		r.Get("/audit/dashboard", h.handleDashboard)
		r.Get("/audit/export", h.handleExport)
	})
}

func (h *AuditHandler) handleUserActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID, err := domain.ParseActorID(chi.URLParam(r, "actor_id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	timeline, err := h.queries.ActorTimeline(ctx, requestcontext.Caller(ctx), actorID, windowParam(r), intParam(r, "limit"))
	if err != nil {
		h.logError(ctx, "user activity query failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"activities": emptyIfNil(timeline)})
}

func (h *AuditHandler) handleEntityHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entity, err := domain.ParseEntityRef(chi.URLParam(r, "entity_type"), chi.URLParam(r, "entity_id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	history, err := h.queries.EntityHistory(ctx, requestcontext.Caller(ctx), entity, intParam(r, "limit"))
	if err != nil {
		h.logError(ctx, "entity history query failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"changes": emptyIfNil(history)})
}

func (h *AuditHandler) handleSystemEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var minSeverity *audit.Severity
	if raw := r.URL.Query().Get("severity"); raw != "" {
		severity := audit.Severity(raw)
		minSeverity = &severity
	}

	events, err := h.queries.SystemEvents(ctx, requestcontext.Caller(ctx), windowParam(r), minSeverity)
	if err != nil {
		h.logError(ctx, "system events query failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": emptyIfNil(events)})
}

func (h *AuditHandler) handleTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	cursor, err := int64Param(r, "cursor")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	filter := audit.TrailFilter{
		ActorID:    domain.ActorID(q.Get("actor_id")),
		Action:     audit.ActionType(q.Get("action_type")),
		EntityType: q.Get("entity_type"),
	}

	page, err := h.queries.Trail(ctx, requestcontext.Caller(ctx), windowParam(r), filter, cursor, intParam(r, "page_size"))
	if err != nil {
		h.logError(ctx, "trail query failed", err)
		shared.WriteError(w, err)
		return
	}
	if page.Records == nil {
		page.Records = []audit.AuditRecord{}
	}
	shared.WriteJSON(w, http.StatusOK, page)
}

func (h *AuditHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dash, err := h.queries.DashboardMetrics(ctx, requestcontext.Caller(ctx))
	if err != nil {
		h.logError(ctx, "dashboard query failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, dash)
}

func (h *AuditHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := audit.TrailFilter{
		ActorID:    domain.ActorID(q.Get("actor_id")),
		Action:     audit.ActionType(q.Get("action_type")),
		EntityType: q.Get("entity_type"),
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-trail.csv"`)

	cw := &countingWriter{w: w}
	if err := h.queries.ExportCSV(ctx, requestcontext.Caller(ctx), windowParam(r), filter, cw); err != nil {
		h.logError(ctx, "csv export failed", err)
		if cw.n == 0 {
			shared.WriteError(w, err)
			return
		}
		// Part of the stream is already on the wire; the truncated file is
		// the client's failure signal.
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (h *AuditHandler) logError(ctx context.Context, msg string, err error) {
	log := h.logger.WarnContext
	if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.Is(err, dErrors.CodeUnavailable) {
		log = h.logger.ErrorContext
	}
	log(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
}

// windowParam reads the "hours" query parameter as a lookback window.
// Zero means "use the service default".
func windowParam(r *http.Request) time.Duration {
	hours := intParam(r, "hours")
	return time.Duration(hours) * time.Hour
}

func intParam(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

func int64Param(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s parameter", name)
	}
	return v, nil
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
