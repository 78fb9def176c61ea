// Package httptransport wires the engine's read/ack API onto a chi router.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shiplog/internal/platform/metrics"
	"shiplog/internal/platform/middleware"
	"shiplog/internal/presence"
	"shiplog/internal/transport/http/shared"
	"shiplog/pkg/requestcontext"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterConfig collects everything the router mounts.
type RouterConfig struct {
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	JWTValidator  middleware.JWTValidator
	Queries       QueryService
	Notifications NotificationService
	// Presence receives a heartbeat per authenticated request. Optional.
	Presence presence.Store
	// HealthChecks run on /healthz, keyed by dependency name.
	HealthChecks map[string]HealthCheck
}

// NewRouter assembles the full middleware chain and mounts every endpoint.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	if cfg.Metrics != nil {
		r.Use(middleware.Latency(cfg.Metrics))
	}

	r.Get("/healthz", handleHealth(cfg.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.JWTValidator, cfg.Logger))
		if cfg.Presence != nil {
			r.Use(heartbeat(cfg.Presence, cfg.Logger))
		}

		NewAuditHandler(cfg.Queries, cfg.Logger).Register(r)
		NewNotificationHandler(cfg.Notifications, cfg.Logger).Register(r)
	})

	return r
}

// heartbeat touches the presence store for every authenticated request.
// Failures only cost a dashboard metric, so they are logged at debug.
func heartbeat(store presence.Store, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if actorID := requestcontext.ActorID(ctx); !actorID.IsNil() {
				if err := store.Touch(ctx, actorID, time.Now()); err != nil {
					logger.DebugContext(ctx, "presence touch failed", "actor_id", actorID, "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}
		shared.WriteJSON(w, status, map[string]any{
			"status":       http.StatusText(status),
			"dependencies": deps,
		})
	}
}
