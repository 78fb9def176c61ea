// main wires the engine: stores, recorder, dispatcher, read API, and the
// server lifecycle. Business rules live in internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"shiplog/internal/audit"
	auditmetrics "shiplog/internal/audit/metrics"
	"shiplog/internal/audit/query"
	"shiplog/internal/audit/recorder"
	auditmemory "shiplog/internal/audit/store/memory"
	auditpostgres "shiplog/internal/audit/store/postgres"
	"shiplog/internal/feed"
	jwttoken "shiplog/internal/jwt_token"
	"shiplog/internal/notify"
	"shiplog/internal/notify/dispatcher"
	notifymetrics "shiplog/internal/notify/metrics"
	notifymemory "shiplog/internal/notify/store/memory"
	notifypostgres "shiplog/internal/notify/store/postgres"
	"shiplog/internal/platform/config"
	"shiplog/internal/platform/httpserver"
	"shiplog/internal/platform/kafka"
	"shiplog/internal/platform/logger"
	"shiplog/internal/platform/metrics"
	platformredis "shiplog/internal/platform/redis"
	"shiplog/internal/presence"
	presencememory "shiplog/internal/presence/store/memory"
	presenceredis "shiplog/internal/presence/store/redis"
	httptransport "shiplog/internal/transport/http"
	"shiplog/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	healthChecks := map[string]httptransport.HealthCheck{}

	// Stores: postgres when a DSN is configured, in-memory otherwise.
	var auditStore audit.Store
	var notifyStore notify.Store
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}

		apg := auditpostgres.New(db)
		if err := apg.EnsureSchema(ctx); err != nil {
			return err
		}
		npg := notifypostgres.New(db)
		if err := npg.EnsureSchema(ctx); err != nil {
			return err
		}
		auditStore = apg
		notifyStore = npg
		healthChecks["postgres"] = db.PingContext
		log.Info("using postgres stores")
	} else {
		auditStore = auditmemory.New()
		notifyStore = notifymemory.New()
		log.Warn("no postgres DSN configured, using in-memory stores")
	}

	// Presence: redis when configured, else per-process.
	var presenceStore presence.Store = presencememory.New()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		presenceStore = presenceredis.New(redisClient.Client)
		healthChecks["redis"] = redisClient.Health
		log.Info("using redis presence store")
	}

	// Optional Kafka feed for external event consumers.
	var dispatchOpts []dispatcher.Option
	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	if producer != nil {
		defer producer.Close()
		dispatchOpts = append(dispatchOpts, dispatcher.WithFeed(feed.NewPublisher(producer, log)))
		log.Info("kafka feed enabled", "topic", cfg.Kafka.FeedTopic)
	}

	notifyMetrics := notifymetrics.New()
	dispatchOpts = append(dispatchOpts,
		dispatcher.WithMetrics(notifyMetrics),
		dispatcher.WithRetry(cfg.Audit.DispatchRetries, cfg.Audit.DispatchBackoff),
	)
	resolver := dispatcher.NewRoleResolver(directory(cfg.Directory))
	dispatch := dispatcher.New(notifyStore, auditStore, resolver, log, cfg.Audit.DispatchBuffer, dispatchOpts...)

	recorderOpts := []recorder.NewOption{
		recorder.WithSink(dispatch),
		recorder.WithMetrics(auditmetrics.New()),
	}
	if cfg.Audit.StrictChanges {
		recorderOpts = append(recorderOpts, recorder.WithStrictChanges())
	}
	rec := recorder.New(auditStore, log, recorderOpts...)

	queries := query.New(auditStore,
		query.WithPresence(presenceStore),
		query.WithNotifications(notifyStore),
	)
	notifications := notify.NewService(notifyStore)

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "shiplog", "shiplog")
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:        log,
		Metrics:       metrics.New(),
		JWTValidator:  jwttoken.NewMiddlewareAdapter(jwtService),
		Queries:       queries,
		Notifications: notifications,
		Presence:      presenceStore,
		HealthChecks:  healthChecks,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	if _, err := rec.RecordSystemEvent(ctx, "engine_started", domain.EntityRef{}, nil, audit.SeverityInfo); err != nil {
		log.Warn("failed to record startup event", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatch.Run(ctx)
	})
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if producer != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ferr := producer.Flush(flushCtx); ferr != nil {
			log.Warn("kafka flush failed", "error", ferr)
		}
	}
	return err
}

func directory(cfg config.Directory) dispatcher.StaticDirectory {
	d := dispatcher.StaticDirectory{}
	add := func(role domain.Role, ids []string) {
		for _, id := range ids {
			d[role] = append(d[role], domain.ActorID(id))
		}
	}
	add(domain.RoleAdmin, cfg.Admins)
	add(domain.RoleSupervisor, cfg.Supervisors)
	add(domain.RoleCrew, cfg.Crew)
	return d
}
