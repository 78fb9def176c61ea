// Package recorder is the engine's write path. It validates, timestamps, and
// persists change records, system events, and activity entries. Secondary
// effects (deriving system events, feeding the dispatcher) never block or
// fail the caller's primary operation.
package recorder

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"shiplog/internal/audit"
	auditmetrics "shiplog/internal/audit/metrics"
	"shiplog/pkg/domain"
	dErrors "shiplog/pkg/domain-errors"
	"shiplog/pkg/requestcontext"
)

// EventSink receives notable system events for notification dispatch. The
// send must not block; implementations return false when the event cannot be
// accepted right now.
type EventSink interface {
	TryEnqueue(event audit.SystemEvent) bool
}

// ChangeRequest describes one field-level mutation to record.
type ChangeRequest struct {
	Entity    domain.EntityRef
	Field     string
	OldValue  string
	NewValue  string
	ActorID   domain.ActorID
	Action    audit.ActionType
	Reason    string
	// Emergency raises the derived system event to critical severity.
	Emergency bool
	// Failed records the mutation as unsuccessful with the given message.
	Failed       bool
	ErrorMessage string
}

// Option adjusts a single recorder call.
type Option func(*callOptions)

type callOptions struct {
	strict bool
}

// WithStrict makes this RecordChange call propagate store failures to the
// caller. Use at call sites that demand strict auditability.
func WithStrict() Option {
	return func(o *callOptions) { o.strict = true }
}

// Recorder is the single write path into the audit store.
type Recorder struct {
	store   audit.Store
	sink    EventSink
	logger  *slog.Logger
	metrics *auditmetrics.Metrics
	notable audit.NotableActions
	strict  bool
	tracer  trace.Tracer

	// outage tracks whether the previous store write failed, so the first
	// write after recovery can journal the gap.
	outage atomic.Bool
}

type config struct {
	sink    EventSink
	metrics *auditmetrics.Metrics
	notable audit.NotableActions
	strict  bool
}

// NewOption configures the recorder at construction time.
type NewOption func(*config)

// WithSink attaches the dispatcher inbox.
func WithSink(sink EventSink) NewOption {
	return func(c *config) { c.sink = sink }
}

// WithMetrics attaches the audit metrics collector.
func WithMetrics(m *auditmetrics.Metrics) NewOption {
	return func(c *config) { c.metrics = m }
}

// WithNotableActions overrides the default notable-action set.
func WithNotableActions(notable audit.NotableActions) NewOption {
	return func(c *config) { c.notable = notable }
}

// WithStrictChanges makes every RecordChange strict by default.
func WithStrictChanges() NewOption {
	return func(c *config) { c.strict = true }
}

func New(store audit.Store, logger *slog.Logger, opts ...NewOption) *Recorder {
	cfg := &config{notable: audit.DefaultNotableActions()}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Recorder{
		store:   store,
		sink:    cfg.sink,
		logger:  logger,
		metrics: cfg.metrics,
		notable: cfg.notable,
		strict:  cfg.strict,
		tracer:  otel.Tracer("shiplog/audit/recorder"),
	}
}

// RecordActivity persists a lightweight per-actor action log entry.
// Best-effort: a store failure is logged and swallowed so the caller's
// operation is never aborted over an activity line. Returns nil on failure.
func (r *Recorder) RecordActivity(ctx context.Context, actorID domain.ActorID, label, details string) *audit.ActivityEntry {
	ctx, span := r.tracer.Start(ctx, "recorder.RecordActivity")
	defer span.End()

	entry := &audit.ActivityEntry{
		ActorID: actorID,
		Label:   label,
		Details: details,
		Origin:  requestcontext.ClientIP(ctx),
	}
	if err := r.store.AppendActivity(ctx, entry); err != nil {
		r.writeFailed("activity")
		r.logger.WarnContext(ctx, "activity write failed, continuing",
			"actor_id", actorID,
			"label", label,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	r.wrote("activity")
	return entry
}

// RecordChange writes one AuditRecord and one FieldChange atomically, then
// derives a SystemEvent when the action is notable. The derived event and
// dispatch enqueue are secondary effects: their failure is recorded and
// logged, never returned.
//
// Default mode is best-effort (log-and-continue). Strict mode, enabled per
// call via WithStrict or recorder-wide via WithStrictChanges, propagates the
// store error instead.
func (r *Recorder) RecordChange(ctx context.Context, req ChangeRequest, opts ...Option) (*audit.AuditRecord, error) {
	ctx, span := r.tracer.Start(ctx, "recorder.RecordChange")
	defer span.End()

	call := callOptions{strict: r.strict}
	for _, opt := range opts {
		opt(&call)
	}

	if req.Entity.IsNil() || req.ActorID.IsNil() || req.Action == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "change requires entity, actor, and action")
	}

	status := audit.StatusCompleted
	if req.Failed {
		status = audit.StatusFailed
	}
	record := &audit.AuditRecord{
		ActorID:      req.ActorID,
		Action:       req.Action,
		EntityType:   req.Entity.Type,
		EntityID:     req.Entity.ID,
		OldValue:     req.OldValue,
		NewValue:     req.NewValue,
		Origin:       requestcontext.ClientIP(ctx),
		Status:       status,
		ErrorMessage: req.ErrorMessage,
	}
	change := &audit.FieldChange{
		EntityType: req.Entity.Type,
		EntityID:   req.Entity.ID,
		Field:      req.Field,
		OldValue:   req.OldValue,
		NewValue:   req.NewValue,
		ActorID:    req.ActorID,
		Reason:     req.Reason,
	}

	if err := r.store.AppendChange(ctx, record, []*audit.FieldChange{change}); err != nil {
		r.writeFailed("change")
		if call.strict {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unreachable")
		}
		r.logger.WarnContext(ctx, "change write failed, continuing",
			"entity_type", req.Entity.Type,
			"entity_id", req.Entity.ID,
			"action", req.Action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, nil
	}
	r.wrote("change")

	if r.notable[req.Action] {
		r.deriveSystemEvent(ctx, record, req.Emergency)
	}
	return record, nil
}

// RecordSystemEvent persists a system event directly, for conditions that are
// not simple field edits (startup, threshold breach, gap journaling).
func (r *Recorder) RecordSystemEvent(ctx context.Context, eventType string, entity domain.EntityRef, payload map[string]string, severity audit.Severity) (*audit.SystemEvent, error) {
	ctx, span := r.tracer.Start(ctx, "recorder.RecordSystemEvent")
	defer span.End()

	if !severity.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown severity %q", severity)
	}

	event := &audit.SystemEvent{
		EventType:  eventType,
		EntityType: entity.Type,
		EntityID:   entity.ID,
		Payload:    payload,
		Severity:   severity,
	}
	if err := r.store.AppendSystemEvent(ctx, event); err != nil {
		r.writeFailed("system_event")
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unreachable")
	}
	r.wrote("system_event")

	r.enqueue(ctx, *event)
	return event, nil
}

// deriveSystemEvent emits the SystemEvent a notable change implies and hands
// it to dispatch. Failures here are secondary-effect failures: logged and
// counted, invisible to the caller.
func (r *Recorder) deriveSystemEvent(ctx context.Context, record *audit.AuditRecord, emergency bool) {
	severity := audit.SeverityInfo
	if emergency {
		severity = audit.SeverityCritical
	}
	event := &audit.SystemEvent{
		EventType:  string(record.Action),
		EntityType: record.EntityType,
		EntityID:   record.EntityID,
		Payload: map[string]string{
			"audit_id": record.ID.String(),
			"actor_id": record.ActorID.String(),
		},
		Severity: severity,
	}
	if record.Status == audit.StatusFailed {
		event.Severity = audit.SeverityError
	}

	if err := r.store.AppendSystemEvent(ctx, event); err != nil {
		r.writeFailed("system_event")
		r.logger.ErrorContext(ctx, "derived event write failed",
			"audit_id", record.ID,
			"event_type", event.EventType,
			"error", err,
		)
		return
	}
	r.wrote("system_event")

	r.enqueue(ctx, *event)
}

// enqueue hands a system event to the dispatcher without blocking. A full
// inbox degrades to a recorded error event plus a metric, never a stall.
func (r *Recorder) enqueue(ctx context.Context, event audit.SystemEvent) {
	if r.sink == nil {
		return
	}
	if r.sink.TryEnqueue(event) {
		return
	}
	if r.metrics != nil {
		r.metrics.IncEnqueueDrop()
	}
	r.logger.ErrorContext(ctx, "dispatcher inbox full, dropping event",
		"event_id", event.ID,
		"event_type", event.EventType,
	)
	dropped := &audit.SystemEvent{
		EventType:  audit.EventDispatchFailed,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Payload:    map[string]string{"source_event_id": event.ID.String(), "reason": "inbox_full"},
		Severity:   audit.SeverityError,
	}
	if err := r.store.AppendSystemEvent(ctx, dropped); err != nil {
		r.logger.ErrorContext(ctx, "failed to journal dropped dispatch", "error", err)
	}
}

// wrote updates metrics and, after an outage, journals the gap so monitoring
// can see that records may be missing.
func (r *Recorder) wrote(kind string) {
	if r.metrics != nil {
		r.metrics.IncWritten(kind)
	}
	if r.outage.CompareAndSwap(true, false) {
		recovered := &audit.SystemEvent{
			EventType: audit.EventStoreRecovered,
			Payload:   map[string]string{"detail": "store writes failing before this point; records may be missing"},
			Severity:  audit.SeverityError,
		}
		if err := r.store.AppendSystemEvent(context.Background(), recovered); err != nil {
			r.logger.Error("failed to journal store recovery", "error", err)
		}
	}
}

func (r *Recorder) writeFailed(kind string) {
	if r.metrics != nil {
		r.metrics.IncFailure(kind)
	}
	r.outage.Store(true)
}
