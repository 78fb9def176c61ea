// Package dispatcher turns notable system events into notifications. It
// consumes events from a bounded inbox channel so producers never block on
// notification work, and its failures never reach the producer.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shiplog/internal/audit"
	"shiplog/internal/notify"
	notifymetrics "shiplog/internal/notify/metrics"
	"shiplog/pkg/domain"
)

// RecipientResolver decides who should be notified about an event. Role
// membership lives outside the engine; callers wire a directory-backed
// implementation.
type RecipientResolver interface {
	Recipients(ctx context.Context, event audit.SystemEvent) ([]domain.ActorID, error)
}

// EventJournal is the slice of the audit store the dispatcher writes back to:
// marking events handled and journaling dispatch failures.
type EventJournal interface {
	AppendSystemEvent(ctx context.Context, event *audit.SystemEvent) error
	MarkEventProcessed(ctx context.Context, eventID uuid.UUID) error
}

// Feed mirrors events to an external stream. Implementations must be
// best-effort and non-blocking.
type Feed interface {
	Publish(ctx context.Context, event audit.SystemEvent)
}

type Dispatcher struct {
	inbox    chan audit.SystemEvent
	store    notify.Store
	journal  EventJournal
	resolver RecipientResolver
	feed     Feed
	logger   *slog.Logger
	metrics  *notifymetrics.Metrics

	retries int
	backoff time.Duration
}

type Option func(*Dispatcher)

// WithFeed mirrors dispatched events to an external feed.
func WithFeed(feed Feed) Option {
	return func(d *Dispatcher) { d.feed = feed }
}

// WithMetrics attaches the notification metrics collector.
func WithMetrics(m *notifymetrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithRetry overrides the retry budget for transient store failures.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(d *Dispatcher) {
		d.retries = attempts
		d.backoff = backoff
	}
}

func New(store notify.Store, journal EventJournal, resolver RecipientResolver, logger *slog.Logger, buffer int, opts ...Option) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		inbox:    make(chan audit.SystemEvent, buffer),
		store:    store,
		journal:  journal,
		resolver: resolver,
		logger:   logger,
		retries:  3,
		backoff:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TryEnqueue offers an event to the inbox without blocking. False means the
// inbox is full and the caller should journal the drop.
func (d *Dispatcher) TryEnqueue(event audit.SystemEvent) bool {
	select {
	case d.inbox <- event:
		return true
	default:
		return false
	}
}

// Run consumes the inbox until the context is cancelled. Dispatch failures
// are journaled and logged; they never stop the worker.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-d.inbox:
			d.dispatch(ctx, event)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, event audit.SystemEvent) {
	if d.feed != nil {
		d.feed.Publish(ctx, event)
	}

	recipients, err := d.resolver.Recipients(ctx, event)
	if err != nil {
		d.giveUp(ctx, event, fmt.Errorf("resolve recipients: %w", err))
		return
	}
	if len(recipients) == 0 {
		d.markProcessed(ctx, event)
		return
	}

	category := categoryFor(event)
	title, body := describe(event)
	for _, recipient := range recipients {
		n := &notify.Notification{
			ID:          notify.DeterministicID(event.ID, recipient),
			RecipientID: recipient,
			Title:       title,
			Body:        body,
			Category:    category,
			SourceID:    event.ID,
		}
		if err := d.createWithRetry(ctx, n); err != nil {
			d.giveUp(ctx, event, fmt.Errorf("create notification for %s: %w", recipient, err))
			return
		}
		if d.metrics != nil {
			d.metrics.IncCreated(string(category))
		}
	}

	d.markProcessed(ctx, event)
}

// createWithRetry retries transient store failures with a fixed backoff.
// Redelivery is safe: the deterministic ID makes a repeated create a no-op.
func (d *Dispatcher) createWithRetry(ctx context.Context, n *notify.Notification) error {
	var err error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			if d.metrics != nil {
				d.metrics.IncRetry()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.backoff):
			}
		}
		if err = d.store.Create(ctx, n); err == nil {
			return nil
		}
	}
	return err
}

// giveUp records the exhausted dispatch as an error event. The source event
// stays unprocessed so operators can find and replay it.
func (d *Dispatcher) giveUp(ctx context.Context, event audit.SystemEvent, err error) {
	if d.metrics != nil {
		d.metrics.IncFailure()
	}
	d.logger.ErrorContext(ctx, "notification dispatch failed",
		"event_id", event.ID,
		"event_type", event.EventType,
		"error", err,
	)
	failed := &audit.SystemEvent{
		EventType:  audit.EventDispatchFailed,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Payload:    map[string]string{"source_event_id": event.ID.String(), "reason": err.Error()},
		Severity:   audit.SeverityError,
	}
	if jerr := d.journal.AppendSystemEvent(ctx, failed); jerr != nil {
		d.logger.ErrorContext(ctx, "failed to journal dispatch failure", "error", jerr)
	}
}

func (d *Dispatcher) markProcessed(ctx context.Context, event audit.SystemEvent) {
	if event.ID == uuid.Nil {
		return
	}
	if err := d.journal.MarkEventProcessed(ctx, event.ID); err != nil {
		d.logger.WarnContext(ctx, "failed to mark event processed", "event_id", event.ID, "error", err)
	}
}

// categoryFor maps an event to the category clients present it under.
// Severity wins over action type: a failed approval is an error, an
// emergency is an alert.
func categoryFor(event audit.SystemEvent) notify.Category {
	switch event.Severity {
	case audit.SeverityCritical, audit.SeverityWarning:
		return notify.CategoryAlert
	case audit.SeverityError:
		return notify.CategoryError
	}
	if audit.ActionType(event.EventType) == audit.ActionApprove {
		return notify.CategorySuccess
	}
	return notify.CategoryMessage
}

func describe(event audit.SystemEvent) (title, body string) {
	title = event.EventType
	if event.EntityType != "" {
		title = event.EntityType + " " + event.EventType
	}
	body = fmt.Sprintf("%s on %s %s", event.EventType, event.EntityType, event.EntityID)
	if actor := event.Payload["actor_id"]; actor != "" {
		body += " by " + actor
	}
	return title, body
}
