// Package feed mirrors notable system events onto a Kafka topic for external
// consumers (SIEM, ops dashboards). Publishing is best-effort: a broker
// outage costs feed records, never notifications or audit writes.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"

	"shiplog/internal/audit"
)

// Producer is the Kafka surface the feed needs.
type Producer interface {
	Produce(ctx context.Context, key, value []byte, done func(error))
}

// Publisher filters events to warning severity and above and emits them as
// JSON records keyed by entity, so per-entity ordering survives partitioning.
type Publisher struct {
	producer Producer
	logger   *slog.Logger
	min      audit.Severity
}

func NewPublisher(producer Producer, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger, min: audit.SeverityWarning}
}

func (p *Publisher) Publish(ctx context.Context, event audit.SystemEvent) {
	if !event.Severity.AtLeast(p.min) {
		return
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode feed event", "event_id", event.ID, "error", err)
		return
	}
	key := []byte(event.EntityType + "/" + event.EntityID)

	p.producer.Produce(ctx, key, value, func(err error) {
		if err != nil {
			p.logger.WarnContext(ctx, "feed publish failed",
				"event_id", event.ID,
				"event_type", event.EventType,
				"error", err,
			)
		}
	})
}
