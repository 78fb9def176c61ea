// Package kafka wraps the franz-go client used by the notable-event feed.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"shiplog/internal/platform/config"
)

// Producer is a thin wrapper over a franz-go client pinned to one topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to the configured brokers and makes sure the feed
// topic exists. Returns nil when no brokers are configured.
func NewProducer(ctx context.Context, cfg config.Kafka) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.FeedTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, cfg.FeedTopic); err != nil {
		if !errors.Is(err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("ensure feed topic: %w", err)
		}
	}

	return &Producer{client: client, topic: cfg.FeedTopic}, nil
}

// Produce sends one keyed record asynchronously. Delivery failures are
// reported through the callback; the caller decides whether they matter.
func (p *Producer) Produce(ctx context.Context, key, value []byte, done func(error)) {
	record := &kgo.Record{Topic: p.topic, Key: key, Value: value}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if done != nil {
			done(err)
		}
	})
}

// Flush drains pending records, bounded by ctx.
func (p *Producer) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

// Close flushes and releases the client.
func (p *Producer) Close() {
	p.client.Close()
}
