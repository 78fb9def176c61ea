// Package redis is the shared presence store: heartbeats in a sorted set
// scored by unix time, so multiple engine instances see one online count.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"shiplog/pkg/domain"
)

const heartbeatKey = "shiplog:presence"

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Touch(ctx context.Context, actorID domain.ActorID, at time.Time) error {
	err := s.client.ZAdd(ctx, heartbeatKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: actorID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}
	return nil
}

func (s *Store) CountActive(ctx context.Context, now time.Time, window time.Duration) (int, error) {
	cutoff := now.Add(-window).Unix()

	// Expired members are trimmed on read; Touch stays a single round trip.
	if err := s.client.ZRemRangeByScore(ctx, heartbeatKey, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return 0, fmt.Errorf("trim stale heartbeats: %w", err)
	}

	count, err := s.client.ZCount(ctx, heartbeatKey, strconv.FormatInt(cutoff, 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count active actors: %w", err)
	}
	return int(count), nil
}
