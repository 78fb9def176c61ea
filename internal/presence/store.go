// Package presence tracks which actors were recently active, feeding the
// dashboard's online count. Heartbeats come from authenticated requests;
// losing them degrades a metric, nothing else.
package presence

import (
	"context"
	"time"

	"shiplog/pkg/domain"
)

type Store interface {
	// Touch records a heartbeat for the actor at the given time.
	Touch(ctx context.Context, actorID domain.ActorID, at time.Time) error
	// CountActive returns how many distinct actors were seen within the
	// window ending now.
	CountActive(ctx context.Context, now time.Time, window time.Duration) (int, error)
}
