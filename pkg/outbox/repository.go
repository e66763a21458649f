package outbox

import (
	"context"
	"time"
)

// Repository defines outbox persistence
type Repository interface {
	// SaveAll stores events; callers run it inside the aggregate's transaction
	SaveAll(ctx context.Context, events []*OutboxEvent) error

	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkPublished(ctx context.Context, eventID string) error
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error
	CountUnpublished(ctx context.Context) (int64, error)

	// DeletePublished removes relayed events older than the given age
	DeletePublished(ctx context.Context, olderThan time.Duration) error
}
