package notification

import (
	"context"
)

// Service defines the notification service interface.
type Service interface {
	// Queue notification (async processing via background workers)
	Queue(ctx context.Context, req IngestRequest) error
	QueueBulk(ctx context.Context, reqs []IngestRequest) error

	// Snapshot and mutation operations
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	GetUnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string, id string) error
	MarkAllRead(ctx context.Context, userID string) (*MarkAllReadResponse, error)
	Delete(ctx context.Context, userID string, id string) error

	// Push subscription
	Subscribe(ctx context.Context, userID string) (<-chan PushEvent, func())

	// Lifecycle
	Stop()
}
