package notification

import (
	"context"
	"time"
)

// Repository defines the notification persistence interface.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	CreateBatch(ctx context.Context, notifications []*Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)

	// ListByUser returns at most limit notifications for a user ordered by
	// created_at descending, starting after the given cursor. The returned
	// cursor is empty when the window is exhausted.
	ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]*Notification, string, error)

	GetUnreadCount(ctx context.Context, userID string) (int, error)

	// MarkRead marks a single notification read. Returns
	// ErrNotificationNotFound if the id does not belong to the user.
	MarkRead(ctx context.Context, id string, userID string) error

	// MarkAllRead marks every unread notification read and returns the ids
	// it actually updated.
	MarkAllRead(ctx context.Context, userID string) ([]string, error)

	Delete(ctx context.Context, id string, userID string) error

	// PurgeOld removes read notifications older than readBefore and any
	// notification older than createdBefore, returning the removed count.
	PurgeOld(ctx context.Context, readBefore, createdBefore time.Time) (int64, error)
}
