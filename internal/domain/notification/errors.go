package notification

import "errors"

// Notification domain errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUnauthorized         = errors.New("unauthorized to access this notification")
	ErrInvalidCategory      = errors.New("invalid notification category")
	ErrInvalidCursor        = errors.New("invalid pagination cursor")
	ErrQueueFull            = errors.New("notification queue is full")
)
