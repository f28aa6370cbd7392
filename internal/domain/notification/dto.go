package notification

// ============= Request DTOs =============

// IngestRequest represents a request from a business module (goals,
// evaluations, approvals) to create a notification. Payload content is
// opaque to this service.
type IngestRequest struct {
	RecipientID string   `json:"recipient_id"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Message     string   `json:"message,omitempty"`
	Link        string   `json:"link,omitempty"`
}

// ListRequest represents a snapshot fetch for one user's window.
type ListRequest struct {
	UserID string
	Limit  int
	Cursor string
}

// ============= Response DTOs =============

// ListResponse is a cursor-paginated snapshot of notifications. Snapshots
// are partial by design; absence of a record never implies deletion.
type ListResponse struct {
	Notifications []Record `json:"notifications"`
	NextCursor    string   `json:"next_cursor,omitempty"`
	UnreadCount   int      `json:"unread_count"`
}

// UnreadCountResponse carries the derived unread counter.
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

// MarkAllReadResponse lists the ids the server actually confirmed read.
// Callers must treat any id not listed as still unread.
type MarkAllReadResponse struct {
	ConfirmedIDs []string `json:"confirmed_ids"`
}

// StreamTokenResponse is the short-lived credential for the SSE stream.
type StreamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// ============= Push channel =============

// EventNotificationArrived is the single push-channel event type. The server
// assumes at-least-once delivery; duplicate ids must be harmless to clients.
const EventNotificationArrived = "notification-arrived"

// PushEvent is one event on the push channel.
type PushEvent struct {
	Event string `json:"event"`
	Data  Record `json:"data"`
}
