package notification

import (
	"time"
)

// Category classifies a notification for icon and channel routing.
// It carries no business meaning beyond presentation.
type Category string

const (
	CategoryDraftReminder   Category = "draft_reminder"
	CategoryApprovalPending Category = "approval_pending"
	CategoryInformational   Category = "informational"
	CategoryWarning         Category = "warning"
	CategorySuccess         Category = "success"
)

// AllCategories returns every valid notification category.
func AllCategories() []Category {
	return []Category{
		CategoryDraftReminder,
		CategoryApprovalPending,
		CategoryInformational,
		CategoryWarning,
		CategorySuccess,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryDraftReminder, CategoryApprovalPending, CategoryInformational, CategoryWarning, CategorySuccess:
		return true
	}
	return false
}

// Notification is the server-side notification entity.
type Notification struct {
	ID          string
	RecipientID string
	Category    Category
	Title       string
	Message     string
	Link        string
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// Record is the client-facing view of a notification. It is the payload of
// the push channel and of snapshot fetches, and the unit the engine stores.
// ID is always server-assigned; the engine never mints ids of its own.
type Record struct {
	ID        string     `json:"id"`
	Category  Category   `json:"category"`
	Title     string     `json:"title"`
	Message   string     `json:"message,omitempty"`
	Link      string     `json:"link,omitempty"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToRecord converts the entity to its wire representation.
func (n *Notification) ToRecord() Record {
	return Record{
		ID:        n.ID,
		Category:  n.Category,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
