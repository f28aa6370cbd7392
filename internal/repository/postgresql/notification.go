package postgresql

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
	"github.com/avd-uisa/notify-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type notificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) notification.Repository {
	return &notificationRepository{db: db}
}

// Create creates a new notification
func (r *notificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	q := GetQuerier(ctx, r.db)

	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	query := `
		INSERT INTO notifications (id, recipient_id, category, title, message, link, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.Exec(ctx, query,
		n.ID,
		n.RecipientID,
		string(n.Category),
		n.Title,
		n.Message,
		n.Link,
		n.IsRead,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// CreateBatch creates multiple notifications in a single statement
func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*notification.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	q := GetQuerier(ctx, r.db)

	valueStrings := make([]string, 0, len(notifications))
	valueArgs := make([]interface{}, 0, len(notifications)*8)

	for i, n := range notifications {
		if n.ID == "" {
			n.ID = uuid.New().String()
		}

		base := i * 8
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		valueArgs = append(valueArgs,
			n.ID,
			n.RecipientID,
			string(n.Category),
			n.Title,
			n.Message,
			n.Link,
			n.IsRead,
			n.CreatedAt,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO notifications (id, recipient_id, category, title, message, link, is_read, created_at)
		VALUES %s
	`, strings.Join(valueStrings, ", "))

	_, err := q.Exec(ctx, query, valueArgs...)
	if err != nil {
		return fmt.Errorf("failed to batch create notifications: %w", err)
	}

	return nil
}

// GetByID retrieves a notification by ID
func (r *notificationRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, recipient_id, category, title, message, link, is_read, read_at, created_at
		FROM notifications
		WHERE id = $1
	`

	var n notification.Notification
	var category string

	err := q.QueryRow(ctx, query, id).Scan(
		&n.ID,
		&n.RecipientID,
		&category,
		&n.Title,
		&n.Message,
		&n.Link,
		&n.IsRead,
		&n.ReadAt,
		&n.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, notification.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	n.Category = notification.Category(category)
	return &n, nil
}

// encodeCursor packs the keyset position (created_at, id) into an opaque string.
func encodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor unpacks a cursor produced by encodeCursor.
func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", notification.ErrInvalidCursor
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", notification.ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", notification.ErrInvalidCursor
	}
	return createdAt, parts[1], nil
}

// ListByUser retrieves a keyset-paginated window of notifications for a user,
// newest first. Ties on created_at break on id so a cursor never skips or
// repeats rows.
func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]*notification.Notification, string, error) {
	q := GetQuerier(ctx, r.db)

	args := []interface{}{userID}
	whereClause := "recipient_id = $1"

	if cursor != "" {
		createdAt, id, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		whereClause += " AND (created_at, id) < ($2, $3)"
		args = append(args, createdAt, id)
	}

	query := fmt.Sprintf(`
		SELECT id, recipient_id, category, title, message, link, is_read, read_at, created_at
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d
	`, whereClause, len(args)+1)

	// Fetch one extra row to know whether another page exists.
	args = append(args, limit+1)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		var n notification.Notification
		var category string

		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&category,
			&n.Title,
			&n.Message,
			&n.Link,
			&n.IsRead,
			&n.ReadAt,
			&n.CreatedAt,
		); err != nil {
			return nil, "", fmt.Errorf("failed to scan notification: %w", err)
		}

		n.Category = notification.Category(category)
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("failed to iterate notifications: %w", err)
	}

	nextCursor := ""
	if len(notifications) > limit {
		notifications = notifications[:limit]
		last := notifications[len(notifications)-1]
		nextCursor = encodeCursor(last.CreatedAt, last.ID)
	}

	return notifications, nextCursor, nil
}

// GetUnreadCount returns the count of unread notifications for a user
func (r *notificationRepository) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = false`
	var count int
	if err := q.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// MarkRead marks a single notification as read
func (r *notificationRepository) MarkRead(ctx context.Context, id string, userID string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notifications
		SET is_read = true, read_at = $1
		WHERE id = $2 AND recipient_id = $3
	`

	result, err := q.Exec(ctx, query, time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}

	return nil
}

// MarkAllRead marks all unread notifications as read and returns the ids it updated
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notifications
		SET is_read = true, read_at = $1
		WHERE recipient_id = $2 AND is_read = false
		RETURNING id
	`

	rows, err := q.Query(ctx, query, time.Now(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	defer rows.Close()

	confirmed := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan confirmed id: %w", err)
		}
		confirmed = append(confirmed, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate confirmed ids: %w", err)
	}

	return confirmed, nil
}

// PurgeOld removes read notifications whose read_at precedes readBefore and
// any notification created before createdBefore. Both deletes commit in one
// transaction and the total number of removed rows is returned.
func (r *notificationRepository) PurgeOld(ctx context.Context, readBefore, createdBefore time.Time) (int64, error) {
	var purged int64

	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		result, err := q.Exec(ctx,
			`DELETE FROM notifications WHERE is_read = true AND read_at < $1`, readBefore)
		if err != nil {
			return fmt.Errorf("failed to purge read notifications: %w", err)
		}
		purged = result.RowsAffected()

		result, err = q.Exec(ctx,
			`DELETE FROM notifications WHERE created_at < $1`, createdBefore)
		if err != nil {
			return fmt.Errorf("failed to purge expired notifications: %w", err)
		}
		purged += result.RowsAffected()

		return nil
	})
	if err != nil {
		return 0, err
	}

	return purged, nil
}

// Delete deletes a notification
func (r *notificationRepository) Delete(ctx context.Context, id string, userID string) error {
	q := GetQuerier(ctx, r.db)

	query := `DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`
	result, err := q.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}

	return nil
}
