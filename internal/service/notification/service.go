package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
	"github.com/avd-uisa/notify-go/internal/pkg/sse"
	"github.com/google/uuid"
)

// Config holds notification service configuration
type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 2 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
}

type service struct {
	repo   notification.Repository
	hub    *sse.Hub
	config Config

	queue  chan notification.IngestRequest
	wg     sync.WaitGroup
	stopCh chan struct{}
}

// NewNotificationService creates a new notification service with background workers
func NewNotificationService(repo notification.Repository, hub *sse.Hub, cfg Config) notification.Service {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}

	s := &service{
		repo:   repo,
		hub:    hub,
		config: cfg,
		queue:  make(chan notification.IngestRequest, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("Notification service started",
		"workers", cfg.WorkerCount,
		"batch_size", cfg.BatchSize,
		"flush_interval", cfg.FlushInterval,
	)

	return s
}

// worker drains the ingest queue, batch-inserts, and pushes to SSE subscribers
func (s *service) worker(id int) {
	defer s.wg.Done()

	batch := make([]notification.IngestRequest, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		notifications := make([]*notification.Notification, len(batch))
		for i, req := range batch {
			notifications[i] = &notification.Notification{
				ID:          uuid.New().String(),
				RecipientID: req.RecipientID,
				Category:    req.Category,
				Title:       req.Title,
				Message:     req.Message,
				Link:        req.Link,
				IsRead:      false,
				CreatedAt:   time.Now(),
			}
		}

		if err := s.repo.CreateBatch(ctx, notifications); err != nil {
			slog.Error("Notification batch insert failed", "worker", id, "error", err, "count", len(notifications))
		} else {
			for _, n := range notifications {
				s.hub.Publish(n.RecipientID, notification.PushEvent{
					Event: notification.EventNotificationArrived,
					Data:  n.ToRecord(),
				})
			}
		}

		batch = batch[:0]
	}

	for {
		select {
		case req := <-s.queue:
			batch = append(batch, req)
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			flush()
			return
		}
	}
}

// Queue queues a notification for async processing
func (s *service) Queue(ctx context.Context, req notification.IngestRequest) error {
	if !req.Category.Valid() {
		return notification.ErrInvalidCategory
	}

	select {
	case s.queue <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Queue full, insert synchronously
		return s.directInsert(ctx, req)
	}
}

// QueueBulk queues multiple notifications for async processing
func (s *service) QueueBulk(ctx context.Context, reqs []notification.IngestRequest) error {
	for _, req := range reqs {
		if err := s.Queue(ctx, req); err != nil {
			slog.Error("Failed to queue notification", "error", err, "recipient", req.RecipientID)
		}
	}
	return nil
}

// directInsert inserts a notification directly when the queue is full
func (s *service) directInsert(ctx context.Context, req notification.IngestRequest) error {
	n := &notification.Notification{
		ID:          uuid.New().String(),
		RecipientID: req.RecipientID,
		Category:    req.Category,
		Title:       req.Title,
		Message:     req.Message,
		Link:        req.Link,
		IsRead:      false,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	s.hub.Publish(n.RecipientID, notification.PushEvent{
		Event: notification.EventNotificationArrived,
		Data:  n.ToRecord(),
	})

	return nil
}

// List retrieves a cursor-paginated snapshot for a user
func (s *service) List(ctx context.Context, req notification.ListRequest) (*notification.ListResponse, error) {
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	notifications, nextCursor, err := s.repo.ListByUser(ctx, req.UserID, req.Limit, req.Cursor)
	if err != nil {
		return nil, err
	}

	unreadCount, err := s.repo.GetUnreadCount(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	records := make([]notification.Record, len(notifications))
	for i, n := range notifications {
		records[i] = n.ToRecord()
	}

	return &notification.ListResponse{
		Notifications: records,
		NextCursor:    nextCursor,
		UnreadCount:   unreadCount,
	}, nil
}

// GetUnreadCount returns the count of unread notifications
func (s *service) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

// MarkRead marks one notification as read
func (s *service) MarkRead(ctx context.Context, userID string, id string) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// MarkAllRead marks every unread notification as read and reports the
// confirmed ids so clients can reconcile partial outcomes.
func (s *service) MarkAllRead(ctx context.Context, userID string) (*notification.MarkAllReadResponse, error) {
	confirmed, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &notification.MarkAllReadResponse{ConfirmedIDs: confirmed}, nil
}

// Delete removes a notification
func (s *service) Delete(ctx context.Context, userID string, id string) error {
	return s.repo.Delete(ctx, id, userID)
}

// Subscribe creates a push subscription for a user
func (s *service) Subscribe(ctx context.Context, userID string) (<-chan notification.PushEvent, func()) {
	ch, cleanup := s.hub.Subscribe(userID)

	out := make(chan notification.PushEvent, 16)

	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup
}

// Stop gracefully stops the notification service
func (s *service) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	slog.Info("Notification service stopped")
}
