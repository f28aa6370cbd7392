// Package readsync makes mark-as-read feel instantaneous without corrupting
// state when the server rejects or the network is away.
//
// Every mutation is applied to the store first, then sent to the server
// under a bounded timeout. Success needs no further action; failure rolls
// the record back to the latest server-known value and returns the error to
// the caller, who decides whether to re-offer the action. Nothing here
// retries silently.
package readsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
	"github.com/avd-uisa/notify-go/internal/engine/store"
)

// API is the server mutation surface the synchronizer reconciles against.
type API interface {
	MarkRead(ctx context.Context, id string) error
	// MarkAllRead returns the ids the server confirmed; an id missing from
	// the result stays unread on the server regardless of the error value.
	MarkAllRead(ctx context.Context) ([]string, error)
}

// Synchronizer applies read-state intents optimistically and reconciles
// them with the server.
type Synchronizer struct {
	store   *store.Store
	api     API
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Synchronizer. timeout bounds each mutation round-trip; a
// mutation that has not resolved by then counts as failed and rolls back,
// so the UI never reflects an unconfirmed change indefinitely.
func New(s *store.Store, api API, timeout time.Duration, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Synchronizer{
		store:   s,
		api:     api,
		timeout: timeout,
		logger:  logger,
	}
}

// MarkRead marks one record read. The store mutation happens before the
// server call; on any server failure the record reverts and the error is
// returned. Marking an already-read record is a no-op.
func (r *Synchronizer) MarkRead(ctx context.Context, id string) error {
	_, ok := r.store.MarkReadOptimistic(id, time.Now())
	if !ok {
		if _, exists := r.store.Get(id); !exists {
			return notification.ErrNotificationNotFound
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.api.MarkRead(ctx, id); err != nil {
		r.store.ResolveRead(id, false)
		return fmt.Errorf("mark read %s: %w", id, err)
	}

	r.store.ResolveRead(id, true)
	return nil
}

// MarkAllRead marks the full current unread set as one batch. Only ids the
// server confirms stay read; the rest revert. A partial confirmation is
// reported as an error so the caller can surface the leftover unread items.
func (r *Synchronizer) MarkAllRead(ctx context.Context) error {
	unread := r.store.List(func(rec notification.Record) bool { return !rec.IsRead })
	if len(unread) == 0 {
		return nil
	}

	now := time.Now()
	pending := make([]string, 0, len(unread))
	for _, rec := range unread {
		if _, ok := r.store.MarkReadOptimistic(rec.ID, now); ok {
			pending = append(pending, rec.ID)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	confirmed, err := r.api.MarkAllRead(ctx)

	confirmedSet := make(map[string]struct{}, len(confirmed))
	for _, id := range confirmed {
		confirmedSet[id] = struct{}{}
	}

	reverted := 0
	for _, id := range pending {
		if _, ok := confirmedSet[id]; ok {
			r.store.ResolveRead(id, true)
		} else {
			r.store.ResolveRead(id, false)
			reverted++
		}
	}

	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	if reverted > 0 {
		r.logger.Warn("Mark all read partially confirmed", "confirmed", len(confirmed), "reverted", reverted)
		return fmt.Errorf("mark all read: %d of %d unconfirmed", reverted, len(pending))
	}
	return nil
}
