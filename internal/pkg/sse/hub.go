package sse

import (
	"sync"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
)

// Hub manages per-user SSE subscribers and fans notification events out to
// every open stream of a user. Publish never blocks: a subscriber that falls
// behind simply misses the event and heals on its next snapshot fetch.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan notification.PushEvent]struct{}
}

// NewHub creates a new SSE Hub instance.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan notification.PushEvent]struct{}),
	}
}

// Subscribe registers a new subscriber for a user and returns the event
// channel and a cleanup function.
func (h *Hub) Subscribe(userID string) (chan notification.PushEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan notification.PushEvent, 16)

	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[chan notification.PushEvent]struct{})
	}
	h.subscribers[userID][ch] = struct{}{}

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subscribers[userID][ch]; !ok {
			return
		}
		delete(h.subscribers[userID], ch)
		close(ch)
		if len(h.subscribers[userID]) == 0 {
			delete(h.subscribers, userID)
		}
	}

	return ch, cleanup
}

// Publish sends an event to all subscribers of a specific user.
func (h *Hub) Publish(userID string, event notification.PushEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[userID]; ok {
		for ch := range subs {
			select {
			case ch <- event:
			default:
				// Skip if channel is full (non-blocking to prevent deadlock)
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers for a user.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[userID]; ok {
		return len(subs)
	}
	return 0
}

// TotalSubscribers returns the total number of active subscribers across all users.
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
