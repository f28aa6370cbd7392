package sse

import (
	"testing"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(id string) notification.PushEvent {
	return notification.PushEvent{
		Event: notification.EventNotificationArrived,
		Data:  notification.Record{ID: id, Category: notification.CategoryInformational, Title: "t"},
	}
}

func TestHub_PublishReachesAllUserStreams(t *testing.T) {
	h := NewHub()

	ch1, cleanup1 := h.Subscribe("user-1")
	ch2, cleanup2 := h.Subscribe("user-1")
	other, cleanupOther := h.Subscribe("user-2")
	defer cleanup1()
	defer cleanup2()
	defer cleanupOther()

	h.Publish("user-1", testEvent("n-1"))

	for _, ch := range []chan notification.PushEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "n-1", ev.Data.ID)
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}

	select {
	case <-other:
		t.Fatal("event leaked to another user's stream")
	default:
	}
}

func TestHub_PublishToUnknownUserIsNoop(t *testing.T) {
	h := NewHub()
	h.Publish("nobody", testEvent("n-1"))
	assert.Equal(t, 0, h.TotalSubscribers())
}

func TestHub_PublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch, cleanup := h.Subscribe("user-1")
	defer cleanup()

	// Overfill the buffer; the extra events are dropped, not queued.
	for i := 0; i < cap(ch)+5; i++ {
		h.Publish("user-1", testEvent("n-1"))
	}
	assert.Len(t, ch, cap(ch))
}

func TestHub_CleanupIdempotent(t *testing.T) {
	h := NewHub()
	ch, cleanup := h.Subscribe("user-1")
	require.Equal(t, 1, h.SubscriberCount("user-1"))

	cleanup()
	cleanup()

	assert.Equal(t, 0, h.SubscriberCount("user-1"))
	assert.Equal(t, 0, h.TotalSubscribers())

	_, open := <-ch
	assert.False(t, open)
}

func TestHub_SubscriberCounts(t *testing.T) {
	h := NewHub()
	_, c1 := h.Subscribe("user-1")
	_, c2 := h.Subscribe("user-1")
	_, c3 := h.Subscribe("user-2")

	assert.Equal(t, 2, h.SubscriberCount("user-1"))
	assert.Equal(t, 3, h.TotalSubscribers())

	c1()
	c2()
	c3()
	assert.Equal(t, 0, h.TotalSubscribers())
}
