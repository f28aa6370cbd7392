package dispatch

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
	"github.com/avd-uisa/notify-go/internal/engine/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSound struct {
	plays int
	err   error
}

func (s *fakeSound) Play() error {
	s.plays++
	return s.err
}

type fakeAlert struct {
	granted bool
	sent    []notification.Record
}

func (a *fakeAlert) Granted() bool { return a.granted }

func (a *fakeAlert) Send(rec notification.Record) error {
	a.sent = append(a.sent, rec)
	return nil
}

type fakeBanner struct {
	shown []notification.Record
}

func (b *fakeBanner) Show(rec notification.Record) {
	b.shown = append(b.shown, rec)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freshRecord(id string) notification.Record {
	return notification.Record{
		ID:        id,
		Category:  notification.CategoryApprovalPending,
		Title:     "Review awaiting approval",
		Message:   "A self-review needs your sign-off",
		CreatedAt: time.Now().Add(time.Minute),
	}
}

func newTestDispatcher(cfg Config) (*Dispatcher, *LogBadge, *fakeSound, *fakeAlert, *fakeBanner) {
	badge := &LogBadge{}
	sound := &fakeSound{}
	alert := &fakeAlert{granted: true}
	banner := &fakeBanner{}
	return New(badge, sound, alert, banner, cfg, discardLogger()), badge, sound, alert, banner
}

func TestDispatcher_FiresOncePerRecord(t *testing.T) {
	d, badge, sound, alert, _ := newTestDispatcher(Config{
		SoundEnabled:  true,
		SoundInterval: time.Nanosecond,
	})

	s := store.New()
	d.Attach(s)

	rec := freshRecord("n-1")
	s.ApplyPush(rec)

	assert.Equal(t, 1, badge.Count())
	assert.Equal(t, 1, sound.plays)
	require.Len(t, alert.sent, 1)
	assert.Equal(t, "n-1", alert.sent[0].ID)
	assert.True(t, d.Dispatched("n-1"))

	// The same record re-delivered over push and snapshot fires nothing
	// further.
	s.ApplyPush(rec)
	s.ApplySnapshot([]notification.Record{rec})

	assert.Equal(t, 1, sound.plays)
	assert.Len(t, alert.sent, 1)
}

func TestDispatcher_PreSessionRecord_BadgeOnly(t *testing.T) {
	d, badge, sound, alert, banner := newTestDispatcher(Config{
		SoundEnabled:  true,
		SoundInterval: time.Nanosecond,
	})

	s := store.New()
	d.Attach(s)

	// A snapshot reintroduces a record created before this session: it is
	// new data for the store but not a new notification.
	old := freshRecord("n-old")
	old.CreatedAt = time.Now().Add(-time.Hour)
	s.ApplySnapshot([]notification.Record{old})

	assert.Equal(t, 1, badge.Count())
	assert.Zero(t, sound.plays)
	assert.Empty(t, alert.sent)
	assert.Empty(t, banner.shown)

	// The id is marked dispatched anyway so a later push cannot re-alert.
	assert.True(t, d.Dispatched("n-old"))
	s.ApplyPush(old)
	assert.Zero(t, sound.plays)
}

func TestDispatcher_ReadRecordsAreSilent(t *testing.T) {
	d, badge, sound, alert, _ := newTestDispatcher(Config{
		SoundEnabled:  true,
		SoundInterval: time.Nanosecond,
	})

	s := store.New()
	d.Attach(s)

	rec := freshRecord("n-1")
	rec.IsRead = true
	now := time.Now()
	rec.ReadAt = &now
	s.ApplyPush(rec)

	assert.Equal(t, 0, badge.Count())
	assert.Zero(t, sound.plays)
	assert.Empty(t, alert.sent)
}

func TestDispatcher_AlertSkippedWithoutPermission(t *testing.T) {
	d, _, sound, alert, _ := newTestDispatcher(Config{
		SoundEnabled:  true,
		SoundInterval: time.Nanosecond,
	})
	alert.granted = false

	s := store.New()
	d.Attach(s)
	s.ApplyPush(freshRecord("n-1"))

	assert.Empty(t, alert.sent)
	// Other channels are unaffected by the missing permission.
	assert.Equal(t, 1, sound.plays)
}

func TestDispatcher_BannerRespectsQuietThreshold(t *testing.T) {
	d, _, _, _, banner := newTestDispatcher(Config{
		QuietThreshold: 3,
		SoundInterval:  time.Nanosecond,
	})

	s := store.New()
	d.Attach(s)

	s.ApplyPush(freshRecord("n-1"))
	s.ApplyPush(freshRecord("n-2"))
	s.ApplyPush(freshRecord("n-3"))
	assert.Empty(t, banner.shown)

	// Crossing the threshold interrupts.
	s.ApplyPush(freshRecord("n-4"))
	require.Len(t, banner.shown, 1)
	assert.Equal(t, "n-4", banner.shown[0].ID)
}

func TestDispatcher_SoundFailureDoesNotBlockOtherChannels(t *testing.T) {
	d, badge, sound, alert, _ := newTestDispatcher(Config{
		SoundEnabled:  true,
		SoundInterval: time.Nanosecond,
	})
	sound.err = errors.New("autoplay blocked")

	s := store.New()
	d.Attach(s)
	s.ApplyPush(freshRecord("n-1"))

	assert.Equal(t, 1, sound.plays)
	assert.Len(t, alert.sent, 1)
	assert.Equal(t, 1, badge.Count())
}

func TestDispatcher_SoundDisabledByPreference(t *testing.T) {
	d, _, sound, alert, _ := newTestDispatcher(Config{
		SoundEnabled:  false,
		SoundInterval: time.Nanosecond,
	})

	s := store.New()
	d.Attach(s)
	s.ApplyPush(freshRecord("n-1"))

	assert.Zero(t, sound.plays)
	assert.Len(t, alert.sent, 1)
}

func TestDispatcher_SoundSkippedInBackground(t *testing.T) {
	cfg := Config{
		SoundEnabled:  true,
		SoundInterval: time.Nanosecond,
		Foreground:    func() bool { return false },
	}
	d, _, sound, alert, _ := newTestDispatcher(cfg)

	s := store.New()
	d.Attach(s)
	s.ApplyPush(freshRecord("n-1"))

	assert.Zero(t, sound.plays)
	assert.Len(t, alert.sent, 1)
}

func TestDispatcher_SoundThrottledDuringBurst(t *testing.T) {
	d, _, sound, alert, _ := newTestDispatcher(Config{
		SoundEnabled:  true,
		SoundInterval: time.Hour,
	})

	s := store.New()
	d.Attach(s)

	s.ApplyPush(freshRecord("n-1"))
	s.ApplyPush(freshRecord("n-2"))
	s.ApplyPush(freshRecord("n-3"))

	// One cue for the burst; every arrival still reaches the alert channel.
	assert.Equal(t, 1, sound.plays)
	assert.Len(t, alert.sent, 3)
}

func TestDispatcher_NilChannelsDisabled(t *testing.T) {
	d := New(nil, nil, nil, nil, Config{SoundEnabled: true}, discardLogger())

	s := store.New()
	d.Attach(s)

	// Must not panic with every surface absent.
	s.ApplyPush(freshRecord("n-1"))
	assert.True(t, d.Dispatched("n-1"))
}

func TestDispatcher_UnsubscribeStopsDelivery(t *testing.T) {
	d, _, sound, _, _ := newTestDispatcher(Config{
		SoundEnabled:  true,
		SoundInterval: time.Nanosecond,
	})

	s := store.New()
	detach := d.Attach(s)
	detach()

	s.ApplyPush(freshRecord("n-1"))
	assert.Zero(t, sound.plays)
	assert.False(t, d.Dispatched("n-1"))
}
