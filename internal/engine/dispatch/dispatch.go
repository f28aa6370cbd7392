// Package dispatch fans "newly arrived unread" store transitions out to
// side-effect channels: badge, sound, OS alert, interrupt banner.
//
// Delivery-worthiness is not data freshness. A record reintroduced by a
// resync snapshot is new data but not a new notification, so the dispatcher
// keeps its own set of already-dispatched ids, decoupled from the store's
// merge logic, and fires each id's side effects at most once.
package dispatch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
	"github.com/avd-uisa/notify-go/internal/engine/store"
	"golang.org/x/time/rate"
)

// Badge is the passive unread counter surface. It is updated on every
// delta and is never throttled or gated.
type Badge interface {
	Update(unread int)
}

// Sound plays the audible cue. Playback failure is swallowed; browsers and
// desktops routinely block autoplay.
type Sound interface {
	Play() error
}

// SystemAlert raises an OS-level notification. Granted reflects the current
// permission state; the engine never requests permission itself.
type SystemAlert interface {
	Granted() bool
	Send(rec notification.Record) error
}

// Banner shows the transient interrupt surface.
type Banner interface {
	Show(rec notification.Record)
}

// Config tunes the dispatcher's gating rules.
type Config struct {
	// SoundEnabled is the user's audible-cue preference.
	SoundEnabled bool
	// QuietThreshold suppresses the interrupt banner until the unread
	// count exceeds it.
	QuietThreshold int
	// SoundInterval throttles the audible cue during arrival bursts.
	// Zero means one cue per two seconds.
	SoundInterval time.Duration
	// Foreground reports whether the surface owning this session is
	// focused. Nil means always foregrounded.
	Foreground func() bool
}

// Dispatcher subscribes to store deltas and triggers side effects exactly
// once per record id.
type Dispatcher struct {
	cfg    Config
	badge  Badge
	sound  Sound
	alert  SystemAlert
	banner Banner
	logger *slog.Logger

	// start marks when this dispatcher came up. Records created before it
	// predate the session and never fire audible or interrupt channels:
	// a reconnect resync must not re-alert for old notifications.
	start time.Time

	limiter *rate.Limiter

	mu         sync.Mutex
	dispatched map[string]struct{}
}

// New creates a Dispatcher. Any channel may be nil to disable it.
func New(badge Badge, sound Sound, alert SystemAlert, banner Banner, cfg Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SoundInterval == 0 {
		cfg.SoundInterval = 2 * time.Second
	}
	return &Dispatcher{
		cfg:        cfg,
		badge:      badge,
		sound:      sound,
		alert:      alert,
		banner:     banner,
		logger:     logger,
		start:      time.Now(),
		limiter:    rate.NewLimiter(rate.Every(cfg.SoundInterval), 1),
		dispatched: make(map[string]struct{}),
	}
}

// Attach subscribes the dispatcher to a store and returns the unsubscribe
// function.
func (d *Dispatcher) Attach(s *store.Store) func() {
	return s.Subscribe(d.HandleDelta)
}

// HandleDelta is the store subscriber. The badge tracks every delta; the
// remaining channels fire only on the first added delta for an unread id.
func (d *Dispatcher) HandleDelta(records []notification.Record, delta store.Delta) {
	unread := 0
	for _, rec := range records {
		if !rec.IsRead {
			unread++
		}
	}

	if d.badge != nil {
		d.badge.Update(unread)
	}

	if delta.Kind != store.DeltaAdded || delta.Record.IsRead {
		return
	}

	rec := delta.Record

	d.mu.Lock()
	if _, seen := d.dispatched[rec.ID]; seen {
		d.mu.Unlock()
		return
	}
	d.dispatched[rec.ID] = struct{}{}
	d.mu.Unlock()

	// Known-but-old: the record existed before this session started, so it
	// was reintroduced by a snapshot. The badge already reflects it.
	if rec.CreatedAt.Before(d.start) {
		d.logger.Debug("Suppressing alert channels for pre-session record", "id", rec.ID)
		return
	}

	d.playSound()
	d.sendAlert(rec)
	d.showBanner(rec, unread)
}

func (d *Dispatcher) playSound() {
	if d.sound == nil || !d.cfg.SoundEnabled {
		return
	}
	if d.cfg.Foreground != nil && !d.cfg.Foreground() {
		return
	}
	if !d.limiter.Allow() {
		return
	}
	if err := d.sound.Play(); err != nil {
		// Autoplay restrictions land here; other channels proceed.
		d.logger.Debug("Audible cue failed", "error", err)
	}
}

func (d *Dispatcher) sendAlert(rec notification.Record) {
	if d.alert == nil || !d.alert.Granted() {
		// Denied or absent permission silently skips the channel.
		return
	}
	if err := d.alert.Send(rec); err != nil {
		d.logger.Debug("System alert failed", "id", rec.ID, "error", err)
	}
}

func (d *Dispatcher) showBanner(rec notification.Record, unread int) {
	if d.banner == nil || unread <= d.cfg.QuietThreshold {
		return
	}
	d.banner.Show(rec)
}

// Dispatched reports whether side effects already fired for an id.
func (d *Dispatcher) Dispatched(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.dispatched[id]
	return ok
}
