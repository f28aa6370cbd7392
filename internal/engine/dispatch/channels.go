package dispatch

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
)

// LogBadge records the unread count via the logger and keeps the latest
// value readable. It backs terminal sessions and tests.
type LogBadge struct {
	Logger *slog.Logger
	count  atomic.Int64
}

func (b *LogBadge) Update(unread int) {
	b.count.Store(int64(unread))
	if b.Logger != nil {
		b.Logger.Debug("Badge updated", "unread", unread)
	}
}

// Count returns the last value pushed to the badge.
func (b *LogBadge) Count() int {
	return int(b.count.Load())
}

// TerminalSound writes the BEL character, the terminal equivalent of the
// embedded cue asset.
type TerminalSound struct {
	Out io.Writer
}

func (s *TerminalSound) Play() error {
	_, err := fmt.Fprint(s.Out, "\a")
	return err
}

// LogAlert stands in for an OS notification channel. Grant state is fixed
// at construction; the engine only checks it, never requests it.
type LogAlert struct {
	Logger  *slog.Logger
	Allowed bool
}

func (a *LogAlert) Granted() bool {
	return a.Allowed
}

func (a *LogAlert) Send(rec notification.Record) error {
	a.Logger.Info("System alert", "id", rec.ID, "category", rec.Category, "title", rec.Title)
	return nil
}

// LogBanner logs the transient interrupt surface.
type LogBanner struct {
	Logger *slog.Logger
}

func (b *LogBanner) Show(rec notification.Record) {
	b.Logger.Warn("Notification", "title", rec.Title, "message", rec.Message, "link", rec.Link)
}
