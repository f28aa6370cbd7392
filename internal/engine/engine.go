// Package engine assembles the notification engine for one session: the
// connection manager feeding the store, the periodic snapshot poll, the
// delivery dispatcher, and the read-state synchronizer.
//
// The store is the only shared mutable state. Push events, snapshot
// results, and read-state mutations all funnel through it, so the bell, the
// popover, the toast layer, and the notification center stay consistent by
// construction.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/avd-uisa/notify-go/internal/engine/apiclient"
	"github.com/avd-uisa/notify-go/internal/engine/connection"
	"github.com/avd-uisa/notify-go/internal/engine/dispatch"
	"github.com/avd-uisa/notify-go/internal/engine/readsync"
	"github.com/avd-uisa/notify-go/internal/engine/store"
	"github.com/avd-uisa/notify-go/internal/pkg/cron"
)

// Config tunes the engine.
type Config struct {
	// PollInterval drives the periodic snapshot fetch. Zero means 60s.
	PollInterval time.Duration
	// SnapshotLimit is the window size of each snapshot fetch.
	SnapshotLimit int
	// MutationTimeout bounds each read-state round-trip.
	MutationTimeout time.Duration
	// BackoffBase and BackoffMax shape push-channel reconnection.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// Dispatch carries the side-effect gating rules.
	Dispatch dispatch.Config
}

// Engine owns one session's notification state and lifecycle.
type Engine struct {
	cfg        Config
	client     *apiclient.Client
	store      *store.Store
	conn       *connection.Manager
	dispatcher *dispatch.Dispatcher
	sync       *readsync.Synchronizer
	scheduler  *cron.Scheduler
	logger     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	detach func()
}

// New wires an engine. Channels may be nil to disable individual surfaces.
func New(cfg Config, client *apiclient.Client, badge dispatch.Badge, sound dispatch.Sound, alert dispatch.SystemAlert, banner dispatch.Banner, logger *slog.Logger) *Engine {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 60 * time.Second
	}
	if cfg.SnapshotLimit == 0 {
		cfg.SnapshotLimit = 50
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := store.New()
	conn := connection.NewManager(connection.Config{
		StreamURL:   client.StreamURL(),
		BackoffBase: cfg.BackoffBase,
		BackoffMax:  cfg.BackoffMax,
	}, client, logger)

	return &Engine{
		cfg:        cfg,
		client:     client,
		store:      s,
		conn:       conn,
		dispatcher: dispatch.New(badge, sound, alert, banner, cfg.Dispatch, logger),
		sync:       readsync.New(s, client, cfg.MutationTimeout, logger),
		scheduler:  cron.NewScheduler(),
		logger:     logger,
	}
}

// Store exposes the read-only query surface for UI consumers.
func (e *Engine) Store() *store.Store {
	return e.store
}

// ConnectionStatus reports the push channel state.
func (e *Engine) ConnectionStatus() connection.Status {
	return e.conn.Status()
}

// MarkRead applies the user intent for one record.
func (e *Engine) MarkRead(ctx context.Context, id string) error {
	return e.sync.MarkRead(ctx, id)
}

// MarkAllRead applies the user intent for the whole unread set.
func (e *Engine) MarkAllRead(ctx context.Context) error {
	return e.sync.MarkAllRead(ctx)
}

// Start connects the push channel, begins the periodic snapshot poll, and
// pumps inbound events into the store. A credential rejection is returned
// as-is: the session must re-authenticate before trying again. Transport
// failures are not errors here; the connection manager self-heals and each
// recovery triggers a resync.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.detach = e.dispatcher.Attach(e.store)

	e.wg.Add(1)
	go e.pump(runCtx)

	e.scheduler.AddJob("notification-snapshot", e.cfg.PollInterval, e.fetchSnapshot)
	e.scheduler.Start()

	if err := e.conn.Connect(ctx); err != nil {
		var authErr *connection.AuthError
		if errors.As(err, &authErr) {
			e.Stop()
			return authErr
		}
		e.logger.Warn("Push channel degraded at startup, reconnecting", "error", err)
	}

	return nil
}

// pump funnels push events and resync signals into the store. All sources
// converge on the store's upsert path, so interleavings of push and
// snapshot for the same id cannot duplicate records.
func (e *Engine) pump(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case rec := <-e.conn.Events():
			e.store.ApplyPush(rec)
		case <-e.conn.Resync():
			if err := e.fetchSnapshot(ctx); err != nil {
				e.logger.Warn("Resync snapshot failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// fetchSnapshot pulls one snapshot window and merges it.
func (e *Engine) fetchSnapshot(ctx context.Context) error {
	resp, err := e.client.List(ctx, e.cfg.SnapshotLimit, "")
	if err != nil {
		return err
	}
	e.store.ApplySnapshot(resp.Notifications)
	return nil
}

// Stop tears the session down: the channel closes, the poll stops, and
// pending optimistic mutations are discarded without further
// reconciliation.
func (e *Engine) Stop() {
	e.conn.Disconnect()
	e.scheduler.Stop()
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	if e.detach != nil {
		e.detach()
	}
	e.store.Reset()
}
