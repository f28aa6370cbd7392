// Package connection owns the persistent push channel to the notification
// service: at most one live SSE stream per session, surfaced as a state
// machine with reconnection and resynchronization.
//
// A dropped channel is never a dead channel. Transport failures enter a
// capped exponential backoff loop, and every transition into Connected
// raises a resync signal so the engine fetches a fresh snapshot covering
// whatever the stream missed. Only a rejected credential stops the loop.
package connection

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
)

// State is the connectivity phase of the push channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// Status is a snapshot of the state machine.
type Status struct {
	State   State
	Retries int
	LastErr error
	// Fatal marks a Disconnected state reached through credential
	// rejection; only a fresh Connect with a new credential leaves it.
	Fatal bool
}

// TokenSource exchanges the session credential for a short-lived stream
// token. Implementations return *AuthError when the credential is rejected.
type TokenSource interface {
	StreamToken(ctx context.Context) (string, error)
}

// Config tunes the connection manager.
type Config struct {
	// StreamURL is the absolute URL of the SSE endpoint.
	StreamURL string
	// BackoffBase is the first reconnection delay. Zero means 1s.
	BackoffBase time.Duration
	// BackoffMax caps the reconnection delay. Zero means 30s.
	BackoffMax time.Duration
	// HTTPClient overrides the default client. Streaming requests must not
	// carry a client timeout.
	HTTPClient *http.Client
}

// Manager maintains the single live channel for one session.
type Manager struct {
	cfg    Config
	tokens TokenSource
	client *http.Client
	logger *slog.Logger

	events chan notification.Record
	resync chan struct{}

	mu       sync.Mutex
	status   Status
	cancel   context.CancelFunc
	running  bool
	stateFns []func(Status)
}

// NewManager creates a Manager. It does not dial until Connect.
func NewManager(cfg Config, tokens TokenSource, logger *slog.Logger) *Manager {
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		tokens: tokens,
		client: client,
		logger: logger,
		events: make(chan notification.Record, 64),
		resync: make(chan struct{}, 1),
	}
}

// Events is the inbound stream of notification-arrived records. No ordering
// relative to snapshot fetches is guaranteed; consumers must key on id.
func (m *Manager) Events() <-chan notification.Record {
	return m.events
}

// Resync signals once per transition into Connected, including the first.
// The consumer is expected to run a snapshot fetch for each signal.
func (m *Manager) Resync() <-chan struct{} {
	return m.resync
}

// Status returns the current state machine snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// OnStateChange registers a callback invoked after every state transition.
func (m *Manager) OnStateChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateFns = append(m.stateFns, fn)
}

// Connect opens the channel. It is a no-op when a connect or reconnect loop
// is already active. The first dial runs synchronously: an *AuthError is
// fatal and leaves the manager disconnected; a *TransportError is returned
// for visibility but the backoff loop is already running, so the caller
// should not retry by hand.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	m.setState(StateConnecting, 0, nil, false)

	// The stream must outlive the caller's ctx; runCtx governs it.
	body, err := m.dial(runCtx)
	if err != nil {
		if authErr, ok := err.(*AuthError); ok {
			m.stop()
			m.setState(StateDisconnected, 0, authErr, true)
			return authErr
		}
		m.setState(StateReconnecting, 1, err, false)
		go m.run(runCtx, nil)
		return err
	}

	m.setState(StateConnected, 0, nil, false)
	m.signalResync()
	go m.run(runCtx, body)
	return nil
}

// Disconnect tears the channel down cleanly. Idempotent; an already
// disconnected manager keeps its status, so a fatal credential rejection is
// not masked by a later teardown.
func (m *Manager) Disconnect() {
	m.stop()

	m.mu.Lock()
	done := m.status.State == StateDisconnected
	m.mu.Unlock()
	if done {
		return
	}

	m.setState(StateDisconnected, 0, nil, false)
}

func (m *Manager) stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.running = false
}

// run drives the read/reconnect loop. body is the already-open stream from
// Connect, or nil when the initial dial failed and the first backoff wait
// applies.
func (m *Manager) run(ctx context.Context, body *bufio.Reader) {
	retries := m.Status().Retries

	for {
		if body != nil {
			err := m.consume(ctx, body)
			if ctx.Err() != nil {
				return
			}
			retries = 1
			m.setState(StateReconnecting, retries, &TransportError{Err: err}, false)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff(m.cfg.BackoffBase, m.cfg.BackoffMax, retries)):
		}

		m.setState(StateConnecting, retries, nil, false)

		var err error
		body, err = m.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if authErr, ok := err.(*AuthError); ok {
				m.logger.Error("Push channel credential rejected", "error", authErr)
				m.stop()
				m.setState(StateDisconnected, retries, authErr, true)
				return
			}
			retries++
			m.setState(StateReconnecting, retries, err, false)
			body = nil
			continue
		}

		retries = 0
		m.setState(StateConnected, 0, nil, false)
		m.signalResync()
	}
}

// dial exchanges the credential for a stream token and opens the SSE
// request. A 401 or 403 anywhere in the handshake is an *AuthError;
// everything else recoverable is a *TransportError.
func (m *Manager) dial(ctx context.Context) (*bufio.Reader, error) {
	token, err := m.tokens.StreamToken(ctx)
	if err != nil {
		if authErr, ok := err.(*AuthError); ok {
			return nil, authErr
		}
		return nil, &TransportError{Err: fmt.Errorf("stream token: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.StreamURL+"?token="+token, nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, &AuthError{Reason: resp.Status}
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, &TransportError{Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	return bufio.NewReader(resp.Body), nil
}

// consume reads SSE events until the stream fails or ctx is done. Malformed
// payloads are dropped with a log line; they never tear the stream down.
func (m *Manager) consume(ctx context.Context, body *bufio.Reader) error {
	var event, data string

	for {
		line, err := body.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			m.handleEvent(ctx, event, data)
			event, data = "", ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case strings.HasPrefix(line, ":"):
			// comment, ignore
		}
	}
}

// handleEvent routes one complete SSE event. Only notification-arrived
// carries a record; connected and ping are plumbing.
func (m *Manager) handleEvent(ctx context.Context, event, data string) {
	if event != notification.EventNotificationArrived {
		return
	}

	var rec notification.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil || rec.ID == "" {
		m.logger.Warn("Dropping malformed push event", "error", err, "data", data)
		return
	}

	select {
	case m.events <- rec:
	case <-ctx.Done():
	}
}

func (m *Manager) signalResync() {
	select {
	case m.resync <- struct{}{}:
	default:
	}
}

func (m *Manager) setState(state State, retries int, lastErr error, fatal bool) {
	m.mu.Lock()
	m.status = Status{State: state, Retries: retries, LastErr: lastErr, Fatal: fatal}
	status := m.status
	fns := make([]func(Status), len(m.stateFns))
	copy(fns, m.stateFns)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}

// backoff returns the capped exponential delay for a retry attempt, with
// jitter in the upper half to avoid synchronized reconnect storms.
func backoff(base, ceil time.Duration, retries int) time.Duration {
	if retries < 1 {
		retries = 1
	}
	d := base << (retries - 1)
	if d > ceil || d <= 0 {
		d = ceil
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
