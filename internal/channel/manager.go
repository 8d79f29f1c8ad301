// Package channel manages the persistent relay connection between a POS
// screen and its paired mobile scanner.
//
// One Manager owns at most one live connection at a time. Connecting for a
// new (or the same) session first tears the previous connection down, timers
// included, so reconnect cycles never leak tickers or fire stale callbacks.
//
// Reconnection is a fixed delay with no backoff or attempt cap: pairing is an
// operator-attended flow, and the operator resets the session long before a
// backoff schedule would matter.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Juan-David1001/santishop-sub001/internal/notify"
	"github.com/Juan-David1001/santishop-sub001/pkg/protocol"
)

// State is the lifecycle state of the relay connection.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
)

// Defaults for the channel timers.
const (
	DefaultConnectTimeout    = 8 * time.Second
	DefaultReconnectDelay    = 5 * time.Second
	DefaultKeepAliveInterval = 30 * time.Second

	writeTimeout = 10 * time.Second
)

// ErrNotOpen is returned by Send when no open connection exists.
var ErrNotOpen = errors.New("scanner channel is not open")

// MessageHandler receives each raw inbound payload. Handlers must not block
// for long and must contain their own failures.
type MessageHandler func(ctx context.Context, data []byte)

// Config wires a Manager.
type Config struct {
	// Origin is the http(s) origin the POS is served from; the relay address
	// is derived from it (ws(s)://host/api/ws/pos/{sessionID}).
	Origin string

	ConnectTimeout    time.Duration // default 8s
	ReconnectDelay    time.Duration // default 5s
	KeepAliveInterval time.Duration // default 30s

	Handler  MessageHandler
	OnState  func(State)
	Notifier notify.Notifier
	Dialer   *websocket.Dialer
}

// conn is one connection attempt. Timers live here as named fields so a
// discarded connection can always be swept clean.
type conn struct {
	sessionID   string
	ws          *websocket.Conn
	writeMu     sync.Mutex
	manualClose bool
	cancelDial  context.CancelFunc
	keepAlive   *time.Ticker
	reconnect   *time.Timer
	done        chan struct{}
}

// Manager owns the relay connection lifecycle for one POS screen.
type Manager struct {
	cfg Config

	mu    sync.Mutex
	cur   *conn
	state State
}

// NewManager creates a channel manager.
func NewManager(cfg Config) *Manager {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewCenter(nil)
	}
	return &Manager{cfg: cfg, state: StateIdle}
}

// Reconfigure updates the origin and timer durations used by subsequent
// Connect calls. Zero values keep the current setting; collaborators
// (Handler, OnState, Notifier, Dialer) never change. The live connection,
// if any, is left alone until the next Connect.
func (m *Manager) Reconfigure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.Origin != "" {
		m.cfg.Origin = cfg.Origin
	}
	if cfg.ConnectTimeout > 0 {
		m.cfg.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.ReconnectDelay > 0 {
		m.cfg.ReconnectDelay = cfg.ReconnectDelay
	}
	if cfg.KeepAliveInterval > 0 {
		m.cfg.KeepAliveInterval = cfg.KeepAliveInterval
	}
}

// RelayURL derives the relay channel address from the serving origin.
func RelayURL(origin, sessionID string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse origin %q: %w", origin, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("origin %q has no host", origin)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("origin %q has unsupported scheme %q", origin, u.Scheme)
	}

	u.Path = "/api/ws/pos/" + sessionID
	u.RawQuery = ""
	return u.String(), nil
}

// Connect opens the channel for a pairing session, tearing down any previous
// connection first. The dial happens in the background; state transitions are
// reported through OnState.
func (m *Manager) Connect(sessionID string) {
	m.mu.Lock()
	m.teardownLocked()

	c := &conn{
		sessionID: sessionID,
		done:      make(chan struct{}),
	}
	m.cur = c
	m.state = StateConnecting
	m.mu.Unlock()

	m.notifyState(StateConnecting)
	slog.Info("channel: connecting", "session", sessionID)

	go m.run(c)
}

// Close shuts the channel down on operator request. Suppresses any pending or
// future reconnect for the current connection.
func (m *Manager) Close() {
	m.mu.Lock()
	c := m.cur
	if c == nil {
		m.mu.Unlock()
		return
	}
	c.manualClose = true
	sweepLocked(c)
	if c.ws != nil {
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.ws.Close()
	}
	m.state = StateClosed
	m.mu.Unlock()

	m.notifyState(StateClosed)
	slog.Info("channel: closed by operator", "session", c.sessionID)
}

// Send writes an outbound message to the open connection.
func (m *Manager) Send(v any) error {
	m.mu.Lock()
	c := m.cur
	if c == nil || c.ws == nil || m.state != StateOpen {
		m.mu.Unlock()
		return ErrNotOpen
	}
	m.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the session served by the current connection, or "".
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return ""
	}
	return m.cur.sessionID
}

// --- Connection lifecycle ---

func (m *Manager) run(c *conn) {
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()

	wsURL, err := RelayURL(cfg.Origin, c.sessionID)
	if err != nil {
		slog.Error("channel: bad relay address", "error", err)
		m.cfg.Notifier.Notify(notify.CategoryChannel, notify.LevelError,
			"Scanner channel misconfigured: "+err.Error())
		m.transitionClosed(c, true, "")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)

	m.mu.Lock()
	if m.cur != c || c.manualClose {
		m.mu.Unlock()
		cancel()
		return
	}
	c.cancelDial = cancel
	m.mu.Unlock()

	ws, _, err := m.dialer().DialContext(ctx, wsURL, nil)
	timedOut := ctx.Err() == context.DeadlineExceeded
	cancel()

	if err != nil {
		msg := "Could not reach the scanner relay, retrying"
		if timedOut {
			msg = "Connection to the scanner relay timed out, retrying"
		}
		slog.Warn("channel: dial failed", "session", c.sessionID, "timeout", timedOut, "error", err)
		m.transitionClosed(c, false, msg)
		return
	}

	ticker := time.NewTicker(cfg.KeepAliveInterval)

	m.mu.Lock()
	if m.cur != c || c.manualClose {
		m.mu.Unlock()
		ticker.Stop()
		ws.Close()
		return
	}
	c.ws = ws
	c.cancelDial = nil
	c.keepAlive = ticker
	m.state = StateOpen
	m.mu.Unlock()

	m.notifyState(StateOpen)
	slog.Info("channel: open", "session", c.sessionID)

	go m.keepAliveLoop(c, ticker)
	m.readLoop(c)
}

func (m *Manager) readLoop(c *conn) {
	ctx := context.Background()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			normal := websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway)
			msg := ""
			if !normal {
				msg = "Scanner channel lost, reconnecting"
			}
			m.transitionClosed(c, normal, msg)
			return
		}
		if m.cfg.Handler != nil {
			m.cfg.Handler(ctx, data)
		}
	}
}

// transitionClosed moves a connection to CLOSED exactly once, sweeps its
// timers, and schedules a reconnect unless the close was manual or normal.
func (m *Manager) transitionClosed(c *conn, normal bool, noticeMsg string) {
	m.mu.Lock()
	if m.cur != c || m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	sweepLocked(c)
	if c.ws != nil {
		c.ws.Close()
	}
	manual := c.manualClose
	m.state = StateClosed
	delay := m.cfg.ReconnectDelay

	reconnecting := !manual && !normal
	if reconnecting {
		c.reconnect = time.AfterFunc(delay, func() {
			m.retry(c)
		})
	}
	m.mu.Unlock()

	m.notifyState(StateClosed)

	if reconnecting {
		slog.Warn("channel: disconnected", "session", c.sessionID,
			"retry_in", delay)
		if noticeMsg != "" {
			m.cfg.Notifier.Notify(notify.CategoryChannel, notify.LevelWarning, noticeMsg)
		}
	} else {
		slog.Info("channel: closed", "session", c.sessionID, "normal", normal, "manual", manual)
	}
}

// retry re-dials the same session after the reconnect delay, unless the
// connection was superseded or manually closed in the meantime.
func (m *Manager) retry(c *conn) {
	m.mu.Lock()
	if m.cur != c || c.manualClose {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	slog.Info("channel: reconnecting", "session", c.sessionID)
	m.Connect(c.sessionID)
}

func (m *Manager) keepAliveLoop(c *conn, ticker *time.Ticker) {
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := m.Send(protocol.NewPing()); err != nil {
				slog.Debug("channel: keep-alive failed", "error", err)
			}
		}
	}
}

// teardownLocked retires the current connection without notifying: the caller
// is about to install a replacement. Must be called with m.mu held.
func (m *Manager) teardownLocked() {
	c := m.cur
	if c == nil {
		return
	}
	c.manualClose = true
	sweepLocked(c)
	if c.ws != nil {
		c.ws.Close()
	}
	m.cur = nil
}

// sweepLocked cancels every timer a connection may hold and releases its
// keep-alive loop. Must be called with m.mu held.
func sweepLocked(c *conn) {
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if c.keepAlive != nil {
		c.keepAlive.Stop()
		c.keepAlive = nil
	}
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

func (m *Manager) dialer() *websocket.Dialer {
	if m.cfg.Dialer != nil {
		return m.cfg.Dialer
	}
	return websocket.DefaultDialer
}

func (m *Manager) notifyState(s State) {
	if m.cfg.OnState != nil {
		m.cfg.OnState(s)
	}
}
