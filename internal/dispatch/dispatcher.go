// Package dispatch routes decoded relay events to their side effects.
//
// Exactly one side effect per event kind; unknown kinds are dropped quietly
// so new relay message types never break a deployed POS.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Juan-David1001/santishop-sub001/internal/notify"
	"github.com/Juan-David1001/santishop-sub001/pkg/protocol"
)

const defaultNoticeWindow = 5 * time.Second

// Sender writes an outbound message to the relay channel.
type Sender interface {
	Send(v any) error
}

// Config wires a Dispatcher's collaborators.
type Config struct {
	SessionID string
	Device    protocol.DeviceInfo
	Sender    Sender
	Notifier  notify.Notifier

	// OnScan forwards a barcode event's code to the scan consumer.
	OnScan func(ctx context.Context, code string)

	// OnScannerStatus flips the scanner connected/disconnected indicator.
	OnScannerStatus func(connected bool)

	// NoticeWindow suppresses repeated scanner-status notices of the same
	// polarity within this window. Defaults to 5s.
	NoticeWindow time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Dispatcher maps inbound events to side effects for one pairing session.
type Dispatcher struct {
	cfg Config

	mu           sync.Mutex
	sessionID    string
	acked        bool               // connection event already acknowledged
	lastNoticeAt map[bool]time.Time // status-notice polarity → last emission
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.NoticeWindow <= 0 {
		cfg.NoticeWindow = defaultNoticeWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dispatcher{
		cfg:          cfg,
		sessionID:    cfg.SessionID,
		lastNoticeAt: make(map[bool]time.Time),
	}
}

// Reset rebinds the dispatcher to a new pairing session, clearing the
// acknowledgement flag and notice-storm suppression state.
func (d *Dispatcher) Reset(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessionID = sessionID
	d.acked = false
	d.lastNoticeAt = make(map[bool]time.Time)
}

// SetNoticeWindow replaces the scanner-status notice window for subsequent
// events. Non-positive values are ignored.
func (d *Dispatcher) SetNoticeWindow(w time.Duration) {
	if w <= 0 {
		return
	}
	d.mu.Lock()
	d.cfg.NoticeWindow = w
	d.mu.Unlock()
}

// Dispatch performs the side effect for one decoded event.
// Never blocks on anything but the collaborators it calls, and never panics.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *protocol.InboundEvent) {
	switch ev.Type {
	case protocol.EventBarcode:
		if d.cfg.OnScan != nil {
			d.cfg.OnScan(ctx, ev.Code)
		}

	case protocol.EventScannerStatus:
		d.scannerStatus(ev.Status == protocol.StatusConnected)

	case protocol.EventConnection:
		if ev.Status == protocol.StatusConnected {
			d.connectionAck()
		}

	case protocol.EventHeartbeat:
		if err := d.cfg.Sender.Send(protocol.NewHeartbeatResponse()); err != nil {
			slog.Debug("dispatch: heartbeat response failed", "error", err)
		}

	case protocol.EventError:
		d.cfg.Notifier.Notify(notify.CategoryRelayError, notify.LevelError,
			"Scanner relay error: "+ev.Message)

	case protocol.EventServerShutdown:
		d.cfg.Notifier.Notify(notify.CategoryChannel, notify.LevelWarning,
			"Scanner relay is shutting down")

	default:
		slog.Debug("dispatch: unknown event type ignored", "type", ev.Type)
	}
}

// scannerStatus flips the indicator and emits a polarity-deduplicated notice.
func (d *Dispatcher) scannerStatus(connected bool) {
	if d.cfg.OnScannerStatus != nil {
		d.cfg.OnScannerStatus(connected)
	}

	now := d.cfg.Now()

	d.mu.Lock()
	last, seen := d.lastNoticeAt[connected]
	if seen && now.Sub(last) < d.cfg.NoticeWindow {
		d.mu.Unlock()
		slog.Debug("dispatch: scanner status notice suppressed", "connected", connected)
		return
	}
	d.lastNoticeAt[connected] = now
	d.mu.Unlock()

	if connected {
		d.cfg.Notifier.Notify(notify.CategoryScannerStatus, notify.LevelSuccess,
			"Scanner connected")
	} else {
		d.cfg.Notifier.Notify(notify.CategoryScannerStatus, notify.LevelWarning,
			"Scanner disconnected")
	}
}

// connectionAck emits the one-time relay acknowledgement and replies with the
// session's device identity.
func (d *Dispatcher) connectionAck() {
	d.mu.Lock()
	if d.acked {
		d.mu.Unlock()
		return
	}
	d.acked = true
	sessionID := d.sessionID
	d.mu.Unlock()

	d.cfg.Notifier.Notify(notify.CategoryChannel, notify.LevelSuccess,
		"Scanner relay acknowledged the session")

	if err := d.cfg.Sender.Send(protocol.NewConnectionConfirmed(sessionID, d.cfg.Device)); err != nil {
		slog.Debug("dispatch: connection_confirmed failed", "error", err)
	}
}
