// Package notify delivers transient operator-facing notices.
//
// Notices are keyed by a stable category ID: a repeated notice of the same
// category replaces the previous one rather than stacking, so a flapping
// connection or a burst of scans never floods the operator.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level classifies a notice for presentation.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Well-known notice categories. Emitters may define their own; the only
// requirement is that a category ID is stable across repeats.
const (
	CategoryChannel       = "scanner-channel"
	CategoryScannerStatus = "scanner-status"
	CategoryScan          = "scan"
	CategorySearch        = "scan-search"
	CategoryRelayError    = "relay-error"
	CategoryConfig        = "config"
)

// Notice is a single operator-facing notification.
type Notice struct {
	ID       string // unique per emission
	Category string // stable per notice kind
	Level    Level
	Message  string
	At       time.Time
}

// Notifier is implemented by anything that can surface notices.
type Notifier interface {
	Notify(category string, level Level, message string)
}

// Sink receives the notices a Center accepts.
type Sink func(Notice)

// Center is the default Notifier: it keeps the latest notice per category
// and forwards each accepted notice to a sink.
type Center struct {
	mu     sync.Mutex
	latest map[string]Notice
	sink   Sink
}

// NewCenter creates a notice center. A nil sink logs notices via slog.
func NewCenter(sink Sink) *Center {
	if sink == nil {
		sink = SlogSink
	}
	return &Center{
		latest: make(map[string]Notice),
		sink:   sink,
	}
}

// Notify records and forwards a notice, replacing any previous notice of the
// same category.
func (c *Center) Notify(category string, level Level, message string) {
	n := Notice{
		ID:       uuid.NewString(),
		Category: category,
		Level:    level,
		Message:  message,
		At:       time.Now(),
	}

	c.mu.Lock()
	c.latest[category] = n
	c.mu.Unlock()

	c.sink(n)
}

// Latest returns the most recent notice for a category, if any.
func (c *Center) Latest(category string) (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.latest[category]
	return n, ok
}

// SlogSink logs notices through the default structured logger.
func SlogSink(n Notice) {
	attrs := []any{"category", n.Category, "message", n.Message}
	switch n.Level {
	case LevelError:
		slog.Error("notice", attrs...)
	case LevelWarning:
		slog.Warn("notice", attrs...)
	default:
		slog.Info("notice", attrs...)
	}
}
