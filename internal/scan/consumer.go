// Package scan consumes barcode scans relayed from the paired mobile device.
//
// A validated scan is deduplicated against the most recent accepted scan,
// looked up in the catalog, and inserted into the active order when the
// lookup is unambiguous. Nothing in this path may fail loudly: a lost lookup
// means the operator rescans, not a broken screen.
package scan

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Juan-David1001/santishop-sub001/internal/catalog"
	"github.com/Juan-David1001/santishop-sub001/internal/notify"
	"github.com/Juan-David1001/santishop-sub001/internal/order"
)

const defaultDuplicateWindow = 2 * time.Second

// Config wires a Consumer's collaborators.
type Config struct {
	Catalog  catalog.Searcher
	Order    *order.Order
	Notifier notify.Notifier

	// OnAmbiguous surfaces a multi-match lookup for manual selection.
	OnAmbiguous func(code string, matches []catalog.Product)

	// DuplicateWindow suppresses an identical code received within this
	// window of the previous accepted scan. Defaults to 2s.
	DuplicateWindow time.Duration

	// Bell, if set, receives a terminal bell byte per accepted scan.
	// Write failures are swallowed.
	Bell io.Writer

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Consumer processes inbound scan codes.
type Consumer struct {
	cfg Config

	mu       sync.Mutex
	lastCode string
	lastAt   time.Time
}

// NewConsumer creates a scan consumer.
func NewConsumer(cfg Config) *Consumer {
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = defaultDuplicateWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Consumer{cfg: cfg}
}

// SetDuplicateWindow replaces the duplicate-scan window for subsequent scans.
// Non-positive values are ignored.
func (c *Consumer) SetDuplicateWindow(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.cfg.DuplicateWindow = d
	c.mu.Unlock()
}

// OnScan handles one scanned code end to end. Safe to call from the channel's
// read callback; never panics or returns an error.
func (c *Consumer) OnScan(ctx context.Context, code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		slog.Debug("scan: empty code ignored")
		return
	}

	now := c.cfg.Now()

	c.mu.Lock()
	if code == c.lastCode && now.Sub(c.lastAt) < c.cfg.DuplicateWindow {
		c.mu.Unlock()
		slog.Debug("scan: duplicate suppressed", "code", code)
		return
	}
	c.lastCode = code
	c.lastAt = now
	c.mu.Unlock()

	c.cfg.Notifier.Notify(notify.CategoryScan, notify.LevelSuccess, "Scanned: "+code)
	c.ring()

	products, err := c.cfg.Catalog.Search(ctx, code)
	if err != nil {
		slog.Warn("scan: catalog lookup failed", "code", code, "error", err)
		c.cfg.Notifier.Notify(notify.CategorySearch, notify.LevelError,
			"Product search failed, rescan to retry")
		return
	}

	switch len(products) {
	case 0:
		c.cfg.Notifier.Notify(notify.CategorySearch, notify.LevelWarning,
			"No product found for "+code)

	case 1:
		p := products[0]
		qty := c.cfg.Order.AddProduct(p)
		slog.Info("scan: product added", "code", code, "product", p.Name, "quantity", qty)
		c.cfg.Notifier.Notify(notify.CategoryScan, notify.LevelSuccess,
			"Added "+p.Name+" to order")

	default:
		slog.Info("scan: ambiguous lookup", "code", code, "matches", len(products))
		if c.cfg.OnAmbiguous != nil {
			c.cfg.OnAmbiguous(code, products)
		}
		c.cfg.Notifier.Notify(notify.CategorySearch, notify.LevelInfo,
			"Multiple products match, select one manually")
	}
}

// ring emits the audible scan cue, if configured. Failures are irrelevant.
func (c *Consumer) ring() {
	if c.cfg.Bell == nil {
		return
	}
	c.cfg.Bell.Write([]byte{0x07})
}
