// Package config loads the POS scanner-channel configuration.
//
// The config file is JSON5 (comments and trailing commas allowed) so the
// deployment notes can live next to the values. A missing file means
// defaults; a malformed file is an error.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/titanous/json5"
)

// Timing defaults, in milliseconds to match the wire-facing config file.
const (
	DefaultConnectionTimeoutMs           = 8000
	DefaultReconnectDelayMs              = 5000
	DefaultKeepAliveIntervalMs           = 30000
	DefaultDuplicateScanWindowMs         = 2000
	DefaultDuplicateNotificationWindowMs = 5000
)

// Timings groups the channel and dedup windows.
type Timings struct {
	ConnectionTimeoutMs           int `json:"connectionTimeoutMs"`
	ReconnectDelayMs              int `json:"reconnectDelayMs"`
	KeepAliveIntervalMs           int `json:"keepAliveIntervalMs"`
	DuplicateScanWindowMs         int `json:"duplicateScanWindowMs"`
	DuplicateNotificationWindowMs int `json:"duplicateNotificationWindowMs"`
}

// Config is the root configuration.
type Config struct {
	// Origin is the http(s) origin the POS is served from. Both the pairing
	// URL and the relay channel address derive from it.
	Origin string `json:"origin"`

	// CatalogURL overrides the catalog service base URL; defaults to Origin.
	CatalogURL string `json:"catalogUrl"`

	Timings Timings `json:"timings"`
}

// Default returns a config with all defaults applied.
func Default() *Config {
	cfg := &Config{
		Origin: "http://localhost:4000",
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads a config file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Origin == "" {
		c.Origin = "http://localhost:4000"
	}
	if c.CatalogURL == "" {
		c.CatalogURL = c.Origin
	}
	t := &c.Timings
	if t.ConnectionTimeoutMs <= 0 {
		t.ConnectionTimeoutMs = DefaultConnectionTimeoutMs
	}
	if t.ReconnectDelayMs <= 0 {
		t.ReconnectDelayMs = DefaultReconnectDelayMs
	}
	if t.KeepAliveIntervalMs <= 0 {
		t.KeepAliveIntervalMs = DefaultKeepAliveIntervalMs
	}
	if t.DuplicateScanWindowMs <= 0 {
		t.DuplicateScanWindowMs = DefaultDuplicateScanWindowMs
	}
	if t.DuplicateNotificationWindowMs <= 0 {
		t.DuplicateNotificationWindowMs = DefaultDuplicateNotificationWindowMs
	}
}

// Duration accessors.

func (t Timings) ConnectionTimeout() time.Duration {
	return time.Duration(t.ConnectionTimeoutMs) * time.Millisecond
}

func (t Timings) ReconnectDelay() time.Duration {
	return time.Duration(t.ReconnectDelayMs) * time.Millisecond
}

func (t Timings) KeepAliveInterval() time.Duration {
	return time.Duration(t.KeepAliveIntervalMs) * time.Millisecond
}

func (t Timings) DuplicateScanWindow() time.Duration {
	return time.Duration(t.DuplicateScanWindowMs) * time.Millisecond
}

func (t Timings) DuplicateNotificationWindow() time.Duration {
	return time.Duration(t.DuplicateNotificationWindowMs) * time.Millisecond
}
