package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Juan-David1001/santishop-sub001/internal/notify"
)

// ChangeHandler receives the validated configuration after a reload.
type ChangeHandler func(cfg *Config)

// Watcher reloads the POS configuration when its file changes on disk.
//
// The parent directory is watched rather than the file itself: editors and
// provisioning tools replace config files by atomic rename, which silently
// orphans a watch held on the old inode. Bursts of events are debounced into
// one reload. A reload that does not parse keeps the previous configuration
// and surfaces the failure as an operator notice; a reload that parses to the
// same values is dropped without bothering the handlers.
type Watcher struct {
	path     string
	dir      string
	base     string
	fsw      *fsnotify.Watcher
	notifier notify.Notifier
	debounce time.Duration

	mu       sync.Mutex
	handlers []ChangeHandler
	current  *Config

	stop chan struct{}
}

// NewWatcher creates a watcher for the given config file. Reload outcomes are
// reported through the notifier; nil logs them via slog only.
func NewWatcher(path string, notifier notify.Notifier) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notify.NewCenter(nil)
	}
	return &Watcher{
		path:     abs,
		dir:      filepath.Dir(abs),
		base:     filepath.Base(abs),
		fsw:      fsw,
		notifier: notifier,
		debounce: 300 * time.Millisecond,
	}, nil
}

// OnChange registers a handler called with each effective reload.
func (cw *Watcher) OnChange(handler ChangeHandler) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.handlers = append(cw.handlers, handler)
}

// Start records the current file state and begins watching its directory.
func (cw *Watcher) Start() error {
	cfg, err := Load(cw.path)
	if err != nil {
		return err
	}
	cw.mu.Lock()
	cw.current = cfg
	cw.mu.Unlock()

	if err := cw.fsw.Add(cw.dir); err != nil {
		return err
	}

	cw.stop = make(chan struct{})
	go cw.watchLoop()

	slog.Info("config watcher started", "path", cw.path)
	return nil
}

// Stop halts the watcher. Safe to call whether or not Start succeeded.
func (cw *Watcher) Stop() {
	if cw.stop != nil {
		close(cw.stop)
	}
	cw.fsw.Close()
	slog.Info("config watcher stopped")
}

func (cw *Watcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case <-cw.stop:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-cw.fsw.Events:
			if !ok {
				return
			}
			// Directory-level events cover the whole dir; only our file
			// matters. Create and Rename are how atomic saves land.
			if filepath.Base(event.Name) != cw.base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(cw.debounce, cw.reload)

		case err, ok := <-cw.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (cw *Watcher) reload() {
	cfg, err := Load(cw.path)
	if err != nil {
		slog.Error("config reload failed, keeping previous settings", "path", cw.path, "error", err)
		cw.notifier.Notify(notify.CategoryConfig, notify.LevelWarning,
			"Config change could not be loaded, keeping previous settings")
		return
	}

	cw.mu.Lock()
	if cw.current != nil && *cfg == *cw.current {
		cw.mu.Unlock()
		slog.Debug("config reload: no effective change", "path", cw.path)
		return
	}
	cw.current = cfg
	handlers := append([]ChangeHandler(nil), cw.handlers...)
	cw.mu.Unlock()

	slog.Info("config reloaded", "path", cw.path, "origin", cfg.Origin)
	cw.notifier.Notify(notify.CategoryConfig, notify.LevelInfo, "Configuration reloaded")

	for _, h := range handlers {
		h(cfg)
	}
}
