package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Juan-David1001/santishop-sub001/internal/notify"
)

type noticeRec struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (r *noticeRec) Notify(category string, level notify.Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notify.Notice{Category: category, Level: level, Message: message})
}

func (r *noticeRec) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func (r *noticeRec) first() notify.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notices[0]
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func startWatcher(t *testing.T, path string, rec *noticeRec) (*Watcher, func() int, func(int) *Config) {
	t.Helper()

	w, err := NewWatcher(path, rec)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.debounce = 20 * time.Millisecond

	var mu sync.Mutex
	var reloads []*Config
	w.OnChange(func(cfg *Config) {
		mu.Lock()
		defer mu.Unlock()
		reloads = append(reloads, cfg)
	})

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(reloads)
	}
	get := func(i int) *Config {
		mu.Lock()
		defer mu.Unlock()
		return reloads[i]
	}
	return w, count, get
}

func TestWatcher_AtomicRenameReplaceReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pos.json5")
	if err := os.WriteFile(path, []byte(`{origin: "http://old:4000"}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, count, get := startWatcher(t, path, &noticeRec{})

	// Editors and provisioners save by writing a sibling and renaming it over
	// the config; the watch must survive the inode swap.
	tmp := filepath.Join(dir, "pos.json5.tmp")
	if err := os.WriteFile(tmp, []byte(`{origin: "http://new:4000"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	waitUntil(t, 3*time.Second, func() bool { return count() >= 1 },
		"reload never fired after rename-replace")

	if got := get(0).Origin; got != "http://new:4000" {
		t.Errorf("reloaded origin = %q, want http://new:4000", got)
	}
}

func TestWatcher_MalformedReloadKeepsPreviousAndNotifies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pos.json5")
	if err := os.WriteFile(path, []byte(`{origin: "http://good:4000"}`), 0644); err != nil {
		t.Fatal(err)
	}

	rec := &noticeRec{}
	_, count, _ := startWatcher(t, path, rec)

	if err := os.WriteFile(path, []byte(`{origin: `), 0644); err != nil {
		t.Fatal(err)
	}

	waitUntil(t, 3*time.Second, func() bool { return rec.count() >= 1 },
		"no notice for a broken config change")

	n := rec.first()
	if n.Category != notify.CategoryConfig || n.Level != notify.LevelWarning {
		t.Errorf("expected config warning notice, got %+v", n)
	}
	if count() != 0 {
		t.Error("handlers must not run for a reload that failed to parse")
	}
}

func TestWatcher_NoOpRewriteDoesNotFireHandlers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pos.json5")
	content := []byte(`{origin: "http://same:4000"}`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	_, count, _ := startWatcher(t, path, &noticeRec{})

	// Touching the file without changing its effective values is common
	// (formatting, comments); handlers should stay quiet.
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if count() != 0 {
		t.Errorf("unchanged config fired %d reloads", count())
	}
}
