package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dshills/inkwell/internal/clock"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "inkwell.toml", "[directory]\nlimit = 3\n")
	w, err := NewWatcher(path, WithEnv(noEnv), WithReloadDelay(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if got := w.Current().Directory.Limit; got != 3 {
		t.Fatalf("initial limit = %d, want 3", got)
	}

	got := make(chan *Config, 16)
	w.Subscribe(func(c *Config) { got <- c })

	if err := os.WriteFile(path, []byte("[directory]\nlimit = 9\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	// A save can surface as truncate then write; wait for the final content.
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case c := <-got:
			done = c.Directory.Limit == 9
		case <-timeout:
			t.Fatal("no reload after write")
		}
	}
	if w.Current().Directory.Limit != 9 {
		t.Errorf("Current not updated")
	}
}

// manualWatcher never reloads on its own; tests call Reload.
func manualWatcher(t *testing.T, content string) (*Watcher, string) {
	t.Helper()
	path := writeFile(t, "inkwell.yaml", content)
	w, err := NewWatcher(path, WithEnv(noEnv), WithScheduler(clock.NewManual(time.Unix(0, 0))))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w, path
}

func TestWatcher_InvalidReloadKeepsCurrent(t *testing.T) {
	w, path := manualWatcher(t, "editor:\n  viewport_width: 40\n")

	calls := 0
	w.Subscribe(func(*Config) { calls++ })

	if err := os.WriteFile(path, []byte("editor:\n  viewport_width: -1\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	err := w.Reload()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Reload = %v, want *ValidationError", err)
	}
	if w.Current().Editor.ViewportWidth != 40 {
		t.Errorf("ViewportWidth = %d, want 40", w.Current().Editor.ViewportWidth)
	}
	if calls != 0 {
		t.Errorf("subscriber called %d times for a failed reload", calls)
	}
}

func TestWatcher_MissingFileSkipsReload(t *testing.T) {
	w, path := manualWatcher(t, "editor:\n  viewport_width: 40\n")
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := w.Reload(); err != nil {
		t.Fatalf("Reload = %v", err)
	}
	if w.Current().Editor.ViewportWidth != 40 {
		t.Errorf("config reset after the file disappeared")
	}
}

func TestWatcher_SubscribersGetCopies(t *testing.T) {
	w, path := manualWatcher(t, "logging:\n  level: info\n")

	var first, second *Config
	unsub := w.Subscribe(func(c *Config) { first = c })
	w.Subscribe(func(c *Config) { second = c })

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := w.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if first == nil || second == nil {
		t.Fatal("subscribers not called")
	}
	if first == second {
		t.Error("subscribers share one Config")
	}
	first.Mention.ActiveTriggers[0] = "#"
	if w.Current().Mention.ActiveTriggers[0] != "@" {
		t.Error("subscriber mutated the current config")
	}

	unsub()
	first = nil
	if err := w.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if first != nil {
		t.Error("unsubscribed handler was called")
	}
}

func TestWatcher_Close(t *testing.T) {
	w, _ := manualWatcher(t, "")
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := w.Reload(); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Reload after Close = %v, want ErrWatcherClosed", err)
	}
}
