package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/inkwell/internal/clock"
	"github.com/dshills/inkwell/internal/debounce"
	"github.com/dshills/inkwell/internal/logging"
)

// DefaultReloadDelay groups the burst of events an editor produces when it
// saves a file.
const DefaultReloadDelay = 100 * time.Millisecond

// Watcher reloads a configuration file when it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which save by rename keep triggering reloads. Subscribers run on
// the watcher's timer goroutine; a host whose sessions are not safe for
// concurrent use must hand the Config over to its own loop.
type Watcher struct {
	mu      sync.Mutex
	path    string
	lookup  func(string) (string, bool)
	log     *logging.Logger
	current *Config
	subs    map[int]func(*Config)
	nextSub int
	closed  bool

	sched    debounce.Scheduler
	delay    time.Duration
	debounce *debounce.Debouncer

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithReloadDelay sets the quiet period before a reload.
func WithReloadDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.delay = d }
}

// WithWatcherLogger sets the logger for reload failures.
func WithWatcherLogger(l *logging.Logger) WatcherOption {
	return func(w *Watcher) { w.log = logging.OrNop(l) }
}

// WithEnv sets the environment lookup used on reload.
func WithEnv(lookup func(string) (string, bool)) WatcherOption {
	return func(w *Watcher) { w.lookup = lookup }
}

// WithScheduler sets the clock that times the reload delay.
func WithScheduler(s debounce.Scheduler) WatcherOption {
	return func(w *Watcher) { w.sched = s }
}

// NewWatcher loads path and starts watching it.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:   abs,
		lookup: os.LookupEnv,
		log:    logging.Nop(),
		subs:   make(map[int]func(*Config)),
		sched:  clock.Real(),
		delay:  DefaultReloadDelay,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.WithComponent("config")

	cfg, err := LoadWithEnv(w.path, w.lookup)
	if err != nil {
		return nil, err
	}
	w.current = cfg

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.fsw = fsw
	w.debounce = debounce.New(w.sched, w.delay, func() { _ = w.Reload() })

	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Current returns the last successfully loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Subscribe registers fn for every successful reload and returns a
// function that removes it.
func (w *Watcher) Subscribe(fn func(*Config)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

// Reload reads the file again. A file that fails to load or validate is
// reported and the previous configuration stays current.
func (w *Watcher) Reload() error {
	// A file renamed away mid-save comes back shortly; keep what we have.
	if _, err := os.Stat(w.path); os.IsNotExist(err) {
		w.log.Debug("config file missing, reload skipped", "path", w.path)
		return nil
	}
	cfg, err := LoadWithEnv(w.path, w.lookup)
	if err != nil {
		w.log.Warn("config reload failed", "path", w.path, "error", err)
		return err
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	w.current = cfg
	subs := make([]func(*Config), 0, len(w.subs))
	for _, id := range sortedIDs(w.subs) {
		subs = append(subs, w.subs[id])
	}
	w.mu.Unlock()

	w.log.Info("config reloaded", "path", w.path)
	for _, fn := range subs {
		fn(cfg.Clone())
	}
	return nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	w.debounce.Cancel()
	return err
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.debounce.Call()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watch error", "error", err)
		}
	}
}

func sortedIDs(m map[int]func(*Config)) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
