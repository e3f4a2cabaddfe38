package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the burst of write events a single save
// typically produces (editors often write-then-rename).
const debounceDelay = 100 * time.Millisecond

// Watcher reloads path on every filesystem change and invokes onChange
// with the newly loaded Config, grounded on
// pkg/config/provider/file.go's FileProvider.Watch/watchLoop (directory
// watch + debounce timer), adapted to call Load directly instead of
// emitting a generic change-notification channel.
type Watcher struct {
	path     string
	onChange func(*Config, error)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// NewWatcher constructs a Watcher for path; onChange is called with the
// reloaded Config on success, or a non-nil error if the reload failed
// (the caller decides whether to keep running on the previous Config).
func NewWatcher(path string, onChange func(*Config, error)) *Watcher {
	return &Watcher{path: path, onChange: onChange}
}

// Start begins watching in a new goroutine; it returns once the watcher
// is registered or an error occurs setting it up. Call Close (or cancel
// ctx) to stop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fsw

	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return err
	}

	go w.loop(ctx, fsw, file)
	slog.Info("config: watching for changes", "path", w.path)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, configFile string) {
	defer fsw.Close()

	var debounce *time.Timer
	reload := func() {
		cfg, err := Load(w.path)
		w.onChange(cfg, err)
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, reload)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config: watcher error", "error", err)
		}
	}
}

// Close stops the watcher; safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
