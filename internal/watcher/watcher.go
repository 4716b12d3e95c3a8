// Package watcher monitors the Calibre metadata.db for changes and triggers
// re-ingest, debounced so one Calibre save does not fire a burst of scans.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the file must be quiet before a change fires.
// Calibre rewrites metadata.db in several steps; firing on the first write
// would re-ingest a half-written database.
const DefaultDebounce = 2 * time.Second

// Watcher watches a single file via its parent directory. fsnotify loses
// the watch when a file is replaced atomically, which is exactly how
// Calibre saves, so the directory is the reliable unit to watch.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(ctx context.Context)
	logger   *slog.Logger

	fsw *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher for the given file path. onChange runs on the
// watcher goroutine after the debounce window closes.
func New(path string, onChange func(ctx context.Context), logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   logger,
		fsw:      fsw,
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	return w, nil
}

// SetDebounce overrides the debounce window. Tests use a short one.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start blocks processing events until ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("watching calibre metadata", "path", w.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.logger.Info("calibre metadata changed", "path", w.path)
		w.onChange(ctx)
	})
}
