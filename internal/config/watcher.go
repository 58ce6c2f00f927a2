package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file once writes to it have been quiet for the
// debounce interval and hands the result to a callback.
type Watcher struct {
	path     string
	onChange func(*Config)
	log      *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	pending *time.Timer
	stopped bool
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

func WithWatchLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

func NewWatcher(path string, onChange func(*Config), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     path,
		onChange: onChange,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		debounce: time.Second,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run watches until ctx is done. The parent directory is watched so that
// editors that replace the file on save are still picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watcher.Add: %w", err)
	}

	defer w.stop()

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reactToFileWrite()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watcher", "err", err)
		}
	}
}

// reactToFileWrite (re)arms the reload timer. Editors often truncate the
// file and write it again, so only the last write of a burst is read.
func (w *Watcher) reactToFileWrite() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, func() { w.reload() })
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.pending != nil {
		w.pending.Stop()
	}
}

// reload reads the file and reports whether the callback ran.
func (w *Watcher) reload() bool {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return false
	}

	conf, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload failed", "path", w.path, "err", err)
		return false
	}
	w.log.Info("config reloaded", "path", w.path)
	w.onChange(conf)
	return true
}
