// Package watch re-runs the workaround when the patched files are
// overwritten, typically by a package upgrade that bypassed the hooks.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a set of files and invokes a callback after changes,
// debounced so one package transaction triggers one reapply. The parent
// directories are watched because package managers replace files by
// rename, which drops inotify watches on the files themselves.
type Watcher struct {
	paths    map[string]bool // absolute file paths to react to
	dirs     []string
	pending  map[string]bool // dirs that did not exist at Start
	debounce time.Duration
	onChange func()
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce duration for file changes.
// Default is 2s.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New creates a watcher for the given files. onChange runs on the
// watcher goroutine after the debounce window closes.
func New(paths []string, onChange func(), logger *slog.Logger, opts ...Option) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		paths:    make(map[string]bool, len(paths)),
		pending:  make(map[string]bool),
		debounce: 2 * time.Second,
		onChange: onChange,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	seen := make(map[string]bool)
	for _, path := range paths {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		w.paths[abs] = true
		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}

	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. A directory that does not exist yet (the global
// conf.d before the first fallback install) is covered by watching its
// nearest existing parent; the real watch is added once it is created.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	added := 0
	for _, dir := range w.dirs {
		addErr := watcher.Add(dir)
		if addErr == nil {
			added++
			continue
		}
		if watchNearestParent(watcher, dir) {
			w.pending[dir] = true
			added++
			w.logger.Info("Directory does not exist yet, watching for its creation", "dir", dir)
			continue
		}
		w.logger.Warn("Cannot watch directory", "dir", dir, "error", addErr)
	}
	if added == 0 {
		watcher.Close()
		return fsnotify.ErrNonExistentWatch
	}

	w.logger.Info("File watcher started", "files", len(w.paths), "debounce", w.debounce)
	go w.watch()
	return nil
}

// Stop stops watching and cleans up resources.
func (w *Watcher) Stop() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// watch is the main loop that listens for file changes.
func (w *Watcher) watch() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Debug("File watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			touched := w.paths[event.Name] &&
				event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
			if event.Op&fsnotify.Create != 0 && w.promotePending(event.Name) {
				touched = true
			}
			if !touched {
				continue
			}

			w.logger.Debug("Watched file changed", "path", event.Name, "op", event.Op.String())

			// Reset debounce timer
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case <-timerC:
			w.logger.Info("Watched files changed, reapplying workaround")
			w.onChange()
			timerC = nil

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err)
		}
	}
}

// promotePending adds real watches for pending directories at or below a
// newly created path. Returns true when a watched file already exists in
// a promoted directory, since its creation raced the watch add.
func (w *Watcher) promotePending(created string) bool {
	existing := false
	for dir := range w.pending {
		if dir != created && !strings.HasPrefix(dir, created+string(filepath.Separator)) {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			// Intermediate directory; watch it and wait for the rest,
			// then retry in case dir appeared in between.
			w.watcher.Add(created)
			if w.watcher.Add(dir) != nil {
				continue
			}
		}
		delete(w.pending, dir)
		w.logger.Debug("Watching newly created directory", "dir", dir)

		for path := range w.paths {
			if filepath.Dir(path) != dir {
				continue
			}
			if _, err := os.Stat(path); err == nil {
				existing = true
			}
		}
	}
	return existing
}

// watchNearestParent walks up from dir until a watchable ancestor is found.
func watchNearestParent(watcher *fsnotify.Watcher, dir string) bool {
	for parent := filepath.Dir(dir); ; parent = filepath.Dir(parent) {
		if err := watcher.Add(parent); err == nil {
			return true
		}
		if parent == filepath.Dir(parent) {
			return false
		}
	}
}
