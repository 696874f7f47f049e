// Package watch re-runs plugin injection when Gradle settings or build
// scripts change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"nxgradle/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a re-run.
const DefaultDebounce = 500 * time.Millisecond

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("watcher stopped")

// RunFunc performs one injection pass. changed holds the workspace-relative
// slash paths that triggered it. The returned directories are added to the
// watch list so newly discovered projects are picked up.
type RunFunc func(ctx context.Context, changed []string) (dirs []string, err error)

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Runs          int
	Errors        int
	LastEventPath string
	LastRunError  error
}

// Watcher watches the workspace root and the directories of known settings
// scripts. It is not recursive.
type Watcher struct {
	mu       sync.Mutex
	fw       *fsnotify.Watcher
	root     string
	run      RunFunc
	debounce time.Duration
	pending  map[string]struct{}
	lastSeen time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stopped  bool
	stats    Stats
}

// NewWatcher creates a watcher rooted at root. A non-positive debounce means
// DefaultDebounce.
func NewWatcher(root string, debounce time.Duration, run RunFunc) (*Watcher, error) {
	if run == nil {
		return nil, fmt.Errorf("run function required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fw:       fw,
		root:     abs,
		run:      run,
		debounce: debounce,
		pending:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Add watches workspace-relative (or absolute) directories. Directories that
// cannot be watched are logged and skipped.
func (w *Watcher) Add(dirs ...string) {
	for _, d := range dirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(w.root, filepath.FromSlash(d))
		}
		if err := w.fw.Add(d); err != nil {
			logging.Get(logging.CategoryWatch).Warn("cannot watch %s: %v", d, err)
			continue
		}
		logging.WatchDebug("watching %s", d)
	}
}

// Start begins watching. It is non-blocking and returns nil if already
// running.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrStopped
	}
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.fw.Add(w.root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	logging.Watch("watching workspace %s (debounce %s)", w.root, w.debounce)

	go w.loop(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit. Safe to call more
// than once, and without Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	if wasRunning {
		<-w.doneCh
	}
	if err := w.fw.Close(); err != nil {
		logging.WatchError("error closing watcher: %v", err)
	}
	logging.Watch("watcher stopped")
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fw.WatchList()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	tick := min(max(w.debounce/4, 10*time.Millisecond), 100*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logging.WatchError("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// relevant names the files whose changes can alter the injection outcome.
var relevant = map[string]bool{
	"settings.gradle":     true,
	"settings.gradle.kts": true,
	"build.gradle":        true,
	"build.gradle.kts":    true,
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !relevant[filepath.Base(event.Name)] {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		rel = event.Name
	}
	rel = filepath.ToSlash(rel)
	logging.WatchDebug("%s %s", event.Op, rel)

	w.mu.Lock()
	w.pending[rel] = struct{}{}
	w.lastSeen = time.Now()
	w.stats.Events++
	w.stats.LastEventPath = rel
	w.mu.Unlock()
}

// flush runs once all pending events have been quiet for the debounce period.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 || time.Since(w.lastSeen) < w.debounce {
		w.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	sort.Strings(changed)
	logging.Watch("change detected in %v, re-running", changed)

	dirs, err := w.run(ctx, changed)

	w.mu.Lock()
	w.stats.Runs++
	w.stats.LastRunError = err
	if err != nil {
		w.stats.Errors++
	}
	w.mu.Unlock()

	if err != nil {
		logging.WatchError("re-run failed: %v", err)
		return
	}
	w.Add(dirs...)
}
