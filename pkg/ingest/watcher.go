package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/studybuddy/pkg/logger"
)

// DefaultSettleDelay is how long a file must stay quiet before it is queued.
const DefaultSettleDelay = 750 * time.Millisecond

// Enqueuer accepts upload jobs. *Pool satisfies it.
type Enqueuer interface {
	Enqueue(job Job) bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.settle = d }
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// Watcher queues PDFs that appear in a directory. Files still being written
// keep resetting their settle timer so partial copies are not uploaded.
type Watcher struct {
	dir    string
	enq    Enqueuer
	settle time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	queued  map[string]time.Time
	stopped bool
}

// NewWatcher creates a Watcher for dir that feeds enq.
func NewWatcher(dir string, enq Enqueuer, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		dir:    dir,
		enq:    enq,
		settle: DefaultSettleDelay,
		logger: logger.Nop(),
		timers: map[string]*time.Timer{},
		queued: map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// IsPDF reports whether path has a .pdf extension.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Run watches until ctx is done. Pending settle timers are cancelled on return.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching for PDFs", "dir", w.dir)

	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !IsPDF(ev.Name) {
				w.logger.Debug("ignoring non-PDF file", "path", ev.Name)
				continue
			}
			w.schedule(ev.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	if w.stopped {
		w.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		w.mu.Unlock()
		return
	}
	if last, ok := w.queued[path]; ok && last.Equal(info.ModTime()) {
		w.mu.Unlock()
		return
	}
	w.queued[path] = info.ModTime()
	w.mu.Unlock()

	if !w.enq.Enqueue(Job{Path: path}) {
		w.mu.Lock()
		delete(w.queued, path)
		w.mu.Unlock()
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
