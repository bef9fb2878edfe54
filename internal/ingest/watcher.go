// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// =============================================================================
// WATCH OPTIONS
// =============================================================================

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// Debounce is how long a file must stay quiet before it is emitted
	// (default: 500ms)
	Debounce time.Duration

	// RatePerSec caps emitted files per second; <= 0 means unlimited
	RatePerSec float64

	// Logger receives watch events (default: no-op)
	Logger *zap.Logger
}

const (
	defaultDebounce = 500 * time.Millisecond
	pollInterval    = 50 * time.Millisecond
	eventBuffer     = 32
)

// ErrWatcherClosed indicates Watch was called after Close or twice.
var ErrWatcherClosed = errors.New("watcher closed")

// =============================================================================
// WATCHER
// =============================================================================

// Watcher emits PDFs dropped into a directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	limiter  *rate.Limiter
	logger   *zap.Logger
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time // path -> last change
	started bool
	closed  bool
}

// NewWatcher creates a watcher for dir. Nothing is observed until Watch.
func NewWatcher(dir string, opts WatchOptions) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch dir %s: not a directory", dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}

	return &Watcher{
		dir:      dir,
		debounce: opts.Debounce,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   opts.Logger.Named("watch"),
		watcher:  fw,
		pending:  make(map[string]time.Time),
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Watch starts observing the directory. The returned channel yields the
// path of every PDF that was created or written and then stayed unchanged
// for the debounce period. It is closed when ctx is done or Close is
// called.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	w.mu.Lock()
	if w.started || w.closed {
		w.mu.Unlock()
		return nil, ErrWatcherClosed
	}
	w.started = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching", zap.String("dir", w.dir))

	out := make(chan string, eventBuffer)
	go w.run(ctx, out)
	return out, nil
}

func (w *Watcher) run(ctx context.Context, out chan<- string) {
	defer close(out)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-ticker.C:
			for _, path := range w.due(time.Now()) {
				if err := w.limiter.Wait(ctx); err != nil {
					return
				}
				select {
				case out <- path:
					w.logger.Debug("file ready", zap.String("path", path))
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !IsPDFName(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.pending[event.Name] = time.Now()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// Moved away before it settled
		delete(w.pending, event.Name)
	}
}

// due removes and returns the pending paths quiet since before now-debounce.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, changed := range w.pending {
		if now.Sub(changed) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}

// Close stops watching and releases the OS handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.watcher.Close()
}
