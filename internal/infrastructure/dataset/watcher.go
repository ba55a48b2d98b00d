package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alem-hub/rank-explorer/internal/domain/leaderboard"
	"github.com/alem-hub/rank-explorer/pkg/logger"
)

// DefaultDebounce is the quiet period after the last write before reloading.
const DefaultDebounce = 250 * time.Millisecond

// ReloadHandler is called after each debounced reload attempt.
type ReloadHandler func(table *leaderboard.Table, err error)

// Watcher reloads a Cache when its CSV file changes on disk.
//
// The parent directory is watched rather than the file itself, so editors
// that replace the file through a rename are still picked up. A failed
// reload keeps the previous table.
type Watcher struct {
	cache    *Cache
	path     string
	debounce time.Duration
	log      *logger.Logger
	onReload ReloadHandler

	fsw      *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// OnReload is optional.
	OnReload ReloadHandler
}

// NewWatcher creates a watcher for path feeding cache.
func NewWatcher(cache *Cache, path string, log *logger.Logger, opts WatcherOptions) (*Watcher, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}

	return &Watcher{
		cache:    cache,
		path:     abs,
		debounce: opts.Debounce,
		log:      log.With(logger.Component("dataset_watcher"), logger.DatasetPath(abs)),
		onReload: opts.OnReload,
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. The loop exits on Stop or when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.wg.Add(1)
	go w.loop(ctx)

	w.log.Info("watching dataset for changes", logger.Duration("debounce", w.debounce))
	return nil
}

// Run starts the watcher and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

// Stop ends the loop and releases the fs watcher. Safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("fs watcher error", logger.Err(err))

		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) reload(ctx context.Context) {
	table, err := w.cache.Reload(ctx)
	if err != nil {
		w.log.Error("dataset reload failed, keeping previous table", logger.Err(err))
	} else {
		w.log.Info("dataset reloaded", logger.RecordCount(table.Count()))
	}
	if w.onReload != nil {
		w.onReload(table, err)
	}
}
