package dataset

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alem-hub/rank-explorer/internal/domain/leaderboard"
	"github.com/alem-hub/rank-explorer/internal/domain/student"
	"github.com/alem-hub/rank-explorer/pkg/logger"
)

// LoadObserver is notified after every load attempt.
type LoadObserver func(source string, took time.Duration, records int, err error)

// Cache memoizes the ranked table of one source, keyed by the source version.
// Concurrent misses share a single load. Safe for concurrent use.
type Cache struct {
	source   student.Source
	log      *logger.Logger
	observer LoadObserver

	group singleflight.Group

	mu       sync.RWMutex
	table    *leaderboard.Table
	loadedAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLoadObserver registers a load observer (metrics).
func WithLoadObserver(o LoadObserver) CacheOption {
	return func(c *Cache) { c.observer = o }
}

// NewCache creates an empty cache over source. Nothing is loaded until the
// first Table call.
func NewCache(source student.Source, log *logger.Logger, opts ...CacheOption) *Cache {
	if log == nil {
		log = logger.NewNop()
	}
	c := &Cache{
		source: source,
		log:    log.With(logger.Component("dataset_cache")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the underlying source.
func (c *Cache) Source() student.Source {
	return c.source
}

// Table returns the ranked table, loading it when absent or when the source
// version changed. If the version cannot be read but a table is cached, the
// cached table is returned.
func (c *Cache) Table(ctx context.Context) (*leaderboard.Table, error) {
	version, err := c.source.Version(ctx)

	c.mu.RLock()
	cached := c.table
	c.mu.RUnlock()

	if err != nil {
		if cached != nil {
			c.log.Warn("dataset version unavailable, serving cached table", logger.Err(err))
			return cached, nil
		}
		return nil, err
	}

	if cached != nil && (version == "" || cached.Version() == version) {
		return cached, nil
	}
	return c.load(ctx, version, false)
}

// Reload loads the source unconditionally. On failure the previous table is
// kept and the error returned.
func (c *Cache) Reload(ctx context.Context) (*leaderboard.Table, error) {
	version, err := c.source.Version(ctx)
	if err != nil {
		return nil, err
	}
	// a distinct key so a forced reload never joins a stale in-flight load
	return c.load(ctx, "reload|"+version, true)
}

// Invalidate drops the cached table.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.table = nil
	c.mu.Unlock()
}

// Loaded reports whether a table is cached and when it was loaded.
func (c *Cache) Loaded() (bool, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table != nil, c.loadedAt
}

func (c *Cache) load(ctx context.Context, key string, force bool) (*leaderboard.Table, error) {
	v, err, shared := c.group.Do(key, func() (any, error) {
		// the first caller's cancellation must not fail the waiters
		return c.doLoad(context.WithoutCancel(ctx), force)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("dataset load shared", logger.String("key", key))
	}
	return v.(*leaderboard.Table), nil
}

func (c *Cache) doLoad(ctx context.Context, force bool) (*leaderboard.Table, error) {
	start := time.Now()

	// version is re-read so the stored table matches what was parsed
	version, err := c.source.Version(ctx)
	if err != nil {
		c.observe(start, 0, err)
		return nil, err
	}

	if !force {
		// a load that finished between the caller's check and Do already
		// produced this version
		c.mu.RLock()
		cached := c.table
		c.mu.RUnlock()
		if cached != nil && (version == "" || cached.Version() == version) {
			return cached, nil
		}
	}

	records, err := c.source.Load(ctx)
	if err != nil {
		c.observe(start, 0, err)
		c.log.Error("dataset load failed",
			logger.String("source", c.source.Name()),
			logger.Err(err),
		)
		return nil, err
	}

	table := leaderboard.NewTable(records, version)

	c.mu.Lock()
	c.table = table
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.observe(start, table.Count(), nil)

	fields := []logger.Field{
		logger.String("source", c.source.Name()),
		logger.RecordCount(table.Count()),
		logger.Latency(time.Since(start)),
	}
	if dups := table.DuplicateIDs(); dups > 0 {
		c.log.Warn("duplicate registration numbers in dataset",
			append(fields, logger.Int("duplicates", dups))...)
	} else {
		c.log.Info("dataset loaded", fields...)
	}
	return table, nil
}

func (c *Cache) observe(start time.Time, records int, err error) {
	if c.observer != nil {
		c.observer(c.source.Name(), time.Since(start), records, err)
	}
}
