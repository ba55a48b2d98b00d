package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alem-hub/rank-explorer/config"
	"github.com/alem-hub/rank-explorer/internal/application/query"
	"github.com/alem-hub/rank-explorer/internal/domain/search"
	"github.com/alem-hub/rank-explorer/internal/domain/student"
	"github.com/alem-hub/rank-explorer/internal/infrastructure/dataset"
	"github.com/alem-hub/rank-explorer/internal/infrastructure/metrics"
	"github.com/alem-hub/rank-explorer/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/rank-explorer/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/rank-explorer/internal/infrastructure/persistence/redis"
	httpserver "github.com/alem-hub/rank-explorer/internal/interface/http"
	"github.com/alem-hub/rank-explorer/internal/interface/http/handlers"
	"github.com/alem-hub/rank-explorer/pkg/logger"
	"github.com/alem-hub/rank-explorer/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION
// ══════════════════════════════════════════════════════════════════════════════

// app - собранный граф зависимостей. Один и тот же для CLI и HTTP сервера.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics

	source   student.Source
	cache    *dataset.Cache
	sessions student.SessionStore
	health   *handlers.CompositeHealthChecker

	// Query handlers
	searchQuery    *query.SearchStudentsHandler
	suggestQuery   *query.SuggestNamesHandler
	compareQuery   *query.CompareStudentsHandler
	spotlightQuery *query.GetSpotlightHandler
	rankQuery      *query.GetStudentRankHandler
	topQuery       *query.GetTopStudentsHandler
	filterQuery    *query.FilterStudentsHandler
	exportQuery    *query.ExportStudentsHandler
	statsQuery     *query.StatisticsHandler

	closers []func() error
}

// newApp подключает источник данных, хранилище сессий и собирает обработчики.
// Датасет не читается здесь: первая загрузка происходит при первом запросе.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(cfg.Observability.RuntimeMetrics),
		health:  handlers.NewCompositeHealthChecker(cfg.App.Version),
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 1. ИСТОЧНИК ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	source, err := a.openSource(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.source = source
	a.cache = dataset.NewCache(source, log, dataset.WithLoadObserver(a.metrics.ObserveLoad))
	a.health.AddCheck("dataset", handlers.NewDatasetCheck(a.cache, false))

	// ─────────────────────────────────────────────────────────────────────────
	// 2. СЕССИИ (Redis или память процесса)
	// ─────────────────────────────────────────────────────────────────────────
	a.sessions = a.openSessions(ctx)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. QUERY HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	a.searchQuery = query.NewSearchStudentsHandler(a.cache, a.sessions, a.searchOptions, a.metrics, log)
	a.suggestQuery = query.NewSuggestNamesHandler(a.cache, a.searchOptions, a.metrics)
	a.compareQuery = query.NewCompareStudentsHandler(a.cache, a.metrics)
	a.spotlightQuery = query.NewGetSpotlightHandler(a.cache, nil, a.metrics)
	a.rankQuery = query.NewGetStudentRankHandler(a.cache, a.metrics)
	a.topQuery = query.NewGetTopStudentsHandler(a.cache, a.metrics)
	a.filterQuery = query.NewFilterStudentsHandler(a.cache, a.metrics)
	a.exportQuery = query.NewExportStudentsHandler(a.cache, dataset.Export, a.metrics)
	a.statsQuery = query.NewStatisticsHandler(a.cache, a.metrics)

	return a, nil
}

// openSource выбирает CSV файл или таблицу PostgreSQL.
func (a *app) openSource(ctx context.Context) (student.Source, error) {
	switch a.cfg.Dataset.Source {
	case config.SourcePostgres:
		conn, err := a.connectPostgres(ctx)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			conn.Close()
			return nil
		})
		a.health.AddCheck("database", conn.HealthCheck)

		return postgres.NewRecordSource(conn, postgres.TableConfig{
			Table:       a.cfg.Dataset.Table,
			RegdColumn:  a.cfg.Dataset.RegdColumn,
			NameColumn:  a.cfg.Dataset.NameColumn,
			StateColumn: a.cfg.Dataset.StateColumn,
			CGPAColumn:  a.cfg.Dataset.CGPAColumn,
		}, a.log, postgres.WithBreaker(postgres.NewSourceBreaker(a.log))), nil
	default:
		return dataset.NewCSVSource(a.cfg.Dataset.Path, a.log), nil
	}
}

func (a *app) connectPostgres(ctx context.Context) (*postgres.Connection, error) {
	pgCfg := postgres.DefaultConfig()
	pgCfg.MaxConns = a.cfg.Database.MaxConns
	pgCfg.ConnectTimeout = a.cfg.Database.ConnectTimeout

	a.log.Info("connecting to database...")
	retrier := a.connectRetrier("postgres", a.cfg.Database.ConnectRetries)
	conn, err := retry.DoWithData(ctx, retrier, func(ctx context.Context) (*postgres.Connection, error) {
		dialCtx, cancel := context.WithTimeout(ctx, a.cfg.Database.ConnectTimeout)
		defer cancel()
		return postgres.NewConnectionFromURL(dialCtx, a.cfg.Database.URL, pgCfg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a.log.Info("database connection established")
	return conn, nil
}

// openSessions подключает Redis. При ошибке сессии деградируют до памяти процесса.
func (a *app) openSessions(ctx context.Context) student.SessionStore {
	if a.cfg.Redis.Disabled {
		return memory.NewSessionStore(a.cfg.Session.TTL)
	}

	redisCfg, err := a.redisConfig()
	if err != nil {
		a.log.Warn("invalid redis settings, using in-memory sessions", logger.Err(err))
		return memory.NewSessionStore(a.cfg.Session.TTL)
	}

	a.log.Info("connecting to Redis...", logger.String("addr", redisCfg.Addr()))
	cache, err := retry.DoWithData(ctx, a.connectRetrier("redis", 3), func(ctx context.Context) (*redis.Cache, error) {
		return redis.NewCache(ctx, redisCfg)
	})
	if err != nil {
		a.log.Warn("failed to connect to Redis, using in-memory sessions", logger.Err(err))
		return memory.NewSessionStore(a.cfg.Session.TTL)
	}

	a.closers = append(a.closers, cache.Close)
	a.health.AddOptionalCheck("redis", handlers.NewPingCheck(cache))
	a.log.Info("Redis connection established")
	return redis.NewSessionStore(cache, a.cfg.Session.TTL)
}

func (a *app) redisConfig() (redis.Config, error) {
	base := redis.DefaultConfig()
	base.Host = a.cfg.Redis.Host
	base.Port = a.cfg.Redis.Port
	base.Password = a.cfg.Redis.Password
	base.DB = a.cfg.Redis.DB
	base.PoolSize = a.cfg.Redis.PoolSize
	if a.cfg.Redis.DialTimeout > 0 {
		base.DialTimeout = a.cfg.Redis.DialTimeout
	}
	if a.cfg.Redis.ReadTimeout > 0 {
		base.ReadTimeout = a.cfg.Redis.ReadTimeout
	}
	if a.cfg.Redis.WriteTimeout > 0 {
		base.WriteTimeout = a.cfg.Redis.WriteTimeout
	}

	if a.cfg.Redis.URL == "" {
		return base, nil
	}
	return redis.ConfigFromURL(a.cfg.Redis.URL, base)
}

func (a *app) connectRetrier(service string, attempts int) *retry.Retrier {
	return retry.ConnectRetrier(attempts, retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		a.log.Warn("connection attempt failed",
			logger.String("service", service),
			logger.Int("attempt", attempt),
			logger.Duration("retry_in", delay),
			logger.Err(err),
		)
	}))
}

// searchOptions читается на каждый запрос: флаги можно переключать на лету.
func (a *app) searchOptions() search.Options {
	fuzzy, dedupe := a.cfg.Features.SearchToggles()
	return search.Options{
		Limit:    a.cfg.Search.SuggestLimit,
		MinScore: a.cfg.Search.MinScore,
		Fuzzy:    fuzzy,
		Dedupe:   dedupe,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP WIRING
// ══════════════════════════════════════════════════════════════════════════════

func (a *app) httpConfig() httpserver.Config {
	c := httpserver.DefaultConfig()
	c.Host = a.cfg.HTTP.Host
	c.Port = a.cfg.HTTP.Port
	c.ReadTimeout = a.cfg.HTTP.ReadTimeout
	c.WriteTimeout = a.cfg.HTTP.WriteTimeout
	c.IdleTimeout = a.cfg.HTTP.IdleTimeout
	c.ShutdownTimeout = a.cfg.App.ShutdownTimeout
	c.EnableCORS = a.cfg.HTTP.EnableCORS
	c.AllowedOrigins = a.cfg.HTTP.AllowedOrigins
	c.EnableMetrics = a.cfg.Observability.MetricsEnabled
	c.RateLimitPerMinute = a.cfg.HTTP.RateLimitPerMinute
	c.TrustProxyHeaders = a.cfg.HTTP.TrustProxyHeaders
	c.SessionCookie = a.cfg.Session.CookieName
	c.SessionTTL = a.cfg.Session.TTL
	c.DefaultTopN = a.cfg.Search.TopN
	c.DefaultHistogramBins = a.cfg.Search.HistogramBins
	c.APIKeys = a.cfg.HTTP.AdminAPIKeys
	c.Version = a.cfg.App.Version
	return c
}

func (a *app) httpDependencies() httpserver.Dependencies {
	return httpserver.Dependencies{
		SearchHandler:      a.searchQuery,
		SuggestHandler:     a.suggestQuery,
		CompareHandler:     a.compareQuery,
		SpotlightHandler:   a.spotlightQuery,
		StudentRankHandler: a.rankQuery,
		TopHandler:         a.topQuery,
		FilterHandler:      a.filterQuery,
		ExportHandler:      a.exportQuery,
		StatisticsHandler:  a.statsQuery,
		Logger:             a.log,
		HealthChecker:      a.health,
		Metrics:            a.metrics,
		Features:           a.cfg.Features,
		Reloader:           a.cache,
	}
}

// Close освобождает соединения в обратном порядке.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// newLogger строит логгер из конфигурации. CLI пишет логи в stderr.
func newLogger(cfg *config.Config, out io.Writer) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Output = out
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = cfg.Observability.LogFormat
	return logger.New(opts)
}
