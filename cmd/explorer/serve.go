package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/rank-explorer/config"
	"github.com/alem-hub/rank-explorer/internal/domain/shared"
	"github.com/alem-hub/rank-explorer/internal/infrastructure/dataset"
	"github.com/alem-hub/rank-explorer/internal/infrastructure/persistence/memory"
	httpserver "github.com/alem-hub/rank-explorer/internal/interface/http"
	"github.com/alem-hub/rank-explorer/pkg/logger"
)

// sessionSweepInterval - как часто чистить истёкшие сессии в памяти.
const sessionSweepInterval = time.Minute

func newServeCmd(o *rootOptions) *cobra.Command {
	var (
		watch bool
		warm  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `serve exposes every query over HTTP under /api/v1, plus /health,
/live, /ready and /metrics. SIGHUP reloads the dataset; SIGINT and SIGTERM
shut the server down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cmd.SetContext(ctx)
			a, err := o.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("watch") {
				if err := setFeature(a.cfg.Features, config.FeatureDatasetHotReload, watch); err != nil {
					return err
				}
			}
			return a.serve(ctx, warm)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the CSV when it changes (feature dataset.hot_reload)")
	cmd.Flags().BoolVar(&warm, "warm", true, "load the dataset before listening and exit if it fails; --warm=false defers the load to the first request")
	return cmd
}

// serve запускает HTTP сервер и фоновые задачи до отмены ctx.
func (a *app) serve(ctx context.Context, warm bool) error {
	a.log.Info("starting rank explorer",
		logger.String("version", a.cfg.App.Version),
		logger.String("environment", string(a.cfg.App.Environment)),
		logger.String("source", a.cfg.Dataset.Source),
	)

	// Без --warm первая загрузка идёт с первым запросом, /ready отдаёт 503 до неё.
	if warm {
		table, err := a.cache.Table(ctx)
		if err != nil {
			a.log.Error("initial dataset load failed", logger.Err(err))
			if shared.IsDataLoad(err) || shared.IsValidation(err) {
				return err
			}
			return shared.NewDataLoadError("Serve", "initial dataset load failed", err)
		}
		a.log.Info("dataset loaded", logger.RecordCount(table.Count()))
	}

	srv := httpserver.NewServer(a.httpConfig(), a.httpDependencies())
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	if a.cfg.Dataset.Source == config.SourceCSV && a.cfg.Features.Enabled(config.FeatureDatasetHotReload) {
		w, err := dataset.NewWatcher(a.cache, a.cfg.Dataset.Path, a.log, dataset.WatcherOptions{
			Debounce: a.cfg.Dataset.WatchDebounce,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	if store, ok := a.sessions.(*memory.SessionStore); ok {
		g.Go(func() error {
			sweepSessions(gctx, store, a.log)
			return nil
		})
	}

	g.Go(func() error {
		a.reloadOnHangup(gctx)
		return nil
	})

	a.log.Info("rank explorer is running", logger.String("address", srv.Address()))
	err := g.Wait()
	a.log.Info("rank explorer stopped")
	return err
}

// reloadOnHangup перечитывает источник по SIGHUP.
func (a *app) reloadOnHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			a.log.Info("received SIGHUP, reloading dataset")
			if table, err := a.cache.Reload(ctx); err != nil {
				a.log.Error("dataset reload failed, keeping previous table", logger.Err(err))
			} else {
				a.log.Info("dataset reloaded", logger.RecordCount(table.Count()))
			}
		}
	}
}

func sweepSessions(ctx context.Context, store *memory.SessionStore, log *logger.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				log.Debug("expired sessions removed", logger.Int("count", n), logger.Int("remaining", store.Len()))
			}
		}
	}
}
