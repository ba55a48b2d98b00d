// Package main - точка входа Student Rank Explorer.
//
// Один бинарник обслуживает оба интерфейса поверх одного датасета:
//   - serve: REST API с сессиями поиска, метриками и горячей перезагрузкой CSV
//   - search, suggest, compare, top, filter, rank, spotlight, states,
//     histogram, stats, export: те же запросы из терминала
//
// Конфигурация читается из YAML файла ($EXPLORER_CONFIG) и окружения;
// флаги командной строки имеют наивысший приоритет.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alem-hub/rank-explorer/config"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ROOT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// rootOptions - глобальные флаги, общие для всех подкоманд.
type rootOptions struct {
	stdout io.Writer
	stderr io.Writer

	dataPath string
	source   string
	logLevel string
	output   string
	fuzzy    bool
	dedupe   bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &rootOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "explorer",
		Short: "Search, rank and compare students by CGPA",
		Long: `explorer loads a student table (CSV file or PostgreSQL), ranks it by CGPA
with competition ranking (ties share a rank, the next rank skips) and answers
queries from the terminal or over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch o.output {
			case formatTable, formatJSON:
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want table or json)", o.output)
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&o.dataPath, "data", "d", "", "path to the students CSV (overrides DATASET_PATH)")
	pf.StringVar(&o.source, "source", "", "dataset source: csv or postgres (overrides DATASET_SOURCE)")
	pf.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	pf.StringVarP(&o.output, "output", "o", formatTable, "output format: table or json")
	pf.BoolVar(&o.fuzzy, "fuzzy", true, "typo-tolerant suggestions (feature search.fuzzy)")
	pf.BoolVar(&o.dedupe, "dedupe", true, "one suggestion per distinct name (feature search.dedupe)")

	root.AddCommand(
		newServeCmd(o),
		newSearchCmd(o),
		newSuggestCmd(o),
		newCompareCmd(o),
		newTopCmd(o),
		newFilterCmd(o),
		newRankCmd(o),
		newSpotlightCmd(o),
		newStatesCmd(o),
		newHistogramCmd(o),
		newStatsCmd(o),
		newExportCmd(o),
	)
	return root
}

// loadConfig применяет флаги поверх config.Load. Для CLI-запросов (quiet)
// уровень логов по умолчанию warn, чтобы stderr не засорялся.
func (o *rootOptions) loadConfig(cmd *cobra.Command, quiet bool) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Dataset.Path = o.dataPath
		if !flags.Changed("source") {
			cfg.Dataset.Source = config.SourceCSV
		}
	}
	if flags.Changed("source") {
		cfg.Dataset.Source = strings.ToLower(strings.TrimSpace(o.source))
	}

	switch {
	case flags.Changed("log-level"):
		cfg.Observability.LogLevel = strings.ToLower(o.logLevel)
	case quiet && os.Getenv("LOG_LEVEL") == "":
		cfg.Observability.LogLevel = "warn"
	}

	if flags.Changed("fuzzy") {
		if err := setFeature(cfg.Features, config.FeatureSearchFuzzy, o.fuzzy); err != nil {
			return nil, err
		}
	}
	if flags.Changed("dedupe") {
		if err := setFeature(cfg.Features, config.FeatureSearchDedupe, o.dedupe); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setFeature(ff *config.FeatureFlags, name string, enabled bool) error {
	if enabled {
		return ff.EnableFeature(name)
	}
	return ff.DisableFeature(name)
}

// open собирает приложение для одной подкоманды.
func (o *rootOptions) open(cmd *cobra.Command, quiet bool) (*app, error) {
	cfg, err := o.loadConfig(cmd, quiet)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return newApp(cmd.Context(), cfg, newLogger(cfg, o.stderr))
}

func (o *rootOptions) renderer() renderer {
	return renderer{out: o.stdout, format: o.output}
}
