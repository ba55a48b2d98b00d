package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alem-hub/rank-explorer/config"
	"github.com/alem-hub/rank-explorer/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUERY COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// queryFunc выполняет один запрос на собранном приложении.
type queryFunc func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error

// runQuery открывает приложение, выполняет fn и закрывает соединения.
func runQuery(o *rootOptions, fn queryFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := o.open(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, cmd, args)
	}
}

var errFeatureDisabled = errors.New("feature is disabled")

func requireFeature(a *app, name string) error {
	if !a.cfg.Features.Enabled(name) {
		return fmt.Errorf("%s: %w", name, errFeatureDisabled)
	}
	return nil
}

func newSearchCmd(o *rootOptions) *cobra.Command {
	var limit int
	var selected string

	cmd := &cobra.Command{
		Use:   "search <name or registration number>",
		Short: "Find students by name substring or exact registration number",
		Args:  cobra.MinimumNArgs(1),
		RunE: runQuery(o, func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
			res, err := a.searchQuery.Handle(ctx, query.SearchStudentsQuery{
				Term:         strings.Join(args, " "),
				Selected:     selected,
				SuggestLimit: limit,
			})
			if err != nil {
				return err
			}
			return o.renderer().search(res)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "number of suggestions (0 = configured default)")
	cmd.Flags().StringVar(&selected, "selected", "", "search for this exact suggestion instead of the typed term")
	return cmd
}

func newSuggestCmd(o *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest <partial name>",
		Short: "Suggest student names similar to the input",
		Args:  cobra.MinimumNArgs(1),
		RunE: runQuery(o, func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
			res, err := a.suggestQuery.Handle(ctx, query.SuggestNamesQuery{
				Term:  strings.Join(args, " "),
				Limit: limit,
			})
			if err != nil {
				return err
			}
			return o.renderer().suggest(res)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "number of suggestions (0 = configured default)")
	return cmd
}

func newCompareCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <name A> <name B>",
		Short: "Show two students side by side",
		Args:  cobra.ExactArgs(2),
		RunE: runQuery(o, func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
			res, err := a.compareQuery.Handle(ctx, query.CompareStudentsQuery{NameA: args[0], NameB: args[1]})
			if err != nil {
				return err
			}
			return o.renderer().compare(res)
		}),
	}
}

func newTopCmd(o *rootOptions) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the highest ranked students",
		Args:  cobra.NoArgs,
		RunE: runQuery(o, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("n") {
				n = a.cfg.Search.TopN
			}
			res, err := a.topQuery.Handle(ctx, query.GetTopStudentsQuery{N: n})
			if err != nil {
				return err
			}
			return o.renderer().students(fmt.Sprintf("Top %d", n), res.Entries, res.TotalCount)
		}),
	}
	cmd.Flags().IntVarP(&n, "n", "n", query.DefaultTopN, "number of students")
	return cmd
}

// filterFlags - общие флаги filter и export.
type filterFlags struct {
	state    string
	min, max float64
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.state, "state", "s", "", `state to keep ("" or "all" = every state)`)
	cmd.Flags().Float64Var(&f.min, "min", 0, "lowest CGPA, inclusive")
	cmd.Flags().Float64Var(&f.max, "max", 10, "highest CGPA, inclusive")
}

func (f *filterFlags) query(cmd *cobra.Command) query.FilterStudentsQuery {
	q := query.FilterStudentsQuery{State: f.state}
	if cmd.Flags().Changed("min") {
		q.Min = &f.min
	}
	if cmd.Flags().Changed("max") {
		q.Max = &f.max
	}
	return q
}

func newFilterCmd(o *rootOptions) *cobra.Command {
	var f filterFlags

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "List ranked students of one state within a CGPA range",
		Args:  cobra.NoArgs,
		RunE: runQuery(o, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			res, err := a.filterQuery.Handle(ctx, f.query(cmd))
			if err != nil {
				return err
			}
			title := fmt.Sprintf("CGPA %s-%s", formatCGPA(res.MinCGPA), formatCGPA(res.MaxCGPA))
			if res.State != "" {
				title = res.State + ", " + title
			}
			return o.renderer().students(title, res.Entries, res.TotalCount)
		}),
	}
	f.register(cmd)
	return cmd
}

func newRankCmd(o *rootOptions) *cobra.Command {
	var neighbors int

	cmd := &cobra.Command{
		Use:   "rank <registration number>",
		Short: "Show a student's rank, percentile and neighbours",
		Args:  cobra.ExactArgs(1),
		RunE: runQuery(o, func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
			res, err := a.rankQuery.Handle(ctx, query.GetStudentRankQuery{
				RegistrationID: args[0],
				Neighbors:      neighbors,
			})
			if err != nil {
				return err
			}
			return o.renderer().rank(res)
		}),
	}
	cmd.Flags().IntVar(&neighbors, "neighbors", 2, "students to show above and below")
	return cmd
}

func newSpotlightCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "spotlight",
		Short: "Pick a random student",
		Args:  cobra.NoArgs,
		RunE: runQuery(o, func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			if err := requireFeature(a, config.FeatureSpotlight); err != nil {
				return err
			}
			res, err := a.spotlightQuery.Handle(ctx)
			if err != nil {
				return err
			}
			return o.renderer().spotlight(res)
		}),
	}
}

func newStatesCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "Count students per state",
		Args:  cobra.NoArgs,
		RunE: runQuery(o, func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			res, err := a.statsQuery.States(ctx)
			if err != nil {
				return err
			}
			return o.renderer().states(res)
		}),
	}
}

func newHistogramCmd(o *rootOptions) *cobra.Command {
	var bins int

	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Show the CGPA distribution",
		Args:  cobra.NoArgs,
		RunE: runQuery(o, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("bins") {
				bins = a.cfg.Search.HistogramBins
			}
			res, err := a.statsQuery.Histogram(ctx, query.HistogramQuery{Bins: bins})
			if err != nil {
				return err
			}
			return o.renderer().histogram(res)
		}),
	}
	cmd.Flags().IntVarP(&bins, "bins", "b", 0, "number of equal-width bins over [0, 10]")
	return cmd
}

func newStatsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise the dataset",
		Args:  cobra.NoArgs,
		RunE: runQuery(o, func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			res, err := a.statsQuery.Summary(ctx)
			if err != nil {
				return err
			}
			return o.renderer().summary(res)
		}),
	}
}

func newExportCmd(o *rootOptions) *cobra.Command {
	var f filterFlags
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ranked (optionally filtered) table as CSV",
		Long: `export writes "Regd No.,Name,State,Cgpa,Rank" rows in rank order.
Without --file the CSV goes to stdout; with --file "-" too.`,
		Args: cobra.NoArgs,
		RunE: runQuery(o, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := requireFeature(a, config.FeatureExportCSV); err != nil {
				return err
			}
			res, err := a.exportQuery.Handle(ctx, query.ExportStudentsQuery{FilterStudentsQuery: f.query(cmd)})
			if err != nil {
				return err
			}

			if file == "" || file == "-" {
				_, err = o.stdout.Write(res.Body)
				return err
			}
			if err := os.WriteFile(file, res.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", file, err)
			}
			fmt.Fprintf(o.stderr, "wrote %d students to %s\n", res.Count, file)
			return nil
		}),
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "output file (default stdout; suggested name students_ranked[_state].csv)")
	return cmd
}
