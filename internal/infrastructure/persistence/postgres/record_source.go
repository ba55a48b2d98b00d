package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/rank-explorer/internal/domain/shared"
	"github.com/alem-hub/rank-explorer/internal/domain/student"
	"github.com/alem-hub/rank-explorer/pkg/circuitbreaker"
	"github.com/alem-hub/rank-explorer/pkg/logger"
)

// TableConfig names the table and columns holding the dataset.
type TableConfig struct {
	// Table may be schema-qualified ("public.students").
	Table string

	RegdColumn  string
	NameColumn  string
	StateColumn string
	CGPAColumn  string

	// OrderColumn fixes the source order. Empty means physical order.
	OrderColumn string
}

// DefaultTableConfig returns the conventional layout.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		Table:       "students",
		RegdColumn:  "regd_no",
		NameColumn:  "name",
		StateColumn: "state",
		CGPAColumn:  "cgpa",
		OrderColumn: "",
	}
}

// RecordSource implements student.Source over a PostgreSQL table.
// Rows pass through the same normalization and validation as CSV rows.
type RecordSource struct {
	conn    *Connection
	cfg     TableConfig
	query   string
	log     *logger.Logger
	breaker *circuitbreaker.CircuitBreaker
}

// SourceOption configures a RecordSource.
type SourceOption func(*RecordSource)

// WithBreaker makes Load fail fast while the database keeps failing.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) SourceOption {
	return func(s *RecordSource) {
		s.breaker = cb
	}
}

// NewRecordSource creates a source. Identifiers are quoted, so the table
// and column names are never interpreted as SQL.
func NewRecordSource(conn *Connection, cfg TableConfig, log *logger.Logger, opts ...SourceOption) *RecordSource {
	if log == nil {
		log = logger.NewNop()
	}
	s := &RecordSource{
		conn:  conn,
		cfg:   cfg,
		query: selectQuery(cfg),
		log:   log.With(logger.Component("postgres_source"), logger.String("table", cfg.Table)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSourceBreaker returns a breaker for dataset loads. Invalid rows do not
// count as failures: the database answered.
func NewSourceBreaker(log *logger.Logger) *circuitbreaker.CircuitBreaker {
	if log == nil {
		log = logger.NewNop()
	}
	return circuitbreaker.New("postgres_source",
		circuitbreaker.WithIsFailure(func(err error) bool {
			return !shared.IsValidation(err) && !errors.Is(err, context.Canceled)
		}),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.Component(name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
	)
}

func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func selectQuery(cfg TableConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT COALESCE(%s::text, ''), COALESCE(%s::text, ''), COALESCE(%s::text, ''), %s::text FROM %s",
		ident(cfg.RegdColumn),
		ident(cfg.NameColumn),
		ident(cfg.StateColumn),
		ident(cfg.CGPAColumn),
		ident(cfg.Table),
	)
	if cfg.OrderColumn != "" {
		fmt.Fprintf(&b, " ORDER BY %s", ident(cfg.OrderColumn))
	}
	return b.String()
}

// Name returns a label for logs.
func (s *RecordSource) Name() string {
	return "postgres:" + s.cfg.Table
}

// Version returns "": the table is loaded once per process.
func (s *RecordSource) Version(ctx context.Context) (string, error) {
	return "", nil
}

// Load reads every row in one read-only snapshot.
func (s *RecordSource) Load(ctx context.Context) ([]student.Record, error) {
	var (
		records []student.Record
		err     error
	)
	if s.breaker != nil {
		err = s.breaker.Execute(ctx, func(ctx context.Context) error {
			var readErr error
			records, readErr = s.read(ctx)
			return readErr
		})
	} else {
		records, err = s.read(ctx)
	}
	if err != nil {
		if shared.IsValidation(err) {
			return nil, err
		}
		if circuitbreaker.IsRejected(err) {
			return nil, shared.NewDataLoadError("Load", "dataset database is failing, retry later", err)
		}
		if IsUndefinedTable(err) || IsUndefinedColumn(err) {
			return nil, shared.NewDataLoadError("Load", "dataset table layout does not match "+s.cfg.Table, err)
		}
		return nil, shared.NewDataLoadError("Load", "cannot read dataset table "+s.cfg.Table, err)
	}

	s.log.Debug("dataset rows read", logger.RecordCount(len(records)))
	return records, nil
}

func (s *RecordSource) read(ctx context.Context) ([]student.Record, error) {
	var records []student.Record

	err := s.conn.WithTx(ctx, SnapshotTxOptions(), func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, s.query)
		if err != nil {
			return err
		}
		defer rows.Close()

		records = make([]student.Record, 0, 256)
		row := 0
		for rows.Next() {
			row++
			var regd, name, state string
			var cgpaText *string
			if err := rows.Scan(&regd, &name, &state, &cgpaText); err != nil {
				return err
			}

			rec, err := toRecord(regd, name, state, cgpaText)
			if err != nil {
				var verr *shared.ValidationError
				if errors.As(err, &verr) {
					verr.Row = row
				}
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	return records, err
}

func toRecord(regd, name, state string, cgpaText *string) (student.Record, error) {
	raw := ""
	if cgpaText != nil {
		raw = *cgpaText
	}
	cgpa, err := shared.ParseCGPA(raw)
	if err != nil {
		return student.Record{}, err
	}
	return student.NewRecord(regd, name, state, cgpa.Float64())
}
