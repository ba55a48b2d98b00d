// Package dataset loads the student table from CSV, memoizes the ranked
// result and writes it back out for download.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alem-hub/rank-explorer/internal/domain/shared"
	"github.com/alem-hub/rank-explorer/internal/domain/student"
	"github.com/alem-hub/rank-explorer/pkg/logger"
)

// Column headers of the dataset file.
const (
	ColumnRegdNo = "Regd No."
	ColumnName   = "Name"
	ColumnState  = "State"
	ColumnCGPA   = "Cgpa"
	ColumnRank   = "Rank"
)

// RequiredColumns must all be present in the header. Order is irrelevant.
var RequiredColumns = []string{ColumnRegdNo, ColumnName, ColumnCGPA, ColumnState}

const utf8BOM = "\ufeff"

// ctxCheckEvery is how many rows are parsed between context checks.
const ctxCheckEvery = 1024

// CSVSource implements student.Source over a file on disk.
type CSVSource struct {
	path string
	log  *logger.Logger
}

// NewCSVSource creates a source for path. A nil logger discards output.
func NewCSVSource(path string, log *logger.Logger) *CSVSource {
	if log == nil {
		log = logger.NewNop()
	}
	return &CSVSource{
		path: path,
		log:  log.With(logger.Component("csv_source"), logger.DatasetPath(path)),
	}
}

// Name returns a label for logs.
func (s *CSVSource) Name() string {
	return "csv:" + s.path
}

// Path returns the file path.
func (s *CSVSource) Path() string {
	return s.path
}

// Version fingerprints the file by path, modification time and size.
func (s *CSVSource) Version(ctx context.Context) (string, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return "", shared.NewDataLoadError("Version", "cannot stat dataset "+s.path, err)
	}
	if fi.IsDir() {
		return "", shared.NewDataLoadError("Version", s.path+" is a directory", nil)
	}
	return fmt.Sprintf("%s|%d|%d", s.path, fi.ModTime().UnixNano(), fi.Size()), nil
}

// Load reads and validates every row in file order.
func (s *CSVSource) Load(ctx context.Context) ([]student.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, shared.NewDataLoadError("Load", "cannot open dataset "+s.path, err)
	}
	defer f.Close()

	records, err := Parse(ctx, f)
	if err != nil {
		return nil, err
	}

	s.log.Debug("dataset parsed", logger.RecordCount(len(records)))
	return records, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PARSING
// ══════════════════════════════════════════════════════════════════════════════

// header maps required column names to their field index.
type header struct {
	index    map[string]int
	maxIndex int
}

func parseHeader(fields []string) (header, error) {
	h := header{index: make(map[string]int, len(fields))}

	for i, name := range fields {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = strings.TrimSpace(name)
		// first occurrence wins on duplicated headers
		if _, dup := h.index[name]; !dup {
			h.index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		idx, ok := h.index[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		if idx > h.maxIndex {
			h.maxIndex = idx
		}
	}
	if len(missing) > 0 {
		return header{}, shared.NewDataLoadError("Parse",
			fmt.Sprintf("missing required column(s): %s", strings.Join(missing, ", ")), nil)
	}
	return h, nil
}

func (h header) field(row []string, col string) string {
	return row[h.index[col]]
}

// Parse reads CSV from r. The first row is the header; extra columns,
// including a previously exported Rank column, are ignored.
func Parse(ctx context.Context, r io.Reader) ([]student.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, shared.NewDataLoadError("Parse", "dataset is empty", nil)
	}
	if err != nil {
		return nil, shared.NewDataLoadError("Parse", "cannot read header", err)
	}

	h, err := parseHeader(first)
	if err != nil {
		return nil, err
	}

	records := make([]student.Record, 0, 256)
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, shared.NewDataLoadError("Parse", "malformed csv", err)
		}
		line, _ := cr.FieldPos(0)

		if len(row) <= h.maxIndex {
			return nil, shared.NewDataLoadError("Parse",
				fmt.Sprintf("line %d: %d field(s), need at least %d", line, len(row), h.maxIndex+1), nil)
		}

		rec, err := parseRow(h, row)
		if err != nil {
			var verr *shared.ValidationError
			if errors.As(err, &verr) {
				verr.Row = line
			}
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseRow(h header, row []string) (student.Record, error) {
	cgpa, err := shared.ParseCGPA(h.field(row, ColumnCGPA))
	if err != nil {
		return student.Record{}, err
	}
	return student.NewRecord(
		h.field(row, ColumnRegdNo),
		h.field(row, ColumnName),
		h.field(row, ColumnState),
		cgpa.Float64(),
	)
}
