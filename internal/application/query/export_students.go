package query

import (
	"context"
	"strings"
	"time"

	"github.com/alem-hub/rank-explorer/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPORT STUDENTS QUERY
// CSV-выгрузка (всей таблицы или результата фильтра) с ETag.
// ══════════════════════════════════════════════════════════════════════════════

// Encoder сериализует записи. Реализация - dataset.Export.
type Encoder func(records []student.Record) (body []byte, etag string, err error)

// ExportStudentsQuery - фильтр выгрузки (пустой = вся таблица в порядке ранга).
type ExportStudentsQuery struct {
	FilterStudentsQuery
}

// ExportStudentsResult - готовый файл.
type ExportStudentsResult struct {
	Body     []byte
	ETag     string
	Filename string
	Count    int
}

// ExportStudentsHandler обрабатывает выгрузку.
type ExportStudentsHandler struct {
	tables   TableProvider
	encode   Encoder
	recorder Recorder
}

// NewExportStudentsHandler создаёт обработчик.
func NewExportStudentsHandler(tables TableProvider, encode Encoder, recorder Recorder) *ExportStudentsHandler {
	return &ExportStudentsHandler{
		tables:   tables,
		encode:   encode,
		recorder: recorderOrNop(recorder),
	}
}

// Handle строит файл выгрузки.
func (h *ExportStudentsHandler) Handle(ctx context.Context, query ExportStudentsQuery) (result *ExportStudentsResult, err error) {
	defer observe(h.recorder, "export", time.Now(), &err)

	table, err := loadTable(ctx, h.tables, "ExportStudents")
	if err != nil {
		return nil, err
	}

	min, max := query.Bounds()
	records, err := table.FilterByStateAndRange(query.State, min, max)
	if err != nil {
		return nil, err
	}

	body, etag, err := h.encode(records)
	if err != nil {
		return nil, err
	}

	return &ExportStudentsResult{
		Body:     body,
		ETag:     etag,
		Filename: exportFilename(query.State),
		Count:    len(records),
	}, nil
}

func exportFilename(state string) string {
	state = strings.TrimSpace(state)
	if state == "" || strings.EqualFold(state, "all") {
		return "students_ranked.csv"
	}
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, state)
	return "students_ranked_" + slug + ".csv"
}
