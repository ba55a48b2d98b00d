package query

import (
	"context"
	"time"

	"github.com/alem-hub/rank-explorer/internal/domain/search"
	"github.com/alem-hub/rank-explorer/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUGGEST NAMES QUERY
// Подсказки имён для автодополнения.
// ══════════════════════════════════════════════════════════════════════════════

// SuggestNamesQuery содержит параметры запроса подсказок.
type SuggestNamesQuery struct {
	// Term - введённый текст.
	Term string

	// Limit - количество подсказок (0 = по умолчанию, максимум 50).
	Limit int
}

// Validate проверяет корректность параметров запроса.
func (q *SuggestNamesQuery) Validate() error {
	if q.Limit < 0 {
		return shared.NewValidationError("limit", "", "cannot be negative")
	}
	if q.Limit > search.MaxSuggestLimit {
		q.Limit = search.MaxSuggestLimit
	}
	return nil
}

// SuggestNamesResult содержит подсказки.
type SuggestNamesResult struct {
	Term        string              `json:"term"`
	Suggestions []search.Suggestion `json:"suggestions"`
}

// SuggestNamesHandler обрабатывает запросы подсказок.
type SuggestNamesHandler struct {
	tables   TableProvider
	options  func() search.Options
	recorder Recorder
}

// NewSuggestNamesHandler создаёт обработчик.
func NewSuggestNamesHandler(tables TableProvider, options func() search.Options, recorder Recorder) *SuggestNamesHandler {
	if options == nil {
		options = search.DefaultOptions
	}
	return &SuggestNamesHandler{
		tables:   tables,
		options:  options,
		recorder: recorderOrNop(recorder),
	}
}

// Handle возвращает подсказки.
func (h *SuggestNamesHandler) Handle(ctx context.Context, query SuggestNamesQuery) (result *SuggestNamesResult, err error) {
	defer observe(h.recorder, "suggest", time.Now(), &err)

	if err := query.Validate(); err != nil {
		return nil, err
	}

	table, err := loadTable(ctx, h.tables, "SuggestNames")
	if err != nil {
		return nil, err
	}

	return &SuggestNamesResult{
		Term:        query.Term,
		Suggestions: search.NewSuggester(h.options()).Suggest(query.Term, table.Records(), query.Limit),
	}, nil
}
