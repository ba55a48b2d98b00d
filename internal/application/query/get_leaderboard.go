package query

import (
	"context"
	"time"

	"github.com/alem-hub/rank-explorer/internal/domain/leaderboard"
	"github.com/alem-hub/rank-explorer/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TOP STUDENTS QUERY
// Получает топ-N студентов по рангу (при равенстве - в исходном порядке).
// ══════════════════════════════════════════════════════════════════════════════

// DefaultTopN - размер топа по умолчанию для внешних интерфейсов.
const DefaultTopN = 10

// MaxTopN ограничивает размер ответа.
const MaxTopN = 1000

// GetTopStudentsQuery содержит параметры запроса топа.
type GetTopStudentsQuery struct {
	// N - количество записей. N <= 0 даёт пустой результат.
	N int
}

// Validate ограничивает N сверху.
func (q *GetTopStudentsQuery) Validate() error {
	if q.N > MaxTopN {
		q.N = MaxTopN
	}
	return nil
}

// LeaderboardResult - список студентов в порядке ранга.
type LeaderboardResult struct {
	// Entries - записи лидерборда.
	Entries []StudentDTO `json:"entries"`

	// Count - количество записей в ответе.
	Count int `json:"count"`

	// TotalCount - общее количество студентов.
	TotalCount int `json:"total_count"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetTopStudentsHandler обрабатывает запросы топа.
type GetTopStudentsHandler struct {
	tables   TableProvider
	recorder Recorder
}

// NewGetTopStudentsHandler создаёт обработчик.
func NewGetTopStudentsHandler(tables TableProvider, recorder Recorder) *GetTopStudentsHandler {
	return &GetTopStudentsHandler{
		tables:   tables,
		recorder: recorderOrNop(recorder),
	}
}

// Handle возвращает топ-N.
func (h *GetTopStudentsHandler) Handle(ctx context.Context, query GetTopStudentsQuery) (result *LeaderboardResult, err error) {
	defer observe(h.recorder, "top", time.Now(), &err)

	if err := query.Validate(); err != nil {
		return nil, err
	}

	table, err := loadTable(ctx, h.tables, "GetTopStudents")
	if err != nil {
		return nil, err
	}

	return buildLeaderboardResult(table, ToStudentDTOs(table.Top(query.N))), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FILTER STUDENTS QUERY
// Фильтр по штату и диапазону CGPA, результат упорядочен по рангу.
// ══════════════════════════════════════════════════════════════════════════════

// FilterStudentsQuery содержит параметры фильтра.
type FilterStudentsQuery struct {
	// State - штат ("" или "all" = любой).
	State string

	// Min, Max - границы CGPA включительно (nil = граница шкалы).
	Min *float64
	Max *float64
}

// Bounds возвращает границы с подставленными значениями по умолчанию.
func (q FilterStudentsQuery) Bounds() (float64, float64) {
	min, max := shared.MinCGPA, shared.MaxCGPA
	if q.Min != nil {
		min = *q.Min
	}
	if q.Max != nil {
		max = *q.Max
	}
	return min, max
}

// FilterStudentsResult - результат фильтра.
type FilterStudentsResult struct {
	LeaderboardResult

	// State - применённый фильтр штата.
	State string `json:"state"`

	// MinCGPA, MaxCGPA - применённые границы.
	MinCGPA float64 `json:"min_cgpa"`
	MaxCGPA float64 `json:"max_cgpa"`
}

// FilterStudentsHandler обрабатывает запросы фильтра.
type FilterStudentsHandler struct {
	tables   TableProvider
	recorder Recorder
}

// NewFilterStudentsHandler создаёт обработчик.
func NewFilterStudentsHandler(tables TableProvider, recorder Recorder) *FilterStudentsHandler {
	return &FilterStudentsHandler{
		tables:   tables,
		recorder: recorderOrNop(recorder),
	}
}

// Handle применяет фильтр. Неверный диапазон - ValidationError.
func (h *FilterStudentsHandler) Handle(ctx context.Context, query FilterStudentsQuery) (result *FilterStudentsResult, err error) {
	defer observe(h.recorder, "filter", time.Now(), &err)

	min, max := query.Bounds()
	if _, err := leaderboard.NewFilter(query.State, min, max); err != nil {
		return nil, err
	}

	table, err := loadTable(ctx, h.tables, "FilterStudents")
	if err != nil {
		return nil, err
	}

	records, err := table.FilterByStateAndRange(query.State, min, max)
	if err != nil {
		return nil, err
	}

	return &FilterStudentsResult{
		LeaderboardResult: *buildLeaderboardResult(table, ToStudentDTOs(records)),
		State:             query.State,
		MinCGPA:           min,
		MaxCGPA:           max,
	}, nil
}

func buildLeaderboardResult(table *leaderboard.Table, entries []StudentDTO) *LeaderboardResult {
	return &LeaderboardResult{
		Entries:     entries,
		Count:       len(entries),
		TotalCount:  table.Count(),
		GeneratedAt: time.Now().UTC(),
	}
}
