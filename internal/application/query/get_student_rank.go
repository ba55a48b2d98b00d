package query

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/alem-hub/rank-explorer/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT RANK QUERY
// Позиция студента по регистрационному номеру: процентиль, отрыв до
// следующего места и соседи по рейтингу (±N позиций).
// ══════════════════════════════════════════════════════════════════════════════

// Границы количества соседей.
const (
	DefaultNeighbors = 2
	MaxNeighbors     = 25
)

// GetStudentRankQuery содержит параметры запроса позиции студента.
type GetStudentRankQuery struct {
	// RegistrationID - регистрационный номер (точное совпадение).
	RegistrationID string

	// Neighbors - сколько соседей показывать с каждой стороны (0 = по умолчанию).
	Neighbors int
}

// Validate проверяет корректность параметров запроса.
func (q *GetStudentRankQuery) Validate() error {
	q.RegistrationID = strings.TrimSpace(q.RegistrationID)
	if q.RegistrationID == "" {
		return shared.NewValidationError("id", "", "registration number is required")
	}
	if q.Neighbors < 0 {
		return shared.NewValidationError("neighbors", "", "cannot be negative")
	}
	if q.Neighbors == 0 {
		q.Neighbors = DefaultNeighbors
	}
	if q.Neighbors > MaxNeighbors {
		q.Neighbors = MaxNeighbors
	}
	return nil
}

// StudentRankResult - позиция студента в рейтинге.
type StudentRankResult struct {
	// Student - найденная запись (первая при повторяющихся номерах).
	Student StudentDTO `json:"student"`

	// TotalStudents - общее количество студентов.
	TotalStudents int `json:"total_students"`

	// Percentile - процентиль (100 = первое место).
	Percentile float64 `json:"percentile"`

	// PercentileLabel - человекочитаемая подпись процентиля.
	PercentileLabel string `json:"percentile_label"`

	// CGPAToNextRank - сколько CGPA не хватает до следующего места (0 для первого).
	CGPAToNextRank float64 `json:"cgpa_to_next_rank"`

	// NextRankStudent - имя студента на следующем месте.
	NextRankStudent string `json:"next_rank_student,omitempty"`

	// Above - соседи выше (ближе к #1), ближайший последним.
	Above []StudentDTO `json:"above"`

	// Below - соседи ниже, ближайший первым.
	Below []StudentDTO `json:"below"`

	// Duplicates - сколько ещё записей с тем же номером.
	Duplicates int `json:"duplicates"`
}

// GetStudentRankHandler обрабатывает запросы позиции.
type GetStudentRankHandler struct {
	tables   TableProvider
	recorder Recorder
}

// NewGetStudentRankHandler создаёт обработчик.
func NewGetStudentRankHandler(tables TableProvider, recorder Recorder) *GetStudentRankHandler {
	return &GetStudentRankHandler{
		tables:   tables,
		recorder: recorderOrNop(recorder),
	}
}

// Handle возвращает позицию. Неизвестный номер - NotFoundError.
func (h *GetStudentRankHandler) Handle(ctx context.Context, query GetStudentRankQuery) (result *StudentRankResult, err error) {
	defer observe(h.recorder, "rank", time.Now(), &err)

	if err := query.Validate(); err != nil {
		return nil, err
	}

	table, err := loadTable(ctx, h.tables, "GetStudentRank")
	if err != nil {
		return nil, err
	}

	ranked := table.Ranked()
	pos, dups := -1, 0
	for i, r := range ranked {
		if r.RegistrationID != query.RegistrationID {
			continue
		}
		if pos < 0 {
			pos = i
		} else {
			dups++
		}
	}
	if pos < 0 {
		return nil, shared.NewNotFoundError("query", "GetStudentRank", "no student with registration number "+query.RegistrationID)
	}

	me := ranked[pos]
	result = &StudentRankResult{
		Student:       ToStudentDTO(me),
		TotalStudents: len(ranked),
		Percentile:    Percentile(me.Rank, len(ranked)),
		Duplicates:    dups,
	}
	result.PercentileLabel = FormatPercentile(result.Percentile)

	// ближайший сверху с более высоким CGPA
	for i := pos - 1; i >= 0; i-- {
		if ranked[i].CGPA > me.CGPA {
			result.CGPAToNextRank = math.Round((ranked[i].CGPA-me.CGPA)*1000) / 1000
			result.NextRankStudent = ranked[i].Name
			break
		}
	}

	lo := max(0, pos-query.Neighbors)
	hi := min(len(ranked), pos+query.Neighbors+1)
	result.Above = ToStudentDTOs(ranked[lo:pos])
	result.Below = ToStudentDTOs(ranked[pos+1 : hi])

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PERCENTILE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// Percentile возвращает процентиль ранга: 100 для первого места.
func Percentile(rank, total int) float64 {
	if total <= 0 || rank <= 0 {
		return 0
	}
	p := 100.0 - (float64(rank-1) / float64(total) * 100.0)
	return math.Round(p*100) / 100
}

// FormatPercentile форматирует процентиль для отображения.
func FormatPercentile(percentile float64) string {
	if percentile >= 99 {
		return "top 1%"
	}
	if percentile >= 95 {
		return "top 5%"
	}
	if percentile >= 90 {
		return "top 10%"
	}
	if percentile >= 75 {
		return "top 25%"
	}
	if percentile >= 50 {
		return "upper half"
	}
	return "lower half"
}
