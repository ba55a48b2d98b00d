package query

import (
	"context"
	"math"
	"time"

	"github.com/alem-hub/rank-explorer/internal/domain/search"
	"github.com/alem-hub/rank-explorer/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPARE STUDENTS QUERY
// Сравнение двух студентов бок о бок.
// ══════════════════════════════════════════════════════════════════════════════

// CompareStudentsQuery содержит имена для сравнения.
type CompareStudentsQuery struct {
	NameA string
	NameB string
}

// Validate проверяет, что оба имени заданы.
func (q *CompareStudentsQuery) Validate() error {
	if q.NameA == "" {
		return shared.NewValidationError("a", "", "name is required")
	}
	if q.NameB == "" {
		return shared.NewValidationError("b", "", "name is required")
	}
	return nil
}

// CompareStudentsResult содержит обе записи и разницу между ними.
type CompareStudentsResult struct {
	A StudentDTO `json:"a"`
	B StudentDTO `json:"b"`

	// CGPAGap - A.CGPA - B.CGPA.
	CGPAGap float64 `json:"cgpa_gap"`

	// RankGap - B.Rank - A.Rank (положительное = A выше).
	RankGap int `json:"rank_gap"`

	// Leader - "a", "b" или "tie".
	Leader string `json:"leader"`
}

// CompareStudentsHandler обрабатывает сравнение.
type CompareStudentsHandler struct {
	tables   TableProvider
	recorder Recorder
}

// NewCompareStudentsHandler создаёт обработчик.
func NewCompareStudentsHandler(tables TableProvider, recorder Recorder) *CompareStudentsHandler {
	return &CompareStudentsHandler{
		tables:   tables,
		recorder: recorderOrNop(recorder),
	}
}

// Handle выполняет сравнение. Если любое имя не найдено - NotFoundError.
func (h *CompareStudentsHandler) Handle(ctx context.Context, query CompareStudentsQuery) (result *CompareStudentsResult, err error) {
	defer observe(h.recorder, "compare", time.Now(), &err)

	if err := query.Validate(); err != nil {
		return nil, err
	}

	table, err := loadTable(ctx, h.tables, "CompareStudents")
	if err != nil {
		return nil, err
	}

	a, b, err := search.Compare(query.NameA, query.NameB, table.Records())
	if err != nil {
		return nil, err
	}

	result = &CompareStudentsResult{
		A:       ToStudentDTO(a),
		B:       ToStudentDTO(b),
		CGPAGap: math.Round((a.CGPA-b.CGPA)*1000) / 1000,
		RankGap: b.Rank - a.Rank,
		Leader:  "tie",
	}
	switch {
	case a.Rank < b.Rank:
		result.Leader = "a"
	case b.Rank < a.Rank:
		result.Leader = "b"
	}
	return result, nil
}
