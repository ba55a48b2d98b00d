package query

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/alem-hub/rank-explorer/internal/domain/search"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SPOTLIGHT QUERY
// Случайный студент "в центре внимания".
// ══════════════════════════════════════════════════════════════════════════════

// SpotlightResult - выбранный студент и его процентиль.
type SpotlightResult struct {
	Student    StudentDTO `json:"student"`
	Percentile float64    `json:"percentile"`
	TotalCount int        `json:"total_count"`
}

// GetSpotlightHandler выбирает случайного студента.
type GetSpotlightHandler struct {
	tables   TableProvider
	recorder Recorder

	mu  sync.Mutex // *rand.Rand не потокобезопасен
	rng *rand.Rand
}

// NewGetSpotlightHandler создаёт обработчик. rng == nil - глобальный источник.
func NewGetSpotlightHandler(tables TableProvider, rng *rand.Rand, recorder Recorder) *GetSpotlightHandler {
	return &GetSpotlightHandler{
		tables:   tables,
		rng:      rng,
		recorder: recorderOrNop(recorder),
	}
}

// Handle возвращает случайную запись. Пустая таблица - NotFoundError.
func (h *GetSpotlightHandler) Handle(ctx context.Context) (result *SpotlightResult, err error) {
	defer observe(h.recorder, "spotlight", time.Now(), &err)

	table, err := loadTable(ctx, h.tables, "GetSpotlight")
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	rec, err := search.Pick(table.Records(), h.rng)
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return &SpotlightResult{
		Student:    ToStudentDTO(rec),
		Percentile: Percentile(rec.Rank, table.Count()),
		TotalCount: table.Count(),
	}, nil
}
