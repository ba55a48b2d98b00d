package query

import (
	"context"
	"time"

	"github.com/alem-hub/rank-explorer/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS QUERIES
// Распределение по штатам, гистограмма CGPA и сводка по таблице.
// ══════════════════════════════════════════════════════════════════════════════

// StateDistributionResult - распределение студентов по штатам.
type StateDistributionResult struct {
	States     []leaderboard.StateCount `json:"states"`
	TotalCount int                      `json:"total_count"`
}

// HistogramQuery содержит количество корзин (0 = по умолчанию).
type HistogramQuery struct {
	Bins int
}

// HistogramBinDTO - одна корзина гистограммы.
type HistogramBinDTO struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// HistogramResult - гистограмма CGPA.
type HistogramResult struct {
	Bins       []HistogramBinDTO `json:"bins"`
	TotalCount int               `json:"total_count"`
}

// StatisticsHandler обрабатывает статистические запросы.
type StatisticsHandler struct {
	tables   TableProvider
	recorder Recorder
}

// NewStatisticsHandler создаёт обработчик.
func NewStatisticsHandler(tables TableProvider, recorder Recorder) *StatisticsHandler {
	return &StatisticsHandler{
		tables:   tables,
		recorder: recorderOrNop(recorder),
	}
}

// States возвращает распределение по штатам (по убыванию количества).
func (h *StatisticsHandler) States(ctx context.Context) (result *StateDistributionResult, err error) {
	defer observe(h.recorder, "states", time.Now(), &err)

	table, err := loadTable(ctx, h.tables, "GetStateDistribution")
	if err != nil {
		return nil, err
	}

	return &StateDistributionResult{
		States:     table.StateDistribution(),
		TotalCount: table.Count(),
	}, nil
}

// Histogram строит гистограмму CGPA на [0, 10].
func (h *StatisticsHandler) Histogram(ctx context.Context, query HistogramQuery) (result *HistogramResult, err error) {
	defer observe(h.recorder, "histogram", time.Now(), &err)

	table, err := loadTable(ctx, h.tables, "GetHistogram")
	if err != nil {
		return nil, err
	}

	bins, err := table.Histogram(query.Bins)
	if err != nil {
		return nil, err
	}

	out := make([]HistogramBinDTO, len(bins))
	for i, b := range bins {
		out[i] = HistogramBinDTO{
			Label: b.Label(),
			Lower: b.Lower,
			Upper: b.Upper,
			Count: b.Count,
		}
	}
	return &HistogramResult{Bins: out, TotalCount: table.Count()}, nil
}

// Summary возвращает сводку по таблице.
func (h *StatisticsHandler) Summary(ctx context.Context) (result *leaderboard.Summary, err error) {
	defer observe(h.recorder, "summary", time.Now(), &err)

	table, err := loadTable(ctx, h.tables, "GetSummary")
	if err != nil {
		return nil, err
	}

	s := table.Summary()
	return &s, nil
}
