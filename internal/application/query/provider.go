// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"time"

	"github.com/alem-hub/rank-explorer/internal/domain/leaderboard"
	"github.com/alem-hub/rank-explorer/internal/domain/shared"
	"github.com/alem-hub/rank-explorer/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ЗАВИСИМОСТИ
// ══════════════════════════════════════════════════════════════════════════════

// TableProvider отдаёт актуальную ранжированную таблицу.
// В проде это dataset.Cache, в тестах - StaticProvider.
type TableProvider interface {
	Table(ctx context.Context) (*leaderboard.Table, error)
}

// StaticProvider - провайдер с заранее построенной таблицей.
type StaticProvider struct {
	table *leaderboard.Table
}

// NewStaticProvider ранжирует записи и оборачивает их в провайдер.
func NewStaticProvider(records []student.Record) *StaticProvider {
	return &StaticProvider{table: leaderboard.NewTable(records, "static")}
}

// Table возвращает таблицу.
func (p *StaticProvider) Table(context.Context) (*leaderboard.Table, error) {
	return p.table, nil
}

// Recorder принимает метрики выполнения запросов.
// *metrics.Metrics удовлетворяет этому интерфейсу (nil допустим).
type Recorder interface {
	ObserveQuery(operation, outcome string, took time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveQuery(string, string, time.Duration) {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// Outcome классифицирует ошибку для метрик. Ошибки загрузки проверяются
// первыми: они могут оборачивать ValidationError строки датасета.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case shared.IsDataLoad(err):
		return "unavailable"
	case shared.IsNotFound(err):
		return "not_found"
	case shared.IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}

// observe записывает длительность и исход запроса. Вызывается через defer.
func observe(r Recorder, op string, start time.Time, err *error) {
	r.ObserveQuery(op, Outcome(*err), time.Since(start))
}

// ══════════════════════════════════════════════════════════════════════════════
// DTO
// ══════════════════════════════════════════════════════════════════════════════

// StudentDTO - DTO записи студента (Data Transfer Object).
type StudentDTO struct {
	// RegistrationID - регистрационный номер.
	RegistrationID string `json:"registration_id"`

	// Name - имя студента.
	Name string `json:"name"`

	// State - штат.
	State string `json:"state"`

	// CGPA - средний балл.
	CGPA float64 `json:"cgpa"`

	// Rank - позиция в рейтинге (начиная с 1).
	Rank int `json:"rank"`

	// Medal - эмодзи медали для топ-3.
	Medal string `json:"medal,omitempty"`
}

// ToStudentDTO конвертирует запись в DTO.
func ToStudentDTO(r student.Record) StudentDTO {
	return StudentDTO{
		RegistrationID: r.RegistrationID,
		Name:           r.Name,
		State:          r.State,
		CGPA:           r.CGPA,
		Rank:           r.Rank,
		Medal:          leaderboard.Rank(r.Rank).Medal(),
	}
}

// ToStudentDTOs конвертирует срез записей. Никогда не возвращает nil.
func ToStudentDTOs(records []student.Record) []StudentDTO {
	out := make([]StudentDTO, len(records))
	for i, r := range records {
		out[i] = ToStudentDTO(r)
	}
	return out
}

// loadTable получает таблицу. Любая ошибка источника (включая невалидную
// строку датасета) становится ошибкой вида ErrDataLoad.
func loadTable(ctx context.Context, p TableProvider, op string) (*leaderboard.Table, error) {
	t, err := p.Table(ctx)
	if err != nil {
		return nil, shared.WrapError("query", op, shared.ErrDataLoad, "dataset unavailable", err)
	}
	return t, nil
}
