// Package leaderboard содержит доменную модель рейтинга Rank Explorer.
// Ранг вычисляется из CGPA по правилу "минимальный ранг при равенстве":
// студенты с одинаковым CGPA делят лучший ранг группы, следующий ранг пропускается.
package leaderboard

import (
	"sort"
	"strings"

	"github.com/alem-hub/rank-explorer/internal/domain/shared"
	"github.com/alem-hub/rank-explorer/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank представляет позицию студента в рейтинге.
// Rank начинается с 1 (первое место).
type Rank int

// Medal возвращает медаль для первых трёх мест.
func (r Rank) Medal() string {
	switch r {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}

// AllStates означает "без фильтра по штату".
const AllStates = "all"

// ══════════════════════════════════════════════════════════════════════════════
// RANK DERIVATION
// ══════════════════════════════════════════════════════════════════════════════

// ComputeRanks возвращает новый срез в исходном порядке с вычисленными рангами.
// Входной срез не изменяется. Повторный вызов на результате даёт те же ранги.
func ComputeRanks(records []student.Record) []student.Record {
	out := student.Clone(records)
	if len(out) == 0 {
		return out
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	// По убыванию CGPA, при равенстве - исходный порядок
	sort.SliceStable(order, func(a, b int) bool {
		return out[order[a]].CGPA > out[order[b]].CGPA
	})

	// Одинаковый CGPA = тот же ранг, следующий ранг = позиция + 1
	for pos, idx := range order {
		if pos > 0 && out[idx].CGPA == out[order[pos-1]].CGPA {
			out[idx].Rank = out[order[pos-1]].Rank
			continue
		}
		out[idx].Rank = pos + 1
	}

	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// TABLE
// ══════════════════════════════════════════════════════════════════════════════

// Table - неизменяемая ранжированная таблица. Безопасна для конкурентного чтения:
// ни один метод не изменяет внутреннее состояние и не отдаёт ссылки на него.
type Table struct {
	records []student.Record // исходный порядок
	byRank  []int            // индексы records по возрастанию ранга
	version string
}

// NewTable ранжирует записи и строит таблицу.
func NewTable(records []student.Record, version string) *Table {
	ranked := ComputeRanks(records)

	byRank := make([]int, len(ranked))
	for i := range byRank {
		byRank[i] = i
	}
	sort.SliceStable(byRank, func(a, b int) bool {
		return ranked[byRank[a]].Rank < ranked[byRank[b]].Rank
	})

	return &Table{
		records: ranked,
		byRank:  byRank,
		version: version,
	}
}

// Version возвращает отпечаток источника, из которого построена таблица.
func (t *Table) Version() string {
	return t.version
}

// Count возвращает количество записей.
func (t *Table) Count() int {
	return len(t.records)
}

// Records возвращает копию всех записей в исходном порядке.
func (t *Table) Records() []student.Record {
	return student.Clone(t.records)
}

// Ranked возвращает копию всех записей в порядке ранга.
func (t *Table) Ranked() []student.Record {
	out := make([]student.Record, len(t.byRank))
	for i, idx := range t.byRank {
		out[i] = t.records[idx]
	}
	return out
}

// Top возвращает топ-N записей по рангу (при равенстве - исходный порядок).
func (t *Table) Top(n int) []student.Record {
	if n <= 0 {
		return []student.Record{}
	}
	if n > len(t.byRank) {
		n = len(t.byRank)
	}
	out := make([]student.Record, n)
	for i := 0; i < n; i++ {
		out[i] = t.records[t.byRank[i]]
	}
	return out
}

// Filter описывает фильтр по штату и диапазону CGPA.
type Filter struct {
	// State - штат; "" или "all" = любой. Сравнение без учёта регистра.
	State string

	// Range - включительный диапазон CGPA.
	Range shared.CGPARange
}

// NewFilter валидирует параметры фильтра.
func NewFilter(state string, min, max float64) (Filter, error) {
	r, err := shared.NewCGPARange(min, max)
	if err != nil {
		return Filter{}, err
	}
	return Filter{State: strings.TrimSpace(state), Range: r}, nil
}

func (f Filter) matchesState(state string) bool {
	if f.State == "" || strings.EqualFold(f.State, AllStates) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(state), f.State)
}

// Matches возвращает true, если запись проходит фильтр.
func (f Filter) Matches(r student.Record) bool {
	return f.matchesState(r.State) && f.Range.Contains(shared.CGPA(r.CGPA))
}

// FilterByStateAndRange возвращает записи штата в диапазоне CGPA в порядке ранга.
func (t *Table) FilterByStateAndRange(state string, min, max float64) ([]student.Record, error) {
	f, err := NewFilter(state, min, max)
	if err != nil {
		return nil, err
	}
	return t.Apply(f), nil
}

// Apply возвращает записи, прошедшие фильтр, в порядке ранга.
func (t *Table) Apply(f Filter) []student.Record {
	out := make([]student.Record, 0)
	for _, idx := range t.byRank {
		if f.Matches(t.records[idx]) {
			out = append(out, t.records[idx])
		}
	}
	return out
}

// States возвращает список различных штатов по алфавиту.
func (t *Table) States() []string {
	seen := make(map[string]struct{})
	states := make([]string, 0)
	for _, r := range t.records {
		if r.State == "" {
			continue
		}
		if _, ok := seen[r.State]; ok {
			continue
		}
		seen[r.State] = struct{}{}
		states = append(states, r.State)
	}
	sort.Strings(states)
	return states
}
