package leaderboard

import (
	"fmt"
	"math"
	"sort"

	"github.com/alem-hub/rank-explorer/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TABLE STATISTICS
// Агрегаты по таблице: сводка, распределение по штатам, гистограмма CGPA.
// ══════════════════════════════════════════════════════════════════════════════

// Summary - сводная статистика таблицы.
type Summary struct {
	// Count - количество записей.
	Count int `json:"count"`

	// MeanCGPA, MedianCGPA, MinCGPA, MaxCGPA - описательная статистика CGPA.
	MeanCGPA   float64 `json:"mean_cgpa"`
	MedianCGPA float64 `json:"median_cgpa"`
	MinCGPA    float64 `json:"min_cgpa"`
	MaxCGPA    float64 `json:"max_cgpa"`

	// States - количество различных штатов.
	States int `json:"states"`

	// DuplicateIDs - сколько записей повторяют уже встреченный регистрационный номер.
	DuplicateIDs int `json:"duplicate_ids"`

	// Version - отпечаток источника.
	Version string `json:"version,omitempty"`
}

// Summary вычисляет сводную статистику.
func (t *Table) Summary() Summary {
	s := Summary{
		Count:        len(t.records),
		States:       len(t.States()),
		DuplicateIDs: t.DuplicateIDs(),
		Version:      t.version,
	}
	if len(t.records) == 0 {
		return s
	}

	// byRank отсортирован по убыванию CGPA
	s.MaxCGPA = t.records[t.byRank[0]].CGPA
	s.MinCGPA = t.records[t.byRank[len(t.byRank)-1]].CGPA

	var total float64
	for _, r := range t.records {
		total += r.CGPA
	}
	s.MeanCGPA = roundTo(total/float64(len(t.records)), 4)

	n := len(t.byRank)
	mid := n / 2
	if n%2 == 0 {
		s.MedianCGPA = (t.records[t.byRank[mid-1]].CGPA + t.records[t.byRank[mid]].CGPA) / 2
	} else {
		s.MedianCGPA = t.records[t.byRank[mid]].CGPA
	}

	return s
}

// DuplicateIDs считает записи с повторяющимся регистрационным номером.
func (t *Table) DuplicateIDs() int {
	seen := make(map[string]struct{}, len(t.records))
	dups := 0
	for _, r := range t.records {
		if _, ok := seen[r.RegistrationID]; ok {
			dups++
			continue
		}
		seen[r.RegistrationID] = struct{}{}
	}
	return dups
}

// ──────────────────────────────────────────────────────────────────────────────
// STATE DISTRIBUTION
// ──────────────────────────────────────────────────────────────────────────────

// StateCount - количество студентов в штате.
type StateCount struct {
	State    string  `json:"state"`
	Count    int     `json:"count"`
	MeanCGPA float64 `json:"mean_cgpa"`
	MaxCGPA  float64 `json:"max_cgpa"`
}

// StateDistribution возвращает распределение по штатам:
// по убыванию количества, при равенстве - по названию.
func (t *Table) StateDistribution() []StateCount {
	type acc struct {
		count int
		total float64
		max   float64
	}
	byState := make(map[string]*acc)
	for _, r := range t.records {
		a, ok := byState[r.State]
		if !ok {
			a = &acc{max: r.CGPA}
			byState[r.State] = a
		}
		a.count++
		a.total += r.CGPA
		if r.CGPA > a.max {
			a.max = r.CGPA
		}
	}

	out := make([]StateCount, 0, len(byState))
	for state, a := range byState {
		out = append(out, StateCount{
			State:    state,
			Count:    a.count,
			MeanCGPA: roundTo(a.total/float64(a.count), 4),
			MaxCGPA:  a.max,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].State < out[j].State
	})
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// CGPA HISTOGRAM
// ──────────────────────────────────────────────────────────────────────────────

// Histogram limits.
const (
	DefaultHistogramBins = 20
	MaxHistogramBins     = 100
)

// Bin - интервал гистограммы [Lower, Upper); последний интервал закрыт справа.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Label возвращает подпись интервала.
func (b Bin) Label() string {
	return fmt.Sprintf("%.2f-%.2f", b.Lower, b.Upper)
}

// Histogram строит гистограмму CGPA из равных интервалов на [0, 10].
// bins <= 0 означает значение по умолчанию.
func (t *Table) Histogram(bins int) ([]Bin, error) {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	if bins > MaxHistogramBins {
		return nil, shared.NewValidationError("bins", fmt.Sprint(bins), fmt.Sprintf("must be at most %d", MaxHistogramBins))
	}

	width := (shared.MaxCGPA - shared.MinCGPA) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{
			Lower: roundTo(shared.MinCGPA+float64(i)*width, 6),
			Upper: roundTo(shared.MinCGPA+float64(i+1)*width, 6),
		}
	}

	for _, r := range t.records {
		idx := int((r.CGPA - shared.MinCGPA) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}

	return out, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
