package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/alem-hub/rank-explorer/internal/application/query"
	"github.com/alem-hub/rank-explorer/internal/domain/leaderboard"
	"github.com/alem-hub/rank-explorer/internal/domain/search"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
)

var (
	colorAccent = lipgloss.Color("#20B9B4")
	colorBorder = lipgloss.Color("#16858E")
	colorGold   = lipgloss.Color("#F4D03F")
	colorMuted  = lipgloss.Color("#6C7A80")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	podiumStyle = cellStyle.Foreground(colorGold)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(18)
)

// renderer prints query results as lipgloss tables or indented JSON.
type renderer struct {
	out    io.Writer
	format string
}

func (r renderer) isJSON() bool {
	return r.format == formatJSON
}

func (r renderer) json(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r renderer) title(s string) {
	fmt.Fprintln(r.out, titleStyle.Render(s))
}

func (r renderer) muted(format string, args ...any) {
	fmt.Fprintln(r.out, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// newTable builds a bordered table; podium rows (rank 1-3) are highlighted
// when rankCol >= 0.
func newTable(headers []string, rows [][]string, rankCol int) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if rankCol >= 0 && row >= 0 && row < len(rows) {
				if rank, err := strconv.Atoi(rows[row][rankCol]); err == nil && rank >= 1 && rank <= 3 {
					return podiumStyle
				}
			}
			return cellStyle
		})
}

func (r renderer) table(headers []string, rows [][]string, rankCol int) {
	fmt.Fprintln(r.out, newTable(headers, rows, rankCol).Render())
}

func formatCGPA(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULT RENDERERS
// ══════════════════════════════════════════════════════════════════════════════

func studentRows(entries []query.StudentDTO) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Rank),
			e.Medal,
			e.RegistrationID,
			e.Name,
			e.State,
			formatCGPA(e.CGPA),
		})
	}
	return rows
}

var studentHeaders = []string{"RANK", "", "REGD NO.", "NAME", "STATE", "CGPA"}

func (r renderer) students(title string, entries []query.StudentDTO, total int) error {
	if r.isJSON() {
		return r.json(entries)
	}
	r.title(title)
	if len(entries) == 0 {
		r.muted("no students")
		return nil
	}
	r.table(studentHeaders, studentRows(entries), 0)
	r.muted("%d of %d students", len(entries), total)
	return nil
}

func (r renderer) suggestions(term string, suggestions []search.Suggestion) {
	if len(suggestions) == 0 {
		r.muted("no suggestions for %q", term)
		return
	}
	rows := make([][]string, 0, len(suggestions))
	for _, s := range suggestions {
		rows = append(rows, []string{
			s.Name,
			s.RegistrationID,
			strconv.Itoa(s.Rank),
			strconv.FormatFloat(s.Score, 'f', 2, 64),
		})
	}
	r.table([]string{"SUGGESTION", "REGD NO.", "RANK", "SCORE"}, rows, -1)
}

func (r renderer) search(res *query.SearchStudentsResult) error {
	if r.isJSON() {
		return r.json(res)
	}
	if err := r.students(fmt.Sprintf("Matches for %q", res.Term), res.Matches, res.TotalCount); err != nil {
		return err
	}
	r.title("Did you mean")
	r.suggestions(res.Term, res.Suggestions)
	return nil
}

func (r renderer) suggest(res *query.SuggestNamesResult) error {
	if r.isJSON() {
		return r.json(res)
	}
	r.title(fmt.Sprintf("Suggestions for %q", res.Term))
	r.suggestions(res.Term, res.Suggestions)
	return nil
}

func (r renderer) compare(res *query.CompareStudentsResult) error {
	if r.isJSON() {
		return r.json(res)
	}
	r.title("Comparison")
	r.table(studentHeaders, studentRows([]query.StudentDTO{res.A, res.B}), 0)

	switch res.Leader {
	case "tie":
		r.muted("%s and %s share rank %d", res.A.Name, res.B.Name, res.A.Rank)
	default:
		lead := res.A
		if res.Leader == "b" {
			lead = res.B
		}
		places := res.RankGap
		if places < 0 {
			places = -places
		}
		fmt.Fprintf(r.out, "%s leads by %s CGPA (%d places)\n",
			lead.Name, formatCGPA(math.Abs(res.CGPAGap)), places)
	}
	return nil
}

func (r renderer) rank(res *query.StudentRankResult) error {
	if r.isJSON() {
		return r.json(res)
	}
	s := res.Student
	r.title(fmt.Sprintf("%s %s", s.Name, s.Medal))

	fields := [][2]string{
		{"Registration", s.RegistrationID},
		{"State", s.State},
		{"CGPA", formatCGPA(s.CGPA)},
		{"Rank", fmt.Sprintf("%d of %d", s.Rank, res.TotalStudents)},
		{"Percentile", fmt.Sprintf("%.2f (%s)", res.Percentile, res.PercentileLabel)},
	}
	if res.NextRankStudent != "" {
		fields = append(fields, [2]string{"To next rank", fmt.Sprintf("+%s CGPA to reach %s", formatCGPA(res.CGPAToNextRank), res.NextRankStudent)})
	}
	if res.Duplicates > 0 {
		fields = append(fields, [2]string{"Duplicates", strconv.Itoa(res.Duplicates)})
	}
	for _, f := range fields {
		fmt.Fprintln(r.out, labelStyle.Render(f[0])+f[1])
	}

	if len(res.Above)+len(res.Below) > 0 {
		neighbors := append(append(append([]query.StudentDTO{}, res.Above...), s), res.Below...)
		r.title("Neighbours")
		r.table(studentHeaders, studentRows(neighbors), 0)
	}
	return nil
}

func (r renderer) spotlight(res *query.SpotlightResult) error {
	if r.isJSON() {
		return r.json(res)
	}
	s := res.Student
	r.title("Spotlight")
	fmt.Fprintf(r.out, "%s (%s, %s) - CGPA %s, rank %d of %d, %s\n",
		s.Name, s.RegistrationID, s.State, formatCGPA(s.CGPA), s.Rank, res.TotalCount,
		query.FormatPercentile(res.Percentile))
	return nil
}

func (r renderer) states(res *query.StateDistributionResult) error {
	if r.isJSON() {
		return r.json(res)
	}
	rows := make([][]string, 0, len(res.States))
	for _, s := range res.States {
		state := s.State
		if state == "" {
			state = mutedStyle.Render("(none)")
		}
		rows = append(rows, []string{state, strconv.Itoa(s.Count), formatCGPA(s.MeanCGPA), formatCGPA(s.MaxCGPA)})
	}
	r.title("Students per state")
	r.table([]string{"STATE", "STUDENTS", "MEAN CGPA", "MAX CGPA"}, rows, -1)
	r.muted("%d students in %d states", res.TotalCount, len(res.States))
	return nil
}

// histogramBarWidth is the length of the longest bar.
const histogramBarWidth = 40

func (r renderer) histogram(res *query.HistogramResult) error {
	if r.isJSON() {
		return r.json(res)
	}
	peak := 0
	for _, b := range res.Bins {
		peak = max(peak, b.Count)
	}

	bar := lipgloss.NewStyle().Foreground(colorAccent)
	rows := make([][]string, 0, len(res.Bins))
	for _, b := range res.Bins {
		width := 0
		if peak > 0 {
			width = b.Count * histogramBarWidth / peak
		}
		rows = append(rows, []string{b.Label, strconv.Itoa(b.Count), bar.Render(strings.Repeat("█", width))})
	}
	r.title("CGPA distribution")
	r.table([]string{"CGPA", "STUDENTS", ""}, rows, -1)
	return nil
}

func (r renderer) summary(s *leaderboard.Summary) error {
	if r.isJSON() {
		return r.json(s)
	}
	r.title("Dataset summary")
	for _, f := range [][2]string{
		{"Students", strconv.Itoa(s.Count)},
		{"States", strconv.Itoa(s.States)},
		{"Mean CGPA", formatCGPA(s.MeanCGPA)},
		{"Median CGPA", formatCGPA(s.MedianCGPA)},
		{"Min / Max CGPA", formatCGPA(s.MinCGPA) + " / " + formatCGPA(s.MaxCGPA)},
		{"Duplicate IDs", strconv.Itoa(s.DuplicateIDs)},
	} {
		fmt.Fprintln(r.out, labelStyle.Render(f[0])+f[1])
	}
	return nil
}
