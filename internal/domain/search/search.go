package search

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/alem-hub/rank-explorer/internal/domain/shared"
	"github.com/alem-hub/rank-explorer/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIND
// ══════════════════════════════════════════════════════════════════════════════

// Find returns, in source order, every record whose registration number equals
// query exactly (untrimmed) or whose name contains the trimmed query
// case-insensitively.
// A blank query matches nothing.
func Find(query string, records []student.Record) []student.Record {
	out := make([]student.Record, 0)

	q := strings.TrimSpace(query)
	if q == "" {
		return out
	}

	scorer := NewScorer(q)
	for _, r := range records {
		// Duplicate registration numbers all match.
		if r.RegistrationID == query || scorer.Contains(r.Name) > 0 {
			out = append(out, r)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// SUGGEST
// ══════════════════════════════════════════════════════════════════════════════

// Suggestion limits and defaults.
const (
	DefaultSuggestLimit = 5
	MaxSuggestLimit     = 50
	DefaultMinScore     = 0.5
)

// Suggestion is one candidate name with its similarity score.
type Suggestion struct {
	Name           string  `json:"name"`
	RegistrationID string  `json:"registration_id"`
	Rank           int     `json:"rank"`
	Score          float64 `json:"score"`
}

// Options configures a Suggester.
type Options struct {
	// Limit is used when Suggest is called with limit <= 0.
	Limit int

	// MinScore drops candidates scoring below it. Approximate mode only.
	MinScore float64

	// Fuzzy enables typo and partial-token matching. When false only
	// case-insensitive containment is used and results keep table order.
	Fuzzy bool

	// Dedupe keeps one suggestion per distinct name.
	Dedupe bool
}

// DefaultOptions returns fuzzy, de-duplicated suggestions with the default limit.
func DefaultOptions() Options {
	return Options{
		Limit:    DefaultSuggestLimit,
		MinScore: DefaultMinScore,
		Fuzzy:    true,
		Dedupe:   true,
	}
}

// Suggester ranks names by similarity to a query.
type Suggester struct {
	opts Options
}

// NewSuggester creates a suggester, filling zero options with defaults.
func NewSuggester(opts Options) *Suggester {
	if opts.Limit <= 0 {
		opts.Limit = DefaultSuggestLimit
	}
	if opts.Limit > MaxSuggestLimit {
		opts.Limit = MaxSuggestLimit
	}
	if opts.MinScore < 0 || opts.MinScore > 1 {
		opts.MinScore = DefaultMinScore
	}
	return &Suggester{opts: opts}
}

// Options returns the effective options.
func (s *Suggester) Options() Options {
	return s.opts
}

// Suggest returns up to limit suggestions, highest score first, ties in table
// order. When Dedupe is set, repeated names collapse into their best entry.
func (s *Suggester) Suggest(query string, records []student.Record, limit int) []Suggestion {
	out := make([]Suggestion, 0)

	scorer := NewScorer(query)
	if scorer.Empty() {
		return out
	}
	if limit <= 0 {
		limit = s.opts.Limit
	}
	if limit > MaxSuggestLimit {
		limit = MaxSuggestLimit
	}

	var matches map[int][]int
	if s.opts.Fuzzy {
		names := make([]string, len(records))
		for i, r := range records {
			names[i] = Normalize(r.Name)
		}
		matches = subsequenceMatches(scorer.compact, names)
	}

	candidates := make([]Suggestion, 0)
	for i, r := range records {
		score := scorer.Contains(r.Name)
		if score == 0 && s.opts.Fuzzy {
			score = scorer.Approximate(r.Name, matches[i])
			if score < s.opts.MinScore {
				continue
			}
		}
		if score == 0 {
			continue
		}
		if !s.opts.Fuzzy {
			score = 1
		}

		candidates = append(candidates, Suggestion{
			Name:           r.Name,
			RegistrationID: r.RegistrationID,
			Rank:           r.Rank,
			Score:          math.Round(score*10000) / 10000,
		})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Score > candidates[b].Score
	})

	seen := make(map[string]struct{})
	for _, c := range candidates {
		if s.opts.Dedupe {
			if _, ok := seen[c.Name]; ok {
				continue
			}
			seen[c.Name] = struct{}{}
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Names extracts suggestion names.
func Names(suggestions []Suggestion) []string {
	out := make([]string, len(suggestions))
	for i, s := range suggestions {
		out[i] = s.Name
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPARE
// ══════════════════════════════════════════════════════════════════════════════

// Compare looks up one record per name and returns them side by side.
// A name resolves to the first record whose name equals it case-insensitively,
// else the first Find match. Zero matches for either name is a not-found error.
func Compare(nameA, nameB string, records []student.Record) (student.Record, student.Record, error) {
	a, err := lookupOne(nameA, records)
	if err != nil {
		return student.Record{}, student.Record{}, err
	}
	b, err := lookupOne(nameB, records)
	if err != nil {
		return student.Record{}, student.Record{}, err
	}
	return a, b, nil
}

func lookupOne(name string, records []student.Record) (student.Record, error) {
	want := Normalize(name)
	if want == "" {
		return student.Record{}, shared.NewNotFoundError("search", "Compare", "empty student name")
	}

	for _, r := range records {
		if Normalize(r.Name) == want {
			return r, nil
		}
	}
	if found := Find(name, records); len(found) > 0 {
		return found[0], nil
	}
	return student.Record{}, shared.NewNotFoundError("search", "Compare", fmt.Sprintf("no student matches %q", strings.TrimSpace(name)))
}

// ══════════════════════════════════════════════════════════════════════════════
// PICK
// ══════════════════════════════════════════════════════════════════════════════

// Pick returns one record chosen uniformly at random. A nil rng uses the
// global source.
func Pick(records []student.Record, rng *rand.Rand) (student.Record, error) {
	if len(records) == 0 {
		return student.Record{}, shared.ErrEmptyTable
	}
	var i int
	if rng != nil {
		i = rng.IntN(len(records))
	} else {
		i = rand.IntN(len(records))
	}
	return records[i], nil
}
