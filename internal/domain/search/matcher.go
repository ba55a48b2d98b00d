// Package search implements student lookup over a ranked table: exact and
// substring matching, fuzzy name suggestions, side-by-side comparison and
// random sampling. Every function is pure over its input slice.
package search

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"
)

// Score bands. Containment always outranks approximate matches.
const (
	containBase    = 0.90
	approxCeiling  = 0.89
	subseqBase     = 0.40
	subseqBoundary = 0.45
	subseqCoverage = 0.10
)

// Normalize case-folds s and collapses internal whitespace.
func Normalize(s string) string {
	// cases.Caser is stateful, so a fresh one per call.
	folded := cases.Fold().String(s)
	return strings.Join(strings.Fields(folded), " ")
}

// Scorer rates a normalized query against normalized names.
type Scorer struct {
	query   string
	compact string // query without spaces, for subsequence matching
	tokens  []string
}

// NewScorer prepares a scorer for the raw query.
func NewScorer(query string) *Scorer {
	q := Normalize(query)
	return &Scorer{
		query:   q,
		compact: strings.ReplaceAll(q, " ", ""),
		tokens:  strings.Fields(q),
	}
}

// Empty reports whether the query has no content.
func (s *Scorer) Empty() bool {
	return s.query == ""
}

// Contains scores plain containment: 0 when absent, else in [0.90, 1.0].
// Prefix and word-start matches and tighter coverage score higher.
func (s *Scorer) Contains(name string) float64 {
	if s.query == "" {
		return 0
	}
	n := Normalize(name)
	if !strings.Contains(n, s.query) {
		return 0
	}

	coverage := float64(utf8.RuneCountInString(s.query)) / float64(utf8.RuneCountInString(n))
	score := containBase + 0.05*coverage
	if strings.HasPrefix(n, s.query) || strings.Contains(" "+n, " "+s.query) {
		score += 0.05
	}
	return math.Min(score, 1)
}

// Approximate scores typo and partial-token similarity in [0, 0.89].
// matched holds the subsequence match positions for name, or nil.
func (s *Scorer) Approximate(name string, matched []int) float64 {
	if s.query == "" {
		return 0
	}
	n := Normalize(name)

	best := ratio(s.query, n)
	if tok := s.tokenScore(strings.Fields(n)); tok > best {
		best = tok
	}
	if sub := subsequenceScore(n, s.compact, matched); sub > best {
		best = sub
	}
	return math.Min(best, approxCeiling)
}

// tokenScore averages, over query tokens, the best ratio against any name
// token or same-length prefix of a name token.
func (s *Scorer) tokenScore(nameTokens []string) float64 {
	if len(s.tokens) == 0 || len(nameTokens) == 0 {
		return 0
	}

	var total float64
	for _, qt := range s.tokens {
		var best float64
		qLen := utf8.RuneCountInString(qt)
		for _, nt := range nameTokens {
			if r := ratio(qt, nt); r > best {
				best = r
			}
			if p := runePrefix(nt, qLen); p != nt {
				if r := ratio(qt, p); r > best {
					best = r
				}
			}
		}
		total += best
	}
	return total / float64(len(s.tokens))
}

// subsequenceScore rewards queries whose characters appear in order in the
// name, mostly at word starts (initials such as "vy" for "vishesh yadav").
func subsequenceScore(name, compact string, matched []int) float64 {
	if len(matched) == 0 || compact == "" {
		return 0
	}

	boundary := 0
	for _, idx := range matched {
		if idx == 0 || (idx <= len(name) && idx > 0 && name[idx-1] == ' ') {
			boundary++
		}
	}

	frac := float64(boundary) / float64(len(matched))
	coverage := float64(utf8.RuneCountInString(compact)) / float64(utf8.RuneCountInString(name))
	return subseqBase + subseqBoundary*frac + subseqCoverage*coverage
}

// subsequenceMatches runs one subsequence pass over all normalized names and
// returns matched positions keyed by name index.
func subsequenceMatches(compact string, names []string) map[int][]int {
	out := make(map[int][]int)
	if compact == "" {
		return out
	}
	for _, m := range fuzzy.Find(compact, names) {
		out[m.Index] = m.MatchedIndexes
	}
	return out
}

// ratio is 1 - distance/maxLen over runes.
func ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

func runePrefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
