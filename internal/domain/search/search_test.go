package search

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/rank-explorer/internal/domain/leaderboard"
	"github.com/alem-hub/rank-explorer/internal/domain/shared"
	"github.com/alem-hub/rank-explorer/internal/domain/student"
)

func scenario() []student.Record {
	return leaderboard.ComputeRanks([]student.Record{
		{RegistrationID: "A1", Name: "Ann", CGPA: 9.5},
		{RegistrationID: "A2", Name: "Bob", CGPA: 9.5},
		{RegistrationID: "A3", Name: "Cal", CGPA: 8.0},
	})
}

func roster() []student.Record {
	return leaderboard.ComputeRanks([]student.Record{
		{RegistrationID: "12200001", Name: "Vishesh Yadav", State: "Haryana", CGPA: 9.1},
		{RegistrationID: "12200002", Name: "Vikas Sharma", State: "Punjab", CGPA: 8.4},
		{RegistrationID: "12200003", Name: "Anita Verma", State: "Bihar", CGPA: 8.9},
		{RegistrationID: "12200004", Name: "Ann", State: "Goa", CGPA: 7.2},
		{RegistrationID: "12200005", Name: "Ann", State: "Goa", CGPA: 7.9},
		{RegistrationID: "12200006", Name: "Rahul Kumar", State: "Punjab", CGPA: 6.5},
		{RegistrationID: "12200007", Name: "Priya Singh", State: "Kerala", CGPA: 9.7},
	})
}

func TestFind_BlankQueryMatchesNothing(t *testing.T) {
	assert.Empty(t, Find("", roster()))
	assert.Empty(t, Find("   ", roster()))
	assert.NotNil(t, Find("", roster()))
}

func TestFind_ByRegistrationID(t *testing.T) {
	got := Find("A2", scenario())
	require.Len(t, got, 1)
	assert.Equal(t, "Bob", got[0].Name)
	assert.Equal(t, 1, got[0].Rank)

	// registration numbers are case-sensitive
	assert.Empty(t, Find("a2", scenario()))
}

func TestFind_RegistrationIDIsNotTrimmed(t *testing.T) {
	recs := leaderboard.ComputeRanks([]student.Record{
		{RegistrationID: "1", Name: "Ann", CGPA: 9.0},
		{RegistrationID: "2", Name: "Bob", CGPA: 8.0},
	})

	assert.Empty(t, Find(" 1 ", recs))
	require.Len(t, Find("1", recs), 1)

	// names still match on the trimmed query
	got := Find("  bob ", recs)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].RegistrationID)
}

func TestFind_ByNameSubstring(t *testing.T) {
	got := Find("AN", roster())
	require.Len(t, got, 3)
	assert.Equal(t, "Anita Verma", got[0].Name)
	assert.Equal(t, "12200004", got[1].RegistrationID)
	assert.Equal(t, "12200005", got[2].RegistrationID)
}

func TestFind_DuplicateRegistrationIDsAllMatch(t *testing.T) {
	recs := []student.Record{
		{RegistrationID: "X1", Name: "First"},
		{RegistrationID: "X1", Name: "Second"},
	}
	assert.Len(t, Find("X1", recs), 2)
}

func TestSuggest_LimitAndOrder(t *testing.T) {
	s := NewSuggester(DefaultOptions())
	got := s.Suggest("a", roster(), 5)

	require.LessOrEqual(t, len(got), 5)
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestSuggest_ContainmentPrefersPrefix(t *testing.T) {
	s := NewSuggester(DefaultOptions())
	got := s.Suggest("an", roster(), 5)

	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, "Ann", got[0].Name)
	assert.Equal(t, "Anita Verma", got[1].Name)
}

func TestSuggest_ToleratesTypos(t *testing.T) {
	s := NewSuggester(DefaultOptions())

	got := s.Suggest("Vihsesh", roster(), 5)
	require.NotEmpty(t, got)
	assert.Equal(t, "Vishesh Yadav", got[0].Name)

	got = s.Suggest("yadva", roster(), 5)
	require.NotEmpty(t, got)
	assert.Equal(t, "Vishesh Yadav", got[0].Name)
}

func TestSuggest_Initials(t *testing.T) {
	got := NewSuggester(DefaultOptions()).Suggest("vy", roster(), 5)
	require.NotEmpty(t, got)
	assert.Equal(t, "Vishesh Yadav", got[0].Name)
}

func TestSuggest_DeduplicatesNames(t *testing.T) {
	opts := DefaultOptions()
	got := NewSuggester(opts).Suggest("Ann", roster(), 5)
	assert.Equal(t, []string{"Ann", "Anita Verma"}, Names(got))
	// first occurrence wins on equal score
	assert.Equal(t, "12200004", got[0].RegistrationID)

	opts.Dedupe = false
	got = NewSuggester(opts).Suggest("Ann", roster(), 5)
	assert.Equal(t, []string{"Ann", "Ann", "Anita Verma"}, Names(got))
}

func TestSuggest_ContainmentOnlyMode(t *testing.T) {
	opts := DefaultOptions()
	opts.Fuzzy = false
	opts.Dedupe = false

	got := NewSuggester(opts).Suggest("ar", roster(), 10)
	assert.Equal(t, []string{"Vikas Sharma", "Rahul Kumar"}, Names(got))

	assert.Empty(t, NewSuggester(opts).Suggest("Vihsesh", roster(), 10))
}

func TestSuggest_EmptyQuery(t *testing.T) {
	assert.Empty(t, NewSuggester(DefaultOptions()).Suggest("  ", roster(), 5))
}

func TestSuggest_DefaultLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.Limit = 2
	got := NewSuggester(opts).Suggest("a", roster(), 0)
	assert.Len(t, got, 2)
}

func TestCompare(t *testing.T) {
	a, b, err := Compare("Ann", "Bob", scenario())
	require.NoError(t, err)
	assert.Equal(t, "Ann", a.Name)
	assert.Equal(t, 1, a.Rank)
	assert.Equal(t, "Bob", b.Name)
	assert.Equal(t, 1, b.Rank)
}

func TestCompare_NotFound(t *testing.T) {
	_, _, err := Compare("Ann", "Zed", scenario())
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))

	_, _, err = Compare("", "Bob", scenario())
	assert.True(t, shared.IsNotFound(err))
}

func TestCompare_ExactNameBeatsSubstring(t *testing.T) {
	recs := []student.Record{
		{RegistrationID: "1", Name: "Annabel"},
		{RegistrationID: "2", Name: "ann"},
	}
	a, _, err := Compare("ANN", "Annabel", recs)
	require.NoError(t, err)
	assert.Equal(t, "2", a.RegistrationID)
}

func TestPick(t *testing.T) {
	recs := roster()
	rng := rand.New(rand.NewPCG(7, 7))

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		r, err := Pick(recs, rng)
		require.NoError(t, err)
		seen[r.RegistrationID] = true
	}
	assert.Len(t, seen, len(recs))

	_, err := Pick(nil, nil)
	assert.True(t, shared.IsNotFound(err))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ann lee", Normalize("  ANN   Lee "))
	assert.Equal(t, "vishesh yadav", Normalize("Vishesh\tYADAV"))
}
