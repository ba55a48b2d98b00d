package leaderboard

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/rank-explorer/internal/domain/shared"
	"github.com/alem-hub/rank-explorer/internal/domain/student"
)

func fixture() []student.Record {
	return []student.Record{
		{RegistrationID: "A1", Name: "Ann", State: "Punjab", CGPA: 9.5},
		{RegistrationID: "A2", Name: "Bob", State: "Bihar", CGPA: 9.5},
		{RegistrationID: "A3", Name: "Cal", State: "Punjab", CGPA: 8.0},
	}
}

func ranks(records []student.Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Rank
	}
	return out
}

func TestComputeRanks_Scenario(t *testing.T) {
	in := fixture()
	out := ComputeRanks(in)

	assert.Equal(t, []int{1, 1, 3}, ranks(out))
	// input untouched
	assert.Equal(t, []int{0, 0, 0}, ranks(in))
}

func TestComputeRanks_SkipsAfterTies(t *testing.T) {
	in := []student.Record{
		{RegistrationID: "1", Name: "a", CGPA: 7.0},
		{RegistrationID: "2", Name: "b", CGPA: 9.0},
		{RegistrationID: "3", Name: "c", CGPA: 9.0},
		{RegistrationID: "4", Name: "d", CGPA: 9.0},
		{RegistrationID: "5", Name: "e", CGPA: 8.5},
	}
	assert.Equal(t, []int{5, 1, 1, 1, 4}, ranks(ComputeRanks(in)))
}

func TestComputeRanks_Empty(t *testing.T) {
	assert.Empty(t, ComputeRanks(nil))
}

func randomTable(rng *rand.Rand, n int) []student.Record {
	out := make([]student.Record, n)
	for i := range out {
		// coarse grid so ties are common
		out[i] = student.Record{
			RegistrationID: string(rune('a' + i%26)),
			Name:           "s",
			CGPA:           float64(rng.IntN(21)) / 2,
		}
	}
	return out
}

func TestComputeRanks_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for iter := 0; iter < 200; iter++ {
		in := randomTable(rng, 1+rng.IntN(40))
		out := ComputeRanks(in)

		// idempotent
		again := ComputeRanks(out)
		if diff := cmp.Diff(out, again); diff != "" {
			t.Fatalf("not idempotent (-first +second):\n%s", diff)
		}

		best := out[0].CGPA
		for _, r := range out {
			if r.CGPA > best {
				best = r.CGPA
			}
		}

		for i := range out {
			if out[i].CGPA == best {
				require.Equal(t, 1, out[i].Rank)
			}
			for j := range out {
				if out[i].CGPA == out[j].CGPA {
					require.Equal(t, out[i].Rank, out[j].Rank)
				}
				if out[i].CGPA > out[j].CGPA {
					require.LessOrEqual(t, out[i].Rank, out[j].Rank)
				}
			}
		}
	}
}

func TestTable_Top(t *testing.T) {
	tbl := NewTable(fixture(), "v1")

	top := tbl.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, "Ann", top[0].Name)
	assert.Equal(t, "Bob", top[1].Name)

	assert.Len(t, tbl.Top(10), 3)
	assert.Empty(t, tbl.Top(0))
	assert.Empty(t, tbl.Top(-1))
	assert.Equal(t, "v1", tbl.Version())
}

func TestTable_ResultsDoNotAlias(t *testing.T) {
	tbl := NewTable(fixture(), "")

	top := tbl.Top(1)
	top[0].Name = "Mutated"
	recs := tbl.Records()
	recs[0].CGPA = 0

	assert.Equal(t, "Ann", tbl.Top(1)[0].Name)
	assert.Equal(t, 9.5, tbl.Records()[0].CGPA)
}

func TestTable_FilterByStateAndRange(t *testing.T) {
	tbl := NewTable(fixture(), "")

	got, err := tbl.FilterByStateAndRange("punjab", 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ann", got[0].Name)
	assert.Equal(t, "Cal", got[1].Name)

	got, err = tbl.FilterByStateAndRange("all", 9.5, 9.5)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = tbl.FilterByStateAndRange("", 0, 7)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = tbl.FilterByStateAndRange("", 9, 8)
	assert.True(t, shared.IsValidation(err))
}

func TestTable_States(t *testing.T) {
	tbl := NewTable(fixture(), "")
	assert.Equal(t, []string{"Bihar", "Punjab"}, tbl.States())
}

func TestRank_Medal(t *testing.T) {
	assert.Equal(t, "🥇", Rank(1).Medal())
	assert.Equal(t, "🥉", Rank(3).Medal())
	assert.Empty(t, Rank(4).Medal())
	assert.Empty(t, Rank(0).Medal())
}
