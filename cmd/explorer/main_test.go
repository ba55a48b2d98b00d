package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/rank-explorer/config"
	"github.com/alem-hub/rank-explorer/internal/application/query"
	"github.com/alem-hub/rank-explorer/internal/domain/leaderboard"
	"github.com/alem-hub/rank-explorer/internal/domain/shared"
)

const studentsCSV = `Regd No.,Name,State,Cgpa
12200001,Ann,Punjab,9.5
12200002,Bob,Bihar,9.5
12200003,Cal,Punjab,8.0
12200004,Vishesh Yadav,Haryana,7.25
`

// writeDataset writes the fixture table and isolates the command from the
// caller's environment.
func writeDataset(t *testing.T) string {
	t.Helper()

	t.Setenv(config.ConfigFileEnv, "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATASET_SOURCE", "")
	t.Setenv("REDIS_DISABLED", "true")
	t.Setenv("FEATURE_SPOTLIGHT", "")
	t.Setenv("FEATURE_EXPORT_CSV", "")

	path := filepath.Join(t.TempDir(), "students.csv")
	require.NoError(t, os.WriteFile(path, []byte(studentsCSV), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func TestTop_JSON(t *testing.T) {
	data := writeDataset(t)

	out, _, err := run(t, "--data", data, "top", "-n", "3", "-o", "json")
	require.NoError(t, err)

	entries := decode[[]query.StudentDTO](t, out)
	require.Len(t, entries, 3)
	assert.Equal(t, []int{1, 1, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})
	assert.Equal(t, "Ann", entries[0].Name)
	assert.Equal(t, "Cal", entries[2].Name)
}

func TestTop_Table(t *testing.T) {
	data := writeDataset(t)

	out, stderr, err := run(t, "--data", data, "top", "-n", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Top 2")
	assert.Contains(t, out, "Ann")
	assert.Contains(t, out, "Bob")
	assert.NotContains(t, out, "Cal")
	assert.Contains(t, out, "2 of 4 students")
	assert.Empty(t, stderr, "query commands log at warn by default")
}

func TestFilter(t *testing.T) {
	data := writeDataset(t)

	out, _, err := run(t, "--data", data, "filter", "--state", "punjab", "--min", "8", "-o", "json")
	require.NoError(t, err)

	entries := decode[[]query.StudentDTO](t, out)
	require.Len(t, entries, 2)
	assert.Equal(t, "12200001", entries[0].RegistrationID)
	assert.Equal(t, 3, entries[1].Rank, "ranks come from the full table")

	_, _, err = run(t, "--data", data, "filter", "--min", "9", "--max", "8")
	assert.Error(t, err)
}

func TestSearchAndSuggest(t *testing.T) {
	data := writeDataset(t)

	out, _, err := run(t, "--data", data, "search", "vishesh", "-o", "json")
	require.NoError(t, err)
	res := decode[query.SearchStudentsResult](t, out)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "12200004", res.Matches[0].RegistrationID)

	out, _, err = run(t, "--data", data, "search", "12200002", "-o", "json")
	require.NoError(t, err)
	res = decode[query.SearchStudentsResult](t, out)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "Bob", res.Matches[0].Name)

	out, _, err = run(t, "--data", data, "suggest", "Vishes", "-o", "json")
	require.NoError(t, err)
	sug := decode[query.SuggestNamesResult](t, out)
	require.NotEmpty(t, sug.Suggestions)
	assert.Equal(t, "Vishesh Yadav", sug.Suggestions[0].Name)
}

func TestCompare(t *testing.T) {
	data := writeDataset(t)

	out, _, err := run(t, "--data", data, "compare", "Ann", "Cal", "-o", "json")
	require.NoError(t, err)

	res := decode[query.CompareStudentsResult](t, out)
	assert.Equal(t, "a", res.Leader)
	assert.Equal(t, 2, res.RankGap)
	assert.InDelta(t, 1.5, res.CGPAGap, 1e-9)

	out, _, err = run(t, "--data", data, "compare", "Ann", "Bob")
	require.NoError(t, err)
	assert.Contains(t, out, "share rank 1")

	_, _, err = run(t, "--data", data, "compare", "Ann", "Nobody")
	assert.Error(t, err)
}

func TestRank(t *testing.T) {
	data := writeDataset(t)

	out, _, err := run(t, "--data", data, "rank", "12200003", "--neighbors", "1", "-o", "json")
	require.NoError(t, err)

	res := decode[query.StudentRankResult](t, out)
	assert.Equal(t, 3, res.Student.Rank)
	assert.Equal(t, 4, res.TotalStudents)
	require.Len(t, res.Above, 1)
	assert.Equal(t, "Bob", res.Above[0].Name)
	require.Len(t, res.Below, 1)
	assert.Equal(t, "Vishesh Yadav", res.Below[0].Name)
}

func TestStatistics(t *testing.T) {
	data := writeDataset(t)

	out, _, err := run(t, "--data", data, "stats", "-o", "json")
	require.NoError(t, err)
	summary := decode[leaderboard.Summary](t, out)
	assert.Equal(t, 4, summary.Count)
	assert.Equal(t, 3, summary.States)

	out, _, err = run(t, "--data", data, "histogram", "--bins", "4", "-o", "json")
	require.NoError(t, err)
	hist := decode[query.HistogramResult](t, out)
	require.Len(t, hist.Bins, 4)
	assert.Equal(t, 3, hist.Bins[3].Count)

	out, _, err = run(t, "--data", data, "states")
	require.NoError(t, err)
	assert.Contains(t, out, "Punjab")
	assert.Contains(t, out, "4 students in 3 states")
}

func TestExport(t *testing.T) {
	data := writeDataset(t)

	out, _, err := run(t, "--data", data, "export", "--state", "Punjab")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.ReplaceAll(out, "\r\n", "\n")), "\n")
	assert.Equal(t, []string{
		"Regd No.,Name,State,Cgpa,Rank",
		"12200001,Ann,Punjab,9.5,1",
		"12200003,Cal,Punjab,8,3",
	}, lines)

	target := filepath.Join(t.TempDir(), "out.csv")
	_, stderr, err := run(t, "--data", data, "export", "--file", target)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote 4 students to "+target)

	body, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(body), "12200004,Vishesh Yadav,Haryana,7.25,4")
}

func TestSpotlight_FeatureFlag(t *testing.T) {
	data := writeDataset(t)

	t.Setenv("FEATURE_SPOTLIGHT", "false")
	_, _, err := run(t, "--data", data, "spotlight")
	assert.ErrorIs(t, err, errFeatureDisabled)

	t.Setenv("FEATURE_SPOTLIGHT", "true")
	out, _, err := run(t, "--data", data, "spotlight", "-o", "json")
	require.NoError(t, err)
	res := decode[query.SpotlightResult](t, out)
	assert.Equal(t, 4, res.TotalCount)
	assert.NotEmpty(t, res.Student.RegistrationID)
}

func TestErrors(t *testing.T) {
	data := writeDataset(t)

	_, _, err := run(t, "--data", data, "top", "-o", "yaml")
	assert.ErrorContains(t, err, "unknown output format")

	_, _, err = run(t, "--data", filepath.Join(t.TempDir(), "missing.csv"), "top")
	assert.Error(t, err)

	_, _, err = run(t, "--data", data, "compare", "Ann")
	assert.Error(t, err, "compare takes exactly two names")
}

func TestServe_FailsWhenDatasetIsMissing(t *testing.T) {
	writeDataset(t)
	t.Setenv("HTTP_PORT", "")

	_, _, err := run(t, "--data", filepath.Join(t.TempDir(), "missing.csv"), "serve")
	require.Error(t, err)
	assert.True(t, shared.IsDataLoad(err), "got %v", err)
}
