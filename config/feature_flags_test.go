package config

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureNameToEnvKey(t *testing.T) {
	assert.Equal(t, "FEATURE_DATASET_HOT_RELOAD", featureNameToEnvKey(FeatureDatasetHotReload))
	assert.Equal(t, "FEATURE_EXPORT_CSV", featureNameToEnvKey(FeatureExportCSV))
}

func TestLoadFeatureFlags_Environment(t *testing.T) {
	t.Setenv("FEATURE_SPOTLIGHT", "false")
	t.Setenv("FEATURE_DATASET_HOT_RELOAD", "true")
	t.Setenv("FEATURE_EXPORT_CSV", "not-a-bool")

	ff := LoadFeatureFlags()

	assert.False(t, ff.Enabled(FeatureSpotlight))
	assert.True(t, ff.Enabled(FeatureDatasetHotReload))
	assert.True(t, ff.Enabled(FeatureExportCSV), "unparseable value keeps the default")
}

func TestFeatureFlags_Rollout(t *testing.T) {
	t.Setenv("FEATURE_SPOTLIGHT", "50")
	ff := LoadFeatureFlags()

	enabled := 0
	for i := 0; i < 1000; i++ {
		ctx := &FeatureContext{SessionID: fmt.Sprintf("session-%d", i)}
		if ff.IsEnabled(FeatureSpotlight, ctx) {
			enabled++
		}
		// assignment is sticky
		assert.Equal(t, ff.IsEnabled(FeatureSpotlight, ctx), ff.IsEnabled(FeatureSpotlight, ctx))
	}
	assert.InDelta(t, 500, enabled, 100)

	// without a session a partial rollout counts as on
	assert.True(t, ff.Enabled(FeatureSpotlight))
}

func TestFeatureFlags_EnableDisable(t *testing.T) {
	ff := NewFeatureFlags()
	require.NoError(t, ff.DisableFeature(FeatureExportCSV))

	ctx := &FeatureContext{SessionID: "s1"}
	assert.False(t, ff.IsEnabled(FeatureExportCSV, ctx))
	assert.False(t, ff.Enabled(FeatureExportCSV))

	require.NoError(t, ff.EnableFeature(FeatureExportCSV))
	assert.True(t, ff.IsEnabled(FeatureExportCSV, ctx))
}

func TestFeatureFlags_Errors(t *testing.T) {
	ff := NewFeatureFlags()
	assert.ErrorIs(t, ff.EnableFeature("nope"), ErrFeatureNotFound)
	assert.ErrorIs(t, ff.setRollout(FeatureSpotlight, 101), ErrInvalidRolloutPercent)
	assert.False(t, ff.Enabled("nope"))
}

func TestFeatureFlags_Defaults(t *testing.T) {
	ff := NewFeatureFlags()
	assert.True(t, ff.Enabled(FeatureSpotlight))
	assert.True(t, ff.Enabled(FeatureExportCSV))
	assert.False(t, ff.Enabled(FeatureDatasetHotReload))
}

func TestFeatureFlags_SearchToggles(t *testing.T) {
	ff := NewFeatureFlags()
	fuzzy, dedupe := ff.SearchToggles()
	assert.True(t, fuzzy)
	assert.True(t, dedupe)

	require.NoError(t, ff.DisableFeature(FeatureSearchDedupe))
	_, dedupe = ff.SearchToggles()
	assert.False(t, dedupe)

	names := make([]string, 0)
	for _, f := range ff.GetAllFeatures() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"dataset.hot_reload", "export.csv", "search.dedupe", "search.fuzzy", "spotlight"}, names)
}
