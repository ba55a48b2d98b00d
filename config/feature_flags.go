package config

import (
	"hash/fnv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles for the explorer.
// Flags can be switched at runtime; readers observe the change on the next request.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Sessions are assigned based on hash of their ID
	RolloutPercent int
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	SessionID string
}

// Predefined feature flag names.
const (
	FeatureSearchFuzzy      = "search.fuzzy"       // Typo-tolerant suggestions
	FeatureSearchDedupe     = "search.dedupe"      // One suggestion per distinct name
	FeatureSpotlight        = "spotlight"          // Random student endpoint
	FeatureExportCSV        = "export.csv"         // CSV download
	FeatureDatasetHotReload = "dataset.hot_reload" // Reload the CSV on change
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	ff.loadFromEnvironment()
	return ff
}

// NewFeatureFlags returns the registry with default values only.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
	}
	ff.initializeDefaults()
	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureSearchFuzzy] = &Feature{
		Name:           FeatureSearchFuzzy,
		Description:    "Suggest names despite typos and partial tokens",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSearchDedupe] = &Feature{
		Name:           FeatureSearchDedupe,
		Description:    "Collapse suggestions with the same name",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSpotlight] = &Feature{
		Name:           FeatureSpotlight,
		Description:    "Random student spotlight",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureExportCSV] = &Feature{
		Name:           FeatureExportCSV,
		Description:    "Download the ranked table as CSV",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureDatasetHotReload] = &Feature{
		Name:           FeatureDatasetHotReload,
		Description:    "Watch the dataset file and reload on change",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_SEARCH_FUZZY=false
// Example: FEATURE_SPOTLIGHT=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}
		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// applyOverrides applies values from the config file (env still wins, applied later).
func (ff *FeatureFlags) applyOverrides(values map[string]bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	for name, enabled := range values {
		feature, ok := ff.features[name]
		if !ok {
			continue
		}
		feature.Enabled = enabled
		if enabled {
			feature.RolloutPercent = 100
		} else {
			feature.RolloutPercent = 0
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "dataset.hot_reload" -> "FEATURE_DATASET_HOT_RELOAD"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	if feature.RolloutPercent < 100 && ctx != nil && ctx.SessionID != "" {
		return isInRollout(ctx.SessionID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// Enabled checks a feature without a session context.
func (ff *FeatureFlags) Enabled(featureName string) bool {
	return ff.IsEnabled(featureName, nil)
}

// isInRollout determines if a session is in the rollout percentage.
// Uses consistent hashing so sessions stay in their bucket.
func isInRollout(sessionID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(sessionID))
	return int(h.Sum32()%100) < percent
}

// setRollout updates the rollout percentage for a feature.
func (ff *FeatureFlags) setRollout(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.setRollout(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.setRollout(featureName, 0)
}

// GetAllFeatures returns copies of all features sorted by name. The API root
// lists them.
func (ff *FeatureFlags) GetAllFeatures() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make([]Feature, 0, len(ff.features))
	for _, v := range ff.features {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// SearchToggles returns the fuzzy and dedupe switches for suggestions.
func (ff *FeatureFlags) SearchToggles() (fuzzy, dedupe bool) {
	return ff.Enabled(FeatureSearchFuzzy), ff.Enabled(FeatureSearchDedupe)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
