package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceCSV, cfg.Dataset.Source)
	assert.Equal(t, "students.csv", cfg.Dataset.Path)
	assert.Equal(t, 5, cfg.Search.SuggestLimit)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Address())
	assert.True(t, cfg.Redis.Disabled)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.Features.Enabled(FeatureSearchFuzzy))
	assert.False(t, cfg.Features.Enabled(FeatureDatasetHotReload))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("DATASET_PATH", "/data/ranks.csv")
	t.Setenv("SEARCH_SUGGEST_LIMIT", "8")
	t.Setenv("SEARCH_MIN_SCORE", "0.7")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("FEATURE_SEARCH_FUZZY", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/ranks.csv", cfg.Dataset.Path)
	assert.Equal(t, 8, cfg.Search.SuggestLimit)
	assert.Equal(t, 0.7, cfg.Search.MinScore)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.False(t, cfg.Features.Enabled(FeatureSearchFuzzy))
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "explorer.yaml")
	body := `
dataset:
  path: from-file.csv
  watch_debounce: 1s
search:
  suggest_limit: 7
session:
  ttl: 30m
features:
  spotlight: false
  dataset.hot_reload: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("SEARCH_SUGGEST_LIMIT", "9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file.csv", cfg.Dataset.Path)
	assert.Equal(t, time.Second, cfg.Dataset.WatchDebounce)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 9, cfg.Search.SuggestLimit, "env wins over the file")
	assert.False(t, cfg.Features.Enabled(FeatureSpotlight))
	assert.True(t, cfg.Features.Enabled(FeatureDatasetHotReload))
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unclosed"), 0o600))
	t.Setenv(ConfigFileEnv, path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"unknown source", func(c *Config) { c.Dataset.Source = "s3" }, "Dataset.Source"},
		{"csv without path", func(c *Config) { c.Dataset.Path = " " }, "DATASET_PATH"},
		{"postgres without url", func(c *Config) { c.Dataset.Source = SourcePostgres }, "DATABASE_URL"},
		{"suggest limit too large", func(c *Config) { c.Search.SuggestLimit = 500 }, "Search.SuggestLimit"},
		{"bad log level", func(c *Config) { c.Observability.LogLevel = "loud" }, "Observability.LogLevel"},
		{"port out of range", func(c *Config) { c.HTTP.Port = 70000 }, "HTTP.Port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
