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
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "geoapify", cfg.Places.Provider)
	assert.Equal(t, "Bhubaneswar, Odisha, India", cfg.Geolocation.DefaultPlace)
	assert.Equal(t, 10, cfg.Search.ResultThreshold)
	assert.Equal(t, 0.001, cfg.Search.DedupeThresholdDeg)
	assert.Equal(t, time.Duration(0), cfg.Search.RequestTimeout)
	assert.Empty(t, cfg.Search.Strategies)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
}

func TestLoad_SearchOverrides(t *testing.T) {
	t.Setenv("SEARCH_RESULT_THRESHOLD", "4")
	t.Setenv("SEARCH_DEDUPE_THRESHOLD_DEG", "0.0005")
	t.Setenv("SEARCH_REQUEST_TIMEOUT", "3s")
	t.Setenv("ALLOWED_ORIGINS", "https://gramaarogya.in, http://localhost:3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Search.ResultThreshold)
	assert.Equal(t, 0.0005, cfg.Search.DedupeThresholdDeg)
	assert.Equal(t, 3*time.Second, cfg.Search.RequestTimeout)
	assert.Equal(t, []string{"https://gramaarogya.in", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
}

func TestLoad_SharedAPIKey(t *testing.T) {
	t.Setenv("PLACES_API_KEY", "geo-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "geo-key", cfg.Geolocation.APIKey)
}

func TestLoad_RejectsNonPositiveThreshold(t *testing.T) {
	t.Setenv("SEARCH_RESULT_THRESHOLD", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_StrategiesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
strategies:
  - name: nearby-specialists
    scope: specific
    radius_meters: 3000
    limit: 20
    use_term: true
  - name: district
    scope: broad
    radius_meters: 50000
    limit: 50
`), 0o600))
	t.Setenv("STRATEGIES_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Search.Strategies, 2)
	assert.Equal(t, StrategyConfig{Name: "nearby-specialists", Scope: "specific", RadiusMeters: 3000, Limit: 20, UseTerm: true}, cfg.Search.Strategies[0])
	assert.Equal(t, "broad", cfg.Search.Strategies[1].Scope)
	assert.False(t, cfg.Search.Strategies[1].UseTerm)
}

func TestParseStrategies_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "empty", yaml: "strategies: []"},
		{name: "bad radius", yaml: "strategies:\n  - name: a\n    scope: broad\n    radius_meters: 0\n"},
		{name: "bad scope", yaml: "strategies:\n  - name: a\n    scope: galaxy\n    radius_meters: 10\n"},
		{name: "not yaml", yaml: "strategies: [::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStrategies([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
