package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Catalog.SearchLimit)
	assert.Equal(t, 18, cfg.Barcode.StaleMonthsFood)
	assert.Equal(t, 36, cfg.Barcode.StaleMonthsOther)
	assert.Equal(t, 0.8, cfg.Registry.FuzzyThreshold)
	assert.Equal(t, 100, cfg.Registry.FuzzyCandidates)
	assert.Equal(t, 10*time.Minute, cfg.Registry.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.Patterns.TimeWindow)
	assert.Equal(t, 2, cfg.Patterns.MinOccurrences)
	assert.Equal(t, 30, cfg.Patterns.LookbackDays)
	assert.Equal(t, 0.7, cfg.Templates.MatchThreshold)
	assert.Equal(t, 30*time.Second, cfg.Extraction.Timeout)
	assert.Equal(t, 70.0, cfg.Extraction.MinConfidence)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/voicelog")
	t.Setenv("APP_PATTERNS_MIN_OCCURRENCES", "3")
	t.Setenv("APP_REGISTRY_FUZZY_THRESHOLD", "0.9")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/voicelog", cfg.Database.URL)
	assert.Equal(t, 3, cfg.Patterns.MinOccurrences)
	assert.Equal(t, 0.9, cfg.Registry.FuzzyThreshold)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "Missing port", modify: func(c *Config) { c.Server.Port = 0 }},
		{name: "Zero search limit", modify: func(c *Config) { c.Catalog.SearchLimit = 0 }},
		{name: "Zero staleness window", modify: func(c *Config) { c.Barcode.StaleMonthsFood = 0 }},
		{name: "Fuzzy threshold above one", modify: func(c *Config) { c.Registry.FuzzyThreshold = 1.5 }},
		{name: "Zero time window", modify: func(c *Config) { c.Patterns.TimeWindow = 0 }},
		{name: "Zero min occurrences", modify: func(c *Config) { c.Patterns.MinOccurrences = 0 }},
		{name: "Zero lookback", modify: func(c *Config) { c.Patterns.LookbackDays = 0 }},
		{name: "Unknown timezone", modify: func(c *Config) { c.Patterns.Timezone = "Mars/Olympus" }},
		{name: "Zero match threshold", modify: func(c *Config) { c.Templates.MatchThreshold = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, PatternsConfig{Timezone: "UTC"}.Location())
	assert.Equal(t, time.UTC, PatternsConfig{Timezone: "Nowhere/Special"}.Location())
}
