package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "sheets", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Store.WriteAttempts)
	assert.Equal(t, 2000, cfg.Store.WriteBackoffMS)
	assert.Equal(t, 8, cfg.Listing.MaxPerQuery)
	assert.Equal(t, 10, cfg.Enrich.Concurrency)
	assert.Equal(t, 3, cfg.Enrich.PositiveThreshold)
	assert.Equal(t, 1, cfg.Enrich.ProblemThreshold)
	assert.Equal(t, FilterOrderAcceptThenDedup, cfg.Filters.Order)
	assert.Equal(t, 587, cfg.Mail.SMTPPort)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LEADSWEEP_ENRICH_CONCURRENCY", "4")
	t.Setenv("LEADSWEEP_FILTERS_ORDER", FilterOrderDedupThenAccept)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Enrich.Concurrency)
	assert.Equal(t, FilterOrderDedupThenAccept, cfg.Filters.Order)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:   StoreConfig{WriteAttempts: 5},
			Listing: ListingConfig{MinDelayMS: 100, MaxDelayMS: 300},
			Enrich:  EnrichConfig{Concurrency: 10, PositiveThreshold: 3, ProblemThreshold: 1},
			Filters: FilterConfig{Order: FilterOrderAcceptThenDedup},
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted delay bounds", func(c *Config) { c.Listing.MinDelayMS = 500 }},
		{"zero concurrency", func(c *Config) { c.Enrich.Concurrency = 0 }},
		{"zero problem threshold", func(c *Config) { c.Enrich.ProblemThreshold = 0 }},
		{"unknown filter order", func(c *Config) { c.Filters.Order = "accept_only" }},
		{"zero write attempts", func(c *Config) { c.Store.WriteAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
