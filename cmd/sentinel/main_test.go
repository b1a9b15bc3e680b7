package main

import (
	"testing"

	"PriceSentinel/internal/collector"
	"PriceSentinel/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsApply(t *testing.T) {
	cfg := &config.Config{}
	cfg.DataSource.Period = "1mo"

	require.NoError(t, flags{ticker: "msft", start: "2024-01-01", end: "2024-02-01", threshold: "2.5", export: "{ticker}.xlsx"}.apply(cfg))
	assert.Equal(t, "msft", cfg.DataSource.Ticker)
	assert.Equal(t, collector.DateRange("2024-01-01", "2024-02-01"), cfg.Range())
	require.NotNil(t, cfg.Alert.Threshold)
	assert.Equal(t, 2.5, *cfg.Alert.Threshold)
	assert.Equal(t, "{ticker}.xlsx", cfg.Export.File)

	require.NoError(t, flags{period: "6mo"}.apply(cfg))
	assert.Equal(t, collector.PeriodRange("6mo"), cfg.Range())

	assert.Error(t, flags{threshold: "five"}.apply(cfg))
}

func TestNewFetcher(t *testing.T) {
	for provider, want := range map[string]string{
		"yahoo": "yahoo", "financego": "financego", "rest": "rest", "csv": "csv", "mock": "mock",
	} {
		cfg := &config.Config{}
		cfg.DataSource.Provider = provider
		assert.Equal(t, want, newFetcher(cfg).Name(), provider)
	}
}
