package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://api.coronavirus.data.gov.uk/v1/data", cfg.CovidAPIURL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 0, cfg.FetchMaxRetries)
	assert.Equal(t, 800, cfg.ChartWidth)
	assert.Equal(t, 500, cfg.ChartHeight)
	assert.Equal(t, "covid_trends", cfg.MetricsNamespace)
	assert.Equal(t, "New cases", cfg.Labels().Label("newCasesByPublishDate"))
	assert.Equal(t, "New deaths", cfg.Labels().Label("newDeaths28DaysByDeathDate"))
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"PORT":              "9000",
		"HTTP_TIMEOUT":      "3s",
		"FETCH_MAX_RETRIES": "2",
		"METRIC_LABELS":     "hospitalCases:Patients in hospital,newCasesByPublishDate:Cases",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 2, cfg.FetchMaxRetries)
	assert.Equal(t, "Patients in hospital", cfg.Labels().Label("hospitalCases"))
	assert.Equal(t, "Cases", cfg.Labels().Label("newCasesByPublishDate"))
	assert.Equal(t, "New deaths", cfg.Labels().Label("newDeaths28DaysByDeathDate"))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"bad duration":     {"HTTP_TIMEOUT": "soon"},
		"zero timeout":     {"HTTP_TIMEOUT": "0s"},
		"negative retries": {"FETCH_MAX_RETRIES": "-1"},
		"zero backoff":     {"FETCH_MAX_RETRIES": "1", "FETCH_BACKOFF_INITIAL": "0s"},
		"bad chart width":  {"CHART_WIDTH": "0"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := load(context.Background(), envconfig.MapLookuper(env))
			assert.Error(t, err)
		})
	}
}
