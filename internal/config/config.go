package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/i474232898/covid-trends/internal/covid"
)

type AppConfig struct {
	Port string `env:"PORT,default=8080"`

	// Upstream data provider.
	CovidAPIURL string        `env:"COVID_API_URL,default=https://api.coronavirus.data.gov.uk/v1/data"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT,default=15s"`

	// Retries are off by default: one fetch attempt per request.
	FetchMaxRetries     int           `env:"FETCH_MAX_RETRIES,default=0"`
	FetchBackoffInitial time.Duration `env:"FETCH_BACKOFF_INITIAL,default=500ms"`
	FetchBackoffMax     time.Duration `env:"FETCH_BACKOFF_MAX,default=5s"`

	// MetricLabels extends/overrides covid.DefaultLabels, e.g.
	// METRIC_LABELS="hospitalCases:Patients in hospital,newCasesByPublishDate:Cases".
	MetricLabels map[string]string `env:"METRIC_LABELS"`

	ChartWidth  int `env:"CHART_WIDTH,default=800"`
	ChartHeight int `env:"CHART_HEIGHT,default=500"`

	MetricsNamespace string `env:"METRICS_NAMESPACE,default=covid_trends"`

	labels covid.Labels
}

// Labels returns the label table resolved at load time.
func (c *AppConfig) Labels() covid.Labels {
	return c.labels
}

// LoadDotEnv loads a .env file if present.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
}

// Load reads configuration from the environment with sensible defaults.
func Load(ctx context.Context) (*AppConfig, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must be positive, got %s", cfg.HTTPTimeout)
	}
	if cfg.FetchMaxRetries < 0 {
		return nil, fmt.Errorf("invalid FETCH_MAX_RETRIES: must not be negative, got %d", cfg.FetchMaxRetries)
	}
	if cfg.FetchMaxRetries > 0 && cfg.FetchBackoffInitial <= 0 {
		return nil, fmt.Errorf("invalid FETCH_BACKOFF_INITIAL: must be positive when retries are enabled")
	}
	if cfg.ChartWidth <= 0 || cfg.ChartHeight <= 0 {
		return nil, fmt.Errorf("invalid chart size %dx%d", cfg.ChartWidth, cfg.ChartHeight)
	}

	cfg.labels = covid.NewLabels(covid.DefaultLabels, cfg.MetricLabels)

	return cfg, nil
}
