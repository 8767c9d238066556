package config

import (
	"context"
	"fmt"
	"log"
	"time"
	_ "time/tzdata" // SERIES_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Backoff between fetch retries: doubles from FetchBackoffInitial up to FetchBackoffMax.
const (
	FetchBackoffInitial = 500 * time.Millisecond
	FetchBackoffMax     = 5 * time.Second
)

type AppConfig struct {
	Port string `env:"PORT,default=8080"`

	// CountiesFile is the YAML file listing recognised counties.
	CountiesFile string `env:"COUNTIES_FILE,default=config/counties.yaml"`

	// Upstream feature service.
	ArcGISBaseURL     string        `env:"ARCGIS_BASE_URL,default=https://services2.arcgis.com/xtuWQvb2YQnp0z3F/arcgis/rest/services"`
	ResultRecordCount int           `env:"RESULT_RECORD_COUNT,default=32000"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT,default=10s"`
	FetchRetries      int           `env:"FETCH_RETRIES,default=1"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT,default=30s"`

	// Timezone record dates are computed in.
	Timezone string `env:"SERIES_TIMEZONE,default=UTC"`

	// DigestInterval controls how often county digests are refreshed (0 = disabled).
	DigestInterval   time.Duration `env:"DIGEST_INTERVAL,default=0s"`
	DigestMaxHistory int           `env:"DIGEST_MAX_HISTORY,default=24"`
	DigestMaxAge     time.Duration `env:"DIGEST_MAX_AGE,default=72h"`

	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
}

// Location resolves SERIES_TIMEZONE. Dates never depend on the host's zone.
func (c *AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// FetchBudget is the longest one upstream fetch can take: every attempt
// running to HTTP_TIMEOUT plus the backoff between them.
func (c *AppConfig) FetchBudget() time.Duration {
	budget := time.Duration(c.FetchRetries+1) * c.HTTPTimeout
	delay := FetchBackoffInitial
	for i := 0; i < c.FetchRetries; i++ {
		budget += delay
		delay *= 2
		if delay > FetchBackoffMax {
			delay = FetchBackoffMax
		}
	}
	return budget
}

// Load reads configuration from .env and the environment with sensible defaults.
func Load(ctx context.Context) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("invalid SERIES_TIMEZONE: %w", err)
	}

	if cfg.ResultRecordCount <= 0 {
		return nil, fmt.Errorf("RESULT_RECORD_COUNT must be positive, got %d", cfg.ResultRecordCount)
	}
	if cfg.FetchRetries < 0 {
		return nil, fmt.Errorf("FETCH_RETRIES must not be negative, got %d", cfg.FetchRetries)
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", cfg.HTTPTimeout)
	}
	if budget := cfg.FetchBudget(); cfg.RequestTimeout < budget {
		return nil, fmt.Errorf("REQUEST_TIMEOUT %s is shorter than the worst-case fetch %s (HTTP_TIMEOUT x attempts + backoff)", cfg.RequestTimeout, budget)
	}

	return cfg, nil
}
