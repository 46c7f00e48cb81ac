// Package common provides shared utilities for Folio
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Folio
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Pricing     PricingConfig `toml:"pricing"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds SurrealDB connection configuration
type StorageConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	MarketData MarketDataConfig `toml:"market_data"`
	Gemini     GeminiConfig     `toml:"gemini"`
}

// MarketDataConfig holds market data API configuration
type MarketDataConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *MarketDataConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration.
// AlternateModel, when set, is the retry backend for rejected oracle replies.
type GeminiConfig struct {
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	AlternateModel string `toml:"alternate_model"`
	Timeout        string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GeminiConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 45 * time.Second
	}
	return d
}

// PricingConfig holds price-resolution policy settings.
// Tolerance and grain are policy constants, not derived invariants.
type PricingConfig struct {
	NearestWindowDays  int    `toml:"nearest_window_days"`
	SyntheticGrain     string `toml:"synthetic_grain"` // "weekly" or "daily"
	BackfillWindowDays int    `toml:"backfill_window_days"`
	RefreshInterval    string `toml:"refresh_interval"` // empty disables the scheduler
	FactsheetDir       string `toml:"factsheet_dir"`    // empty disables factsheet NAV lookup
}

// GetRefreshInterval parses the background refresh interval. Zero means the
// scheduler is disabled.
func (c *PricingConfig) GetRefreshInterval() time.Duration {
	if c.RefreshInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 0
	}
	return d
}

// SyntheticStepDays returns the point spacing in days for synthetic valuation curves.
func (c *PricingConfig) SyntheticStepDays() int {
	if c.SyntheticGrain == "daily" {
		return 1
	}
	return 7
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Address:   "ws://localhost:8000",
			Namespace: "folio",
			Database:  "folio",
			Username:  "root",
			Password:  "root",
		},
		Clients: ClientsConfig{
			MarketData: MarketDataConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model:          "gemini-2.0-flash",
				AlternateModel: "gemini-2.0-flash-lite",
				Timeout:        "45s",
			},
		},
		Pricing: PricingConfig{
			NearestWindowDays:  7,
			SyntheticGrain:     "weekly",
			BackfillWindowDays: 365,
			RefreshInterval:    "6h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FOLIO_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FOLIO_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if addr := os.Getenv("SURREALDB_URL"); addr != "" {
		config.Storage.Address = addr
	}
	if user := os.Getenv("SURREALDB_USER"); user != "" {
		config.Storage.Username = user
	}
	if pass := os.Getenv("SURREALDB_PASS"); pass != "" {
		config.Storage.Password = pass
	}

	for _, name := range []string{"EODHD_API_KEY", "FOLIO_MARKET_DATA_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			config.Clients.MarketData.APIKey = v
			break
		}
	}
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "FOLIO_GEMINI_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			config.Clients.Gemini.APIKey = v
			break
		}
	}
}

// ValidateRequired returns the names of required settings that are missing.
func (c *Config) ValidateRequired() []string {
	var missing []string
	if c.Clients.MarketData.APIKey == "" {
		missing = append(missing, "clients.market_data.api_key")
	}
	if c.Clients.Gemini.APIKey == "" {
		missing = append(missing, "clients.gemini.api_key")
	}
	if c.Storage.Address == "" {
		missing = append(missing, "storage.address")
	}
	return missing
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
