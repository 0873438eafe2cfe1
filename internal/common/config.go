package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment" validate:"omitempty,oneof=development production"`
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	Scraper     ScraperConfig     `toml:"scraper"`
	Scheduler   SchedulerConfig   `toml:"scheduler"`
	Marketplace MarketplaceConfig `toml:"marketplace"`
	Proxy       ProxyConfig       `toml:"proxy"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output" validate:"dive,oneof=stdout console file"`
	TimeFormat string   `toml:"time_format"`
}

// ScraperConfig controls the ingestion pipeline
type ScraperConfig struct {
	BatchLimit      int    `toml:"batch_limit" validate:"min=1"`   // Max due items processed per invocation
	Concurrency     int    `toml:"concurrency" validate:"min=1"`   // Worker pool size (1 = sequential)
	AdapterTimeout  string `toml:"adapter_timeout"`                // e.g. "2m" - per-adapter-call timeout
	RequestDelay    string `toml:"request_delay"`                  // e.g. "500ms" - per-domain delay for website fetches
	UserAgent       string `toml:"user_agent" validate:"required"` // User agent for website fetches
	MaxBodySize     int64  `toml:"max_body_size" validate:"min=1"` // Max response bytes read per website fetch
	DefaultPriority int    `toml:"default_priority"`               // Priority for scheduler-created queue items
}

// SchedulerConfig controls the recurring enqueue-and-process cycle
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format, e.g. "*/5 * * * *"
}

// MarketplaceConfig configures the social-marketplace API adapter.
// The API token is environment-provided, never stored in the config file.
type MarketplaceConfig struct {
	BaseURL       string `toml:"base_url"`
	Region        string `toml:"region"`
	Query         string `toml:"query"`
	RatePerSecond int    `toml:"rate_per_second" validate:"min=1"`
	APIToken      string `toml:"-"` // From PROPSTREAM_MARKETPLACE_TOKEN
}

// ProxyConfig configures the outbound proxy for website fetches.
// Credentials are environment-provided, never stored in the config file.
type ProxyConfig struct {
	URL      string `toml:"-"` // From PROPSTREAM_PROXY_URL
	Username string `toml:"-"` // From PROPSTREAM_PROXY_USERNAME
	Password string `toml:"-"` // From PROPSTREAM_PROXY_PASSWORD
}

// DefaultConfig returns the configuration defaults applied before any file
// or environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/propstream",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Scraper: ScraperConfig{
			BatchLimit:      5,
			Concurrency:     1,
			AdapterTimeout:  "2m",
			RequestDelay:    "500ms",
			UserAgent:       "propstream/1.0",
			MaxBodySize:     10 * 1024 * 1024,
			DefaultPriority: 5,
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Schedule: "*/5 * * * *",
		},
		Marketplace: MarketplaceConfig{
			BaseURL:       "https://graph.marketplace.example.com",
			Region:        "minsk",
			Query:         "apartment",
			RatePerSecond: 5,
		},
	}
}

// LoadConfig loads configuration in priority order:
// defaults -> config file -> .env file -> environment variables.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Local development secrets; missing .env is not an error
	_ = godotenv.Load()

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against struct-level validation rules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := c.Scraper.GetAdapterTimeout(); err != nil {
		return fmt.Errorf("invalid scraper.adapter_timeout: %w", err)
	}
	if _, err := c.Scraper.GetRequestDelay(); err != nil {
		return fmt.Errorf("invalid scraper.request_delay: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PROPSTREAM_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("PROPSTREAM_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PROPSTREAM_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("PROPSTREAM_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("PROPSTREAM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if limit := os.Getenv("PROPSTREAM_SCRAPER_BATCH_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.Scraper.BatchLimit = n
		}
	}
	if concurrency := os.Getenv("PROPSTREAM_SCRAPER_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil {
			config.Scraper.Concurrency = n
		}
	}
	if timeout := os.Getenv("PROPSTREAM_SCRAPER_ADAPTER_TIMEOUT"); timeout != "" {
		config.Scraper.AdapterTimeout = timeout
	}

	if schedule := os.Getenv("PROPSTREAM_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}

	if baseURL := os.Getenv("PROPSTREAM_MARKETPLACE_BASE_URL"); baseURL != "" {
		config.Marketplace.BaseURL = baseURL
	}
	config.Marketplace.APIToken = os.Getenv("PROPSTREAM_MARKETPLACE_TOKEN")

	config.Proxy.URL = os.Getenv("PROPSTREAM_PROXY_URL")
	config.Proxy.Username = os.Getenv("PROPSTREAM_PROXY_USERNAME")
	config.Proxy.Password = os.Getenv("PROPSTREAM_PROXY_PASSWORD")
}

// GetAdapterTimeout parses the per-adapter-call timeout.
func (s *ScraperConfig) GetAdapterTimeout() (time.Duration, error) {
	if s.AdapterTimeout == "" {
		return 2 * time.Minute, nil
	}
	return time.ParseDuration(s.AdapterTimeout)
}

// GetRequestDelay parses the per-domain request delay for website fetches.
func (s *ScraperConfig) GetRequestDelay() (time.Duration, error) {
	if s.RequestDelay == "" {
		return 500 * time.Millisecond, nil
	}
	return time.ParseDuration(s.RequestDelay)
}
