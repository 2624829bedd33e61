package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full process configuration, loaded from environment
// variables with optional .env overrides for local development.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
	Sentry     SentryConfig
	Stream     StreamConfig
	Monitor    MonitorConfig
	Symbols    SymbolsConfig
	Sentiment  SentimentConfig
	API        APIConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"chatwatch"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"chatwatch"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"chatwatch"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	// DSN is empty when the activity journal is disabled.
	DSN string `envconfig:"CLICKHOUSE_DSN"`
}

type RedisConfig struct {
	// Addr is empty when the symbol cache is disabled.
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type SentryConfig struct {
	DSN         string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// StreamConfig describes the upstream chat platform endpoints.
type StreamConfig struct {
	WSURL   string `envconfig:"STREAM_WS_URL" required:"true"`
	HTTPURL string `envconfig:"STREAM_HTTP_URL" required:"true"`
	APIKey  string `envconfig:"STREAM_API_KEY"`

	// SourceIDs lists the chat identifiers to monitor.
	SourceIDs []int64 `envconfig:"STREAM_SOURCE_IDS" required:"true"`
}

// MonitorConfig carries the resilience timing knobs. Defaults match the
// production deployment this service replaced.
type MonitorConfig struct {
	// StallThreshold is how long without any push event before the stream
	// counts as stalled.
	StallThreshold time.Duration `envconfig:"MONITOR_STALL_THRESHOLD" default:"30m"`

	// WatchdogInterval is how often the watchdog evaluates stream liveness.
	WatchdogInterval time.Duration `envconfig:"MONITOR_WATCHDOG_INTERVAL" default:"1m"`

	// PollInterval is the cadence of the independent poll fallback.
	PollInterval time.Duration `envconfig:"MONITOR_POLL_INTERVAL" default:"5m"`

	// PollBatchLimit caps items fetched per source per poll cycle.
	PollBatchLimit int `envconfig:"MONITOR_POLL_BATCH_LIMIT" default:"200"`

	// MinResyncInterval rate-limits watchdog-triggered resyncs per source.
	MinResyncInterval time.Duration `envconfig:"MONITOR_MIN_RESYNC_INTERVAL" default:"5m"`

	// HealthInterval is the cadence of health snapshot writes.
	HealthInterval time.Duration `envconfig:"MONITOR_HEALTH_INTERVAL" default:"1m"`

	// HealthPath is where the JSON health snapshot lands.
	HealthPath string `envconfig:"MONITOR_HEALTH_PATH" default:"monitor_health.json"`
}

type SymbolsConfig struct {
	// DirectoryURL is empty when symbol lookup is disabled.
	DirectoryURL string        `envconfig:"SYMBOLS_DIRECTORY_URL"`
	Timeout      time.Duration `envconfig:"SYMBOLS_TIMEOUT" default:"5s"`
	CacheTTL     time.Duration `envconfig:"SYMBOLS_CACHE_TTL" default:"1h"`
}

type SentimentConfig struct {
	// ClassifierURL is empty when the external classifier is disabled;
	// the keyword fallback still runs.
	ClassifierURL string        `envconfig:"SENTIMENT_CLASSIFIER_URL"`
	Timeout       time.Duration `envconfig:"SENTIMENT_TIMEOUT" default:"5s"`
}

type APIConfig struct {
	Addr string `envconfig:"API_ADDR" default:":8080"`
}

// Load reads configuration from environment variables. A .env file is
// loaded first when present, for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails fast on values that would only break at runtime.
func (c *Config) Validate() error {
	m := c.Monitor
	if m.StallThreshold <= 0 {
		return fmt.Errorf("monitor stall threshold must be positive, got %s", m.StallThreshold)
	}
	if m.WatchdogInterval <= 0 {
		return fmt.Errorf("monitor watchdog interval must be positive, got %s", m.WatchdogInterval)
	}
	if m.PollInterval <= 0 {
		return fmt.Errorf("monitor poll interval must be positive, got %s", m.PollInterval)
	}
	if m.PollBatchLimit <= 0 {
		return fmt.Errorf("monitor poll batch limit must be positive, got %d", m.PollBatchLimit)
	}
	if m.MinResyncInterval <= 0 {
		return fmt.Errorf("monitor min resync interval must be positive, got %s", m.MinResyncInterval)
	}
	if m.HealthInterval <= 0 {
		return fmt.Errorf("monitor health interval must be positive, got %s", m.HealthInterval)
	}
	if m.WatchdogInterval > m.StallThreshold {
		return fmt.Errorf("watchdog interval %s exceeds stall threshold %s", m.WatchdogInterval, m.StallThreshold)
	}
	return nil
}
