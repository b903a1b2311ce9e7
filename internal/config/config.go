// Package config holds all configuration types and loading logic for the
// bakery service. Fields are only added, never renamed or removed.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a bakery server instance.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Tables    TablesConfig    `yaml:"tables"`
	IDs       IDsConfig       `yaml:"ids"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Feed      FeedConfig      `yaml:"feed"`
	Notify    NotifyConfig    `yaml:"notify"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
	Seed      SeedConfig      `yaml:"seed"`
}

// ServerConfig holds network settings and the data directory.
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
	// MaxBodyKB caps request bodies.
	MaxBodyKB int `yaml:"max_body_kb"`
	// ShutdownTimeoutMs bounds graceful shutdown.
	ShutdownTimeoutMs int `yaml:"shutdown_timeout_ms"`
	// CORSOrigins lists the browser origins allowed to call the API. Empty
	// allows any origin.
	CORSOrigins []string `yaml:"cors_origins"`
}

// StorageConfig controls the bbolt snapshot file.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file"`
	// OpenTimeoutMs is how long to wait for the file lock held by another process.
	OpenTimeoutMs int `yaml:"open_timeout_ms"`
	// SaveIntervalMs writes a snapshot periodically; 0 saves only on shutdown.
	SaveIntervalMs int `yaml:"save_interval_ms"`
}

// TablesConfig sizes the account hash tables. Tables never resize.
type TablesConfig struct {
	CustomerBuckets int `yaml:"customer_buckets"`
	EmployeeBuckets int `yaml:"employee_buckets"`
}

// IDStrategy selects how record ids are generated.
type IDStrategy string

const (
	IDSequence IDStrategy = "sequence" // O1000, O1001, ... (default)
	IDULID     IDStrategy = "ulid"     // time-ordered ULIDs
)

// IDsConfig controls order and product id generation.
type IDsConfig struct {
	Strategy      IDStrategy `yaml:"strategy"`
	OrderPrefix   string     `yaml:"order_prefix"`
	OrderStart    int        `yaml:"order_start"`
	ProductPrefix string     `yaml:"product_prefix"`
	ProductStart  int        `yaml:"product_start"`
}

// AuthConfig controls API key authentication and password hashing.
type AuthConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

// RateLimitConfig sets per-client request limits.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	// Rate is requests per second per client IP.
	Rate int `yaml:"rate"`
	// Burst allows temporary spikes above Rate.
	Burst int `yaml:"burst"`
}

// CatalogConfig tunes catalogue lookups.
type CatalogConfig struct {
	SuggestLimit         int     `yaml:"suggest_limit"`
	SuggestMinSimilarity float64 `yaml:"suggest_min_similarity"`
}

// FeedConfig controls the fulfilment WebSocket feed.
type FeedConfig struct {
	// IntervalMs is the period of queue status frames.
	IntervalMs int `yaml:"interval_ms"`
}

// NotifyConfig controls shipment webhooks.
type NotifyConfig struct {
	// Webhooks are registered at start-up; more may be added over the API.
	Webhooks []WebhookConfig `yaml:"webhooks"`
	// Retries is how many times a failed delivery is retried.
	Retries int `yaml:"retries"`
	// BackoffMs is the delay before the first retry; it doubles each time.
	BackoffMs int `yaml:"backoff_ms"`
	// Buffer is the number of undelivered events kept per webhook.
	Buffer int `yaml:"buffer"`
	// TimeoutMs bounds one delivery request.
	TimeoutMs int `yaml:"timeout_ms"`
}

// WebhookConfig is one shipment webhook. Secret signs the body when set.
type WebhookConfig struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SeedConfig controls the default products added to an empty catalogue.
type SeedConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a Config populated with safe, sensible defaults.
// It is the canonical source of truth for default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			DataDir:           "./data",
			MaxBodyKB:         256,
			ShutdownTimeoutMs: 10_000,
		},
		Storage: StorageConfig{
			Enabled:        true,
			File:           "bakery.db",
			OpenTimeoutMs:  1_000,
			SaveIntervalMs: 60_000,
		},
		Tables: TablesConfig{
			CustomerBuckets: 20,
			EmployeeBuckets: 20,
		},
		IDs: IDsConfig{
			Strategy:      IDSequence,
			OrderPrefix:   "O",
			OrderStart:    1000,
			ProductPrefix: "P",
			ProductStart:  1000,
		},
		Auth: AuthConfig{
			Enabled:    false,
			APIKey:     "",
			BcryptCost: 10,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    50,
			Burst:   100,
		},
		Catalog: CatalogConfig{
			SuggestLimit:         5,
			SuggestMinSimilarity: 0.5,
		},
		Feed: FeedConfig{
			IntervalMs: 2_000,
		},
		Notify: NotifyConfig{
			Retries:   3,
			BackoffMs: 500,
			Buffer:    256,
			TimeoutMs: 10_000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Seed: SeedConfig{
			Enabled: true,
		},
	}
}

// Load reads a YAML config file at path and overlays it on top of Default().
// If the file does not exist the default config is returned without error.
//
// After loading the file, environment variables are applied as overrides:
//
//	BAKERY_API_KEY    sets auth.api_key and enables auth (auth.enabled = true)
//	BAKERY_DATA_DIR   sets server.data_dir
//	BAKERY_PORT       sets server.port
//	BAKERY_LOG_LEVEL  sets log.level
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays environment variable overrides onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("BAKERY_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
		cfg.Auth.Enabled = true
	}
	if v := os.Getenv("BAKERY_DATA_DIR"); v != "" {
		cfg.Server.DataDir = v
	}
	if v := os.Getenv("BAKERY_PORT"); v != "" {
		var p int
		if _, err := fmt.Sscanf(v, "%d", &p); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("BAKERY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
}

// Validate checks that the config values are consistent and within acceptable
// ranges. It returns the first error found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if c.Server.DataDir == "" {
		return errors.New("server.data_dir must not be empty")
	}
	if c.Server.MaxBodyKB < 1 {
		return errors.New("server.max_body_kb must be at least 1")
	}
	if c.Storage.Enabled && c.Storage.File == "" {
		return errors.New("storage.file must not be empty when storage is enabled")
	}
	if c.Storage.SaveIntervalMs < 0 {
		return errors.New("storage.save_interval_ms must be >= 0")
	}
	if c.Tables.CustomerBuckets < 1 || c.Tables.EmployeeBuckets < 1 {
		return errors.New("tables bucket counts must be at least 1")
	}
	switch c.IDs.Strategy {
	case IDSequence:
		if c.IDs.OrderPrefix == "" || c.IDs.ProductPrefix == "" {
			return errors.New("ids prefixes must not be empty for the sequence strategy")
		}
		if c.IDs.OrderPrefix == c.IDs.ProductPrefix {
			return errors.New("ids.order_prefix and ids.product_prefix must differ")
		}
	case IDULID:
		// valid
	default:
		return errors.New(`ids.strategy must be one of "sequence", "ulid"`)
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return errors.New("auth.api_key must be set when auth is enabled")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return errors.New("auth.bcrypt_cost must be between 4 and 31")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Rate < 1 || c.RateLimit.Burst < 1) {
		return errors.New("rate_limit.rate and rate_limit.burst must be at least 1")
	}
	if c.Catalog.SuggestLimit < 1 {
		return errors.New("catalog.suggest_limit must be at least 1")
	}
	if c.Catalog.SuggestMinSimilarity < 0 || c.Catalog.SuggestMinSimilarity > 1 {
		return errors.New("catalog.suggest_min_similarity must be between 0 and 1")
	}
	if c.Feed.IntervalMs < 100 {
		return errors.New("feed.interval_ms must be at least 100")
	}
	if c.Notify.Retries < 0 || c.Notify.BackoffMs < 0 {
		return errors.New("notify.retries and notify.backoff_ms must be >= 0")
	}
	if c.Notify.Buffer < 1 || c.Notify.TimeoutMs < 1 {
		return errors.New("notify.buffer and notify.timeout_ms must be at least 1")
	}
	for i, w := range c.Notify.Webhooks {
		if w.URL == "" {
			return fmt.Errorf("notify.webhooks[%d].url must not be empty", i)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return errors.New(`log.level must be one of "debug", "info", "warn", "error"`)
	}
	switch c.Log.Format {
	case "json", "text":
		// valid
	default:
		return errors.New(`log.format must be one of "json", "text"`)
	}
	return nil
}
