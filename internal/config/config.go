// Package config loads service configuration from YAML with
// environment-variable overrides for credentials and endpoints.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the metrics service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Shopify  ShopifyConfig  `yaml:"shopify"`
	Meta     MetaConfig     `yaml:"meta"`
	Google   GoogleConfig   `yaml:"google"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection used for notifications and
// sync locks. An empty Addr disables Redis; locking then falls back
// to Postgres advisory locks and notifications are skipped.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// ShopifyConfig holds commerce-platform client settings. Per-brand
// shop domains and tokens come from the credential store, not here.
type ShopifyConfig struct {
	APIVersion      string `yaml:"api_version"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	MaxRetries      int    `yaml:"max_retries"`
	PageDelayMillis int    `yaml:"page_delay_millis"`
	PageSize        int    `yaml:"page_size"`
}

// Timeout returns the HTTP client timeout.
func (c ShopifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PageDelay returns the pause between paginated requests.
func (c ShopifyConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMillis) * time.Millisecond
}

// MetaConfig holds social-ads API client settings.
type MetaConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIVersion     string `yaml:"api_version"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the HTTP client timeout.
func (c MetaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GoogleConfig holds search-ads API client settings. ClientID/Secret
// and the developer token are app-level; per-brand refresh tokens come
// from the credential store.
type GoogleConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIVersion     string `yaml:"api_version"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	DeveloperToken string `yaml:"developer_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	AuthRetries    int    `yaml:"auth_retries"`
}

// Timeout returns the HTTP client timeout.
func (c GoogleConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PipelineConfig tunes the chunker and orchestrator. These used to be
// magic constants; keeping them here lets tests run the chunker with
// tiny fan-out and windows.
type PipelineConfig struct {
	OrderWindowDays      int    `yaml:"order_window_days"`
	BatchWindowDays      int    `yaml:"batch_window_days"`
	MaxConcurrentWindows int    `yaml:"max_concurrent_windows"`
	RetryBaseDelayMillis int    `yaml:"retry_base_delay_millis"`
	LockTTLMinutes       int    `yaml:"lock_ttl_minutes"`
	DebugLogDir          string `yaml:"debug_log_dir"`
}

// RetryBaseDelay returns the base delay for linear HTTP backoff.
func (c PipelineConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMillis) * time.Millisecond
}

// LockTTL returns the per-brand sync lock TTL.
func (c PipelineConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMinutes) * time.Minute
}

// Load reads the YAML config at path and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadFromEnv loads the YAML config then overlays environment
// variables (a .env file is honored when present) for anything
// deploy-specific or secret.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("GOOGLE_ADS_CLIENT_ID"); v != "" {
		cfg.Google.ClientID = v
	}
	if v := os.Getenv("GOOGLE_ADS_CLIENT_SECRET"); v != "" {
		cfg.Google.ClientSecret = v
	}
	if v := os.Getenv("GOOGLE_ADS_DEVELOPER_TOKEN"); v != "" {
		cfg.Google.DeveloperToken = v
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "metrics:sync"
	}
	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2024-01"
	}
	if cfg.Shopify.TimeoutSeconds == 0 {
		cfg.Shopify.TimeoutSeconds = 30
	}
	if cfg.Shopify.MaxRetries == 0 {
		cfg.Shopify.MaxRetries = 3
	}
	if cfg.Shopify.PageDelayMillis == 0 {
		cfg.Shopify.PageDelayMillis = 500
	}
	if cfg.Shopify.PageSize == 0 {
		cfg.Shopify.PageSize = 250
	}
	if cfg.Meta.BaseURL == "" {
		cfg.Meta.BaseURL = "https://graph.facebook.com"
	}
	if cfg.Meta.APIVersion == "" {
		cfg.Meta.APIVersion = "v19.0"
	}
	if cfg.Meta.TimeoutSeconds == 0 {
		cfg.Meta.TimeoutSeconds = 60
	}
	if cfg.Meta.MaxRetries == 0 {
		cfg.Meta.MaxRetries = 3
	}
	if cfg.Google.BaseURL == "" {
		cfg.Google.BaseURL = "https://googleads.googleapis.com"
	}
	if cfg.Google.APIVersion == "" {
		cfg.Google.APIVersion = "v16"
	}
	if cfg.Google.TimeoutSeconds == 0 {
		cfg.Google.TimeoutSeconds = 60
	}
	if cfg.Google.MaxRetries == 0 {
		cfg.Google.MaxRetries = 3
	}
	if cfg.Google.AuthRetries == 0 {
		cfg.Google.AuthRetries = 2
	}
	if cfg.Pipeline.OrderWindowDays == 0 {
		cfg.Pipeline.OrderWindowDays = 7
	}
	if cfg.Pipeline.BatchWindowDays == 0 {
		cfg.Pipeline.BatchWindowDays = 120
	}
	if cfg.Pipeline.MaxConcurrentWindows == 0 {
		cfg.Pipeline.MaxConcurrentWindows = 3
	}
	if cfg.Pipeline.RetryBaseDelayMillis == 0 {
		cfg.Pipeline.RetryBaseDelayMillis = 1000
	}
	if cfg.Pipeline.LockTTLMinutes == 0 {
		cfg.Pipeline.LockTTLMinutes = 30
	}
}
