// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Store   StoreConfig   `mapstructure:"store"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Server  ServerConfig  `mapstructure:"server"`
	Sample  SampleConfig  `mapstructure:"sample"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig locates the open-access API and carries its credential.
type APIConfig struct {
	Root      string `mapstructure:"root"`
	Key       string `mapstructure:"key"`
	UserAgent string `mapstructure:"user_agent"`
}

// SearchEndpoint returns the search URL under the API root.
func (c APIConfig) SearchEndpoint() string {
	return strings.TrimSuffix(c.Root, "/") + "/search"
}

// UnitsEndpoint returns the unit-code terms URL under the API root.
func (c APIConfig) UnitsEndpoint() string {
	return strings.TrimSuffix(c.Root, "/") + "/terms/unit_code"
}

// CrawlConfig governs the sharded sweep and request pacing.
type CrawlConfig struct {
	HashPrefixLength       int `mapstructure:"hash_prefix_length"`
	PageLimit              int `mapstructure:"page_limit"`
	Retries                int `mapstructure:"retries"`
	DelaySeconds           int `mapstructure:"delay_seconds"`
	TimeoutSeconds         int `mapstructure:"timeout_seconds"`
	MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures"`
}

// Delay converts the configured pacing interval into a duration.
func (c CrawlConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}

// Timeout converts the configured per-request timeout into a duration.
func (c CrawlConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StoreConfig selects and configures the image store provider.
type StoreConfig struct {
	Provider string         `mapstructure:"provider"`
	Prefix   string         `mapstructure:"prefix"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig controls the Postgres image store.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// StorageConfig selects and configures the blob storage provider.
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
}

// PubSubConfig holds metadata for commit-event notifications. An empty
// topic disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ServerConfig controls the ops HTTP server. An empty listen address
// disables it.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// SampleConfig controls sampling mode output.
type SampleConfig struct {
	DirPrefix string `mapstructure:"dir_prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.root", "https://api.si.edu/openaccess/api/v1.0/")
	v.SetDefault("api.user_agent", "openglam-harvester/1.0 (+https://github.com/openglam/smithsonian-harvester)")
	v.SetDefault("crawl.hash_prefix_length", 2)
	v.SetDefault("crawl.page_limit", 1000)
	v.SetDefault("crawl.retries", 3)
	v.SetDefault("crawl.delay_seconds", 5)
	v.SetDefault("crawl.timeout_seconds", 30)
	v.SetDefault("crawl.max_consecutive_failures", 5)
	v.SetDefault("store.provider", "memory")
	v.SetDefault("store.prefix", "images")
	v.SetDefault("store.postgres.table", "images")
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.base_dir", "data/harvest")
	v.SetDefault("sample.dir_prefix", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.API.Root == "" {
		return fmt.Errorf("api.root must be set")
	}
	if c.Crawl.HashPrefixLength < 1 || c.Crawl.HashPrefixLength > 8 {
		return fmt.Errorf("crawl.hash_prefix_length must be between 1 and 8")
	}
	if c.Crawl.PageLimit <= 0 {
		return fmt.Errorf("crawl.page_limit must be > 0")
	}
	if c.Crawl.Retries <= 0 {
		return fmt.Errorf("crawl.retries must be > 0")
	}
	if c.Crawl.DelaySeconds < 0 {
		return fmt.Errorf("crawl.delay_seconds must be >= 0")
	}
	if c.Crawl.MaxConsecutiveFailures <= 0 {
		return fmt.Errorf("crawl.max_consecutive_failures must be > 0")
	}
	switch c.Store.Provider {
	case "memory":
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn must be set when store.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown store provider: %s", c.Store.Provider)
	}
	switch c.Storage.Provider {
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set when storage.provider is local")
		}
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set when storage.provider is gcs")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}
