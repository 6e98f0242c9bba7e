package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the tune catalogue services
type Config struct {
	Docstore      DocstoreConfig      `mapstructure:"docstore"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Cache         CacheConfig         `mapstructure:"cache"`
	AWS           AWSConfig           `mapstructure:"aws"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// DocstoreConfig holds the remote document store configuration.
// The store is DynamoDB-backed; Table is the single table holding every
// collection, keyed by (collection path, document id).
type DocstoreConfig struct {
	Table    string `mapstructure:"table"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"` // non-empty for LocalStack
}

// RedisConfig holds Redis connection configuration for the shared
// persistent cache tier. Unused when cache.backend is "sqlite" or "memory".
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig holds local cache configuration
type CacheConfig struct {
	// Backend selects the persistent tier: memory, sqlite or redis
	Backend string `mapstructure:"backend"`

	// Path is the sqlite database file (sqlite backend only)
	Path string `mapstructure:"path"`

	// TTL is the expiry window for cached collections
	TTL time.Duration `mapstructure:"ttl"`
}

// AWSConfig holds AWS service configuration
type AWSConfig struct {
	SNSTopicARN string `mapstructure:"sns_topic_arn"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// MetricsConfig holds metrics settings
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not fatal if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("docstore.table", "learn-irish")
	v.SetDefault("docstore.region", "ap-northeast-1")
	v.SetDefault("docstore.endpoint", "")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.backend", "sqlite")
	v.SetDefault("cache.path", "learn-irish-cache.db")
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.metrics.enabled", false)
	v.SetDefault("observability.metrics.port", 9090)
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.Docstore.Table == "" {
		return fmt.Errorf("docstore.table is required")
	}

	switch c.Cache.Backend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("cache.backend must be one of memory, sqlite, redis (got %q)", c.Cache.Backend)
	}

	if c.Cache.Backend == "sqlite" && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required for the sqlite backend")
	}
	if c.Cache.Backend == "redis" && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required for the redis backend")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	return nil
}
