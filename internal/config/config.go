// Package config provides configuration loading for the scrapdai client.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SCRAPDAI_API_BASE_URL.
const EnvPrefix = "SCRAPDAI"

// Session store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config holds all configuration for the client.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Session SessionConfig `mapstructure:"session"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Geo     GeoConfig     `mapstructure:"geo"`
	Media   MediaConfig   `mapstructure:"media"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// SessionConfig selects where credentials are stored.
type SessionConfig struct {
	Store          string        `mapstructure:"store"` // memory, file, redis
	FilePath       string        `mapstructure:"file_path"`
	Passphrase     string        `mapstructure:"passphrase"`
	RedisPrefix    string        `mapstructure:"redis_prefix"`
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CatalogConfig controls the catalog cache.
type CatalogConfig struct {
	Cache    string        `mapstructure:"cache"` // none, redis
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// GeoConfig holds the map service endpoints.
type GeoConfig struct {
	GeocoderURL       string        `mapstructure:"geocoder_url"`
	RouterURL         string        `mapstructure:"router_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
}

// MediaConfig controls image re-encoding.
type MediaConfig struct {
	MaxDimension int `mapstructure:"max_dimension"`
	JPEGQuality  int `mapstructure:"jpeg_quality"`
}

// LoadOptions overrides where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit config file. Empty searches the default paths.
	ConfigFile string
	// EnvFile is a dotenv file loaded before the environment is read.
	// Empty means ".env"; a missing file is ignored.
	EnvFile string
}

// Load reads configuration from a dotenv file, a config file and
// environment variables, in increasing precedence.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".scrapdai"))
		}
		v.AddConfigPath("/etc/scrapdai")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url is required")
	}
	switch c.Session.Store {
	case StoreMemory, StoreRedis:
	case StoreFile:
		if c.Session.FilePath == "" {
			return errors.New("config: session.file_path is required for the file store")
		}
	default:
		return fmt.Errorf("config: unknown session.store %q", c.Session.Store)
	}
	switch c.Catalog.Cache {
	case "none", StoreRedis:
	default:
		return fmt.Errorf("config: unknown catalog.cache %q", c.Catalog.Cache)
	}
	if c.Media.JPEGQuality < 1 || c.Media.JPEGQuality > 100 {
		return fmt.Errorf("config: media.jpeg_quality must be 1-100, got %d", c.Media.JPEGQuality)
	}
	return nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.user_agent", "scrapdai-client/1.0")

	// Session defaults
	v.SetDefault("session.store", StoreFile)
	v.SetDefault("session.file_path", defaultSessionPath())
	v.SetDefault("session.passphrase", "")
	v.SetDefault("session.redis_prefix", "scrapdai:secure:")
	v.SetDefault("session.refresh_timeout", "15s")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Catalog defaults
	v.SetDefault("catalog.cache", "none")
	v.SetDefault("catalog.cache_ttl", "10m")

	// Geo defaults
	v.SetDefault("geo.geocoder_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geo.router_url", "https://router.project-osrm.org")
	v.SetDefault("geo.requests_per_second", 1.0)
	v.SetDefault("geo.poll_interval", "5s")

	// Media defaults
	v.SetDefault("media.max_dimension", 1600)
	v.SetDefault("media.jpeg_quality", 80)
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".scrapdai", "session.json")
	}
	return filepath.Join(home, ".scrapdai", "session.json")
}
