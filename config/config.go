package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Barcode    BarcodeConfig    `mapstructure:"barcode"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	Patterns   PatternsConfig   `mapstructure:"patterns"`
	Templates  TemplatesConfig  `mapstructure:"templates"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	URL         string `mapstructure:"url"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CatalogConfig tunes the catalog text search.
type CatalogConfig struct {
	SearchLimit int `mapstructure:"search_limit"`
}

// BarcodeConfig holds the staleness windows, in months, per product type.
type BarcodeConfig struct {
	StaleMonthsFood  int `mapstructure:"stale_months_food"`
	StaleMonthsOther int `mapstructure:"stale_months_other"`
}

type RegistryConfig struct {
	FuzzyThreshold  float64       `mapstructure:"fuzzy_threshold"`
	FuzzyCandidates int           `mapstructure:"fuzzy_candidates"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

type PatternsConfig struct {
	TimeWindow     time.Duration `mapstructure:"time_window"`
	MinOccurrences int           `mapstructure:"min_occurrences"`
	LookbackDays   int           `mapstructure:"lookback_days"`
	Timezone       string        `mapstructure:"timezone"`
}

type TemplatesConfig struct {
	MatchThreshold float64 `mapstructure:"match_threshold"`
}

type ExtractionConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MinConfidence float64       `mapstructure:"min_confidence"`
}

// Load reads .env (when present), environment variables with the APP_
// prefix and the well-known unprefixed variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("app.log_level", "LOG_LEVEL")
	_ = v.BindEnv("extraction.api_key", "EXTRACTION_API_KEY")
	_ = v.BindEnv("extraction.base_url", "EXTRACTION_BASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied and no
// environment overrides.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_json", false)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("catalog.search_limit", 50)

	// Product-tuned values; confirm against current requirements before changing.
	v.SetDefault("barcode.stale_months_food", 18)
	v.SetDefault("barcode.stale_months_other", 36)

	v.SetDefault("registry.fuzzy_threshold", 0.8)
	v.SetDefault("registry.fuzzy_candidates", 100)
	v.SetDefault("registry.cache_ttl", "10m")

	v.SetDefault("patterns.time_window", "30m")
	v.SetDefault("patterns.min_occurrences", 2)
	v.SetDefault("patterns.lookback_days", 30)
	v.SetDefault("patterns.timezone", "UTC")

	v.SetDefault("templates.match_threshold", 0.7)

	v.SetDefault("extraction.timeout", "30s")
	v.SetDefault("extraction.min_confidence", 70)
}

// Validate checks the configuration for values the services cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}
	if c.Catalog.SearchLimit <= 0 {
		return fmt.Errorf("invalid catalog search limit")
	}
	if c.Barcode.StaleMonthsFood <= 0 || c.Barcode.StaleMonthsOther <= 0 {
		return fmt.Errorf("invalid barcode staleness window")
	}
	if c.Registry.FuzzyThreshold <= 0 || c.Registry.FuzzyThreshold > 1 {
		return fmt.Errorf("registry fuzzy threshold must be in (0, 1]")
	}
	if c.Patterns.TimeWindow <= 0 {
		return fmt.Errorf("invalid pattern time window")
	}
	if c.Patterns.MinOccurrences < 1 {
		return fmt.Errorf("invalid pattern min occurrences")
	}
	if c.Patterns.LookbackDays <= 0 {
		return fmt.Errorf("invalid pattern lookback days")
	}
	if _, err := time.LoadLocation(c.Patterns.Timezone); err != nil {
		return fmt.Errorf("invalid pattern timezone: %w", err)
	}
	if c.Templates.MatchThreshold <= 0 || c.Templates.MatchThreshold > 1 {
		return fmt.Errorf("template match threshold must be in (0, 1]")
	}
	return nil
}

// Location returns the timezone used for hour-of-day statistics.
func (c PatternsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
