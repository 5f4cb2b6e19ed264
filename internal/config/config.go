// Package config loads runtime configuration from YAML, .env and environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fx-trend-lab/internal/features"
	"fx-trend-lab/internal/logging"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
)

// Narration providers.
const (
	ProviderAuto     = "auto"
	ProviderGemini   = "gemini"
	ProviderTemplate = "template"
)

// Config is the root configuration.
type Config struct {
	Log       logging.Config  `yaml:"log"`
	Source    SourceConfig    `yaml:"source"`
	Storage   StorageConfig   `yaml:"storage"`
	Features  FeaturesConfig  `yaml:"features"`
	WatchList []string        `yaml:"watch_list" default:"[\"EUR\",\"USD\",\"RUB\",\"CNY\",\"INR\",\"ZAR\",\"GBP\"]" validate:"dive,len=3,uppercase"`
	Narration NarrationConfig `yaml:"narration"`
	Server    ServerConfig    `yaml:"server"`
	Output    OutputConfig    `yaml:"output"`
}

// SourceConfig configures the rate fetcher.
type SourceConfig struct {
	BaseURL      string        `yaml:"base_url" default:"https://v6.exchangerate-api.com" validate:"url"`
	APIKey       string        `yaml:"api_key"`
	BaseCurrency string        `yaml:"base_currency" default:"BRL" validate:"len=3,uppercase"`
	Timeout      time.Duration `yaml:"timeout" default:"30s"`
	MaxRetries   int           `yaml:"max_retries" default:"3" validate:"gte=0"`
	RetryDelay   time.Duration `yaml:"retry_delay" default:"1s"`
	PayloadFile  string        `yaml:"payload_file"` // read a saved response instead of calling the API
}

// StorageConfig selects and configures the stores.
type StorageConfig struct {
	Backend    string           `yaml:"backend" default:"memory" validate:"oneof=memory sql"`
	Migrate    bool             `yaml:"migrate" default:"true"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Redis      RedisConfig      `yaml:"redis"`
}

// PostgresConfig configures the observation, metadata and insight stores.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns" default:"10" validate:"gt=0"`
}

// ClickHouseConfig configures the gold feature table.
type ClickHouseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the snapshot cache. Empty Addr uses an in-process cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	Key      string        `yaml:"key" default:"fx-trend-lab:snapshot:latest"`
	TTL      time.Duration `yaml:"ttl"`
}

// FeaturesConfig configures the feature engine.
type FeaturesConfig struct {
	Thresholds ThresholdsConfig `yaml:"thresholds"`
}

// ThresholdsConfig mirrors features.Thresholds.
type ThresholdsConfig struct {
	TrendRising            float64 `yaml:"trend_rising" default:"2"`
	TrendFalling           float64 `yaml:"trend_falling" default:"-2"`
	IntensityStrong        float64 `yaml:"intensity_strong" default:"5"`
	IntensityModerate      float64 `yaml:"intensity_moderate" default:"2"`
	MomentumDivisor        float64 `yaml:"momentum_divisor" default:"7"`
	VolatilityVeryVolatile float64 `yaml:"volatility_very_volatile" default:"0.10"`
	VolatilityNormal       float64 `yaml:"volatility_normal" default:"0.05"`
}

// Thresholds converts to the engine type.
func (t ThresholdsConfig) Thresholds() features.Thresholds {
	return features.Thresholds{
		TrendRising:            t.TrendRising,
		TrendFalling:           t.TrendFalling,
		IntensityStrong:        t.IntensityStrong,
		IntensityModerate:      t.IntensityModerate,
		MomentumDivisor:        t.MomentumDivisor,
		VolatilityVeryVolatile: t.VolatilityVeryVolatile,
		VolatilityNormal:       t.VolatilityNormal,
	}
}

// NarrationConfig configures the daily insight.
type NarrationConfig struct {
	Enabled  bool          `yaml:"enabled" default:"true"`
	Provider string        `yaml:"provider" default:"auto" validate:"oneof=auto gemini template"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model" default:"gemini-2.5-flash"`
	BaseURL  string        `yaml:"base_url" default:"https://generativelanguage.googleapis.com" validate:"url"`
	Timeout  time.Duration `yaml:"timeout" default:"60s"`
}

// ResolvedProvider returns the generator to use: auto picks gemini when a key is set.
func (n NarrationConfig) ResolvedProvider() string {
	if n.Provider != ProviderAuto {
		return n.Provider
	}
	if n.APIKey != "" {
		return ProviderGemini
	}
	return ProviderTemplate
}

// ServerConfig configures the read API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	// PipelineInterval schedules the pipeline inside the server; 0 disables it.
	PipelineInterval time.Duration `yaml:"pipeline_interval" validate:"gte=0"`
}

// OutputConfig configures file outputs and inputs.
type OutputConfig struct {
	CSVPath      string `yaml:"csv_path" default:"data/gold/gold.csv"`
	MetadataPath string `yaml:"metadata_path" default:"config/currency_code_country.tsv"`
	RawDir       string `yaml:"raw_dir" default:"data/raw"` // payload archive; empty disables it
}

var validate = validator.New()

// Default returns the configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads the YAML file at path (optional when empty), then applies
// .env files and environment overrides, then validates.
func Load(path string, envFiles ...string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	c.ApplyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// loadDotEnv loads .env files without overriding the process environment.
// Missing files are ignored.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides secrets and endpoints from environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FX_API_KEY"); v != "" {
		c.Source.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Narration.APIKey = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickHouse.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("WATCH_LIST"); v != "" {
		c.WatchList = splitList(v)
	}
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Storage.Backend == BackendSQL {
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for backend %q", BackendSQL)
		}
		if c.Storage.ClickHouse.DSN == "" {
			return fmt.Errorf("storage.clickhouse.dsn is required for backend %q", BackendSQL)
		}
	}
	if c.Narration.Provider == ProviderGemini && c.Narration.APIKey == "" {
		return fmt.Errorf("narration.api_key is required for provider %q", ProviderGemini)
	}
	if err := c.Features.Thresholds.Thresholds().Validate(); err != nil {
		return fmt.Errorf("features.thresholds: %w", err)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
