package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-trend-lab/internal/features"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"FX_API_KEY", "GEMINI_API_KEY", "POSTGRES_DSN", "CLICKHOUSE_DSN", "REDIS_ADDR", "LOG_LEVEL", "WATCH_LIST"} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "BRL", c.Source.BaseCurrency)
	assert.Equal(t, 30*time.Second, c.Source.Timeout)
	assert.Equal(t, BackendMemory, c.Storage.Backend)
	assert.Equal(t, []string{"EUR", "USD", "RUB", "CNY", "INR", "ZAR", "GBP"}, c.WatchList)
	assert.Equal(t, features.DefaultThresholds(), c.Features.Thresholds.Thresholds())
	assert.True(t, c.Narration.Enabled)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Zero(t, c.Server.PipelineInterval)
	assert.Equal(t, "data/raw", c.Output.RawDir)
	require.NoError(t, c.Validate())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
log:
  level: debug
  format: console
source:
  base_currency: USD
  timeout: 5s
features:
  thresholds:
    trend_rising: 1.5
    trend_falling: -1.5
watch_list: [EUR, GBP]
narration:
  enabled: false
server:
  addr: ":9090"
`)

	c, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "console", c.Log.Format)
	assert.Equal(t, "USD", c.Source.BaseCurrency)
	assert.Equal(t, 5*time.Second, c.Source.Timeout)
	assert.Equal(t, 3, c.Source.MaxRetries)
	assert.Equal(t, 1.5, c.Features.Thresholds.TrendRising)
	assert.Equal(t, 5.0, c.Features.Thresholds.IntensityStrong)
	assert.Equal(t, []string{"EUR", "GBP"}, c.WatchList)
	assert.False(t, c.Narration.Enabled)
	assert.Equal(t, ":9090", c.Server.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FX_API_KEY", "fx-key")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/db")
	t.Setenv("CLICKHOUSE_DSN", "clickhouse://localhost:9000/default")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("WATCH_LIST", "eur, usd ,")

	path := writeFile(t, "config.yaml", "storage:\n  backend: sql\n")
	c, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "fx-key", c.Source.APIKey)
	assert.Equal(t, "gem-key", c.Narration.APIKey)
	assert.Equal(t, "postgres://u:p@localhost/db", c.Storage.Postgres.DSN)
	assert.Equal(t, "clickhouse://localhost:9000/default", c.Storage.ClickHouse.DSN)
	assert.Equal(t, "localhost:6379", c.Storage.Redis.Addr)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, []string{"EUR", "USD"}, c.WatchList)
	assert.Equal(t, ProviderGemini, c.Narration.ResolvedProvider())
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("FX_API_KEY")
	envFile := writeFile(t, ".env", "FX_API_KEY=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("FX_API_KEY") })

	c, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", c.Source.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad backend", "storage:\n  backend: mongo\n"},
		{"sql without dsn", "storage:\n  backend: sql\n"},
		{"bad base currency", "source:\n  base_currency: reais\n"},
		{"bad watch list", "watch_list: [EURO]\n"},
		{"gemini without key", "narration:\n  provider: gemini\n"},
		{"inverted thresholds", "features:\n  thresholds:\n    intensity_strong: 1\n    intensity_moderate: 3\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"malformed yaml", "log: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeFile(t, "config.yaml", tt.yaml)
			_, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestResolvedProvider(t *testing.T) {
	assert.Equal(t, ProviderTemplate, NarrationConfig{Provider: ProviderAuto}.ResolvedProvider())
	assert.Equal(t, ProviderGemini, NarrationConfig{Provider: ProviderAuto, APIKey: "k"}.ResolvedProvider())
	assert.Equal(t, ProviderTemplate, NarrationConfig{Provider: ProviderTemplate, APIKey: "k"}.ResolvedProvider())
}

func TestLoad_ShippedConfig(t *testing.T) {
	clearEnv(t)

	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, c.Storage.Backend)
	assert.Equal(t, "config/currency_code_country.tsv", c.Output.MetadataPath)
	assert.Equal(t, "data/raw", c.Output.RawDir)
	assert.Equal(t, ProviderTemplate, c.Narration.ResolvedProvider())
}
