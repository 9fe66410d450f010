package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/turnout-prep/internal/trend"
)

// inTempDir runs the test from an empty directory so no config.yaml is found.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "public", cfg.Store.Schema)
	assert.Empty(t, cfg.Store.DatabaseURL)
	assert.Equal(t, "turnout-runs.db", cfg.Ledger.Path)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, 1024, cfg.Anthropic.MaxTokens)
	assert.Equal(t, 1000, cfg.Email.IntervalMs)
	assert.InDelta(t, 0.7, cfg.Email.Temperature, 0.001)
	assert.Equal(t, "Wojciech Kiełbowicz & Co", cfg.Email.StoreName)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 0, cfg.Batch.MaxWorkers)
	assert.Equal(t, trend.DefaultAutoConfig(), cfg.ARIMA.AutoConfig())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := inTempDir(t)

	yaml := `
ledger:
  path: ""
log:
  level: debug
  format: console
batch:
  max_workers: 4
arima:
  max_p: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Ledger.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Batch.MaxWorkers)
	assert.Equal(t, 1, cfg.ARIMA.MaxP)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.ARIMA.MaxQ)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := inTempDir(t)

	yaml := `
store:
  schema: staging
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("TURNOUT_STORE_SCHEMA", "analytics")
	t.Setenv("TURNOUT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "analytics", cfg.Store.Schema)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("TURNOUT_EMAIL_INTERVAL_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Email.IntervalMs)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Schema = "public"
	cfg.Anthropic.MaxTokens = 1024
	cfg.Email.IntervalMs = 1000
	cfg.ARIMA = ARIMAConfig{MaxP: 3, MaxQ: 3, MaxD: 2, MaxIter: 15}
	return cfg
}

func TestValidateBackfill(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("backfill"))

	cfg.ARIMA.MaxIter = 0
	cfg.Batch.MaxWorkers = -1
	err := cfg.Validate("backfill")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arima.max_iter must be > 0")
	assert.Contains(t, err.Error(), "batch.max_workers must be >= 0")
}

func TestValidateLoad(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/turnout"
	assert.NoError(t, cfg.Validate("load"))
}

func TestValidateEmails(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("emails")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("emails"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
