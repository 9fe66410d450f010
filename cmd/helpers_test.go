package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/turnout-prep/internal/config"
	"github.com/sells-group/turnout-prep/internal/indicator"
	"github.com/sells-group/turnout-prep/internal/trend"
)

// useConfig installs a test configuration with the ledger in a temp dir.
func useConfig(t *testing.T) *config.Config {
	t.Helper()
	def := trend.DefaultAutoConfig()
	c := &config.Config{
		Store:  config.StoreConfig{Schema: "public"},
		Ledger: config.LedgerConfig{Path: filepath.Join(t.TempDir(), "runs.db")},
		Anthropic: config.AnthropicConfig{
			Model:     "claude-haiku-4-5-20251001",
			MaxTokens: 256,
		},
		Email: config.EmailConfig{Temperature: 0.7, StoreName: "Wojciech Kiełbowicz & Co", BreakerThreshold: 5, BreakerCooldownSecs: 30},
		Retry: config.RetryConfig{MaxAttempts: 2, InitialBackoffMs: 1, MaxBackoffMs: 2},
		ARIMA: config.ARIMAConfig{MaxP: def.MaxP, MaxQ: def.MaxQ, MaxD: def.MaxD, MaxIter: def.MaxIter},
	}
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return c
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readTable(t *testing.T, path string) *indicator.Table {
	t.Helper()
	tbl, err := indicator.ReadCSVFile(context.Background(), path, indicator.CSVOptions{})
	require.NoError(t, err)
	return tbl
}

func value(t *testing.T, tbl *indicator.Table, code string, year int, column string) float64 {
	t.Helper()
	v, ok := tbl.Value(indicator.Key{Code: code, Year: year}, column)
	require.True(t, ok, "no row %s/%d", code, year)
	return v
}
