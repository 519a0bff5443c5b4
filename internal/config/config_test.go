package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  env: test\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sim", cfg.Market.Provider)
	assert.Equal(t, 5000, cfg.Market.QuoteTTLMs)
	assert.InDelta(t, 100000.0, cfg.Trading.StartingCash, 1e-9)
	assert.Equal(t, 365, cfg.Trading.HistoryLimit)
}

func TestLoadReadsValues(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
market:
  provider: http
  base_url: https://quotes.example.com
  quote_timeout_ms: 1500
trading:
  starting_cash: 50000
  fee_rate: 0.001
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "http", cfg.Market.Provider)
	assert.Equal(t, 1500, cfg.Market.QuoteTimeoutMs)
	assert.InDelta(t, 50000.0, cfg.Trading.StartingCash, 1e-9)
	assert.InDelta(t, 0.001, cfg.Trading.FeeRate, 1e-12)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	t.Run("http provider without base_url", func(t *testing.T) {
		path := writeConfig(t, "market:\n  provider: http\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base_url")
	})

	t.Run("unknown provider", func(t *testing.T) {
		path := writeConfig(t, "market:\n  provider: carrier-pigeon\n")
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("fee rate out of range", func(t *testing.T) {
		path := writeConfig(t, "trading:\n  fee_rate: 1.5\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fee_rate")
	})

	t.Run("telegram half-configured", func(t *testing.T) {
		path := writeConfig(t, "notifier:\n  telegram_bot_token: abc\n")
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
