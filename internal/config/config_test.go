package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	raw := `
broker:
  base_url: "http://127.0.0.1:8080"
  ws_url: "ws://127.0.0.1:8080/ws"
  api_token: "${SENTINEL_TEST_TOKEN}"

bot:
  symbols: ["EURUSD", "GBPUSD"]
  magic: 905001
  mode: "AGGRESSIVE"
  risk_pct: 1.0

runtime:
  state_dir: "/tmp/sentinel-test"
  log:
    level: "debug"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	t.Setenv("SENTINEL_TEST_TOKEN", "secret-token")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8080", cfg.Broker.BaseUrl)
	assert.Equal(t, "secret-token", cfg.Broker.ApiToken)
	assert.Equal(t, []string{"EURUSD", "GBPUSD"}, cfg.Bot.Symbols)
	assert.Equal(t, int64(905001), cfg.Bot.Magic)
	assert.Equal(t, "aggressive", cfg.Bot.Mode)
	assert.InDelta(t, 1.0, cfg.Bot.RiskPct, 1e-9)

	assert.InDelta(t, 3.0, cfg.Bot.TriggerR, 1e-9)
	assert.InDelta(t, 0.5, cfg.Bot.PartialFraction, 1e-9)
	assert.Equal(t, 5, cfg.Bot.Retries)
	assert.Equal(t, 2*time.Second, cfg.Bot.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.Bot.PollInterval)
	assert.True(t, cfg.Bot.AdjustBuyLimitForSpread)
	assert.True(t, cfg.Bot.CancelUnfilledEOD)

	assert.Equal(t, "/tmp/sentinel-test", cfg.Runtime.StateDir)
	assert.Equal(t, "debug", cfg.Runtime.Log.Level)
}

func TestNormalizeMode(t *testing.T) {
	assert.Equal(t, "conservative", normalizeMode(""))
	assert.Equal(t, "conservative", normalizeMode("Conservative"))
	assert.Equal(t, "aggressive", normalizeMode(" aggressive "))
	assert.Equal(t, "conservative", normalizeMode("unknown"))
}
