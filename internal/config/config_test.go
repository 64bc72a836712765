package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "app:\n  log_level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":9992", cfg.App.HTTPAddr)
	assert.Equal(t, "./paper_decisions.jsonl", cfg.Sources.DecisionsPath)
	assert.Equal(t, "./paper_portfolio.json", cfg.Sources.PortfolioPath)
	assert.Equal(t, 120*time.Second, cfg.Sources.RefreshInterval())
	assert.True(t, cfg.Sources.Watch)
	assert.Equal(t, 0, cfg.Dashboard.RangeDays)
	assert.Equal(t, 20, cfg.Dashboard.RecentDecisions)
	assert.Equal(t, 30, cfg.Dashboard.RecentTrades)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, 5000, cfg.Archive.Keep)
	assert.Equal(t, 21, cfg.Indicators.EMAFast)
	assert.Equal(t, 50, cfg.Indicators.EMASlow)
	assert.Equal(t, 14, cfg.Indicators.RSIPeriod)
}

func TestLoad_ExplicitFalseIsKept(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "sources:\n  watch: false\n  refresh_interval_seconds: \"30\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Sources.Watch)
	assert.Equal(t, 30, cfg.Sources.RefreshIntervalSeconds)
}

func TestLoad_IncludesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "app:\n  http_addr: \":7000\"\ndashboard:\n  range_days: 7\n")
	path := writeFile(t, dir, "config.yaml", "include:\n  - base.yaml\napp:\n  http_addr: \":8000\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.App.HTTPAddr)
	assert.Equal(t, 7, cfg.Dashboard.RangeDays)
}

func TestLoad_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	path := writeFile(t, dir, "b.yaml", "include:\n  - a.yaml\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]string{
		"negative range":  "dashboard:\n  range_days: -1\n",
		"ema order":       "indicators:\n  ema_fast: 60\n  ema_slow: 20\n",
		"rsi too short":   "indicators:\n  rsi_period: 1\n",
		"archive no path": "archive:\n  enabled: true\n  path: \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))

	t.Setenv(EnvConfigPath, "/etc/paperdash.yaml")
	assert.Equal(t, "/etc/paperdash.yaml", ResolvePath(""))
	assert.Equal(t, "local.yaml", ResolvePath(" local.yaml "))
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, validate(cfg))
}
