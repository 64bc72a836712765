package config

import (
	"strings"
	"time"
)

// Config 是 paperdash 的主配置载体。
type Config struct {
	App        AppConfig        `toml:"app"`
	Sources    SourcesConfig    `toml:"sources"`
	Dashboard  DashboardConfig  `toml:"dashboard"`
	Charts     ChartsConfig     `toml:"charts"`
	Archive    ArchiveConfig    `toml:"archive"`
	Indicators IndicatorsConfig `toml:"indicators"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

// SourcesConfig locates the two inputs and controls how often they are re-read.
type SourcesConfig struct {
	DecisionsPath          string `toml:"decisions_path"`
	PortfolioPath          string `toml:"portfolio_path"`
	RefreshIntervalSeconds int    `toml:"refresh_interval_seconds"`
	Watch                  bool   `toml:"watch"`
}

// RefreshInterval returns the periodic refresh interval.
func (s SourcesConfig) RefreshInterval() time.Duration {
	return time.Duration(s.RefreshIntervalSeconds) * time.Second
}

type DashboardConfig struct {
	RangeDays       int `toml:"range_days"`
	RecentDecisions int `toml:"recent_decisions"`
	RecentTrades    int `toml:"recent_trades"`
}

type ChartsConfig struct {
	OutputDir string `toml:"output_dir"`
	PNG       bool   `toml:"png"`
}

// ArchiveConfig 控制每次刷新结果的 sqlite 归档。
type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Keep    int    `toml:"keep"`
}

type IndicatorsConfig struct {
	EMAFast   int `toml:"ema_fast"`
	EMASlow   int `toml:"ema_slow"`
	RSIPeriod int `toml:"rsi_period"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
