package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9992"
	defaultDecisionsPath    = "./paper_decisions.jsonl"
	defaultPortfolioPath    = "./paper_portfolio.json"
	defaultRefreshSeconds   = 120
	defaultRecentDecisions  = 20
	defaultRecentTrades     = 30
	defaultChartsOutputDir  = "data/charts"
	defaultArchivePath      = "data/paperdash.db"
	defaultArchiveKeep      = 5000
	defaultIndicatorEMAFast = 21
	defaultIndicatorEMASlow = 50
	defaultIndicatorRSI     = 14
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Sources.applyDefaults(keys)
	c.Dashboard.applyDefaults(keys)
	c.Charts.applyDefaults(keys)
	c.Archive.applyDefaults(keys)
	c.Indicators.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (s *SourcesConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("sources.decisions_path", &s.DecisionsPath, defaultDecisionsPath),
		stringFieldDefault("sources.portfolio_path", &s.PortfolioPath, defaultPortfolioPath),
		intFieldDefault("sources.refresh_interval_seconds", &s.RefreshIntervalSeconds, defaultRefreshSeconds),
		boolFieldDefault("sources.watch", &s.Watch, true),
	)
}

func (d *DashboardConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("dashboard.recent_decisions", &d.RecentDecisions, defaultRecentDecisions),
		intFieldDefault("dashboard.recent_trades", &d.RecentTrades, defaultRecentTrades),
	)
}

func (c *ChartsConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("charts.output_dir", &c.OutputDir, defaultChartsOutputDir),
	)
}

func (a *ArchiveConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("archive.path", &a.Path, defaultArchivePath),
		intFieldDefault("archive.keep", &a.Keep, defaultArchiveKeep),
	)
}

func (i *IndicatorsConfig) applyDefaults(keys keySet) {
	if i == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("indicators.ema_fast", &i.EMAFast, defaultIndicatorEMAFast),
		intFieldDefault("indicators.ema_slow", &i.EMASlow, defaultIndicatorEMASlow),
		intFieldDefault("indicators.rsi_period", &i.RSIPeriod, defaultIndicatorRSI),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && *target <= 0 },
		apply: func() { *target = def },
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
