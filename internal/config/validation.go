package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Sources.validate(); err != nil {
		return err
	}
	if err := c.Dashboard.validate(); err != nil {
		return err
	}
	if err := c.Archive.validate(); err != nil {
		return err
	}
	if err := c.Indicators.validate(); err != nil {
		return err
	}
	return nil
}

func (s *SourcesConfig) validate() error {
	if strings.TrimSpace(s.DecisionsPath) == "" {
		return fmt.Errorf("sources.decisions_path cannot be empty")
	}
	if strings.TrimSpace(s.PortfolioPath) == "" {
		return fmt.Errorf("sources.portfolio_path cannot be empty")
	}
	if s.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("sources.refresh_interval_seconds must be > 0")
	}
	return nil
}

func (d *DashboardConfig) validate() error {
	if d.RangeDays < 0 {
		return fmt.Errorf("dashboard.range_days must be >= 0")
	}
	if d.RecentDecisions <= 0 || d.RecentTrades <= 0 {
		return fmt.Errorf("dashboard.recent_decisions and dashboard.recent_trades must be > 0")
	}
	return nil
}

func (a *ArchiveConfig) validate() error {
	if !a.Enabled {
		return nil
	}
	if strings.TrimSpace(a.Path) == "" {
		return fmt.Errorf("archive.path is required when archive is enabled")
	}
	if a.Keep < 0 {
		return fmt.Errorf("archive.keep must be >= 0")
	}
	return nil
}

func (i *IndicatorsConfig) validate() error {
	if i.EMAFast <= 0 || i.EMASlow <= 0 {
		return fmt.Errorf("indicators.ema_fast and indicators.ema_slow must be > 0")
	}
	if i.EMAFast >= i.EMASlow {
		return fmt.Errorf("indicators.ema_fast (%d) must be < indicators.ema_slow (%d)", i.EMAFast, i.EMASlow)
	}
	if i.RSIPeriod < 2 {
		return fmt.Errorf("indicators.rsi_period must be >= 2")
	}
	return nil
}
