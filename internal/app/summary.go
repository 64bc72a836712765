package app

import (
	"fmt"
	"strings"

	"paperdash/internal/config"
	"paperdash/internal/source"
)

type StartupSummary struct {
	HTTPAddr        string
	DecisionsPath   string
	PortfolioPath   string
	RefreshInterval string
	Watching        bool
	ArchivePath     string
	ArchiveKeep     int
}

func newStartupSummary(cfg *config.Config, w *source.Watcher) *StartupSummary {
	s := &StartupSummary{
		HTTPAddr:        cfg.App.HTTPAddr,
		DecisionsPath:   cfg.Sources.DecisionsPath,
		PortfolioPath:   cfg.Sources.PortfolioPath,
		RefreshInterval: cfg.Sources.RefreshInterval().String(),
		Watching:        w != nil,
	}
	if cfg.Archive.Enabled {
		s.ArchivePath = cfg.Archive.Path
		s.ArchiveKeep = cfg.Archive.Keep
	}
	return s
}

func (s *StartupSummary) Print() {
	fmt.Print(s.String())
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	title := "启动配置摘要 (STARTUP SUMMARY)"
	b.WriteString(strings.Repeat("=", 80) + "\n")
	fmt.Fprintf(&b, "%*s\n", 40+len(title)/2, title)
	b.WriteString(strings.Repeat("=", 80) + "\n")

	b.WriteString("[数据源 (SOURCES)]\n")
	fmt.Fprintf(&b, "  决策日志: %s\n", s.DecisionsPath)
	fmt.Fprintf(&b, "  组合快照: %s\n", s.PortfolioPath)
	fmt.Fprintf(&b, "  刷新周期: %s\n", s.RefreshInterval)
	fmt.Fprintf(&b, "  文件监听: %s\n", onOff(s.Watching))
	b.WriteString("\n")

	b.WriteString("[服务 (SERVICES)]\n")
	fmt.Fprintf(&b, "  HTTP: %s\n", s.HTTPAddr)
	if s.ArchivePath == "" {
		b.WriteString("  归档: 关闭\n")
	} else {
		fmt.Fprintf(&b, "  归档: %s (保留 %d 条)\n", s.ArchivePath, s.ArchiveKeep)
	}
	b.WriteString(strings.Repeat("=", 80) + "\n")
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "开启"
	}
	return "关闭"
}
