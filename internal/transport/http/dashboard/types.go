package dashhttp

import (
	"context"
	"time"

	"paperdash/internal/analysis/visual"
	"paperdash/internal/board"
	"paperdash/internal/dashboard"
	"paperdash/internal/store/archive"
)

// StateSource 提供当前看板状态，由 board.Board 实现。
type StateSource interface {
	Current() board.State
}

// RefreshTrigger 请求立即刷新，由 app.Refresher 实现。
type RefreshTrigger interface {
	Trigger()
}

// HistoryReader 读取刷新归档，由 archive.Store 实现。
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]archive.Entry, error)
}

type runMeta struct {
	RunID      string    `json:"run_id"`
	ComputedAt time.Time `json:"computed_at"`
	LoadedAt   time.Time `json:"loaded_at"`
	Refreshes  int64     `json:"refreshes"`
	Failures   int64     `json:"failures"`
	LastError  string    `json:"last_error,omitempty"`
}

// overviewResponse is the full dashboard payload.
type overviewResponse struct {
	Run       runMeta                    `json:"run"`
	KPI       dashboard.KPI              `json:"kpi"`
	Latest    *dashboard.LatestDecision  `json:"latest,omitempty"`
	Positions []dashboard.PositionRow    `json:"positions"`
	Exposure  []visual.Slice             `json:"exposure"`
	Trades    []dashboard.Trade          `json:"trades"`
	Series    []dashboard.SeriesPoint    `json:"series"`
	Decisions []dashboard.LatestDecision `json:"decisions"`
	Skipped   []dashboard.SkippedLine    `json:"skipped,omitempty"`
}
