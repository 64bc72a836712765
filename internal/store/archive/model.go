package archive

import (
	"gorm.io/datatypes"
)

// RunModel 是一次刷新结果的归档行。金额以字符串保存，避免精度丢失。
type RunModel struct {
	ID             int64          `gorm:"column:id;primaryKey"`
	RunID          string         `gorm:"column:run_id;uniqueIndex"`
	ComputedAtUnix int64          `gorm:"column:computed_at;index"`
	TotalValue     string         `gorm:"column:total_value"`
	PnLPct         string         `gorm:"column:pnl_pct"`
	Cash           string         `gorm:"column:cash"`
	InitialCapital string         `gorm:"column:initial_capital"`
	Fees           string         `gorm:"column:fees"`
	TradeCount     int64          `gorm:"column:trade_count"`
	OpenPositions  int            `gorm:"column:open_positions"`
	TotalExposure  string         `gorm:"column:total_exposure"`
	RecordCount    int            `gorm:"column:record_count"`
	SkippedLines   int            `gorm:"column:skipped_lines"`
	PositionsJSON  datatypes.JSON `gorm:"column:positions_json;type:TEXT"`
	SourcesJSON    datatypes.JSON `gorm:"column:sources_json;type:TEXT"`
	CreatedAtUnix  int64          `gorm:"column:created_at"`
}

func (RunModel) TableName() string { return "dashboard_runs" }
