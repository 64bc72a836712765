package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paperdash/internal/dashboard"
)

// Run 是写入归档的一次刷新结果。
type Run struct {
	RunID        string
	ComputedAt   time.Time
	KPI          dashboard.KPI
	Positions    []dashboard.PositionRow
	RecordCount  int
	SkippedLines int
}

// Entry is one archived run as read back.
type Entry struct {
	RunID          string            `json:"run_id"`
	ComputedAt     time.Time         `json:"computed_at"`
	TotalValue     decimal.Decimal   `json:"total_value"`
	PnLPct         decimal.Decimal   `json:"pnl_pct"`
	Cash           decimal.Decimal   `json:"cash"`
	InitialCapital decimal.Decimal   `json:"initial_capital"`
	Fees           decimal.Decimal   `json:"fees"`
	TradeCount     int64             `json:"trade_count"`
	OpenPositions  int               `json:"open_positions"`
	TotalExposure  decimal.Decimal   `json:"total_exposure"`
	RecordCount    int               `json:"record_count"`
	SkippedLines   int               `json:"skipped_lines"`
	Positions      json.RawMessage   `json:"positions,omitempty"`
	Sources        map[string]string `json:"sources,omitempty"`
}

// Store 使用 Gorm + SQLite 保存刷新历史。
type Store struct {
	db *gorm.DB
}

// Open 打开（必要时创建）归档数据库。
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("archive: 数据库路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&RunModel{}); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save 写入一次刷新；同一 run id 重复写入会报错。
func (s *Store) Save(ctx context.Context, run Run) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("archive 未初始化")
	}
	if strings.TrimSpace(run.RunID) == "" {
		return fmt.Errorf("archive: run id is required")
	}
	positions, err := json.Marshal(run.Positions)
	if err != nil {
		return fmt.Errorf("archive: encode positions: %w", err)
	}
	sources, err := json.Marshal(run.KPI.Sources)
	if err != nil {
		return fmt.Errorf("archive: encode sources: %w", err)
	}
	computedAt := run.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now()
	}
	row := RunModel{
		RunID:          run.RunID,
		ComputedAtUnix: computedAt.UnixMilli(),
		TotalValue:     run.KPI.TotalValue.String(),
		PnLPct:         run.KPI.PnLPct.String(),
		Cash:           run.KPI.Cash.String(),
		InitialCapital: run.KPI.InitialCapital.String(),
		Fees:           run.KPI.Fees.String(),
		TradeCount:     run.KPI.TradeCount,
		OpenPositions:  run.KPI.OpenPositions,
		TotalExposure:  run.KPI.TotalExposure.String(),
		RecordCount:    run.RecordCount,
		SkippedLines:   run.SkippedLines,
		PositionsJSON:  datatypes.JSON(positions),
		SourcesJSON:    datatypes.JSON(sources),
		CreatedAtUnix:  time.Now().UnixMilli(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// Recent returns the newest runs first. limit <= 0 returns every run.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("archive 未初始化")
	}
	var rows []RunModel
	q := s.db.WithContext(ctx).Order("computed_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entry())
	}
	return out, nil
}

// Prune 只保留最新的 keep 条记录，返回删除的行数。keep <= 0 时不做任何事。
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("archive 未初始化")
	}
	if keep <= 0 {
		return 0, nil
	}
	keepIDs := s.db.Model(&RunModel{}).
		Select("id").
		Order("computed_at DESC").
		Order("id DESC").
		Limit(keep)
	res := s.db.WithContext(ctx).Where("id NOT IN (?)", keepIDs).Delete(&RunModel{})
	return res.RowsAffected, res.Error
}

func (m RunModel) entry() Entry {
	e := Entry{
		RunID:          m.RunID,
		ComputedAt:     time.UnixMilli(m.ComputedAtUnix).UTC(),
		TotalValue:     parseAmount(m.TotalValue),
		PnLPct:         parseAmount(m.PnLPct),
		Cash:           parseAmount(m.Cash),
		InitialCapital: parseAmount(m.InitialCapital),
		Fees:           parseAmount(m.Fees),
		TradeCount:     m.TradeCount,
		OpenPositions:  m.OpenPositions,
		TotalExposure:  parseAmount(m.TotalExposure),
		RecordCount:    m.RecordCount,
		SkippedLines:   m.SkippedLines,
	}
	if len(m.PositionsJSON) > 0 {
		e.Positions = json.RawMessage(m.PositionsJSON)
	}
	if len(m.SourcesJSON) > 0 {
		_ = json.Unmarshal(m.SourcesJSON, &e.Sources)
	}
	return e
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
