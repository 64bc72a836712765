package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"paperdash/internal/board"
	"paperdash/internal/dashboard"
	"paperdash/internal/logger"
	"paperdash/internal/source"
	"paperdash/internal/store/archive"
)

// InputLoader 读取两个输入源。
type InputLoader interface {
	Load(ctx context.Context, p source.Paths) (source.Inputs, error)
}

// Archiver stores one row per successful refresh.
type Archiver interface {
	Save(ctx context.Context, run archive.Run) error
	Prune(ctx context.Context, keep int) (int64, error)
}

// Refresher 周期性（或在文件变化时）重新读取输入并重新计算看板。
type Refresher struct {
	loader   InputLoader
	paths    source.Paths
	board    *board.Board
	archive  Archiver
	keep     int
	interval time.Duration
	watcher  *source.Watcher
	trigger  chan struct{}
	newID    func() string
	now      func() time.Time
}

// RefresherParams 描述 Refresher 的依赖。Archive 与 Watcher 可为空。
type RefresherParams struct {
	Loader   InputLoader
	Paths    source.Paths
	Board    *board.Board
	Archive  Archiver
	Keep     int
	Interval time.Duration
	Watcher  *source.Watcher
}

func NewRefresher(p RefresherParams) *Refresher {
	interval := p.Interval
	if interval <= 0 {
		interval = 120 * time.Second
	}
	return &Refresher{
		loader:   p.Loader,
		paths:    p.Paths,
		board:    p.Board,
		archive:  p.Archive,
		keep:     p.Keep,
		interval: interval,
		watcher:  p.Watcher,
		trigger:  make(chan struct{}, 1),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Trigger asks for a refresh without waiting for the next tick. Requests made while one is
// already pending are merged.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// RefreshOnce loads, computes and publishes. On failure the board keeps the previous model.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	if r == nil || r.loader == nil || r.board == nil {
		return fmt.Errorf("refresher not initialized")
	}
	runID := r.newID()
	start := r.now()
	in, err := r.loader.Load(ctx, r.paths)
	if err != nil {
		r.board.Fail(err, start)
		logger.Warnf("refresh %s failed: %v", runID, err)
		return err
	}
	model := dashboard.Compute(in.Parse.Records, in.Snapshot)
	computedAt := r.now()
	r.board.Publish(runID, in.LoadedAt, computedAt, model, in.Parse.Skipped)
	logger.Infof("refresh %s: %d records (%d skipped), %d trades, %d positions, total=%s in %s",
		runID, len(in.Parse.Records), len(in.Parse.Skipped), len(model.Trades), len(model.Positions),
		model.KPI.TotalValue.StringFixed(2), computedAt.Sub(start).Round(time.Millisecond))

	if r.archive != nil {
		r.archiveRun(ctx, runID, computedAt, model, in.Parse)
	}
	return nil
}

func (r *Refresher) archiveRun(ctx context.Context, runID string, at time.Time, model dashboard.Model, parse dashboard.ParseResult) {
	run := archive.Run{
		RunID:        runID,
		ComputedAt:   at,
		KPI:          model.KPI,
		Positions:    model.Positions,
		RecordCount:  len(parse.Records),
		SkippedLines: len(parse.Skipped),
	}
	if err := r.archive.Save(ctx, run); err != nil {
		logger.Warnf("archive refresh %s failed: %v", runID, err)
		return
	}
	if r.keep > 0 {
		if n, err := r.archive.Prune(ctx, r.keep); err != nil {
			logger.Warnf("archive prune failed: %v", err)
		} else if n > 0 {
			logger.Debugf("archive pruned %d rows", n)
		}
	}
}

// Run refreshes immediately, then on every tick, file change or manual trigger until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	_ = r.RefreshOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var changes <-chan struct{}
	if r.watcher != nil && r.watcher.Watching() {
		changes = r.watcher.Events()
		go func() {
			if err := r.watcher.Run(ctx); err != nil {
				logger.Warnf("source watcher stopped: %v", err)
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-changes:
			logger.Debugf("source files changed, refreshing")
		case <-r.trigger:
		}
		_ = r.RefreshOnce(ctx)
	}
}
