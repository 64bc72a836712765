package app

import (
	"context"
	"errors"
	"fmt"

	"paperdash/internal/board"
	"paperdash/internal/config"
	"paperdash/internal/logger"
	"paperdash/internal/source"
	"paperdash/internal/store/archive"
	dashhttp "paperdash/internal/transport/http/dashboard"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动刷新与 HTTP 服务。
type App struct {
	cfg        *config.Config
	board      *board.Board
	refresher  *Refresher
	httpServer *dashhttp.Server
	archive    *archive.Store
	watcher    *source.Watcher
	Summary    *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动刷新循环与 HTTP 服务，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.refresher == nil {
		return fmt.Errorf("refresher not initialized")
	}
	defer a.Close()

	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.httpServer != nil {
		group.Go(func() error {
			if err := a.httpServer.Start(ctx); err != nil {
				return fmt.Errorf("dashboard http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		return a.refresher.Run(ctx)
	})
	return group.Wait()
}

// Board exposes the live dashboard state.
func (a *App) Board() *board.Board {
	if a == nil {
		return nil
	}
	return a.board
}

// Close releases the archive and the file watcher.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	if a.archive != nil {
		errs = append(errs, a.archive.Close())
	}
	return errors.Join(errs...)
}
