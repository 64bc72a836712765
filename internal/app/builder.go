package app

import (
	"context"
	"fmt"

	"paperdash/internal/board"
	"paperdash/internal/config"
	"paperdash/internal/logger"
	"paperdash/internal/source"
	"paperdash/internal/store/archive"
	dashhttp "paperdash/internal/transport/http/dashboard"
)

type AppBuilder struct {
	cfg *config.Config

	loaderFn  func(config.SourcesConfig) InputLoader
	archiveFn func(config.ArchiveConfig) (*archive.Store, error)
	watcherFn func(config.SourcesConfig) (*source.Watcher, error)
	httpFn    func(*config.Config, *board.Board, *Refresher, *archive.Store) (*dashhttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithLoader replaces the input loader, mainly for tests.
func WithLoader(l InputLoader) AppBuilderOption {
	return func(b *AppBuilder) {
		b.loaderFn = func(config.SourcesConfig) InputLoader { return l }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:       cfg,
		loaderFn:  buildLoader,
		archiveFn: buildArchive,
		watcherFn: buildWatcher,
		httpFn:    buildHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	store, err := b.archiveFn(cfg.Archive)
	if err != nil {
		return nil, err
	}
	watcher, err := b.watcherFn(cfg.Sources)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	dash := board.New()
	params := RefresherParams{
		Loader:   b.loaderFn(cfg.Sources),
		Paths:    source.Paths{Decisions: cfg.Sources.DecisionsPath, Portfolio: cfg.Sources.PortfolioPath},
		Board:    dash,
		Keep:     cfg.Archive.Keep,
		Interval: cfg.Sources.RefreshInterval(),
		Watcher:  watcher,
	}
	if store != nil {
		params.Archive = store
	}
	refresher := NewRefresher(params)

	server, err := b.httpFn(cfg, dash, refresher, store)
	if err != nil {
		if watcher != nil {
			_ = watcher.Close()
		}
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	return &App{
		cfg:        cfg,
		board:      dash,
		refresher:  refresher,
		httpServer: server,
		archive:    store,
		watcher:    watcher,
		Summary:    newStartupSummary(cfg, watcher),
	}, nil
}

func buildLoader(config.SourcesConfig) InputLoader {
	return source.NewLoader(0)
}

func buildArchive(cfg config.ArchiveConfig) (*archive.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	store, err := archive.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	logger.Infof("✓ 归档已启用: %s (keep=%d)", cfg.Path, cfg.Keep)
	return store, nil
}

func buildWatcher(cfg config.SourcesConfig) (*source.Watcher, error) {
	if !cfg.Watch {
		return nil, nil
	}
	w, err := source.NewWatcher(cfg.DecisionsPath, cfg.PortfolioPath)
	if err != nil {
		// 目录不存在等情况只影响热更新，周期刷新仍然可用
		logger.Warnf("file watch disabled: %v", err)
		return nil, nil
	}
	if !w.Watching() {
		_ = w.Close()
		return nil, nil
	}
	return w, nil
}

func buildHTTPServer(cfg *config.Config, dash *board.Board, refresher *Refresher, store *archive.Store) (*dashhttp.Server, error) {
	sc := dashhttp.ServerConfig{
		Addr:       cfg.App.HTTPAddr,
		Board:      dash,
		Refresh:    refresher,
		Dashboard:  cfg.Dashboard,
		Indicators: cfg.Indicators,
	}
	if store != nil {
		sc.History = store
	}
	return dashhttp.NewServer(sc)
}
