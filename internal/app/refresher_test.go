package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperdash/internal/board"
	"paperdash/internal/config"
	"paperdash/internal/dashboard"
	"paperdash/internal/source"
	"paperdash/internal/store/archive"
)

type fakeLoader struct {
	mu    sync.Mutex
	calls int
	err   error
	text  string
}

func (f *fakeLoader) Load(_ context.Context, _ source.Paths) (source.Inputs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return source.Inputs{}, f.err
	}
	snap, err := dashboard.ParseSnapshot([]byte(`{"cash_usdt": 1000, "initial_cash_usdt": 1000}`))
	if err != nil {
		return source.Inputs{}, err
	}
	return source.Inputs{Parse: dashboard.ParseLines(f.text), Snapshot: snap, LoadedAt: time.Now()}, nil
}

func (f *fakeLoader) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeLoader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeArchive struct {
	runs   []archive.Run
	pruned []int
}

func (f *fakeArchive) Save(_ context.Context, run archive.Run) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeArchive) Prune(_ context.Context, keep int) (int64, error) {
	f.pruned = append(f.pruned, keep)
	return 0, nil
}

const oneRecord = `{"timestamp_utc":"2024-03-01T10:00:00Z","symbol":"BTCUSDT","decision":{"action":"BUY"},"portfolio_metrics":{"total_value_usdt":1010}}
garbage`

func TestRefresher_RefreshOncePublishesAndArchives(t *testing.T) {
	loader := &fakeLoader{text: oneRecord}
	arch := &fakeArchive{}
	b := board.New()
	r := NewRefresher(RefresherParams{Loader: loader, Board: b, Archive: arch, Keep: 10})
	r.newID = func() string { return "fixed-id" }

	require.NoError(t, r.RefreshOnce(context.Background()))

	st := b.Current()
	assert.Equal(t, "fixed-id", st.RunID)
	assert.Len(t, st.Model.Records, 1)
	assert.Len(t, st.Skipped, 1)
	assert.True(t, st.Model.KPI.TotalValue.Equal(decimal.NewFromInt(1010)))

	require.Len(t, arch.runs, 1)
	assert.Equal(t, "fixed-id", arch.runs[0].RunID)
	assert.Equal(t, 1, arch.runs[0].RecordCount)
	assert.Equal(t, 1, arch.runs[0].SkippedLines)
	assert.Equal(t, []int{10}, arch.pruned)
}

func TestRefresher_FailureKeepsPreviousModel(t *testing.T) {
	loader := &fakeLoader{text: oneRecord}
	b := board.New()
	r := NewRefresher(RefresherParams{Loader: loader, Board: b})

	require.NoError(t, r.RefreshOnce(context.Background()))
	first := b.Current().RunID

	loader.setErr(errors.New("snapshot unreadable"))
	assert.Error(t, r.RefreshOnce(context.Background()))

	st := b.Current()
	assert.Equal(t, first, st.RunID)
	assert.Len(t, st.Model.Records, 1)
	assert.Equal(t, "snapshot unreadable", st.LastError)
}

func TestRefresher_RunRefreshesOnTrigger(t *testing.T) {
	loader := &fakeLoader{text: oneRecord}
	r := NewRefresher(RefresherParams{Loader: loader, Board: board.New(), Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return loader.callCount() == 1 }, time.Second, 10*time.Millisecond)
	r.Trigger()
	require.Eventually(t, func() bool { return loader.callCount() == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestRefresher_NotInitialized(t *testing.T) {
	var r *Refresher
	assert.Error(t, r.RefreshOnce(context.Background()))
}

func TestAppBuilder_Build(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.Watch = false
	cfg.App.HTTPAddr = "127.0.0.1:0"

	a, err := NewAppBuilder(cfg, WithLoader(&fakeLoader{text: oneRecord})).Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, a.Board())
	assert.Nil(t, a.archive)
	assert.Nil(t, a.watcher)
	assert.Contains(t, a.Summary.String(), cfg.Sources.DecisionsPath)

	require.NoError(t, a.refresher.RefreshOnce(context.Background()))
	assert.True(t, a.Board().Current().Ready())
	assert.NoError(t, a.Close())
}

func TestAppBuilder_BuildWithArchive(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.Watch = false
	cfg.Archive.Enabled = true
	cfg.Archive.Path = t.TempDir() + "/runs.db"

	a, err := NewAppBuilder(cfg, WithLoader(&fakeLoader{text: oneRecord})).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NotNil(t, a.archive)

	require.NoError(t, a.refresher.RefreshOnce(context.Background()))
	entries, err := a.archive.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewApp_NilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}
