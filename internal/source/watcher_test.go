package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncedEvent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "paper_decisions.jsonl")
	other := filepath.Join(dir, "unrelated.txt")

	w, err := NewWatcher(target, "https://example.com/paper_portfolio.json")
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond
	assert.True(t, w.Watching())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	select {
	case <-w.Events():
		t.Fatal("unrelated file must not trigger a refresh")
	case <-time.After(200 * time.Millisecond):
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(target, []byte("{}\n"), 0o644))
	}
	select {
	case <-w.Events():
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change event")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_RemoteOnly(t *testing.T) {
	w, err := NewWatcher("http://host/a.jsonl", "")
	require.NoError(t, err)
	assert.False(t, w.Watching())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx))
}
