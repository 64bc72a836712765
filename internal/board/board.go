package board

import (
	"sync"
	"time"

	"paperdash/internal/dashboard"
)

// State 是看板当前展示的一次计算结果。
type State struct {
	RunID      string                  `json:"run_id"`
	ComputedAt time.Time               `json:"computed_at"`
	LoadedAt   time.Time               `json:"loaded_at"`
	Model      dashboard.Model         `json:"model"`
	Skipped    []dashboard.SkippedLine `json:"skipped,omitempty"`
	Refreshes  int64                   `json:"refreshes"`
	Failures   int64                   `json:"failures"`
	LastError  string                  `json:"last_error,omitempty"`
	LastFailAt time.Time               `json:"last_fail_at,omitempty"`
}

// Ready reports whether at least one refresh succeeded.
func (s State) Ready() bool {
	return s.RunID != ""
}

// Board holds the latest state. Readers always see a complete model.
type Board struct {
	mu    sync.RWMutex
	state State
}

func New() *Board {
	return &Board{}
}

// Publish replaces the model and clears the last error.
func (b *Board) Publish(runID string, loadedAt, computedAt time.Time, model dashboard.Model, skipped []dashboard.SkippedLine) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.RunID = runID
	b.state.LoadedAt = loadedAt
	b.state.ComputedAt = computedAt
	b.state.Model = model
	b.state.Skipped = skipped
	b.state.Refreshes++
	b.state.LastError = ""
}

// Fail 记录一次失败的刷新，保留上一次成功的模型。
func (b *Board) Fail(err error, at time.Time) {
	if err == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Failures++
	b.state.LastError = err.Error()
	b.state.LastFailAt = at
}

// Current returns a copy of the state.
func (b *Board) Current() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}
