package dashhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperdash/internal/board"
	"paperdash/internal/config"
	"paperdash/internal/dashboard"
	"paperdash/internal/store/archive"
)

const testSnapshot = `{
	"cash_usdt": 1000, "initial_cash_usdt": 1000, "created_at_utc": "2024-03-01T12:00:00Z",
	"positions": {"BTCUSDT": {"asset_amount": 0.01, "position_cost_usdt": 400}},
	"last_prices": {"BTCUSDT": 42000}
}`

func testLog() string {
	bars := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		price := 100 + i
		bars = append(bars, fmt.Sprintf(`[%d,%d,%d,%d,%d,10]`, 1709251200000+int64(i)*3600000, price, price+1, price-1, price))
	}
	return strings.Join([]string{
		`{"timestamp_utc":"2024-03-01T10:00:00Z","symbol":"BTCUSDT","decision":{"action":"BUY","confidence":0.8},"execution":{"executed_qty":0.01,"executed_notional_usdt":420,"fee_usdt":0.5},"portfolio_metrics":{"total_value_usdt":1420},"recent_candles":{"BTCUSDT":[` + strings.Join(bars, ",") + `]}}`,
		`broken`,
		`{"timestamp_utc":"2024-03-01T11:00:00Z","symbol":"ETHUSDT","decision":{"action":"HOLD"},"portfolio_metrics":{"total_value_usdt":1425}}`,
	}, "\n")
}

type fakeTrigger struct{ calls int }

func (f *fakeTrigger) Trigger() { f.calls++ }

type fakeHistory struct {
	entries []archive.Entry
	err     error
}

func (f fakeHistory) Recent(_ context.Context, limit int) ([]archive.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func newTestServer(t *testing.T, b *board.Board, opts ...func(*ServerConfig)) http.Handler {
	t.Helper()
	cfg := ServerConfig{
		Board:      b,
		Dashboard:  config.DashboardConfig{RecentDecisions: 20, RecentTrades: 30},
		Indicators: config.IndicatorsConfig{EMAFast: 5, EMASlow: 10, RSIPeriod: 14},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	return srv.Handler()
}

func readyBoard(t *testing.T) *board.Board {
	t.Helper()
	parsed := dashboard.ParseLines(testLog())
	snap, err := dashboard.ParseSnapshot([]byte(testSnapshot))
	require.NoError(t, err)
	b := board.New()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b.Publish("run-1", now, now, dashboard.Compute(parsed.Records, snap), parsed.Skipped)
	return b
}

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNewServer_RequiresBoard(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestRouter_NotReady(t *testing.T) {
	b := board.New()
	h := newTestServer(t, b)

	rec := get(t, h, http.MethodGet, "/api/dashboard")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	b.Fail(errors.New("snapshot missing"), time.Now())
	rec = get(t, h, http.MethodGet, "/api/dashboard/kpi")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "snapshot missing")

	assert.Equal(t, http.StatusOK, get(t, h, http.MethodGet, "/healthz").Code)
}

func TestRouter_Overview(t *testing.T) {
	h := newTestServer(t, readyBoard(t))

	rec := get(t, h, http.MethodGet, "/api/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)

	assert.Equal(t, "run-1", body["run"].(map[string]any)["run_id"])
	assert.Len(t, body["positions"], 1)
	assert.Len(t, body["trades"], 1)
	assert.Len(t, body["series"], 2)
	assert.Len(t, body["decisions"], 2)
	assert.Len(t, body["skipped"], 1)
	assert.Len(t, body["exposure"], 2)
}

func TestRouter_Lists(t *testing.T) {
	h := newTestServer(t, readyBoard(t))

	body := decode(t, get(t, h, http.MethodGet, "/api/dashboard/decisions?limit=1"))
	decisions := body["decisions"].([]any)
	require.Len(t, decisions, 1)
	assert.Equal(t, "ETHUSDT", decisions[0].(map[string]any)["symbol"])
	assert.EqualValues(t, 2, body["total"])

	body = decode(t, get(t, h, http.MethodGet, "/api/dashboard/trades?limit=abc"))
	assert.Len(t, body["trades"], 1)

	body = decode(t, get(t, h, http.MethodGet, "/api/dashboard/series?days=0"))
	assert.Len(t, body["series"], 2)

	rec := get(t, h, http.MethodGet, "/api/dashboard/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ETHUSDT", decode(t, rec)["symbol"])

	body = decode(t, get(t, h, http.MethodGet, "/api/dashboard/positions"))
	assert.Len(t, body["positions"], 1)
}

func TestRouter_KPIAmountsAreDecimals(t *testing.T) {
	h := newTestServer(t, readyBoard(t))

	body := decode(t, get(t, h, http.MethodGet, "/api/dashboard/kpi"))
	kpi := body["kpi"].(map[string]any)
	raw, ok := kpi["total_value"].(string)
	require.True(t, ok, "total_value should be a decimal string, got %T", kpi["total_value"])
	total, err := decimal.NewFromString(raw)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(1425)), total.String())
}

func TestRouter_Indicators(t *testing.T) {
	h := newTestServer(t, readyBoard(t))

	rec := get(t, h, http.MethodGet, "/api/dashboard/indicators/btc-usdt")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "BTCUSDT", body["symbol"])
	assert.EqualValues(t, 40, body["count"])

	rec = get(t, h, http.MethodGet, "/api/dashboard/indicators/DOGEUSDT")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_History(t *testing.T) {
	h := newTestServer(t, readyBoard(t))
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, http.MethodGet, "/api/dashboard/history").Code)

	hist := fakeHistory{entries: []archive.Entry{{RunID: "b"}, {RunID: "a"}}}
	h = newTestServer(t, readyBoard(t), func(c *ServerConfig) { c.History = hist })
	body := decode(t, get(t, h, http.MethodGet, "/api/dashboard/history?limit=1"))
	assert.Len(t, body["history"], 1)

	h = newTestServer(t, readyBoard(t), func(c *ServerConfig) { c.History = fakeHistory{err: errors.New("locked")} })
	assert.Equal(t, http.StatusInternalServerError, get(t, h, http.MethodGet, "/api/dashboard/history").Code)
}

func TestRouter_Refresh(t *testing.T) {
	trigger := &fakeTrigger{}
	h := newTestServer(t, readyBoard(t), func(c *ServerConfig) { c.Refresh = trigger })

	rec := get(t, h, http.MethodPost, "/api/dashboard/refresh")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, trigger.calls)
}

func TestRouter_Charts(t *testing.T) {
	h := newTestServer(t, readyBoard(t))

	for _, path := range []string{"/", "/charts/equity", "/charts/exposure", "/charts/candles/BTCUSDT"} {
		rec := get(t, h, http.MethodGet, path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html", path)
	}
	assert.Equal(t, http.StatusNotFound, get(t, h, http.MethodGet, "/charts/candles/XRPUSDT").Code)
}
