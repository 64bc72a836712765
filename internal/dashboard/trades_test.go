package dashboard

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioSnapshot = `{
	"cash_usdt": 1000,
	"positions": {"BTCUSDT": {"asset_amount": 0.01, "position_cost_usdt": 400}},
	"last_prices": {"BTCUSDT": 42000}
}`

const scenarioRecord = `{
	"timestamp_utc": "2024-03-01T10:00:00Z",
	"symbol": "BTCUSDT",
	"decision": {"action": "BUY"},
	"execution": {"executed_qty": 0.01, "executed_notional_usdt": 420, "fee_usdt": 0.5}
}`

func TestExtractTrades_Scenario(t *testing.T) {
	trades := ExtractTrades([]Record{mustRecord(t, scenarioRecord)}, mustSnapshot(t, scenarioSnapshot))

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, "BTCUSDT", tr.Symbol)
	assert.Equal(t, ActionBuy, tr.Action)
	assertDecimal(t, "0.01", tr.Qty)
	assertDecimal(t, "420", tr.Notional)
	assertDecimal(t, "0.5", tr.Fee)
	assert.Equal(t, TradeSourceLog, tr.Source)
}

func TestExtractTrades_ExecutedRules(t *testing.T) {
	cases := []struct {
		name   string
		record string
		want   int
		action Action
	}{
		{
			name:   "status only fill",
			record: `{"decision":{"action":"BUY"},"execution":{"status":"FILLED"}}`,
			want:   1,
			action: ActionBuy,
		},
		{
			name:   "not executed",
			record: `{"decision":{"action":"BUY"},"execution":{"status":"SKIPPED"}}`,
			want:   0,
		},
		{
			name:   "hold without evidence",
			record: `{"decision":{"action":"HOLD"},"execution":{"status":"FILLED"}}`,
			want:   0,
		},
		{
			name:   "hold with phantom quantity",
			record: `{"decision":{"action":"HOLD"},"execution":{"executed_qty":1}}`,
			want:   1,
			action: ActionHold,
		},
		{
			name:   "negative notional counts",
			record: `{"decision":{"action":"SELL"},"execution":{"executed_notional_usdt":-50}}`,
			want:   1,
			action: ActionSell,
		},
		{
			name:   "no execution block",
			record: `{"decision":{"action":"BUY"},"symbol":"BTCUSDT"}`,
			want:   0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trades := ExtractTrades([]Record{mustRecord(t, tc.record)}, Snapshot{})
			require.Len(t, trades, tc.want)
			if tc.want > 0 {
				assert.Equal(t, tc.action, trades[0].Action)
			}
		})
	}
}

func TestExtractTrades_MultiSymbolRecord(t *testing.T) {
	rec := mustRecord(t, `{
		"timestamp_utc": "2024-03-01T10:00:00Z",
		"decisions": [{"symbol":"BTCUSDT","action":"BUY"},{"symbol":"ETHUSDT","action":"SELL"}],
		"executions": [
			{"symbol":"ETHUSDT","executed_qty":2,"executed_notional_usdt":6000},
			{"symbol":"BTCUSDT","executed_qty":0.1,"executed_notional_usdt":4200}
		]
	}`)

	trades := ExtractTrades([]Record{rec}, Snapshot{})
	require.Len(t, trades, 2)
	assert.Equal(t, "ETHUSDT", trades[0].Symbol)
	assert.Equal(t, ActionSell, trades[0].Action)
	assert.Equal(t, "BTCUSDT", trades[1].Symbol)
	assert.Equal(t, ActionBuy, trades[1].Action)
}

func TestExtractTrades_AgreesWithScopedPairing(t *testing.T) {
	rec := mustRecord(t, `{
		"timestamp_utc": "2024-03-01T10:00:00Z",
		"decisions": [{"symbol":"BTCUSDT","action":"HOLD"}],
		"executions": [
			{"symbol":"ETHUSDT","action":"SELL","executed_qty":1,"executed_notional_usdt":3000},
			{"action":"BUY","executed_qty":2,"executed_notional_usdt":100}
		]
	}`)

	scoped := ScopedDecisions(rec)
	require.Len(t, scoped, 2)
	assert.Equal(t, "BTCUSDT", scoped[0].Symbol)
	assert.Nil(t, scoped[0].Execution)
	assert.Equal(t, "ETHUSDT", scoped[1].Symbol)

	trades := ExtractTrades([]Record{rec}, Snapshot{})
	require.Len(t, trades, 2)
	bySymbol := map[string]Trade{}
	for _, tr := range trades {
		bySymbol[tr.Symbol] = tr
	}
	eth, ok := bySymbol["ETHUSDT"]
	require.True(t, ok)
	assert.Equal(t, ActionSell, eth.Action)
	assertDecimal(t, "1", eth.Qty)

	// 无交易对的成交不能借用已配对的 ETH 条目
	orphan, ok := bySymbol["-"]
	require.True(t, ok, "symbol-less fill was attributed to %v", trades)
	assert.Equal(t, ActionBuy, orphan.Action)
	assertDecimal(t, "2", orphan.Qty)
}

func TestExtractTrades_HistoryMapping(t *testing.T) {
	snap := mustSnapshot(t, `{"history":[
		{"pair":"ETHUSDT","type":"sell","quantity":"2","value_usdt":"3000","timestamp":"2024-01-03T00:00:00Z"},
		{"market":"SOLUSDT","status":"BUY_FILLED"},
		"garbage"
	]}`)

	trades := ExtractTrades(nil, snap)
	require.Len(t, trades, 2)
	assert.Equal(t, "ETHUSDT", trades[0].Symbol)
	assert.Equal(t, ActionSell, trades[0].Action)
	assertDecimal(t, "2", trades[0].Qty)
	assertDecimal(t, "3000", trades[0].Notional)
	assertDecimal(t, "0", trades[0].Fee)
	assert.Equal(t, TradeSourceHistory, trades[0].Source)

	assert.Equal(t, "SOLUSDT", trades[1].Symbol)
	assert.Equal(t, ActionBuy, trades[1].Action)
	assert.False(t, trades[1].HasTimestamp)
}

func TestExtractTrades_DedupAcrossSources(t *testing.T) {
	// Same fill, timestamp written as an ISO string in the log and epoch millis in the history.
	snap := mustSnapshot(t, `{"history":[
		{"timestamp": 1709287200000, "symbol":"BTCUSDT","side":"BUY","qty":0.01,"notional_usdt":420,"fee_usdt":0.5}
	]}`)
	trades := ExtractTrades([]Record{mustRecord(t, scenarioRecord)}, snap)

	require.Len(t, trades, 1)
	assert.Equal(t, TradeSourceLog, trades[0].Source)
}

func TestExtractTrades_OrderNewestFirst(t *testing.T) {
	records := SortRecords([]Record{
		mustRecord(t, `{"timestamp_utc":"2024-01-02T00:00:00Z","symbol":"B","decision":{"action":"BUY"},"execution":{"executed_qty":1}}`),
		mustRecord(t, `{"timestamp_utc":"not a date","symbol":"X","decision":{"action":"BUY"},"execution":{"executed_qty":1}}`),
		mustRecord(t, `{"timestamp_utc":"2024-01-03T00:00:00Z","symbol":"C","decision":{"action":"SELL"},"execution":{"executed_qty":1}}`),
		mustRecord(t, `{"timestamp_utc":"2024-01-01T00:00:00Z","symbol":"A","decision":{"action":"BUY"},"execution":{"executed_qty":1}}`),
	})

	trades := ExtractTrades(records, Snapshot{})
	require.Len(t, trades, 4)
	var symbols []string
	for _, tr := range trades {
		symbols = append(symbols, tr.Symbol)
	}
	assert.Equal(t, []string{"C", "B", "A", "X"}, symbols)
}

func TestExtractTrades_Idempotent(t *testing.T) {
	rec := mustRecord(t, scenarioRecord)
	dup := mustRecord(t, `{
		"timestamp_utc": "2024-03-01T10:00:00Z",
		"symbol": "BTCUSDT",
		"decision": {"action": "BUY"},
		"executions": [
			{"executed_qty": 0.01, "executed_notional_usdt": 420, "fee_usdt": 0.5},
			{"executed_qty": 0.01, "executed_notional_usdt": 420, "fee_usdt": 0.5}
		]
	}`)
	snap := mustSnapshot(t, `{"history":[
		{"timestamp_utc":"2024-03-01T10:00:00Z","symbol":"BTCUSDT","side":"BUY","qty":0.01,"notional_usdt":420,"fee_usdt":0.5},
		{"timestamp_utc":"2024-03-01T10:00:00Z","symbol":"BTCUSDT","side":"BUY","qty":0.01,"notional_usdt":420,"fee_usdt":0.5}
	]}`)

	first := ExtractTrades([]Record{rec, dup, rec}, snap)
	second := ExtractTrades([]Record{rec, dup, rec}, snap)
	require.Len(t, first, 1)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("ExtractTrades not idempotent (-first +second):\n%s", diff)
	}

	again := ExtractTrades([]Record{rec}, Snapshot{})
	if diff := cmp.Diff(first, again); diff != "" {
		t.Fatalf("duplicates changed the result (-with +without):\n%s", diff)
	}
}
