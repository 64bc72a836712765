package dashboard

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// TradeSource tells where a trade was recovered from.
type TradeSource string

const (
	TradeSourceLog     TradeSource = "decision_log"
	TradeSourceHistory TradeSource = "portfolio_history"
)

// Trade 是去重后的一笔成交（或尝试成交）。
type Trade struct {
	Timestamp    time.Time       `json:"timestamp"`
	HasTimestamp bool            `json:"has_timestamp"`
	TimestampRaw string          `json:"timestamp_raw,omitempty"`
	Symbol       string          `json:"symbol"`
	Action       Action          `json:"action"`
	Qty          decimal.Decimal `json:"qty"`
	Notional     decimal.Decimal `json:"notional"`
	Fee          decimal.Decimal `json:"fee"`
	Source       TradeSource     `json:"source"`
}

// Key is the cross-source uniqueness key. Parseable timestamps are compared as instants so that
// equivalent spellings of the same time collide.
func (t Trade) Key() string {
	ts := t.TimestampRaw
	if t.HasTimestamp {
		ts = t.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return strings.Join([]string{
		ts,
		t.Symbol,
		string(t.Action),
		t.Qty.String(),
		t.Notional.String(),
		t.Fee.String(),
	}, "|")
}

// ExtractTrades merges executions from the chronologically sorted records with the snapshot's own
// trade history, drops exact duplicates and orders the result newest first.
func ExtractTrades(records []Record, snap Snapshot) []Trade {
	var list []Trade
	for _, rec := range records {
		list = append(list, recordTrades(rec)...)
	}
	for _, item := range snap.History {
		list = append(list, historyTrade(item))
	}

	seen := make(map[string]bool, len(list))
	deduped := make([]Trade, 0, len(list))
	for _, tr := range list {
		key := tr.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, tr)
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return sortKey(deduped[i].Timestamp, deduped[i].HasTimestamp) > sortKey(deduped[j].Timestamp, deduped[j].HasTimestamp)
	})
	return deduped
}

func recordTrades(rec Record) []Trade {
	executions := dedupExecutions(rec.Executions)
	if len(executions) == 0 {
		return nil
	}
	scoped := ScopedDecisions(rec)
	var out []Trade
	for i := range executions {
		exec := executions[i]
		qty := orZero(exec.Qty)
		notional := orZero(exec.Notional)
		executed := qty.IsPositive() || !notional.IsZero()
		if !executed && !isFillStatus(exec.Status) {
			continue
		}
		sd := matchScoped(i, exec, scoped)
		var dec *DecisionBlock
		if sd != nil {
			dec = sd.Decision
		}
		action := ResolveAction(dec, &exec)
		// Quantity evidence outranks the label: a HOLD with a fill is still a trade.
		if action == ActionHold && !executed {
			continue
		}
		out = append(out, Trade{
			Timestamp:    rec.Timestamp,
			HasTimestamp: rec.HasTimestamp,
			TimestampRaw: rec.TimestampRaw,
			Symbol:       tradeSymbol(rec, exec, sd),
			Action:       action,
			Qty:          qty,
			Notional:     notional,
			Fee:          orZero(exec.Fee),
			Source:       TradeSourceLog,
		})
	}
	return out
}

// matchScoped finds the scoped decision an execution belongs to. The entry already paired with
// this very block wins, then a symbol-key match, then the entry at the same position provided it
// holds no other execution.
func matchScoped(i int, exec ExecutionBlock, scoped []ScopedDecision) *ScopedDecision {
	key := executionKey(exec)
	for j := range scoped {
		if scoped[j].Execution != nil && executionKey(*scoped[j].Execution) == key {
			return &scoped[j]
		}
	}
	if symbolKey := NormalizeSymbol(exec.Symbol); symbolKey != "" {
		for j := range scoped {
			if scoped[j].SymbolKey == symbolKey {
				return &scoped[j]
			}
		}
	}
	if i < len(scoped) && scoped[i].Execution == nil {
		return &scoped[i]
	}
	return nil
}

func tradeSymbol(rec Record, exec ExecutionBlock, sd *ScopedDecision) string {
	switch {
	case exec.Symbol != "":
		return exec.Symbol
	case sd != nil && sd.Symbol != "":
		return sd.Symbol
	case rec.Symbol != "":
		return rec.Symbol
	default:
		return "-"
	}
}

func historyTrade(item gjson.Result) Trade {
	tr := Trade{
		Symbol:   firstText(item, HistorySymbolFields),
		Action:   NormalizeAction(firstText(item, HistoryActionFields)),
		Qty:      orZero(firstNumber(item, HistoryQtyFields)),
		Notional: orZero(firstNumber(item, HistoryNotionalFields)),
		Fee:      orZero(firstNumber(item, HistoryFeeFields)),
		Source:   TradeSourceHistory,
	}
	if tr.Symbol == "" {
		tr.Symbol = "-"
	}
	for _, key := range HistoryTimestampFields {
		if v := item.Get(key); v.Exists() && v.Type != gjson.Null {
			tr.TimestampRaw = rawText(v)
			tr.Timestamp, tr.HasTimestamp = readTime(v)
			break
		}
	}
	return tr
}
