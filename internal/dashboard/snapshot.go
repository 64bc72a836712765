package dashboard

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ErrSnapshotNotObject is returned when the snapshot's top level is not a JSON object.
var ErrSnapshotNotObject = errors.New("snapshot is not a json object")

// Snapshot 是组合在某一时刻的状态。
type Snapshot struct {
	Cash         decimal.NullDecimal
	InitialCash  decimal.NullDecimal
	FeesPaid     decimal.NullDecimal
	TradeCount   decimal.NullDecimal
	CreatedAt    time.Time
	HasCreatedAt bool
	Positions    map[string]SnapshotPosition
	LastPrices   map[string]decimal.NullDecimal
	History      []gjson.Result
}

// SnapshotPosition is one entry of the snapshot's open-position map.
type SnapshotPosition struct {
	Amount decimal.NullDecimal
	Cost   decimal.NullDecimal
	Asset  string
}

// ParseSnapshot decodes a snapshot document.
func ParseSnapshot(data []byte) (Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return Snapshot{}, errors.New("snapshot is not valid json")
	}
	return SnapshotFromResult(gjson.ParseBytes(data))
}

// SnapshotFromResult reads a snapshot from an already parsed value.
func SnapshotFromResult(doc gjson.Result) (Snapshot, error) {
	if !doc.IsObject() {
		return Snapshot{}, ErrSnapshotNotObject
	}
	snap := Snapshot{
		Cash:        firstNumber(doc, []string{"cash_usdt"}),
		InitialCash: firstNumber(doc, []string{"initial_cash_usdt"}),
		FeesPaid:    firstNumber(doc, []string{"fees_paid_usdt"}),
		TradeCount:  firstNumber(doc, []string{"trade_count"}),
	}
	if v := doc.Get("created_at_utc"); v.Exists() {
		snap.CreatedAt, snap.HasCreatedAt = readTime(v)
	}
	if positions := doc.Get("positions"); positions.IsObject() {
		snap.Positions = make(map[string]SnapshotPosition)
		positions.ForEach(func(symbol, pos gjson.Result) bool {
			snap.Positions[symbol.String()] = SnapshotPosition{
				Amount: firstNumber(pos, PositionAmountFields),
				Cost:   firstNumber(pos, PositionCostFields),
				Asset:  firstText(pos, PositionAssetFields),
			}
			return true
		})
	}
	if prices := doc.Get("last_prices"); prices.IsObject() {
		snap.LastPrices = make(map[string]decimal.NullDecimal)
		prices.ForEach(func(symbol, price gjson.Result) bool {
			snap.LastPrices[symbol.String()] = readNumber(price)
			return true
		})
	}
	if history := doc.Get("history"); history.IsArray() {
		snap.History = objectsOf(history)
	}
	return snap, nil
}

// Price returns the last known price of symbol. An exact key wins over a normalized match.
func (s Snapshot) Price(symbol string) decimal.NullDecimal {
	if p, ok := s.LastPrices[symbol]; ok {
		return p
	}
	key := NormalizeSymbol(symbol)
	if key == "" {
		return decimal.NullDecimal{}
	}
	for _, name := range s.priceSymbols() {
		if NormalizeSymbol(name) == key {
			return s.LastPrices[name]
		}
	}
	return decimal.NullDecimal{}
}

// PositionSymbols lists position keys in a stable order.
func (s Snapshot) PositionSymbols() []string {
	out := make([]string, 0, len(s.Positions))
	for symbol := range s.Positions {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

func (s Snapshot) priceSymbols() []string {
	out := make([]string, 0, len(s.LastPrices))
	for symbol := range s.LastPrices {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}
