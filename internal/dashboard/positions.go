package dashboard

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// PositionRow 是一个持仓的估值结果。
type PositionRow struct {
	Symbol string              `json:"symbol"`
	Asset  string              `json:"asset"`
	Amount decimal.Decimal     `json:"amount"`
	Spot   decimal.NullDecimal `json:"spot"`
	Value  decimal.Decimal     `json:"value"`
	Cost   decimal.Decimal     `json:"cost"`
	PnL    decimal.Decimal     `json:"pnl"`
	PnLPct decimal.NullDecimal `json:"pnl_pct"`
}

// ValuePositions values every open position at its last known price and returns the rows, largest
// value first, together with the total exposure. A missing price values the position at zero.
func ValuePositions(snap Snapshot) ([]PositionRow, decimal.Decimal) {
	rows := make([]PositionRow, 0, len(snap.Positions))
	for _, symbol := range snap.PositionSymbols() {
		pos := snap.Positions[symbol]
		amount := orZero(pos.Amount)
		cost := orZero(pos.Cost)
		if !amount.IsPositive() && !cost.IsPositive() {
			continue
		}
		row := PositionRow{
			Symbol: symbol,
			Asset:  pos.Asset,
			Amount: amount,
			Spot:   snap.Price(symbol),
			Value:  decimal.Zero,
			Cost:   cost,
		}
		if row.Asset == "" {
			row.Asset = strings.Replace(symbol, "USDT", "", 1)
		}
		if row.Spot.Valid {
			row.Value = amount.Mul(row.Spot.Decimal)
		}
		row.PnL = row.Value.Sub(cost)
		if cost.IsPositive() {
			row.PnLPct = known(row.PnL.Div(cost).Mul(hundred))
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Value.GreaterThan(rows[j].Value)
	})

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Value)
	}
	return rows, total
}
