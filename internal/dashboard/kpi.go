package dashboard

import (
	"github.com/shopspring/decimal"
)

// KPI sources, reported in KPI.Sources.
const (
	SourceSnapshot     = "snapshot"
	SourceLatestRecord = "latest_record"
	SourceFirstRecord  = "first_record"
	SourceSeries       = "series"
	SourceComputed     = "computed"
	SourceTrades       = "trades"
	SourceDefault      = "default"
)

// KPIInput 汇总指标计算所需的全部输入。Records must be in chronological order.
type KPIInput struct {
	Records       []Record
	Snapshot      Snapshot
	Trades        []Trade
	Positions     []PositionRow
	TotalExposure decimal.Decimal
	Series        []SeriesPoint
}

// KPI holds the headline figures of the dashboard.
type KPI struct {
	TotalValue     decimal.Decimal   `json:"total_value"`
	PnLPct         decimal.Decimal   `json:"total_pnl_pct"`
	Cash           decimal.Decimal   `json:"cash"`
	InitialCapital decimal.Decimal   `json:"initial_capital"`
	Fees           decimal.Decimal   `json:"fees"`
	TradeCount     int64             `json:"trade_count"`
	OpenPositions  int               `json:"open_positions"`
	TotalExposure  decimal.Decimal   `json:"total_exposure"`
	ExposurePct    decimal.Decimal   `json:"exposure_pct"`
	Sources        map[string]string `json:"sources"`
}

// AggregateKPI derives every figure from the first available source. The snapshot and the
// decision log are maintained independently, so any of them may be missing or stale.
func AggregateKPI(in KPIInput) KPI {
	var first, latest Metrics
	if n := len(in.Records); n > 0 {
		first = in.Records[0].Metrics
		latest = in.Records[n-1].Metrics
	}
	kpi := KPI{
		OpenPositions: len(in.Positions),
		TotalExposure: in.TotalExposure,
		Sources:       make(map[string]string),
	}

	kpi.Cash = kpi.pick("cash",
		candidate{SourceSnapshot, in.Snapshot.Cash},
		candidate{SourceLatestRecord, latest.Cash},
	)

	var seriesFirst decimal.NullDecimal
	if len(in.Series) > 0 {
		seriesFirst = known(in.Series[0].Total)
	}
	kpi.InitialCapital = kpi.pick("initial_capital",
		candidate{SourceSnapshot, in.Snapshot.InitialCash},
		candidate{SourceFirstRecord, first.TotalValue},
		candidate{SourceSeries, seriesFirst},
	)

	kpi.TotalValue = kpi.pick("total_value",
		candidate{SourceLatestRecord, latest.TotalValue},
		candidate{SourceComputed, known(kpi.Cash.Add(in.TotalExposure))},
	)

	var computedPnL decimal.NullDecimal
	if kpi.InitialCapital.IsPositive() {
		computedPnL = known(kpi.TotalValue.Sub(kpi.InitialCapital).Div(kpi.InitialCapital).Mul(hundred))
	}
	kpi.PnLPct = kpi.pick("total_pnl_pct",
		candidate{SourceLatestRecord, latest.PnLPct},
		candidate{SourceComputed, computedPnL},
	)

	kpi.Fees = kpi.pick("fees",
		candidate{SourceSnapshot, in.Snapshot.FeesPaid},
		candidate{SourceComputed, known(executionFees(in.Records))},
	)

	count := kpi.pick("trade_count",
		candidate{SourceSnapshot, in.Snapshot.TradeCount},
		candidate{SourceTrades, known(decimal.NewFromInt(int64(len(in.Trades))))},
	)
	kpi.TradeCount = count.IntPart()

	if kpi.TotalValue.IsPositive() {
		kpi.ExposurePct = in.TotalExposure.Div(kpi.TotalValue).Mul(hundred)
	}
	return kpi
}

type candidate struct {
	source string
	value  decimal.NullDecimal
}

// pick returns the first known candidate and records where it came from; none known yields 0.
func (k *KPI) pick(name string, candidates ...candidate) decimal.Decimal {
	for _, c := range candidates {
		if c.value.Valid {
			k.Sources[name] = c.source
			return c.value.Decimal
		}
	}
	k.Sources[name] = SourceDefault
	return decimal.Zero
}

func executionFees(records []Record) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range records {
		for _, exec := range dedupExecutions(rec.Executions) {
			if exec.Fee.Valid {
				total = total.Add(exec.Fee.Decimal)
			}
		}
	}
	return total
}
