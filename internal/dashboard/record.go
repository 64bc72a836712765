package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Record 是决策日志中的一行。所有字段都可能缺失。
type Record struct {
	Line         int                 `json:"line"`
	Timestamp    time.Time           `json:"timestamp"`
	HasTimestamp bool                `json:"has_timestamp"`
	TimestampRaw string              `json:"timestamp_raw,omitempty"`
	Symbol       string              `json:"symbol,omitempty"`
	Price        decimal.NullDecimal `json:"price"`

	// Decision and Execution are the singular top-level blocks (the first element when the
	// producer wrote an array). Decisions and Executions hold every block, in file order.
	Decision   *DecisionBlock   `json:"decision,omitempty"`
	Execution  *ExecutionBlock  `json:"execution,omitempty"`
	Decisions  []DecisionBlock  `json:"decisions,omitempty"`
	Executions []ExecutionBlock `json:"executions,omitempty"`

	Sentiment    Sentiment                      `json:"sentiment"`
	MarketScores map[string]decimal.NullDecimal `json:"market_scores,omitempty"`
	Candles      map[string][]Candle            `json:"-"`
	Model        string                         `json:"model,omitempty"`
	LatencyMS    decimal.NullDecimal            `json:"latency_ms"`
	Error        string                         `json:"error,omitempty"`
	Metrics      Metrics                        `json:"portfolio_metrics"`

	raw gjson.Result
}

// DecisionBlock is one decision object of a record.
type DecisionBlock struct {
	Symbol     string              `json:"symbol,omitempty"`
	Action     string              `json:"action,omitempty"`
	ActionFR   string              `json:"action_fr,omitempty"`
	Confidence decimal.NullDecimal `json:"confidence"`
	Reason     string              `json:"reason,omitempty"`
	RiskNote   string              `json:"risk_note,omitempty"`
}

// ExecutionBlock is one execution object of a record.
type ExecutionBlock struct {
	Symbol   string              `json:"symbol,omitempty"`
	Action   string              `json:"action,omitempty"`
	ActionFR string              `json:"action_fr,omitempty"`
	Status   string              `json:"status,omitempty"`
	StatusFR string              `json:"status_fr,omitempty"`
	Qty      decimal.NullDecimal `json:"executed_qty"`
	Notional decimal.NullDecimal `json:"executed_notional_usdt"`
	Fee      decimal.NullDecimal `json:"fee_usdt"`
}

// Sentiment is the news-sentiment block of a record.
type Sentiment struct {
	Label string              `json:"label,omitempty"`
	Score decimal.NullDecimal `json:"score"`
}

// Metrics 是记录中内嵌的组合指标。
type Metrics struct {
	TotalValue decimal.NullDecimal `json:"total_value_usdt"`
	PnLPct     decimal.NullDecimal `json:"total_pnl_pct"`
	Cash       decimal.NullDecimal `json:"cash_usdt"`
}

// Candle is one bar of a recent-candle block.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Raw exposes the underlying JSON of the record.
func (r Record) Raw() gjson.Result {
	return r.raw
}

// SortKey is the record's position on the time axis; records without a timestamp sort first.
func (r Record) SortKey() int64 {
	return sortKey(r.Timestamp, r.HasTimestamp)
}

// DisplaySymbol is the record-level symbol used by series points and listings.
func (r Record) DisplaySymbol() string {
	switch {
	case r.Symbol != "":
		return r.Symbol
	case r.Execution != nil && r.Execution.Symbol != "":
		return r.Execution.Symbol
	case r.Decision != nil && r.Decision.Symbol != "":
		return r.Decision.Symbol
	default:
		return "-"
	}
}

// Action is the dominant action of the whole record, read from its singular blocks.
func (r Record) Action() Action {
	return ResolveAction(r.Decision, r.Execution)
}

// ParseRecord builds a Record from one JSON object. Non-object input yields an empty record.
func ParseRecord(obj gjson.Result) Record {
	rec := Record{raw: obj}
	if !obj.IsObject() {
		return rec
	}
	for _, key := range RecordTimestampFields {
		if v := obj.Get(key); v.Exists() && v.Type != gjson.Null {
			rec.TimestampRaw = rawText(v)
			rec.Timestamp, rec.HasTimestamp = readTime(v)
			break
		}
	}
	rec.Symbol = firstText(obj, RecordSymbolFields)
	rec.Price = firstNumber(obj, RecordPriceFields)
	rec.Error = firstText(obj, RecordErrorFields)
	rec.Model = firstText(obj, RecordModelFields)
	rec.LatencyMS = firstNumber(obj, RecordLatencyFields)

	rec.Decisions = collectDecisions(obj)
	rec.Executions = collectExecutions(obj)
	if len(rec.Decisions) > 0 {
		d := rec.Decisions[0]
		rec.Decision = &d
	}
	if len(rec.Executions) > 0 {
		e := rec.Executions[0]
		rec.Execution = &e
	}

	rec.Sentiment = Sentiment{
		Label: firstText(obj, SentimentLabelFields),
		Score: firstNumber(obj, SentimentScoreFields),
	}
	rec.Metrics = Metrics{
		TotalValue: firstNumber(obj, MetricsTotalValueFields),
		PnLPct:     firstNumber(obj, MetricsPnLPctFields),
		Cash:       firstNumber(obj, MetricsCashFields),
	}
	if scores := obj.Get("market_scores"); scores.IsObject() {
		rec.MarketScores = make(map[string]decimal.NullDecimal)
		scores.ForEach(func(key, value gjson.Result) bool {
			score := readNumber(value)
			if value.IsObject() {
				score = firstNumber(value, []string{"score", "value"})
			}
			rec.MarketScores[key.String()] = score
			return true
		})
	}
	rec.Candles = collectCandles(obj)
	return rec
}

func collectBlocks(obj gjson.Result, pluralKey, singularKey string) []gjson.Result {
	if plural := obj.Get(pluralKey); plural.IsArray() {
		return objectsOf(plural)
	}
	single := obj.Get(singularKey)
	switch {
	case single.IsArray():
		return objectsOf(single)
	case single.IsObject():
		return []gjson.Result{single}
	default:
		return nil
	}
}

func objectsOf(arr gjson.Result) []gjson.Result {
	var out []gjson.Result
	for _, item := range arr.Array() {
		if item.IsObject() {
			out = append(out, item)
		}
	}
	return out
}

func collectDecisions(obj gjson.Result) []DecisionBlock {
	blocks := collectBlocks(obj, decisionsField, decisionField)
	if len(blocks) == 0 {
		return nil
	}
	out := make([]DecisionBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, DecisionBlock{
			Symbol:     firstText(b, DecisionSymbolFields),
			Action:     firstText(b, []string{"action"}),
			ActionFR:   firstText(b, []string{"action_fr"}),
			Confidence: firstNumber(b, DecisionConfidenceFields),
			Reason:     firstText(b, DecisionReasonFields),
			RiskNote:   firstText(b, DecisionRiskFields),
		})
	}
	return out
}

func collectExecutions(obj gjson.Result) []ExecutionBlock {
	blocks := collectBlocks(obj, executionsField, executionField)
	if len(blocks) == 0 {
		return nil
	}
	out := make([]ExecutionBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, ExecutionBlock{
			Symbol:   firstText(b, ExecSymbolFields),
			Action:   firstText(b, []string{"action"}),
			ActionFR: firstText(b, []string{"action_fr"}),
			Status:   firstText(b, []string{"status"}),
			StatusFR: firstText(b, []string{"status_fr"}),
			Qty:      firstNumber(b, ExecQtyFields),
			Notional: firstNumber(b, ExecNotionalFields),
			Fee:      firstNumber(b, ExecFeeFields),
		})
	}
	return out
}

func collectCandles(obj gjson.Result) map[string][]Candle {
	var block gjson.Result
	for _, key := range RecordCandleFields {
		if v := obj.Get(key); v.IsObject() {
			block = v
			break
		}
	}
	if !block.Exists() {
		return nil
	}
	out := make(map[string][]Candle)
	block.ForEach(func(symbol, bars gjson.Result) bool {
		if !bars.IsArray() {
			return true
		}
		list := make([]Candle, 0, len(bars.Array()))
		for _, bar := range bars.Array() {
			c, ok := parseCandle(bar)
			if ok {
				list = append(list, c)
			}
		}
		if len(list) > 0 {
			out[symbol.String()] = list
		}
		return true
	})
	return out
}

func parseCandle(bar gjson.Result) (Candle, bool) {
	var c Candle
	if bar.IsArray() {
		// [time, open, high, low, close, volume]
		vals := bar.Array()
		if len(vals) < 5 {
			return c, false
		}
		c.Time, _ = readTime(vals[0])
		c.Open, c.High, c.Low, c.Close = vals[1].Float(), vals[2].Float(), vals[3].Float(), vals[4].Float()
		if len(vals) > 5 {
			c.Volume = vals[5].Float()
		}
		return c, c.Close != 0
	}
	if !bar.IsObject() {
		return c, false
	}
	closeVal := firstNumber(bar, CandleCloseFields)
	if !closeVal.Valid {
		return c, false
	}
	for _, key := range CandleTimeFields {
		if v := bar.Get(key); v.Exists() {
			c.Time, _ = readTime(v)
			break
		}
	}
	c.Open = orZero(firstNumber(bar, CandleOpenFields)).InexactFloat64()
	c.High = orZero(firstNumber(bar, CandleHighFields)).InexactFloat64()
	c.Low = orZero(firstNumber(bar, CandleLowFields)).InexactFloat64()
	c.Close = closeVal.Decimal.InexactFloat64()
	c.Volume = orZero(firstNumber(bar, CandleVolumeFields)).InexactFloat64()
	return c, true
}
