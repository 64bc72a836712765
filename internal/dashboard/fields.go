package dashboard

// Alternate field names, in priority order. The first present value wins, so the order of each
// list decides the result when a producer writes more than one of them.
var (
	// Record level.
	RecordTimestampFields = []string{"timestamp_utc", "timestamp", "time"}
	RecordSymbolFields    = []string{"symbol"}
	RecordPriceFields     = []string{"price", "last_price"}
	RecordErrorFields     = []string{"gemini_error", "error"}
	RecordModelFields     = []string{"model", "gemini_model", "model_call.model"}
	RecordLatencyFields   = []string{"latency_ms", "model_call.latency_ms"}
	RecordCandleFields    = []string{"recent_candles", "candles"}

	MetricsTotalValueFields = []string{"portfolio_metrics.total_value_usdt"}
	MetricsPnLPctFields     = []string{"portfolio_metrics.total_pnl_pct"}
	MetricsCashFields       = []string{"portfolio_metrics.cash_usdt"}

	SentimentLabelFields = []string{"news_sentiment.label_fr", "news_sentiment.label"}
	SentimentScoreFields = []string{"news_sentiment.score"}

	// Decision blocks.
	DecisionSymbolFields     = []string{"symbol"}
	DecisionConfidenceFields = []string{"confidence"}
	DecisionReasonFields     = []string{"reason"}
	DecisionRiskFields       = []string{"risk_note"}

	// Execution blocks embedded in the decision log.
	ExecSymbolFields   = []string{"symbol"}
	ExecQtyFields      = []string{"executed_qty", "qty", "quantity"}
	ExecNotionalFields = []string{"executed_notional_usdt", "notional_usdt", "notional"}
	ExecFeeFields      = []string{"fee_usdt", "fee"}

	// Snapshot trade history.
	HistoryTimestampFields = []string{"timestamp_utc", "timestamp", "time", "created_at_utc"}
	HistorySymbolFields    = []string{"symbol", "pair", "market"}
	HistoryActionFields    = []string{"side", "action", "type", "status"}
	HistoryQtyFields       = []string{"qty", "quantity", "asset_amount", "executed_qty"}
	HistoryNotionalFields  = []string{"notional_usdt", "notional", "value_usdt", "executed_notional_usdt"}
	HistoryFeeFields       = []string{"fee_usdt", "fee"}

	// Snapshot positions.
	PositionAmountFields = []string{"asset_amount"}
	PositionCostFields   = []string{"position_cost_usdt"}
	PositionAssetFields  = []string{"asset_symbol"}

	// Candle bars inside recent-candle blocks.
	CandleTimeFields   = []string{"close_time", "time", "t", "timestamp"}
	CandleOpenFields   = []string{"open", "o"}
	CandleHighFields   = []string{"high", "h"}
	CandleLowFields    = []string{"low", "l"}
	CandleCloseFields  = []string{"close", "c"}
	CandleVolumeFields = []string{"volume", "v"}
)

// Block collections. A record may carry a plural array, or the singular key holding either an
// object or an array.
const (
	decisionsField  = "decisions"
	decisionField   = "decision"
	executionsField = "executions"
	executionField  = "execution"
)
