package dashboard

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Tone classifies a sentiment for display.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	ToneNeutral  Tone = "neutral"
)

var (
	toneThreshold    = decimal.RequireFromString("0.2")
	negToneThreshold = toneThreshold.Neg()
)

// LatestDecision is the display-ready detail of one record.
type LatestDecision struct {
	Line           int                 `json:"line"`
	Timestamp      time.Time           `json:"timestamp"`
	HasTimestamp   bool                `json:"has_timestamp"`
	Symbol         string              `json:"symbol"`
	Price          decimal.NullDecimal `json:"price"`
	Action         Action              `json:"action"`
	ConfidencePct  decimal.NullDecimal `json:"confidence_pct"`
	SentimentLabel string              `json:"sentiment_label"`
	SentimentScore decimal.NullDecimal `json:"sentiment_score"`
	SentimentTone  Tone                `json:"sentiment_tone"`
	Reason         string              `json:"reason,omitempty"`
	RiskNote       string              `json:"risk_note,omitempty"`
	Error          string              `json:"error,omitempty"`
	Model          string              `json:"model,omitempty"`
	LatencyMS      decimal.NullDecimal `json:"latency_ms"`
	Scoped         []ScopedDecision    `json:"scoped"`
}

// DescribeRecord builds the detail view of rec.
func DescribeRecord(rec Record) LatestDecision {
	out := LatestDecision{
		Line:           rec.Line,
		Timestamp:      rec.Timestamp,
		HasTimestamp:   rec.HasTimestamp,
		Symbol:         rec.Symbol,
		Price:          rec.Price,
		Action:         rec.Action(),
		SentimentLabel: rec.Sentiment.Label,
		SentimentScore: rec.Sentiment.Score,
		SentimentTone:  SentimentTone(rec.Sentiment),
		Error:          rec.Error,
		Model:          rec.Model,
		LatencyMS:      rec.LatencyMS,
		Scoped:         ScopedDecisions(rec),
	}
	if out.SentimentLabel == "" {
		out.SentimentLabel = "N/A"
	}
	if dec := rec.Decision; dec != nil {
		out.ConfidencePct = ConfidencePercent(dec.Confidence)
		out.Reason = dec.Reason
		out.RiskNote = dec.RiskNote
		if out.Symbol == "" {
			out.Symbol = dec.Symbol
		}
	}
	if out.Symbol == "" && rec.Execution != nil {
		out.Symbol = rec.Execution.Symbol
	}
	if out.Symbol == "" {
		out.Symbol = "-"
	}
	return out
}

// RecentDecisions describes the last n records, newest first. n <= 0 means all.
func RecentDecisions(records []Record, n int) []LatestDecision {
	if n <= 0 || n > len(records) {
		n = len(records)
	}
	out := make([]LatestDecision, 0, n)
	for i := len(records) - 1; i >= len(records)-n; i-- {
		out = append(out, DescribeRecord(records[i]))
	}
	return out
}

// ConfidencePercent reads confidences of 1 or less as fractions.
func ConfidencePercent(c decimal.NullDecimal) decimal.NullDecimal {
	if !c.Valid {
		return c
	}
	if c.Decimal.LessThanOrEqual(decimal.NewFromInt(1)) {
		return known(c.Decimal.Mul(hundred))
	}
	return c
}

// SentimentTone 优先使用分数，没有分数时根据标签关键字判断。
func SentimentTone(s Sentiment) Tone {
	if s.Score.Valid {
		switch {
		case s.Score.Decimal.GreaterThan(toneThreshold):
			return TonePositive
		case s.Score.Decimal.LessThan(negToneThreshold):
			return ToneNegative
		default:
			return ToneNeutral
		}
	}
	label := strings.ToLower(s.Label)
	switch {
	case strings.Contains(label, "bull"), strings.Contains(label, "pos"):
		return TonePositive
	case strings.Contains(label, "bear"), strings.Contains(label, "neg"):
		return ToneNegative
	default:
		return ToneNeutral
	}
}
