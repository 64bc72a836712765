package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"paperdash/internal/dashboard"
)

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	atrPeriod  = 14
)

// Settings 描述计算指标所需的最小配置。
type Settings struct {
	Symbol     string
	EMAFast    int
	EMASlow    int
	RSIPeriod  int
	Overbought float64
	Oversold   float64
}

// IndicatorValue 保存单个指标的最新值、序列与状态。
type IndicatorValue struct {
	Latest float64   `json:"latest"`
	Series []float64 `json:"series,omitempty"`
	State  string    `json:"state,omitempty"`
	Note   string    `json:"note,omitempty"`
}

// Report 汇总单个 symbol 的指标输出。
type Report struct {
	Symbol    string                    `json:"symbol"`
	Count     int                       `json:"count"`
	LastClose float64                   `json:"last_close"`
	AsOf      time.Time                 `json:"as_of"`
	Values    map[string]IndicatorValue `json:"values"`
	Warnings  []string                  `json:"warnings,omitempty"`
}

func (s *Settings) normalize() {
	if s.EMAFast <= 0 {
		s.EMAFast = 21
	}
	if s.EMASlow <= 0 {
		s.EMASlow = 50
	}
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = 14
	}
	if s.Overbought == 0 {
		s.Overbought = 70
	}
	if s.Oversold == 0 {
		s.Oversold = 30
	}
}

// Compute runs the indicators the candle window is long enough for. Indicators that need more
// bars than available are skipped with a warning instead of failing the whole report.
func Compute(candles []dashboard.Candle, cfg Settings) (Report, error) {
	cfg.normalize()
	rep := Report{
		Symbol: cfg.Symbol,
		Count:  len(candles),
		Values: make(map[string]IndicatorValue),
	}
	if len(candles) == 0 {
		return rep, fmt.Errorf("no candles")
	}
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}
	last := candles[len(candles)-1]
	rep.LastClose = last.Close
	rep.AsOf = last.Time

	enough := func(name string, need int) bool {
		if len(closes) >= need {
			return true
		}
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s needs %d candles, have %d", name, need, len(closes)))
		return false
	}

	// EMA
	for _, ema := range []struct {
		key    string
		period int
	}{{"ema_fast", cfg.EMAFast}, {"ema_slow", cfg.EMASlow}} {
		if !enough(ema.key, ema.period+1) {
			continue
		}
		series := trimEMALeadingZeros(sanitizeSeries(talib.Ema(closes, ema.period)))
		rep.Values[ema.key] = IndicatorValue{
			Latest: lastValid(series),
			Series: series,
			State:  relativeState(rep.LastClose, lastValid(series)),
			Note:   fmt.Sprintf("EMA%d vs price", ema.period),
		}
	}

	// RSI
	if enough("rsi", cfg.RSIPeriod+1) {
		rsiSeries := sanitizeSeries(talib.Rsi(closes, cfg.RSIPeriod))
		rsiVal := lastValid(rsiSeries)
		state := "neutral"
		switch {
		case rsiVal >= cfg.Overbought:
			state = "overbought"
		case rsiVal <= cfg.Oversold:
			state = "oversold"
		}
		rep.Values["rsi"] = IndicatorValue{
			Latest: rsiVal,
			Series: rsiSeries,
			State:  state,
			Note:   fmt.Sprintf("period=%d thresholds=%.1f/%.1f", cfg.RSIPeriod, cfg.Oversold, cfg.Overbought),
		}
	}

	// MACD
	if enough("macd", macdSlow+macdSignal) {
		macd, signal, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
		signalSeries := sanitizeSeries(signal)
		histSeries := sanitizeSeries(hist)
		macdState := "flat"
		switch {
		case lastValid(histSeries) > 0:
			macdState = "bullish"
		case lastValid(histSeries) < 0:
			macdState = "bearish"
		}
		rep.Values["macd"] = IndicatorValue{
			Latest: lastValid(sanitizeSeries(macd)),
			Series: histSeries,
			State:  macdState,
			Note:   fmt.Sprintf("signal=%.4f hist=%.4f", lastValid(signalSeries), lastValid(histSeries)),
		}
	}

	// ATR
	if enough("atr", atrPeriod+1) {
		atrSeries := sanitizeSeries(talib.Atr(highs, lows, closes, atrPeriod))
		rep.Values["atr"] = IndicatorValue{
			Latest: lastValid(atrSeries),
			Series: atrSeries,
			State:  "volatility",
			Note:   fmt.Sprintf("period=%d", atrPeriod),
		}
	}
	return rep, nil
}

// LatestCandles returns the candle window of symbol from the newest record that carries one.
// records must be chronological; symbols match on their normalized key.
func LatestCandles(records []dashboard.Record, symbol string) ([]dashboard.Candle, bool) {
	key := dashboard.NormalizeSymbol(symbol)
	if key == "" {
		return nil, false
	}
	for i := len(records) - 1; i >= 0; i-- {
		for name, bars := range records[i].Candles {
			if dashboard.NormalizeSymbol(name) == key && len(bars) > 0 {
				return bars, true
			}
		}
	}
	return nil, false
}

func sanitizeSeries(src []float64) []float64 {
	out := make([]float64, 0, len(src))
	for _, v := range src {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, round4(v))
	}
	return out
}

// trimEMALeadingZeros drops TALib's zero-seeded EMA values so plots start when enough candles exist.
func trimEMALeadingZeros(series []float64) []float64 {
	start := 0
	for start < len(series) && math.Abs(series[start]) <= 1e-9 {
		start++
	}
	return series[start:]
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}

func relativeState(price, ref float64) string {
	if ref == 0 {
		return "unknown"
	}
	switch {
	case price > ref*1.002:
		return "above"
	case price < ref*0.998:
		return "below"
	default:
		return "touch"
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
