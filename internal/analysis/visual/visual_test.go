package visual

import (
	"math"
	"testing"
	"time"

	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperdash/internal/analysis/indicator"
	"paperdash/internal/dashboard"
)

func TestExposureSlices(t *testing.T) {
	rows := []dashboard.PositionRow{
		{Symbol: "BTCUSDT", Asset: "BTC", Value: decimal.NewFromInt(420)},
		{Symbol: "ETHUSDT", Asset: "ETH", Value: decimal.NewFromInt(-3)},
	}
	got := ExposureSlices(rows, decimal.NewFromInt(1000))
	require.Len(t, got, 3)
	assert.Equal(t, "BTC", got[0].Label)
	assert.True(t, got[1].Value.IsZero(), "negative values are floored")
	assert.Equal(t, "Cash", got[2].Label)
	assert.True(t, got[2].Value.Equal(decimal.NewFromInt(1000)))

	noCash := ExposureSlices(rows[:1], decimal.Zero)
	assert.Len(t, noCash, 1)

	cashOnly := ExposureSlices(nil, decimal.NewFromInt(50))
	require.Len(t, cashOnly, 1)
	assert.Equal(t, "Cash", cashOnly[0].Label)
}

func TestExposureSlices_RepairsLabels(t *testing.T) {
	rows := []dashboard.PositionRow{{Asset: "Ã©TH", Value: decimal.NewFromInt(1)}}
	got := ExposureSlices(rows, decimal.Zero)
	assert.Equal(t, "éTH", got[0].Label)
}

func TestRenderHTML(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	series := []dashboard.SeriesPoint{
		{Time: base, Total: decimal.NewFromInt(1000), Action: dashboard.ActionBuy, Symbol: "BTCUSDT"},
		{Time: base.Add(time.Hour), Total: decimal.NewFromInt(1010), Action: dashboard.ActionSell, Symbol: "BTCUSDT"},
	}
	slices := ExposureSlices(nil, decimal.NewFromInt(1000))

	html, err := RenderHTML(EquityChart(series), ExposureChart(slices))
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, "Portfolio value")
	assert.Contains(t, out, "Exposure")
	assert.Contains(t, out, "SELL")

	_, err = RenderHTML()
	assert.Error(t, err)
}

func TestCandleChart(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]dashboard.Candle, 60)
	for i := range candles {
		price := 100 + float64(i)
		candles[i] = dashboard.Candle{Time: base.Add(time.Duration(i) * time.Hour), Open: price - 0.5, High: price + 1, Low: price - 1, Close: price}
	}
	rep, err := indicator.Compute(candles, indicator.Settings{Symbol: "BTCUSDT", EMAFast: 5, EMASlow: 10, RSIPeriod: 14})
	require.NoError(t, err)

	html, err := RenderHTML([]components.Charter{CandleChart("btcusdt", candles, rep)}...)
	require.NoError(t, err)
	assert.Contains(t, string(html), "BTCUSDT")
}

func TestToLineData_PadsLeadingGap(t *testing.T) {
	got := toLineData([]float64{1.23456, math.NaN()}, 4)
	require.Len(t, got, 4)
	assert.Nil(t, got[0].Value)
	assert.Nil(t, got[1].Value)
	assert.Equal(t, 1.2346, got[2].Value)
	assert.Nil(t, got[3].Value)
}

func TestImageResultDataURI(t *testing.T) {
	var nilRes *ImageResult
	assert.Empty(t, nilRes.DataURI())
	res := &ImageResult{Bytes: []byte{1, 2}}
	assert.Equal(t, "data:image/png;base64,AQI=", res.DataURI())
}
