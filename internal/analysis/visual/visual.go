package visual

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/shopspring/decimal"

	"paperdash/internal/analysis/indicator"
	"paperdash/internal/dashboard"
	"paperdash/internal/pkg/text"
)

const (
	colorBackground    = "#07131d"
	colorTextPrimary   = "#d9e8f1"
	colorTextSecondary = "#b6cddd"
	colorLine          = "#4fd1c5"
	colorBuy           = "#34d399"
	colorSell          = "#f87171"
	colorHold          = "#9ca3af"
	colorCash          = "#8aa8b8"
	colorEmaFast       = "#3b82f6"
	colorEmaSlow       = "#f472b6"

	chartWidthPx  = 1200
	chartHeightPx = 520
	klineHeightPx = 560
)

var palette = []string{"#4fd1c5", "#f6ad55", "#63b3ed", "#f687b3", "#9f7aea", "#68d391", "#fc8181", "#faf089"}

// ImageResult is a rendered PNG.
type ImageResult struct {
	Bytes    []byte `json:"-"`
	Base64   string `json:"base64"`
	Filename string `json:"filename"`
}

func (r *ImageResult) DataURI() string {
	if r == nil {
		return ""
	}
	if r.Base64 == "" && len(r.Bytes) > 0 {
		r.Base64 = base64.StdEncoding.EncodeToString(r.Bytes)
	}
	if r.Base64 == "" {
		return ""
	}
	return "data:image/png;base64," + r.Base64
}

// Slice 是资产分布图中的一块。
type Slice struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
	Color string          `json:"color"`
}

// ExposureSlices splits the portfolio into one slice per position (negative values count as 0)
// plus cash when positive. Without positions the single slice is cash.
func ExposureSlices(rows []dashboard.PositionRow, cash decimal.Decimal) []Slice {
	if len(rows) == 0 {
		return []Slice{{Label: "Cash", Value: decimal.Max(cash, decimal.Zero), Color: colorCash}}
	}
	out := make([]Slice, 0, len(rows)+1)
	for i, row := range rows {
		out = append(out, Slice{
			Label: text.Repair(row.Asset),
			Value: decimal.Max(row.Value, decimal.Zero),
			Color: palette[i%len(palette)],
		})
	}
	if cash.IsPositive() {
		out = append(out, Slice{Label: "Cash", Value: cash, Color: colorCash})
	}
	return out
}

func baseInit(height int) opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", height),
		BackgroundColor: colorBackground,
	}
}

// EquityChart draws the total value line with one marker series per action.
func EquityChart(series []dashboard.SeriesPoint) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(baseInit(chartHeightPx)),
		charts.WithTitleOpts(opts.Title{
			Title:      "Portfolio value (USDT)",
			Left:       "left",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)

	xAxis := make([]string, len(series))
	totals := make([]opts.LineData, len(series))
	markers := map[dashboard.Action][]opts.ScatterData{
		dashboard.ActionBuy:  make([]opts.ScatterData, len(series)),
		dashboard.ActionSell: make([]opts.ScatterData, len(series)),
		dashboard.ActionHold: make([]opts.ScatterData, len(series)),
	}
	for i, p := range series {
		xAxis[i] = p.Time.UTC().Format("01-02 15:04")
		v := round(p.Total.InexactFloat64(), 2)
		totals[i] = opts.LineData{Value: v}
		for action, data := range markers {
			if action == p.Action {
				data[i] = opts.ScatterData{Value: v, Symbol: markerSymbol(action), SymbolSize: markerSize(action)}
			} else {
				data[i] = opts.ScatterData{Value: nil}
			}
		}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Total value", totals,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Smooth: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorLine, Width: 2}),
	)

	for _, action := range []dashboard.Action{dashboard.ActionBuy, dashboard.ActionSell, dashboard.ActionHold} {
		scatter := charts.NewScatter()
		scatter.SetXAxis(xAxis)
		scatter.AddSeries(string(action), markers[action],
			charts.WithItemStyleOpts(opts.ItemStyle{Color: markerColor(action)}),
		)
		line.Overlap(scatter)
	}
	return line
}

func markerColor(a dashboard.Action) string {
	switch a {
	case dashboard.ActionBuy:
		return colorBuy
	case dashboard.ActionSell:
		return colorSell
	default:
		return colorHold
	}
}

func markerSymbol(a dashboard.Action) string {
	switch a {
	case dashboard.ActionBuy:
		return "triangle"
	case dashboard.ActionSell:
		return "pin"
	default:
		return "circle"
	}
}

func markerSize(a dashboard.Action) int {
	if a == dashboard.ActionHold {
		return 6
	}
	return 12
}

// ExposureChart draws the exposure breakdown as a doughnut.
func ExposureChart(slices []Slice) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(baseInit(chartHeightPx)),
		charts.WithTitleOpts(opts.Title{
			Title:      "Exposure",
			Left:       "left",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0", TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
	)
	data := make([]opts.PieData, 0, len(slices))
	for _, s := range slices {
		data = append(data, opts.PieData{
			Name:      s.Label,
			Value:     round(s.Value.InexactFloat64(), 2),
			ItemStyle: &opts.ItemStyle{Color: s.Color},
		})
	}
	pie.AddSeries("exposure", data,
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"45%", "70%"}}),
	)
	return pie
}

// CandleChart draws the candle window of one symbol with its EMA overlays.
func CandleChart(symbol string, candles []dashboard.Candle, rep indicator.Report) *charts.Kline {
	minPrice, maxPrice := priceBounds(candles)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1, math.Abs(maxPrice)*0.01)
	}
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(baseInit(klineHeightPx)),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTitleOpts(opts.Title{
			Title:         strings.ToUpper(symbol),
			Subtitle:      candleSubtitle(rep),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			Min:       round(minPrice-padding, 4),
			Max:       round(maxPrice+padding, 4),
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBuy,
			Color0:       colorSell,
			BorderColor:  colorBuy,
			BorderColor0: colorSell,
		}),
	)

	xAxis := make([]string, len(candles))
	data := make([]opts.KlineData, len(candles))
	for i, c := range candles {
		xAxis[i] = c.Time.UTC().Format("01-02 15:04")
		data[i] = opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}}
	}
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", data)

	ema := charts.NewLine()
	ema.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	ema.SetXAxis(xAxis)
	if v, ok := rep.Values["ema_fast"]; ok {
		ema.AddSeries(emaLegendLabel(v.Note, "EMA Fast"), toLineData(v.Series, len(candles)), charts.WithLineStyleOpts(opts.LineStyle{Color: colorEmaFast, Width: 2}))
	}
	if v, ok := rep.Values["ema_slow"]; ok {
		ema.AddSeries(emaLegendLabel(v.Note, "EMA Slow"), toLineData(v.Series, len(candles)), charts.WithLineStyleOpts(opts.LineStyle{Color: colorEmaSlow, Width: 2}))
	}
	kline.Overlap(ema)
	return kline
}

func candleSubtitle(rep indicator.Report) string {
	parts := make([]string, 0, 2)
	if v, ok := rep.Values["rsi"]; ok {
		parts = append(parts, fmt.Sprintf("RSI %.1f (%s)", v.Latest, v.State))
	}
	if v, ok := rep.Values["macd"]; ok {
		parts = append(parts, fmt.Sprintf("MACD %s", v.State))
	}
	return strings.Join(parts, " | ")
}

// RenderHTML renders the charts into one self-contained HTML page.
func RenderHTML(items ...components.Charter) ([]byte, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no charts to render")
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(items...)
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable checks once per process that a headless Chrome can start.
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		defer cancel()
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

// RenderPNG screenshots an HTML page with headless Chrome.
func RenderPNG(ctx context.Context, name string, html []byte, height int) (ImageResult, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return ImageResult{}, fmt.Errorf("headless chrome unavailable: %w", err)
	}
	if height <= 0 {
		height = chartHeightPx
	}
	png, err := renderHTMLToPNG(ctx, html, chartWidthPx, height)
	if err != nil {
		return ImageResult{}, err
	}
	return ImageResult{
		Bytes:    png,
		Base64:   base64.StdEncoding.EncodeToString(png),
		Filename: fmt.Sprintf("%s.png", strings.ToLower(name)),
	}, nil
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}

func emaLegendLabel(note, fallback string) string {
	if fields := strings.Fields(note); len(fields) > 0 {
		return fields[0]
	}
	return fallback
}

func toLineData(series []float64, length int) []opts.LineData {
	line := make([]opts.LineData, length)
	offset := length - len(series)
	if offset < 0 {
		series = series[-offset:]
		offset = 0
	}
	for i := 0; i < offset; i++ {
		line[i] = opts.LineData{Value: nil}
	}
	for i, val := range series {
		if math.IsNaN(val) {
			line[offset+i] = opts.LineData{Value: nil}
		} else {
			line[offset+i] = opts.LineData{Value: round(val, 4)}
		}
	}
	return line
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

func priceBounds(candles []dashboard.Candle) (minVal, maxVal float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	minVal = candles[0].Low
	maxVal = candles[0].High
	for _, c := range candles {
		if c.Low < minVal {
			minVal = c.Low
		}
		if c.High > maxVal {
			maxVal = c.High
		}
	}
	return minVal, maxVal
}
