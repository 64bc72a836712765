package dashhttp

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"paperdash/internal/analysis/indicator"
	"paperdash/internal/analysis/visual"
	"paperdash/internal/board"
	"paperdash/internal/config"
	"paperdash/internal/dashboard"
	"paperdash/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/components"
)

const maxListLimit = 500

// Router 暴露看板查询接口。
type Router struct {
	board      StateSource
	refresh    RefreshTrigger
	history    HistoryReader
	dash       config.DashboardConfig
	indicators config.IndicatorsConfig
	now        func() time.Time
}

func NewRouter(cfg ServerConfig) *Router {
	return &Router{
		board:      cfg.Board,
		refresh:    cfg.Refresh,
		history:    cfg.History,
		dash:       cfg.Dashboard,
		indicators: cfg.Indicators,
		now:        time.Now,
	}
}

// Register 将 /api/dashboard 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("", r.handleOverview)
	group.GET("/kpi", r.handleKPI)
	group.GET("/series", r.handleSeries)
	group.GET("/trades", r.handleTrades)
	group.GET("/positions", r.handlePositions)
	group.GET("/decisions", r.handleDecisions)
	group.GET("/latest", r.handleLatest)
	group.GET("/skipped", r.handleSkipped)
	group.GET("/indicators/:symbol", r.handleIndicators)
	group.GET("/history", r.handleHistory)
	if r.refresh != nil {
		group.POST("/refresh", r.handleRefresh)
	}
}

// RegisterCharts mounts the HTML chart pages.
func (r *Router) RegisterCharts(engine *gin.Engine) {
	engine.GET("/", r.handleChartPage)
	engine.GET("/charts/equity", r.handleEquityChart)
	engine.GET("/charts/exposure", r.handleExposureChart)
	engine.GET("/charts/candles/:symbol", r.handleCandleChart)
}

// ready writes 503 and returns false until the first refresh succeeded.
func (r *Router) ready(c *gin.Context) (board.State, bool) {
	st := r.board.Current()
	if !st.Ready() {
		msg := "dashboard not computed yet"
		if st.LastError != "" {
			msg = st.LastError
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg})
		return st, false
	}
	return st, true
}

func (r *Router) handleOverview(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	m := st.Model
	c.JSON(http.StatusOK, overviewResponse{
		Run:       metaOf(st),
		KPI:       m.KPI,
		Latest:    m.Latest,
		Positions: m.Positions,
		Exposure:  visual.ExposureSlices(m.Positions, m.KPI.Cash),
		Trades:    headTrades(m.Trades, r.dash.RecentTrades),
		Series:    dashboard.FilterRange(m.Series, r.rangeDays(c), r.now()),
		Decisions: dashboard.RecentDecisions(m.Records, r.dash.RecentDecisions),
		Skipped:   st.Skipped,
	})
}

func (r *Router) handleKPI(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": metaOf(st), "kpi": st.Model.KPI})
}

func (r *Router) handleSeries(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	days := r.rangeDays(c)
	c.JSON(http.StatusOK, gin.H{"days": days, "series": dashboard.FilterRange(st.Model.Series, days, r.now())})
}

func (r *Router) handleTrades(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	limit := parseLimit(c, r.dash.RecentTrades)
	c.JSON(http.StatusOK, gin.H{"total": len(st.Model.Trades), "trades": headTrades(st.Model.Trades, limit)})
}

func (r *Router) handlePositions(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	m := st.Model
	c.JSON(http.StatusOK, gin.H{
		"positions":      m.Positions,
		"total_exposure": m.TotalExposure,
		"exposure":       visual.ExposureSlices(m.Positions, m.KPI.Cash),
	})
}

func (r *Router) handleDecisions(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	limit := parseLimit(c, r.dash.RecentDecisions)
	c.JSON(http.StatusOK, gin.H{"total": len(st.Model.Records), "decisions": dashboard.RecentDecisions(st.Model.Records, limit)})
}

func (r *Router) handleLatest(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	if st.Model.Latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no decision records"})
		return
	}
	c.JSON(http.StatusOK, st.Model.Latest)
}

func (r *Router) handleSkipped(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"skipped": st.Skipped})
}

func (r *Router) handleIndicators(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	symbol := dashboard.NormalizeSymbol(c.Param("symbol"))
	rep, err := r.indicatorReport(st, symbol)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (r *Router) indicatorReport(st board.State, symbol string) (indicator.Report, error) {
	candles, found := indicator.LatestCandles(st.Model.Records, symbol)
	if !found {
		return indicator.Report{}, errNoCandles(symbol)
	}
	return indicator.Compute(candles, indicator.Settings{
		Symbol:    symbol,
		EMAFast:   r.indicators.EMAFast,
		EMASlow:   r.indicators.EMASlow,
		RSIPeriod: r.indicators.RSIPeriod,
	})
}

func (r *Router) handleHistory(c *gin.Context) {
	if r.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive disabled"})
		return
	}
	limit := parseLimit(c, 100)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	entries, err := r.history.Recent(ctx, limit)
	if err != nil {
		logger.Errorf("[api] dashboard history failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (r *Router) handleRefresh(c *gin.Context) {
	r.refresh.Trigger()
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

func (r *Router) handleChartPage(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	m := st.Model
	r.renderCharts(c,
		visual.EquityChart(dashboard.FilterRange(m.Series, r.rangeDays(c), r.now())),
		visual.ExposureChart(visual.ExposureSlices(m.Positions, m.KPI.Cash)),
	)
}

func (r *Router) handleEquityChart(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	r.renderCharts(c, visual.EquityChart(dashboard.FilterRange(st.Model.Series, r.rangeDays(c), r.now())))
}

func (r *Router) handleExposureChart(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	r.renderCharts(c, visual.ExposureChart(visual.ExposureSlices(st.Model.Positions, st.Model.KPI.Cash)))
}

func (r *Router) handleCandleChart(c *gin.Context) {
	st, ok := r.ready(c)
	if !ok {
		return
	}
	symbol := dashboard.NormalizeSymbol(c.Param("symbol"))
	candles, found := indicator.LatestCandles(st.Model.Records, symbol)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": errNoCandles(symbol).Error()})
		return
	}
	rep, err := r.indicatorReport(st, symbol)
	if err != nil {
		logger.Warnf("indicators for %s: %v", symbol, err)
	}
	r.renderCharts(c, visual.CandleChart(symbol, candles, rep))
}

func (r *Router) renderCharts(c *gin.Context, items ...components.Charter) {
	html, err := visual.RenderHTML(items...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (r *Router) rangeDays(c *gin.Context) int {
	raw := strings.TrimSpace(c.Query("days"))
	if raw == "" {
		return r.dash.RangeDays
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		return r.dash.RangeDays
	}
	return days
}

func parseLimit(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(strings.TrimSpace(c.DefaultQuery("limit", strconv.Itoa(def))))
	if err != nil || limit <= 0 {
		limit = def
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}

func headTrades(trades []dashboard.Trade, n int) []dashboard.Trade {
	if n <= 0 || n >= len(trades) {
		return trades
	}
	return trades[:n]
}

func metaOf(st board.State) runMeta {
	return runMeta{
		RunID:      st.RunID,
		ComputedAt: st.ComputedAt,
		LoadedAt:   st.LoadedAt,
		Refreshes:  st.Refreshes,
		Failures:   st.Failures,
		LastError:  st.LastError,
	}
}

type errNoCandles string

func (e errNoCandles) Error() string {
	return "no recent candles for " + string(e)
}
