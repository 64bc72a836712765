package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"paperdash/internal/dashboard"
	"paperdash/internal/pkg/text"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4FD1C5")).
			MarginBottom(1)

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1).
			Width(22)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	neutralStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB")).Bold(true)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

const reasonPreviewLen = 120

// Options 控制终端摘要的展示范围。
type Options struct {
	RecentTrades int
}

// Render builds the terminal summary of a computed model.
func Render(m dashboard.Model, opts Options) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("PAPER TRADING DASHBOARD"))
	b.WriteString("\n")
	b.WriteString(renderKPI(m.KPI))
	b.WriteString("\n\n")

	if m.Latest != nil {
		b.WriteString(renderLatest(*m.Latest))
		b.WriteString("\n\n")
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf("POSITIONS (%d)", len(m.Positions))))
	b.WriteString("\n")
	b.WriteString(renderPositions(m.Positions))
	b.WriteString("\n\n")

	trades := m.Trades
	if opts.RecentTrades > 0 && len(trades) > opts.RecentTrades {
		trades = trades[:opts.RecentTrades]
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("RECENT TRADES (%d/%d)", len(trades), len(m.Trades))))
	b.WriteString("\n")
	b.WriteString(renderTrades(trades))
	b.WriteString("\n")
	return b.String()
}

func renderKPI(k dashboard.KPI) string {
	cards := []string{
		card("Total value", money(k.TotalValue), neutralStyle),
		card("Total PnL", pct(k.PnLPct), signStyle(k.PnLPct)),
		card("Cash", money(k.Cash), neutralStyle),
		card("Exposure", fmt.Sprintf("%s (%s)", money(k.TotalExposure), pct(k.ExposurePct)), neutralStyle),
		card("Fees / trades", fmt.Sprintf("%s / %d", money(k.Fees), k.TradeCount), neutralStyle),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func card(label, value string, style lipgloss.Style) string {
	return cardStyle.Render(labelStyle.Render(label) + "\n" + style.Render(value))
}

func renderLatest(d dashboard.LatestDecision) string {
	lines := []string{
		fmt.Sprintf("%s %s %s", labelStyle.Render("Latest:"), actionStyle(d.Action).Render(string(d.Action)), d.Symbol),
	}
	if d.HasTimestamp {
		lines = append(lines, labelStyle.Render("Time: ")+d.Timestamp.UTC().Format("2006-01-02 15:04:05Z"))
	}
	if d.ConfidencePct.Valid {
		lines = append(lines, labelStyle.Render("Confidence: ")+d.ConfidencePct.Decimal.StringFixed(0)+"%")
	}
	lines = append(lines, labelStyle.Render("Sentiment: ")+toneStyle(d.SentimentTone).Render(text.Repair(d.SentimentLabel)))
	if d.Reason != "" {
		lines = append(lines, labelStyle.Render("Reason: ")+text.Truncate(text.Repair(d.Reason), reasonPreviewLen))
	}
	if d.Error != "" {
		lines = append(lines, negativeStyle.Render("Error: ")+text.Truncate(text.Repair(d.Error), reasonPreviewLen))
	}
	return strings.Join(lines, "\n")
}

func renderPositions(rows []dashboard.PositionRow) string {
	if len(rows) == 0 {
		return labelStyle.Render("  (no open positions)")
	}
	t := newTable("Asset", "Amount", "Spot", "Value", "Cost", "PnL", "PnL %")
	for _, r := range rows {
		spot := "-"
		if r.Spot.Valid {
			spot = r.Spot.Decimal.String()
		}
		pnlPct := "-"
		if r.PnLPct.Valid {
			pnlPct = pct(r.PnLPct.Decimal)
		}
		t.Row(text.Repair(r.Asset), r.Amount.String(), spot, money(r.Value), money(r.Cost), money(r.PnL), pnlPct)
	}
	return t.String()
}

func renderTrades(trades []dashboard.Trade) string {
	if len(trades) == 0 {
		return labelStyle.Render("  (no trades)")
	}
	t := newTable("Time", "Symbol", "Action", "Qty", "Notional", "Fee", "Source")
	for _, tr := range trades {
		when := tr.TimestampRaw
		if tr.HasTimestamp {
			when = tr.Timestamp.UTC().Format("2006-01-02 15:04")
		}
		if when == "" {
			when = "-"
		}
		t.Row(when, tr.Symbol, string(tr.Action), tr.Qty.String(), money(tr.Notional), tr.Fee.String(), string(tr.Source))
	}
	return t.String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(labelStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func pct(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

func signStyle(d decimal.Decimal) lipgloss.Style {
	switch d.Sign() {
	case 1:
		return positiveStyle
	case -1:
		return negativeStyle
	default:
		return neutralStyle
	}
}

func actionStyle(a dashboard.Action) lipgloss.Style {
	switch a {
	case dashboard.ActionBuy:
		return positiveStyle
	case dashboard.ActionSell:
		return negativeStyle
	default:
		return neutralStyle
	}
}

func toneStyle(t dashboard.Tone) lipgloss.Style {
	switch t {
	case dashboard.TonePositive:
		return positiveStyle
	case dashboard.ToneNegative:
		return negativeStyle
	default:
		return neutralStyle
	}
}
