package dashboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// nowFunc anchors the synthetic series point when the snapshot has no creation time.
var nowFunc = time.Now

// Model is everything the dashboard displays, rebuilt from scratch on every refresh.
type Model struct {
	Records       []Record        `json:"-"`
	Latest        *LatestDecision `json:"latest,omitempty"`
	Trades        []Trade         `json:"trades"`
	Positions     []PositionRow   `json:"positions"`
	TotalExposure decimal.Decimal `json:"total_exposure"`
	Series        []SeriesPoint   `json:"series"`
	KPI           KPI             `json:"kpi"`
}

// Compute reconciles the decision log records with the portfolio snapshot. records is not
// modified; the model holds its own chronologically sorted copy.
func Compute(records []Record, snap Snapshot) Model {
	sorted := SortRecords(records)

	positions, exposure := ValuePositions(snap)
	trades := ExtractTrades(sorted, snap)
	series := BuildSeries(sorted, snap)

	m := Model{
		Records:       sorted,
		Trades:        trades,
		Positions:     positions,
		TotalExposure: exposure,
		Series:        series,
		KPI: AggregateKPI(KPIInput{
			Records:       sorted,
			Snapshot:      snap,
			Trades:        trades,
			Positions:     positions,
			TotalExposure: exposure,
			Series:        series,
		}),
	}
	if n := len(sorted); n > 0 {
		latest := DescribeRecord(sorted[n-1])
		m.Latest = &latest
	}
	return m
}

// SortRecords returns a copy ordered by timestamp. Ties and untimed records keep file order.
func SortRecords(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortKey() < sorted[j].SortKey()
	})
	return sorted
}
