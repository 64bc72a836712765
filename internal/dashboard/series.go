package dashboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SeriesPoint is one point of the equity curve.
type SeriesPoint struct {
	Time      time.Time           `json:"time"`
	Total     decimal.Decimal     `json:"total"`
	Action    Action              `json:"action"`
	Symbol    string              `json:"symbol"`
	Price     decimal.NullDecimal `json:"price"`
	Synthetic bool                `json:"synthetic,omitempty"`
}

// BuildSeries emits one point per record that has both a parseable timestamp and an embedded
// total value. When no record qualifies it falls back to a single point built from the snapshot.
func BuildSeries(records []Record, snap Snapshot) []SeriesPoint {
	var points []SeriesPoint
	for _, rec := range records {
		if !rec.HasTimestamp || !rec.Metrics.TotalValue.Valid {
			continue
		}
		points = append(points, SeriesPoint{
			Time:   rec.Timestamp,
			Total:  rec.Metrics.TotalValue.Decimal,
			Action: rec.Action(),
			Symbol: rec.DisplaySymbol(),
			Price:  rec.Price,
		})
	}
	if len(points) == 0 {
		at := nowFunc().UTC()
		if snap.HasCreatedAt {
			at = snap.CreatedAt
		}
		return []SeriesPoint{{
			Time:      at,
			Total:     orZero(snap.Cash),
			Action:    ActionHold,
			Symbol:    "-",
			Synthetic: true,
		}}
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	return points
}

// FilterRange keeps the points of the last days days plus the one point right before the cutoff.
// days <= 0, or a window containing no point, returns the series unchanged.
func FilterRange(series []SeriesPoint, days int, now time.Time) []SeriesPoint {
	if days <= 0 || len(series) == 0 {
		return series
	}
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	start := sort.Search(len(series), func(i int) bool {
		return !series[i].Time.Before(cutoff)
	})
	if start == len(series) {
		return series
	}
	if start > 0 {
		start--
	}
	return series[start:]
}
