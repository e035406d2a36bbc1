package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"aicore/internal/storage"
)

// TrendDirection classifies how spend is moving
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// stableThreshold is the absolute percent change still considered stable
var stableThreshold = decimal.NewFromInt(5)

// DailyCost is the spend of one UTC day
type DailyCost struct {
	Date     string          `json:"date"`
	Cost     decimal.Decimal `json:"cost"`
	Requests int64           `json:"requests"`
}

// Trend is a daily cost series and its direction
type Trend struct {
	Days              int             `json:"days"`
	Series            []DailyCost     `json:"series"`
	Total             decimal.Decimal `json:"total"`
	FirstHalfAverage  decimal.Decimal `json:"first_half_average"`
	SecondHalfAverage decimal.Decimal `json:"second_half_average"`
	ChangePercent     decimal.Decimal `json:"change_percent"`
	Direction         TrendDirection  `json:"direction"`
}

// bucketDaily spreads cost points over every day in [from, to), zero-filling gaps
func bucketDaily(points []storage.CostPoint, from, to time.Time) []DailyCost {
	index := map[string]int{}
	var series []DailyCost
	for day := startOfDay(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		index[key] = len(series)
		series = append(series, DailyCost{Date: key, Cost: decimal.Zero})
	}

	for _, p := range points {
		i, ok := index[p.CreatedAt.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}
		series[i].Cost = series[i].Cost.Add(p.Cost)
		series[i].Requests++
	}
	return series
}

// classify compares the average of the first half of the series with the
// second half. With an odd length the middle day belongs to the second half.
func classify(series []DailyCost) (first, second, change decimal.Decimal, dir TrendDirection) {
	n := len(series)
	if n < 2 {
		return decimal.Zero, decimal.Zero, decimal.Zero, TrendStable
	}

	first = average(series[:n/2])
	second = average(series[n/2:])

	if first.IsZero() {
		if second.IsPositive() {
			return first, second, decimal.Zero, TrendIncreasing
		}
		return first, second, decimal.Zero, TrendStable
	}

	change = second.Sub(first).Div(first).Mul(decimal.NewFromInt(100))
	switch {
	case change.Abs().LessThan(stableThreshold):
		dir = TrendStable
	case change.IsPositive():
		dir = TrendIncreasing
	default:
		dir = TrendDecreasing
	}
	return first, second, change.Round(2), dir
}

func average(days []DailyCost) decimal.Decimal {
	if len(days) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, d := range days {
		sum = sum.Add(d.Cost)
	}
	return sum.Div(decimal.NewFromInt(int64(len(days))))
}
