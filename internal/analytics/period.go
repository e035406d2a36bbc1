package analytics

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownPeriod is returned for period names other than hourly, daily, weekly and monthly
var ErrUnknownPeriod = errors.New("unknown usage period")

// Period is a calendar window for current usage
type Period string

const (
	PeriodHourly  Period = "hourly"
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod maps a name onto a Period. Empty means daily.
func ParsePeriod(name string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return PeriodDaily, nil
	case PeriodHourly, PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, name)
	}
}

// Bounds returns the UTC [start, end) window of the period containing now.
// Weeks start on Monday.
func (p Period) Bounds(now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	switch p {
	case PeriodHourly:
		start := now.Truncate(time.Hour)
		return start, start.Add(time.Hour), nil
	case PeriodDaily:
		start := startOfDay(now)
		return start, start.AddDate(0, 0, 1), nil
	case PeriodWeekly:
		offset := (int(now.Weekday()) + 6) % 7
		start := startOfDay(now).AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, string(p))
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
