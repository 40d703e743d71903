package analytics

import "time"

// Period is a calendar bucket a report covers
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod maps a period name to a Period; anything unrecognized is daily
func ParsePeriod(name string) Period {
	switch Period(name) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return Period(name)
	default:
		return PeriodDaily
	}
}

func (p Period) String() string {
	return string(p)
}

// Window is the half-open interval [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether Start <= t < End
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// WindowFor returns the window of the period containing now, computed in UTC.
// Weeks start on Monday. Unknown periods use the daily window.
func WindowFor(period Period, now time.Time) Window {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case PeriodWeekly:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		start := midnight.AddDate(0, 0, -daysSinceMonday)
		return Window{Start: start, End: start.AddDate(0, 0, 7)}
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		// AddDate normalizes December + 1 into January of the next year
		return Window{Start: start, End: start.AddDate(0, 1, 0)}
	default:
		return Window{Start: midnight, End: midnight.AddDate(0, 0, 1)}
	}
}
