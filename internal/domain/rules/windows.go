// Package rules holds the calendar arithmetic shared by the quota and
// notification services: day keys, the sliding weekly cutoff and quiet hours.
package rules

import "time"

const WeeklyWindow = 7 * 24 * time.Hour

// DayKey identifies the calendar day the daily cap is counted under.
func DayKey(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}

// NextResetAt is the next local midnight, i.e. the earliest instant the daily
// cap can pass again once reached.
func NextResetAt(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return next.UTC()
}

// WeeklyCutoff is the lower bound of the sliding 7-day window.
func WeeklyCutoff(now time.Time) time.Time {
	return now.Add(-WeeklyWindow)
}

// QuietHours describes the daily interval during which sends are allowed:
// [StartHour, EndHour) local time. Outside of it delivery is suppressed
// regardless of remaining budget.
type QuietHours struct {
	StartHour int
	EndHour   int
}

func (q QuietHours) valid() bool {
	return q.StartHour >= 0 && q.EndHour > q.StartHour && q.EndHour <= 24
}

// Allows reports whether now falls inside the permitted sending interval.
func (q QuietHours) Allows(now time.Time, loc *time.Location) bool {
	if !q.valid() {
		return true
	}
	if loc == nil {
		loc = time.UTC
	}
	hour := now.In(loc).Hour()
	return hour >= q.StartHour && hour < q.EndHour
}

// NextOpen returns the next instant sending becomes permitted. If now is
// already inside the permitted interval it returns now unchanged.
func (q QuietHours) NextOpen(now time.Time, loc *time.Location) time.Time {
	if !q.valid() || q.Allows(now, loc) {
		return now
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	open := time.Date(local.Year(), local.Month(), local.Day(), q.StartHour, 0, 0, 0, loc)
	if !local.Before(open) {
		open = open.AddDate(0, 0, 1)
	}
	return open.UTC()
}
