package expiration

import "time"

// civilDate returns the calendar date of t in loc as midnight UTC, the
// representation used for renewal dates.
func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Window returns the inclusive renewal window [today, today+lookaheadDays]
// for the instant now as seen in loc.
func Window(now time.Time, loc *time.Location, lookaheadDays int) (from, to time.Time) {
	from = civilDate(now, loc)
	return from, from.AddDate(0, 0, lookaheadDays)
}
