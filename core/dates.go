package core

import "time"

// timeNow is stubbed out in tests.
var timeNow = time.Now

// upcomingWindow is how far ahead a date may be to still count as upcoming.
const upcomingWindow = 7 * 24 * time.Hour

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsPastDate reports whether t falls strictly before today.
// Both sides are midnight-normalized: a date equal to today is not past.
func IsPastDate(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return midnight(t).Before(midnight(timeNow()))
}

// IsUpcoming reports whether t falls within today through today+7 days inclusive.
func IsUpcoming(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	day := midnight(t)
	today := midnight(timeNow())
	return !day.Before(today) && !day.After(today.Add(upcomingWindow))
}
