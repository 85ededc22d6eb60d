package model

import "time"

// DateLayout is the calendar-day format visits and transactions are keyed by.
const DateLayout = "2006-01-02"

// Day formats t as a visit date.
func Day(t time.Time) string {
	return t.Format(DateLayout)
}

// Weekday returns the clinic's local name for t's weekday. names is indexed
// by time.Weekday; an incomplete table falls back to the English name.
func Weekday(t time.Time, names []string) string {
	if len(names) == 7 {
		return names[t.Weekday()]
	}
	return t.Weekday().String()
}
