package models

import "time"

// DateOf truncates t to its calendar date, expressed as midnight UTC.
// Date-only fields (follow-ups, due dates, closing dates) are stored this way.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
