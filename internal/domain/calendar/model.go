package calendar

import (
	"time"

	"tutorbook/internal/domain/timeofday"
)

// DateLayout is the storage and wire format for lesson dates.
const DateLayout = "2006-01-02"

// GridDays is the number of cells in a month grid: six full weeks.
const GridDays = 42

// ParseDate parses a YYYY-MM-DD date in the given location.
// PRE: loc may be nil (time.Local is used)
// POST: Returns midnight of that date, or *timeofday.FormatError if malformed
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, &timeofday.FormatError{Kind: "date", Value: s}
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IsSameDay reports whether a and b fall on the same calendar day.
func IsSameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsSameMonth reports whether a and b fall in the same calendar month.
func IsSameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// MonthBounds returns the first and last day of the month containing t.
// POST: first is the 1st at midnight; last is the final day at midnight
func MonthBounds(t time.Time) (first, last time.Time) {
	first = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last = first.AddDate(0, 1, -1)
	return first, last
}

// GenerateCalendarDays returns the 42 consecutive dates of a month grid.
// PRE: month is any instant within the target month
// POST: First element is the Sunday on or before the 1st; six full weeks follow
func GenerateCalendarDays(month time.Time) []time.Time {
	first, _ := MonthBounds(month)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	days := make([]time.Time, GridDays)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}
