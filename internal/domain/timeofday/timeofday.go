package timeofday

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MinutesPerDay is the number of minutes between 00:00 and 24:00.
const MinutesPerDay = 24 * 60

var hhmmPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// FormatError reports a time or date string that does not match its expected syntax.
type FormatError struct {
	Kind  string // "time" or "date"
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Kind, e.Value)
}

// IsValid reports whether s is a well-formed HH:MM wall-clock time.
func IsValid(s string) bool {
	return hhmmPattern.MatchString(s)
}

// ToMinutes converts "HH:MM" to minutes since midnight.
// PRE: none
// POST: Returns minutes in [0, 1439], or *FormatError if s is malformed
func ToMinutes(s string) (int, error) {
	if !IsValid(s) {
		return 0, &FormatError{Kind: "time", Value: s}
	}
	h, m, _ := strings.Cut(s, ":")
	hours, _ := strconv.Atoi(h)
	mins, _ := strconv.Atoi(m)
	return hours*60 + mins, nil
}

// FormatMinutes renders a minute offset as zero-padded "HH:MM".
// Offsets of 24:00 or more are not wrapped.
func FormatMinutes(m int) string {
	if m < 0 {
		m = 0
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// HoursToMinutes converts fractional hours to whole minutes, rounding half away from zero.
func HoursToMinutes(hours float64) int {
	return int(math.Round(hours * 60))
}

// AddHours returns the wall-clock time reached after adding hours to s.
// PRE: s is "HH:MM"
// POST: Returns "HH:MM"; the hour component may be >= 24 (no day rollover)
func AddHours(s string, hours float64) (string, error) {
	start, err := ToMinutes(s)
	if err != nil {
		return "", err
	}
	return FormatMinutes(start + HoursToMinutes(hours)), nil
}

// DurationHours returns the hours between start and end, rounded to 2 decimal places.
// PRE: start and end are "HH:MM"
// POST: Returns max(0, end-start) in hours
func DurationHours(start, end string) (float64, error) {
	s, err := ToMinutes(start)
	if err != nil {
		return 0, err
	}
	e, err := ToMinutes(end)
	if err != nil {
		return 0, err
	}
	diff := e - s
	if diff < 0 {
		diff = 0
	}
	return math.Round(float64(diff)/60*100) / 100, nil
}

// FormatDuration renders fractional hours for display, e.g. "1h 30m", "45m", "2h".
func FormatDuration(hours float64) string {
	if hours <= 0 {
		return "0h"
	}
	total := HoursToMinutes(hours)
	h, m := total/60, total%60
	switch {
	case h == 0 && m == 0:
		return "0h"
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// Options lists selectable start times between startHour and endHour inclusive.
// Interval is clamped to [1, 60] minutes and hours to [0, 23].
func Options(interval, startHour, endHour int) []string {
	interval = clamp(interval, 1, 60)
	startHour = clamp(startHour, 0, 23)
	endHour = clamp(endHour, startHour, 23)

	var out []string
	for h := startHour; h <= endHour; h++ {
		for m := 0; m < 60; m += interval {
			out = append(out, FormatMinutes(h*60+m))
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
