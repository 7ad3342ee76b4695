package calendar

import (
	"errors"
	"testing"
	"time"

	"tutorbook/internal/domain/timeofday"
)

// TestGenerateCalendarDays tests the six-week grid layout.
func TestGenerateCalendarDays(t *testing.T) {
	tests := []struct {
		name      string
		month     time.Time
		wantFirst string
		wantLast  string
	}{
		// May 2024 starts on a Wednesday.
		{"mid-week start", time.Date(2024, 5, 17, 15, 0, 0, 0, time.UTC), "2024-04-28", "2024-06-08"},
		// September 2024 starts on a Sunday.
		{"sunday start", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), "2024-09-01", "2024-10-12"},
		// February 2026 starts on a Sunday and has 28 days.
		{"short month", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), "2026-02-01", "2026-03-14"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			days := GenerateCalendarDays(tc.month)
			if len(days) != GridDays {
				t.Fatalf("len = %d, want %d", len(days), GridDays)
			}
			if days[0].Weekday() != time.Sunday {
				t.Errorf("first day weekday = %v, want Sunday", days[0].Weekday())
			}
			if got := FormatDate(days[0]); got != tc.wantFirst {
				t.Errorf("first = %s, want %s", got, tc.wantFirst)
			}
			if got := FormatDate(days[len(days)-1]); got != tc.wantLast {
				t.Errorf("last = %s, want %s", got, tc.wantLast)
			}
			for i := 1; i < len(days); i++ {
				if days[i].Sub(days[i-1]) != 24*time.Hour {
					t.Fatalf("days %d and %d are not consecutive", i-1, i)
				}
			}
		})
	}
}

// TestIsSameDayAndMonth tests date membership helpers.
func TestIsSameDayAndMonth(t *testing.T) {
	a := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	b := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	c := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	d := time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC)

	if !IsSameDay(a, b) {
		t.Error("expected a and b on the same day")
	}
	if IsSameDay(b, c) {
		t.Error("expected b and c on different days")
	}
	if !IsSameMonth(a, c) {
		t.Error("expected a and c in the same month")
	}
	if IsSameMonth(c, d) {
		t.Error("expected different years to be different months")
	}
}

// TestParseDate tests date parsing and the error type.
func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-02-29", time.UTC)
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got.Day() != 29 || got.Month() != time.February {
		t.Errorf("ParseDate = %v", got)
	}

	for _, bad := range []string{"", "2023-02-29", "2024/05/01", "05-01-2024"} {
		_, err := ParseDate(bad, time.UTC)
		var fe *timeofday.FormatError
		if !errors.As(err, &fe) {
			t.Errorf("ParseDate(%q) error = %v, want *FormatError", bad, err)
		}
	}
}

// TestMonthBounds tests first/last day computation.
func TestMonthBounds(t *testing.T) {
	first, last := MonthBounds(time.Date(2024, 2, 14, 8, 0, 0, 0, time.UTC))
	if FormatDate(first) != "2024-02-01" || FormatDate(last) != "2024-02-29" {
		t.Errorf("MonthBounds = %s..%s", FormatDate(first), FormatDate(last))
	}
}
