package projections

import (
	"context"
	"fmt"
	"time"

	"tutorbook/internal/domain/calendar"
	domainLesson "tutorbook/internal/domain/lesson"
	"tutorbook/internal/domain/stats"
)

// GetCalendarMonthQuery carries the month to render.
type GetCalendarMonthQuery struct {
	Year  int
	Month time.Month
	Now   time.Time // optional: if zero, time.Now() is used; marks today
}

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	stats.DaySummary
	Weekday time.Weekday
	InMonth bool // false for the leading and trailing days of adjacent months
	IsToday bool
}

// GetCalendarMonthResult carries the month grid and the month's totals.
type GetCalendarMonthResult struct {
	Year  int
	Month time.Month
	Days  []CalendarDay
	Stats stats.Stats
}

// QueryGetCalendarMonth builds the six-week grid for a month with each day's lessons and hours.
// PRE: query.Month is 1..12
// POST: Days has calendar.GridDays entries starting on a Sunday; Stats covers only the month itself
func QueryGetCalendarMonth(ctx context.Context, query GetCalendarMonthQuery, deps GetStatsDeps) (GetCalendarMonthResult, error) {
	if query.Month < time.January || query.Month > time.December {
		return GetCalendarMonthResult{}, fmt.Errorf("month must be 1-12, got %d", query.Month)
	}
	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}
	cfg, err := deps.SettingsStore.Get(ctx)
	if err != nil {
		return GetCalendarMonthResult{}, err
	}

	target := time.Date(query.Year, query.Month, 1, 0, 0, 0, 0, now.Location())
	grid := calendar.GenerateCalendarDays(target)

	// The grid spans at most three months.
	var lessons []domainLesson.Lesson
	fetched := map[time.Month]bool{}
	for _, day := range grid {
		if fetched[day.Month()] {
			continue
		}
		fetched[day.Month()] = true
		batch, err := deps.LessonStore.ListByMonth(ctx, day.Year(), day.Month())
		if err != nil {
			return GetCalendarMonthResult{}, err
		}
		lessons = append(lessons, batch...)
	}

	days := make([]CalendarDay, 0, len(grid))
	for _, day := range grid {
		days = append(days, CalendarDay{
			DaySummary: stats.Daily(lessons, calendar.FormatDate(day)),
			Weekday:    day.Weekday(),
			InMonth:    calendar.IsSameMonth(day, target),
			IsToday:    calendar.IsSameDay(day, now),
		})
	}

	return GetCalendarMonthResult{
		Year:  query.Year,
		Month: query.Month,
		Days:  days,
		Stats: stats.Aggregate(lessons, stats.Month(query.Year, query.Month), cfg.TaxRate),
	}, nil
}
