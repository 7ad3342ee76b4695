package projections

import (
	"context"
	"fmt"

	domainLesson "tutorbook/internal/domain/lesson"
	"tutorbook/internal/domain/stats"
)

// GetStatsQuery carries the window to aggregate.
type GetStatsQuery struct {
	Window stats.Window
}

// GetStatsDeps holds dependencies for the stats projections.
type GetStatsDeps struct {
	LessonStore   LessonStore
	SettingsStore SettingsStore
}

// QueryGetStats aggregates the lessons in a window using the configured tax rate.
// PRE: query.Window was built by a stats constructor
// POST: Returns zero Stats when the window holds no lessons
func QueryGetStats(ctx context.Context, query GetStatsQuery, deps GetStatsDeps) (stats.Stats, error) {
	cfg, err := deps.SettingsStore.Get(ctx)
	if err != nil {
		return stats.Stats{}, err
	}
	lessons, err := lessonsForWindow(ctx, deps.LessonStore, query.Window)
	if err != nil {
		return stats.Stats{}, err
	}
	return stats.Aggregate(lessons, query.Window, cfg.TaxRate), nil
}

// GetYearlyStatsQuery carries the year to break down.
type GetYearlyStatsQuery struct {
	Year int
}

// QueryGetYearlyStats returns the twelve monthly aggregates of a year and its total.
// PRE: query.Year > 0
// POST: Months has 12 entries in calendar order
func QueryGetYearlyStats(ctx context.Context, query GetYearlyStatsQuery, deps GetStatsDeps) (stats.YearlyStats, error) {
	if query.Year <= 0 {
		return stats.YearlyStats{}, fmt.Errorf("year must be positive, got %d", query.Year)
	}
	cfg, err := deps.SettingsStore.Get(ctx)
	if err != nil {
		return stats.YearlyStats{}, err
	}
	lessons, err := lessonsForWindow(ctx, deps.LessonStore, stats.Year(query.Year))
	if err != nil {
		return stats.YearlyStats{}, err
	}
	return stats.Yearly(lessons, query.Year, cfg.TaxRate), nil
}

// GetStudentStatsQuery carries the window whose students are summarized.
type GetStudentStatsQuery struct {
	Window stats.Window
}

// QueryGetStudentStats returns one aggregate per student in the window.
// PRE: query.Window was built by a stats constructor
// POST: Sorted by net income, highest first
func QueryGetStudentStats(ctx context.Context, query GetStudentStatsQuery, deps GetStatsDeps) ([]stats.StudentSummary, error) {
	cfg, err := deps.SettingsStore.Get(ctx)
	if err != nil {
		return nil, err
	}
	lessons, err := lessonsForWindow(ctx, deps.LessonStore, query.Window)
	if err != nil {
		return nil, err
	}
	return stats.ByStudent(lessons, query.Window, cfg.TaxRate), nil
}

// lessonsForWindow uses the narrowest store query for w. Aggregation still filters by w.
func lessonsForWindow(ctx context.Context, store LessonStore, w stats.Window) ([]domainLesson.Lesson, error) {
	switch w.Kind {
	case stats.KindDay:
		return store.ListByDate(ctx, w.Date)
	case stats.KindMonth:
		return store.ListByMonth(ctx, w.Year, w.Month)
	case stats.KindStudent:
		return store.ListByStudent(ctx, w.Student)
	default:
		return store.Load(ctx)
	}
}
