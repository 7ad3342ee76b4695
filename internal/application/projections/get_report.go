package projections

import (
	"context"

	domainLesson "tutorbook/internal/domain/lesson"
	"tutorbook/internal/domain/stats"
)

// GetReportQuery carries the window to report on.
type GetReportQuery struct {
	Window stats.Window
}

// Report gathers everything an export of one window needs.
type Report struct {
	Window   stats.Window
	Lessons  []domainLesson.Lesson
	Stats    stats.Stats
	Students []stats.StudentSummary
	Yearly   *stats.YearlyStats // set for year windows only
}

// QueryGetReport collects the lessons, totals and per-student breakdown of a window.
// PRE: query.Window was built by a stats constructor
// POST: Lessons holds only lessons inside the window
func QueryGetReport(ctx context.Context, query GetReportQuery, deps GetStatsDeps) (Report, error) {
	cfg, err := deps.SettingsStore.Get(ctx)
	if err != nil {
		return Report{}, err
	}
	all, err := lessonsForWindow(ctx, deps.LessonStore, query.Window)
	if err != nil {
		return Report{}, err
	}

	in := make([]domainLesson.Lesson, 0, len(all))
	for _, l := range all {
		if query.Window.Contains(l) {
			in = append(in, l)
		}
	}

	r := Report{
		Window:   query.Window,
		Lessons:  in,
		Stats:    stats.Aggregate(in, query.Window, cfg.TaxRate),
		Students: stats.ByStudent(in, query.Window, cfg.TaxRate),
	}
	if query.Window.Kind == stats.KindYear {
		ys := stats.Yearly(in, query.Window.Year, cfg.TaxRate)
		r.Yearly = &ys
	}
	return r, nil
}
