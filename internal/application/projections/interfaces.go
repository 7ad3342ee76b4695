package projections

import (
	"context"
	"time"

	domainLesson "tutorbook/internal/domain/lesson"
	domainSettings "tutorbook/internal/domain/settings"
)

// LessonStore interface for lesson queries.
type LessonStore interface {
	Load(ctx context.Context) ([]domainLesson.Lesson, error)
	ListByDate(ctx context.Context, date string) ([]domainLesson.Lesson, error)
	ListByMonth(ctx context.Context, year int, month time.Month) ([]domainLesson.Lesson, error)
	ListByStudent(ctx context.Context, studentName string) ([]domainLesson.Lesson, error)
}

// SettingsStore interface for reading the tax rate and defaults.
type SettingsStore interface {
	Get(ctx context.Context) (domainSettings.AppSettings, error)
}
