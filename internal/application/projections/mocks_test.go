package projections

import (
	"context"
	"strings"
	"time"

	domainLesson "tutorbook/internal/domain/lesson"
	domainSettings "tutorbook/internal/domain/settings"
)

// mockLessonStore serves a fixed slice and records which query was used.
type mockLessonStore struct {
	lessons []domainLesson.Lesson
	calls   []string
}

func (m *mockLessonStore) Load(_ context.Context) ([]domainLesson.Lesson, error) {
	m.calls = append(m.calls, "Load")
	return append([]domainLesson.Lesson(nil), m.lessons...), nil
}

func (m *mockLessonStore) ListByDate(_ context.Context, date string) ([]domainLesson.Lesson, error) {
	m.calls = append(m.calls, "ListByDate")
	return m.filter(func(l domainLesson.Lesson) bool { return l.Date == date }), nil
}

func (m *mockLessonStore) ListByMonth(_ context.Context, year int, month time.Month) ([]domainLesson.Lesson, error) {
	m.calls = append(m.calls, "ListByMonth")
	prefix := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-")
	return m.filter(func(l domainLesson.Lesson) bool { return strings.HasPrefix(l.Date, prefix) }), nil
}

func (m *mockLessonStore) ListByStudent(_ context.Context, name string) ([]domainLesson.Lesson, error) {
	m.calls = append(m.calls, "ListByStudent")
	return m.filter(func(l domainLesson.Lesson) bool { return l.StudentName == name }), nil
}

func (m *mockLessonStore) filter(keep func(domainLesson.Lesson) bool) []domainLesson.Lesson {
	var out []domainLesson.Lesson
	for _, l := range m.lessons {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

type mockSettingsStore struct {
	value domainSettings.AppSettings
}

func (m *mockSettingsStore) Get(_ context.Context) (domainSettings.AppSettings, error) {
	return m.value, nil
}

func fixtureLesson(id, student, date, start string, duration float64, status domainLesson.Status, method domainLesson.Method) domainLesson.Lesson {
	return domainLesson.Lesson{
		ID:             id,
		Date:           date,
		StartTime:      start,
		Duration:       duration,
		StudentName:    student,
		TeachingMethod: method,
		Status:         status,
		HourlyRate:     100,
	}
}

// fixtureLessons: May 2024 holds Alice 1h online and Bob 2h offline completed, Carol cancelled.
func fixtureLessons() []domainLesson.Lesson {
	return []domainLesson.Lesson{
		fixtureLesson("e", "Dave", "2024-04-30", "16:00", 1.5, domainLesson.StatusCompleted, domainLesson.MethodOffline),
		fixtureLesson("a", "Alice", "2024-05-02", "10:00", 1, domainLesson.StatusCompleted, domainLesson.MethodOnline),
		fixtureLesson("f", "Alice", "2024-05-02", "9:00", 0.5, domainLesson.StatusCompleted, domainLesson.MethodOnline),
		fixtureLesson("b", "Bob", "2024-05-03", "09:00", 2, domainLesson.StatusCompleted, domainLesson.MethodOffline),
		fixtureLesson("c", "Carol", "2024-05-15", "14:00", 1, domainLesson.StatusCancelled, domainLesson.MethodOffline),
		fixtureLesson("d", "Alice", "2024-06-01", "10:00", 1, domainLesson.StatusPlanned, domainLesson.MethodOnline),
	}
}

func statsDeps(taxRate float64) (GetStatsDeps, *mockLessonStore) {
	store := &mockLessonStore{lessons: fixtureLessons()}
	cfg := domainSettings.Defaults()
	cfg.TaxRate = taxRate
	return GetStatsDeps{LessonStore: store, SettingsStore: &mockSettingsStore{value: cfg}}, store
}
