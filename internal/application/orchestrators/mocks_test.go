package orchestrators

import (
	"context"
	"errors"
	"sort"
	"time"

	emailAdapter "tutorbook/internal/adapters/email"
	domain "tutorbook/internal/domain/lesson"
	settingsDomain "tutorbook/internal/domain/settings"
)

var errMockNotFound = errors.New("mock: lesson not found")

var fixedNowOrch = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func testNowOrch() time.Time { return fixedNowOrch }

// mockLessonStore is an in-memory lesson store covering every orchestrator interface.
type mockLessonStore struct {
	lessons map[string]domain.Lesson
	saves   int
	saveErr error
}

func newMockLessonStore(lessons ...domain.Lesson) *mockLessonStore {
	m := &mockLessonStore{lessons: map[string]domain.Lesson{}}
	for _, l := range lessons {
		m.lessons[l.ID] = l
	}
	return m
}

// GetByID returns errMockNotFound for unknown IDs.
func (m *mockLessonStore) GetByID(_ context.Context, id string) (domain.Lesson, error) {
	l, ok := m.lessons[id]
	if !ok {
		return domain.Lesson{}, errMockNotFound
	}
	return l, nil
}

// Save upserts unless saveErr is set.
func (m *mockLessonStore) Save(_ context.Context, l domain.Lesson) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.lessons[l.ID] = l
	return nil
}

// Delete removes a lesson or returns errMockNotFound.
func (m *mockLessonStore) Delete(_ context.Context, id string) error {
	if _, ok := m.lessons[id]; !ok {
		return errMockNotFound
	}
	delete(m.lessons, id)
	return nil
}

// ListByDate returns lessons on date ordered by ID.
func (m *mockLessonStore) ListByDate(_ context.Context, date string) ([]domain.Lesson, error) {
	var out []domain.Lesson
	for _, l := range m.sorted() {
		if l.Date == date {
			out = append(out, l)
		}
	}
	return out, nil
}

// Load returns every lesson ordered by ID.
func (m *mockLessonStore) Load(_ context.Context) ([]domain.Lesson, error) {
	return m.sorted(), nil
}

// SaveAll replaces the contents unless saveErr is set.
func (m *mockLessonStore) SaveAll(_ context.Context, lessons []domain.Lesson) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.lessons = map[string]domain.Lesson{}
	for _, l := range lessons {
		m.lessons[l.ID] = l
	}
	return nil
}

func (m *mockLessonStore) sorted() []domain.Lesson {
	out := make([]domain.Lesson, 0, len(m.lessons))
	for _, l := range m.lessons {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// mockSettingsStore holds a single settings value.
type mockSettingsStore struct {
	value settingsDomain.AppSettings
	saved bool
}

func (m *mockSettingsStore) Get(_ context.Context) (settingsDomain.AppSettings, error) {
	return m.value, nil
}

func (m *mockSettingsStore) Save(_ context.Context, v settingsDomain.AppSettings) error {
	m.value = v
	m.saved = true
	return nil
}

// mockReminderLog records sent reminders in memory.
type mockReminderLog struct {
	sent map[string]time.Time
}

func newMockReminderLog(ids ...string) *mockReminderLog {
	m := &mockReminderLog{sent: map[string]time.Time{}}
	for _, id := range ids {
		m.sent[id] = time.Time{}
	}
	return m
}

func (m *mockReminderLog) WasSent(_ context.Context, id string) (bool, error) {
	_, ok := m.sent[id]
	return ok, nil
}

func (m *mockReminderLog) MarkSent(_ context.Context, id string, at time.Time) error {
	m.sent[id] = at
	return nil
}

// mockSender captures requests; failFor makes Send fail for a given lesson_id tag.
type mockSender struct {
	requests []emailAdapter.SendRequest
	failFor  string
}

func (m *mockSender) Send(_ context.Context, req emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	if m.failFor != "" && req.Tags["lesson_id"] == m.failFor {
		return emailAdapter.SendResult{}, errors.New("mock: provider unavailable")
	}
	m.requests = append(m.requests, req)
	return emailAdapter.SendResult{MessageID: "msg-" + req.Tags["lesson_id"], SentAt: fixedNowOrch}, nil
}

func (m *mockSender) SendBatch(ctx context.Context, reqs []emailAdapter.SendRequest) ([]emailAdapter.SendResult, error) {
	results := make([]emailAdapter.SendResult, 0, len(reqs))
	for _, r := range reqs {
		res, err := m.Send(ctx, r)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func planned(id, date, start string, duration float64) domain.Lesson {
	return domain.Lesson{
		ID:             id,
		Date:           date,
		StartTime:      start,
		Duration:       duration,
		StudentName:    "Student " + id,
		TeachingMethod: domain.MethodOnline,
		Status:         domain.StatusPlanned,
		HourlyRate:     100,
		CreatedAt:      fixedNowOrch.Add(-24 * time.Hour),
		UpdatedAt:      fixedNowOrch.Add(-24 * time.Hour),
	}
}
