package lesson

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"tutorbook/internal/adapters/storage"
	domain "tutorbook/internal/domain/lesson"
	"tutorbook/internal/domain/timeofday"
)

const lessonColumns = "id, date, start_time, duration, student_name, student_id, teaching_method, status, hourly_rate, notes, created_at, updated_at"

const upsertLesson = "INSERT INTO lesson (" + lessonColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) " +
	"ON CONFLICT(id) DO UPDATE SET date=excluded.date, start_time=excluded.start_time, duration=excluded.duration, " +
	"student_name=excluded.student_name, student_id=excluded.student_id, teaching_method=excluded.teaching_method, " +
	"status=excluded.status, hourly_rate=excluded.hourly_rate, notes=excluded.notes, updated_at=excluded.updated_at"

// SQLiteStore implements Store and ReminderLog using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new LessonStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Lesson by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Lesson, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+lessonColumns+" FROM lesson WHERE id = ?", id)
	entity, err := scanLesson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Lesson{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entity, err
}

// Save persists a Lesson to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update); created_at never changes on update
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Lesson) error {
	_, err := s.db.ExecContext(ctx, upsertLesson, lessonArgs(entity)...)
	return err
}

// Delete removes a Lesson from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed; returns ErrNotFound if it did not exist
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM lesson WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List retrieves all Lessons ordered by date and start time.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Lesson, error) {
	return s.queryLessons(ctx, "")
}

// ListByDate retrieves Lessons on one YYYY-MM-DD date.
// PRE: date is YYYY-MM-DD
// POST: Returns lessons of every status, ordered by start time
func (s *SQLiteStore) ListByDate(ctx context.Context, date string) ([]domain.Lesson, error) {
	return s.queryLessons(ctx, "WHERE date = ?", date)
}

// ListByMonth retrieves Lessons in a calendar month.
// PRE: month is January..December
// POST: Returns lessons whose date starts with YYYY-MM
func (s *SQLiteStore) ListByMonth(ctx context.Context, year int, month time.Month) ([]domain.Lesson, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))
	return s.queryLessons(ctx, "WHERE substr(date, 1, 8) = ?", prefix)
}

// ListByStudent retrieves Lessons for an exact student name.
// PRE: studentName is non-empty
// POST: Returns lessons across all dates
func (s *SQLiteStore) ListByStudent(ctx context.Context, studentName string) ([]domain.Lesson, error) {
	return s.queryLessons(ctx, "WHERE student_name = ?", studentName)
}

// Load returns every lesson.
func (s *SQLiteStore) Load(ctx context.Context) ([]domain.Lesson, error) {
	return s.List(ctx)
}

// SaveAll replaces every stored lesson with lessons in one transaction.
// PRE: every lesson has been validated; IDs are unique
// POST: The table holds exactly lessons, or is unchanged on error
func (s *SQLiteStore) SaveAll(ctx context.Context, lessons []domain.Lesson) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM lesson"); err != nil {
		return fmt.Errorf("clear lessons: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, upsertLesson)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, l := range lessons {
		if _, err = stmt.ExecContext(ctx, lessonArgs(l)...); err != nil {
			return fmt.Errorf("insert lesson %s: %w", l.ID, err)
		}
	}
	return tx.Commit()
}

// WasSent reports whether a reminder was recorded for lessonID.
func (s *SQLiteStore) WasSent(ctx context.Context, lessonID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reminder_log WHERE lesson_id = ?", lessonID).Scan(&n)
	return n > 0, err
}

// MarkSent records that a reminder went out for lessonID.
// PRE: lessonID refers to a stored lesson
// POST: Later WasSent calls return true; repeated calls keep the first time
func (s *SQLiteStore) MarkSent(ctx context.Context, lessonID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO reminder_log (lesson_id, sent_at) VALUES (?, ?) ON CONFLICT(lesson_id) DO NOTHING",
		lessonID, at.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func lessonArgs(l domain.Lesson) []any {
	return []any{
		l.ID, l.Date, l.StartTime, l.Duration, l.StudentName, l.StudentID,
		string(l.TeachingMethod), string(l.Status), l.HourlyRate, l.Notes,
		l.CreatedAt.UTC().Format(time.RFC3339Nano), l.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLesson(row scanner) (domain.Lesson, error) {
	var l domain.Lesson
	var method, status, created, updated string
	err := row.Scan(&l.ID, &l.Date, &l.StartTime, &l.Duration, &l.StudentName, &l.StudentID,
		&method, &status, &l.HourlyRate, &l.Notes, &created, &updated)
	if err != nil {
		return domain.Lesson{}, err
	}
	l.TeachingMethod = domain.Method(method)
	l.Status = domain.Status(status)
	if l.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return domain.Lesson{}, fmt.Errorf("lesson %s created_at: %w", l.ID, err)
	}
	if l.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return domain.Lesson{}, fmt.Errorf("lesson %s updated_at: %w", l.ID, err)
	}
	return l, nil
}

func (s *SQLiteStore) queryLessons(ctx context.Context, where string, args ...any) ([]domain.Lesson, error) {
	query := "SELECT " + lessonColumns + " FROM lesson " + where + " ORDER BY date, start_time, id"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Lesson
	for rows.Next() {
		entity, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortByStart(results)
	return results, nil
}

// sortByStart orders by date then start minute; "9:00" and "09:00" sort together.
func sortByStart(lessons []domain.Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		if lessons[i].Date != lessons[j].Date {
			return lessons[i].Date < lessons[j].Date
		}
		a, _ := timeofday.ToMinutes(lessons[i].StartTime)
		b, _ := timeofday.ToMinutes(lessons[j].StartTime)
		return a < b
	})
}
