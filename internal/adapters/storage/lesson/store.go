package lesson

import (
	"context"
	"errors"
	"time"

	domain "tutorbook/internal/domain/lesson"
)

// ErrNotFound is returned when no lesson has the requested ID.
var ErrNotFound = errors.New("lesson not found")

// Store persists Lesson state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Lesson, error)
	Save(ctx context.Context, value domain.Lesson) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Lesson, error)
	ListByDate(ctx context.Context, date string) ([]domain.Lesson, error)
	ListByMonth(ctx context.Context, year int, month time.Month) ([]domain.Lesson, error)
	ListByStudent(ctx context.Context, studentName string) ([]domain.Lesson, error)
	// Load returns every lesson; SaveAll atomically replaces them.
	Load(ctx context.Context) ([]domain.Lesson, error)
	SaveAll(ctx context.Context, lessons []domain.Lesson) error
}

// ReminderLog records which lessons have already had a reminder sent.
type ReminderLog interface {
	WasSent(ctx context.Context, lessonID string) (bool, error)
	MarkSent(ctx context.Context, lessonID string, at time.Time) error
}
