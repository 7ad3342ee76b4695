package orchestrators

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	domain "tutorbook/internal/domain/lesson"
)

// LessonStoreForStatus defines the store interface needed by the status orchestrators.
type LessonStoreForStatus interface {
	GetByID(ctx context.Context, id string) (domain.Lesson, error)
	Save(ctx context.Context, value domain.Lesson) error
}

// LessonStatusInput names the lesson whose status changes.
type LessonStatusInput struct {
	ID string
}

// LessonStatusDeps holds dependencies for CompleteLesson and CancelLesson.
type LessonStatusDeps struct {
	LessonStore LessonStoreForStatus
	Now         func() time.Time
}

// ExecuteCompleteLesson marks a planned lesson that has already started as completed.
// PRE: input.ID names an existing lesson
// POST: lesson saved with status completed, or domain.ErrInvalidTransition / domain.ErrFutureCompletion
func ExecuteCompleteLesson(ctx context.Context, input LessonStatusInput, deps LessonStatusDeps) (domain.Lesson, error) {
	return changeStatus(ctx, input.ID, deps, (*domain.Lesson).Complete, "lesson_completed")
}

// ExecuteCancelLesson marks a planned lesson as cancelled.
// PRE: input.ID names an existing lesson
// POST: lesson saved with status cancelled, or domain.ErrInvalidTransition
func ExecuteCancelLesson(ctx context.Context, input LessonStatusInput, deps LessonStatusDeps) (domain.Lesson, error) {
	return changeStatus(ctx, input.ID, deps, (*domain.Lesson).Cancel, "lesson_cancelled")
}

func changeStatus(ctx context.Context, id string, deps LessonStatusDeps, transition func(*domain.Lesson, time.Time) error, event string) (domain.Lesson, error) {
	l, err := deps.LessonStore.GetByID(ctx, id)
	if err != nil {
		return domain.Lesson{}, err
	}
	if err := transition(&l, deps.Now()); err != nil {
		return domain.Lesson{}, err
	}
	if err := deps.LessonStore.Save(ctx, l); err != nil {
		return domain.Lesson{}, err
	}
	logrus.WithFields(logrus.Fields{
		"lesson_id": l.ID,
		"student":   l.StudentName,
		"date":      l.Date,
	}).Info(event)
	return l, nil
}

// LessonStoreForDelete defines the store interface needed by the delete orchestrator.
type LessonStoreForDelete interface {
	Delete(ctx context.Context, id string) error
}

// DeleteLessonInput carries input for the delete orchestrator.
type DeleteLessonInput struct {
	ID string
}

// DeleteLessonDeps holds dependencies for DeleteLesson.
type DeleteLessonDeps struct {
	LessonStore LessonStoreForDelete
}

// ExecuteDeleteLesson removes a lesson permanently. Its reminder log entry goes with it.
// PRE: input.ID is non-empty
// POST: lesson no longer exists, or the store's not-found error is returned
func ExecuteDeleteLesson(ctx context.Context, input DeleteLessonInput, deps DeleteLessonDeps) error {
	if input.ID == "" {
		return domain.ErrEmptyID
	}
	if err := deps.LessonStore.Delete(ctx, input.ID); err != nil {
		return err
	}
	logrus.WithField("lesson_id", input.ID).Info("lesson_deleted")
	return nil
}
