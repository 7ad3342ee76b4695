package orchestrators

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	domain "tutorbook/internal/domain/lesson"
	settingsDomain "tutorbook/internal/domain/settings"
)

// LessonStoreForSchedule defines the store interface needed by the add/update orchestrators.
type LessonStoreForSchedule interface {
	GetByID(ctx context.Context, id string) (domain.Lesson, error)
	Save(ctx context.Context, value domain.Lesson) error
	ListByDate(ctx context.Context, date string) ([]domain.Lesson, error)
}

// SettingsReader supplies the current application settings.
type SettingsReader interface {
	Get(ctx context.Context) (settingsDomain.AppSettings, error)
}

// ScheduleResult is the outcome of an add or update. Lesson is only set when Validation.Valid.
type ScheduleResult struct {
	Lesson     domain.Lesson
	Validation domain.Result
}

// AddLessonInput carries input for the add-lesson orchestrator.
type AddLessonInput struct {
	Form domain.FormData
}

// AddLessonDeps holds dependencies for AddLesson.
type AddLessonDeps struct {
	LessonStore   LessonStoreForSchedule
	SettingsStore SettingsReader
	Validator     *domain.Validator // nil builds one on Now
	GenerateID    func() string
	Now           func() time.Time
}

// ExecuteAddLesson validates a new lesson, checks it against the same day's
// schedule and persists it.
// PRE: deps.GenerateID and deps.Now are non-nil
// POST: When Validation.Valid the lesson is saved with status planned unless the form says otherwise;
// otherwise nothing is written and the error is nil
func ExecuteAddLesson(ctx context.Context, input AddLessonInput, deps AddLessonDeps) (ScheduleResult, error) {
	cfg, err := deps.SettingsStore.Get(ctx)
	if err != nil {
		return ScheduleResult{}, err
	}
	form := cfg.Prefill(input.Form)

	res, err := validateSlot(ctx, form, "", deps.LessonStore, validatorOrDefault(deps.Validator, deps.Now))
	if err != nil || !res.Valid {
		return ScheduleResult{Validation: res}, err
	}

	l := domain.New(deps.GenerateID(), form, deps.Now())
	if err := deps.LessonStore.Save(ctx, l); err != nil {
		return ScheduleResult{}, err
	}

	logrus.WithFields(logrus.Fields{
		"lesson_id": l.ID,
		"date":      l.Date,
		"start":     l.StartTime,
		"student":   l.StudentName,
	}).Info("lesson_added")
	return ScheduleResult{Lesson: l, Validation: res}, nil
}

// UpdateLessonInput carries input for the update-lesson orchestrator.
type UpdateLessonInput struct {
	ID   string
	Form domain.FormData
}

// UpdateLessonDeps holds dependencies for UpdateLesson.
type UpdateLessonDeps struct {
	LessonStore LessonStoreForSchedule
	Validator   *domain.Validator
	Now         func() time.Time
}

// ExecuteUpdateLesson edits an existing lesson. The lesson never conflicts with itself.
// PRE: input.ID names an existing lesson
// POST: ID and CreatedAt are preserved; a zero rate or empty method keeps the stored value
func ExecuteUpdateLesson(ctx context.Context, input UpdateLessonInput, deps UpdateLessonDeps) (ScheduleResult, error) {
	current, err := deps.LessonStore.GetByID(ctx, input.ID)
	if err != nil {
		return ScheduleResult{}, err
	}
	form := input.Form
	if form.HourlyRate == 0 {
		form.HourlyRate = current.HourlyRate
	}
	if form.TeachingMethod == "" {
		form.TeachingMethod = current.TeachingMethod
	}

	res, err := validateSlot(ctx, form, current.ID, deps.LessonStore, validatorOrDefault(deps.Validator, deps.Now))
	if err != nil || !res.Valid {
		return ScheduleResult{Validation: res}, err
	}

	current.Apply(form, deps.Now())
	if err := deps.LessonStore.Save(ctx, current); err != nil {
		return ScheduleResult{}, err
	}

	logrus.WithFields(logrus.Fields{
		"lesson_id": current.ID,
		"date":      current.Date,
		"start":     current.StartTime,
		"status":    current.Status,
	}).Info("lesson_updated")
	return ScheduleResult{Lesson: current, Validation: res}, nil
}

// validateSlot runs field validation first so the store is only queried for a well-formed date.
func validateSlot(ctx context.Context, form domain.FormData, excludeID string, store LessonStoreForSchedule, v *domain.Validator) (domain.Result, error) {
	res := v.Validate(form)
	if !res.Valid {
		return res, nil
	}
	sameDay, err := store.ListByDate(ctx, form.Date)
	if err != nil {
		return domain.Result{}, err
	}
	res = v.ValidateWithConflicts(form, sameDay, excludeID)
	if res.Conflict != nil {
		logrus.WithFields(logrus.Fields{
			"date":        form.Date,
			"start":       form.StartTime,
			"conflict_id": res.Conflict.Lesson.ID,
		}).Info("lesson_conflict")
	}
	return res, nil
}

func validatorOrDefault(v *domain.Validator, now func() time.Time) *domain.Validator {
	if v != nil {
		return v
	}
	return domain.NewValidator(now)
}
