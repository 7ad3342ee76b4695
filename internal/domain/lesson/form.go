package lesson

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"tutorbook/internal/domain/calendar"
	"tutorbook/internal/domain/timeofday"
)

// Field names used as FieldErrors keys. They match the JSON names of FormData.
const (
	FieldStudentName    = "studentName"
	FieldDate           = "date"
	FieldStartTime      = "startTime"
	FieldEndTime        = "endTime"
	FieldDuration       = "duration"
	FieldHourlyRate     = "hourlyRate"
	FieldNotes          = "notes"
	FieldTeachingMethod = "teachingMethod"
	FieldStatus         = "status"
)

// Date bounds relative to today. Rate bounds in the tags below are sanity checks, not business rules.
const (
	MaxFutureYears = 1
	MaxPastYears   = 2
)

// FormData carries user input for creating or editing a lesson.
type FormData struct {
	StudentName    string  `json:"studentName" validate:"notblank,trimmedmin=2,max=50,letterspace"`
	StudentID      string  `json:"studentId"`
	Date           string  `json:"date" validate:"required,lessondate,maxfuture,maxpast"`
	StartTime      string  `json:"startTime" validate:"required,hhmm"`
	EndTime        string  `json:"endTime"` // optional; checked against StartTime separately
	Duration       float64 `json:"duration" validate:"gt=0,gte=0.5,lte=12"`
	HourlyRate     float64 `json:"hourlyRate" validate:"gt=0,gte=10,lte=10000"`
	TeachingMethod Method  `json:"teachingMethod" validate:"omitempty,oneof=online offline"`
	Status         Status  `json:"status" validate:"omitempty,oneof=planned completed cancelled"`
	Notes          string  `json:"notes" validate:"max=500"`
}

// EffectiveDuration returns the lesson length in hours.
// When EndTime is set it is derived from StartTime/EndTime, otherwise Duration is used.
func (d FormData) EffectiveDuration() float64 {
	if d.EndTime == "" {
		return d.Duration
	}
	hours, err := timeofday.DurationHours(d.StartTime, d.EndTime)
	if err != nil {
		return 0
	}
	return hours
}

// Candidate returns the slot described by the form for conflict checks.
func (d FormData) Candidate() Candidate {
	return Candidate{Date: d.Date, StartTime: d.StartTime, Duration: d.Duration, EndTime: d.EndTime}
}

// FormDataFromLesson pre-fills a form for editing an existing lesson.
func FormDataFromLesson(l Lesson) FormData {
	end, _ := l.EndTime()
	return FormData{
		StudentName:    l.StudentName,
		StudentID:      l.StudentID,
		Date:           l.Date,
		StartTime:      l.StartTime,
		EndTime:        end,
		Duration:       l.Duration,
		HourlyRate:     l.HourlyRate,
		TeachingMethod: l.TeachingMethod,
		Status:         l.Status,
		Notes:          l.Notes,
	}
}

// FieldErrors maps a field name to a human-readable message.
type FieldErrors map[string]string

// Result is the outcome of validating a form. Bad input is never an error value.
type Result struct {
	Valid       bool
	FieldErrors FieldErrors
	Conflict    *Conflict // set when the only problem is a schedule conflict
}

var messages = map[string]string{
	FieldStudentName + ".notblank":    "student name is required",
	FieldStudentName + ".trimmedmin":  "student name must be at least 2 characters",
	FieldStudentName + ".max":         "student name cannot exceed 50 characters",
	FieldStudentName + ".letterspace": "student name may only contain letters and spaces",
	FieldDate + ".required":           "date is required",
	FieldDate + ".lessondate":         "invalid date format (use YYYY-MM-DD)",
	FieldDate + ".maxfuture":          "date cannot be more than one year in the future",
	FieldDate + ".maxpast":            "date cannot be more than two years in the past",
	FieldStartTime + ".required":      "start time is required",
	FieldStartTime + ".hhmm":          "invalid time format (use HH:MM)",
	FieldDuration + ".gt":             "duration must be greater than 0",
	FieldDuration + ".gte":            "duration must be at least 0.5 hours (30 minutes)",
	FieldDuration + ".lte":            "duration cannot exceed 12 hours",
	FieldHourlyRate + ".gt":           "hourly rate must be greater than 0",
	FieldHourlyRate + ".gte":          "hourly rate looks too low (minimum 10 per hour)",
	FieldHourlyRate + ".lte":          "hourly rate looks too high (maximum 10000 per hour)",
	FieldNotes + ".max":               "notes cannot exceed 500 characters",
	FieldTeachingMethod + ".oneof":    "teaching method must be online or offline",
	FieldStatus + ".oneof":            "status must be planned, completed or cancelled",
}

const (
	msgEndTimeFormat  = "invalid end time format (use HH:MM)"
	msgEndBeforeStart = "end time must be after start time"
	msgPastMidnight   = "lesson must end by 24:00"
)

// Validator checks lesson form input. Date bounds are relative to the injected clock.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewValidator creates a Validator. A nil now uses time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := &Validator{validate: validator.New(), now: now}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails on empty tags or nil funcs.
	_ = v.validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.validate.RegisterValidation("trimmedmin", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
	})
	_ = v.validate.RegisterValidation("letterspace", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsSpace(r) {
				return false
			}
		}
		return true
	})
	_ = v.validate.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return timeofday.IsValid(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("lessondate", func(fl validator.FieldLevel) bool {
		_, err := calendar.ParseDate(fl.Field().String(), time.UTC)
		return err == nil
	})
	_ = v.validate.RegisterValidation("maxfuture", func(fl validator.FieldLevel) bool {
		d, today, ok := v.dateAndToday(fl.Field().String())
		return !ok || !d.After(today.AddDate(MaxFutureYears, 0, 0))
	})
	_ = v.validate.RegisterValidation("maxpast", func(fl validator.FieldLevel) bool {
		d, today, ok := v.dateAndToday(fl.Field().String())
		return !ok || !d.Before(today.AddDate(-MaxPastYears, 0, 0))
	})
	return v
}

func (v *Validator) dateAndToday(s string) (date, today time.Time, ok bool) {
	now := v.now()
	d, err := calendar.ParseDate(s, now.Location())
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	y, m, day := now.Date()
	return d, time.Date(y, m, day, 0, 0, 0, 0, now.Location()), true
}

// Validate checks every field independently so all errors can be shown at once.
// PRE: none
// POST: Returns Valid=false with one message per failing field; never returns an error
// INVARIANT: Same input and clock always yield the same FieldErrors
func (v *Validator) Validate(data FormData) Result {
	errs := FieldErrors{}

	checked := data
	checked.Duration = data.EffectiveDuration()
	var verrs validator.ValidationErrors
	if err := v.validate.Struct(checked); errors.As(err, &verrs) {
		for _, fe := range verrs {
			errs[fe.Field()] = message(fe.Field(), fe.Tag())
		}
	}

	startOK := timeofday.IsValid(data.StartTime)
	if data.EndTime != "" {
		switch {
		case !timeofday.IsValid(data.EndTime):
			errs[FieldEndTime] = msgEndTimeFormat
		case startOK:
			s, _ := timeofday.ToMinutes(data.StartTime)
			e, _ := timeofday.ToMinutes(data.EndTime)
			if e <= s {
				errs[FieldEndTime] = msgEndBeforeStart
			}
		}
		if _, bad := errs[FieldEndTime]; bad || !startOK {
			// the derived duration is meaningless without a usable start and end time
			delete(errs, FieldDuration)
		}
	} else if startOK {
		if _, failed := errs[FieldDuration]; !failed {
			s, _ := timeofday.ToMinutes(data.StartTime)
			if s+timeofday.HoursToMinutes(data.Duration) > timeofday.MinutesPerDay {
				errs[FieldDuration] = msgPastMidnight
			}
		}
	}

	return Result{Valid: len(errs) == 0, FieldErrors: errs}
}

// ValidateWithConflicts validates fields and, when they all pass, checks the slot
// against existing lessons. A conflict is reported on the start time field.
// PRE: existing holds the lessons to check against; excludeID is the record being edited, if any
// POST: Valid is false when any field fails or a conflict exists
func (v *Validator) ValidateWithConflicts(data FormData, existing []Lesson, excludeID string) Result {
	res := v.Validate(data)
	if !res.Valid {
		return res
	}
	if c := FindConflict(data.Candidate(), existing, excludeID); c != nil {
		res.FieldErrors[FieldStartTime] = c.Message()
		res.Valid = false
		res.Conflict = c
	}
	return res
}

func message(field, tag string) string {
	if m, ok := messages[field+"."+tag]; ok {
		return m
	}
	return fmt.Sprintf("%s is invalid", field)
}

// Form holds in-progress input plus the errors from its last validation.
// Each setter clears that field's error so stale messages disappear on edit.
type Form struct {
	data   FormData
	errors FieldErrors
}

// NewForm starts a form from initial values.
func NewForm(initial FormData) *Form {
	return &Form{data: initial, errors: FieldErrors{}}
}

// Data returns the current input.
func (f *Form) Data() FormData { return f.data }

// Errors returns a copy of the current field errors.
func (f *Form) Errors() FieldErrors {
	out := make(FieldErrors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

func (f *Form) clearError(field string) *Form {
	delete(f.errors, field)
	return f
}

func (f *Form) SetStudentName(v string) *Form {
	f.data.StudentName = v
	return f.clearError(FieldStudentName)
}

func (f *Form) SetDate(v string) *Form {
	f.data.Date = v
	return f.clearError(FieldDate)
}

func (f *Form) SetStartTime(v string) *Form {
	f.data.StartTime = v
	return f.clearError(FieldStartTime)
}

func (f *Form) SetEndTime(v string) *Form {
	f.data.EndTime = v
	return f.clearError(FieldEndTime)
}

func (f *Form) SetDuration(v float64) *Form {
	f.data.Duration = v
	return f.clearError(FieldDuration)
}

func (f *Form) SetHourlyRate(v float64) *Form {
	f.data.HourlyRate = v
	return f.clearError(FieldHourlyRate)
}

func (f *Form) SetTeachingMethod(v Method) *Form {
	f.data.TeachingMethod = v
	return f.clearError(FieldTeachingMethod)
}

func (f *Form) SetStatus(v Status) *Form {
	f.data.Status = v
	return f.clearError(FieldStatus)
}

func (f *Form) SetNotes(v string) *Form {
	f.data.Notes = v
	return f.clearError(FieldNotes)
}

// Submit validates the form including conflicts and stores the resulting errors.
// PRE: v is non-nil
// POST: Errors() reflects the returned Result
func (f *Form) Submit(v *Validator, existing []Lesson, excludeID string) Result {
	res := v.ValidateWithConflicts(f.data, existing, excludeID)
	f.errors = FieldErrors{}
	for k, m := range res.FieldErrors {
		f.errors[k] = m
	}
	return res
}
