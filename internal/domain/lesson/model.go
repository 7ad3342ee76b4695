package lesson

import (
	"errors"
	"strings"
	"time"

	"tutorbook/internal/domain/calendar"
	"tutorbook/internal/domain/timeofday"
)

// Status is the lifecycle state of a lesson.
type Status string

// Status constants.
const (
	StatusPlanned   Status = "planned"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Method is the way a lesson is taught.
type Method string

// Teaching method constants.
const (
	MethodOnline  Method = "online"
	MethodOffline Method = "offline"
)

// Max length constants for user-editable fields.
const (
	MaxNotesLength = 500
)

// Domain errors
var (
	ErrEmptyID           = errors.New("lesson ID cannot be empty")
	ErrEmptyStudentName  = errors.New("student name cannot be empty")
	ErrInvalidDuration   = errors.New("duration must be greater than zero")
	ErrInvalidRate       = errors.New("hourly rate must be greater than zero")
	ErrInvalidMethod     = errors.New("teaching method must be 'online' or 'offline'")
	ErrInvalidStatus     = errors.New("status must be 'planned', 'completed' or 'cancelled'")
	ErrNotesTooLong      = errors.New("notes cannot exceed 500 characters")
	ErrInvalidTransition = errors.New("lesson status cannot change from its current state")
	ErrFutureCompletion  = errors.New("a lesson cannot be completed before it starts")
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPlanned || s == StatusCompleted || s == StatusCancelled
}

// Label returns the display label used in exports.
func (s Status) Label() string {
	switch s {
	case StatusPlanned:
		return "Planned"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Valid reports whether m is a known teaching method.
func (m Method) Valid() bool {
	return m == MethodOnline || m == MethodOffline
}

// Label returns the display label used in exports.
func (m Method) Label() string {
	switch m {
	case MethodOnline:
		return "Online"
	case MethodOffline:
		return "Offline"
	default:
		return "Unknown"
	}
}

// Lesson is one scheduled or completed teaching session.
// StudentName is denormalized so historical records survive roster changes.
// INVARIANT: Duration > 0, HourlyRate > 0, Date and StartTime well-formed.
type Lesson struct {
	ID             string    `json:"id"`
	Date           string    `json:"date"`      // YYYY-MM-DD
	StartTime      string    `json:"startTime"` // HH:MM
	Duration       float64   `json:"duration"`  // hours
	StudentName    string    `json:"studentName"`
	StudentID      string    `json:"studentId,omitempty"`
	TeachingMethod Method    `json:"teachingMethod"`
	Status         Status    `json:"status"`
	HourlyRate     float64   `json:"hourlyRate"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Validate checks the record invariants.
// PRE: Lesson struct is populated
// POST: Returns nil if valid, the first violated invariant otherwise
func (l *Lesson) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return ErrEmptyID
	}
	if _, err := calendar.ParseDate(l.Date, time.UTC); err != nil {
		return err
	}
	if _, err := timeofday.ToMinutes(l.StartTime); err != nil {
		return err
	}
	if l.Duration <= 0 {
		return ErrInvalidDuration
	}
	if strings.TrimSpace(l.StudentName) == "" {
		return ErrEmptyStudentName
	}
	if !l.TeachingMethod.Valid() {
		return ErrInvalidMethod
	}
	if !l.Status.Valid() {
		return ErrInvalidStatus
	}
	if l.HourlyRate <= 0 {
		return ErrInvalidRate
	}
	if len([]rune(l.Notes)) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// EndTime returns StartTime + Duration as "HH:MM". Never stored.
// PRE: StartTime is "HH:MM"
// POST: Hour component may exceed 23 for lessons running past midnight
func (l Lesson) EndTime() (string, error) {
	return timeofday.AddHours(l.StartTime, l.Duration)
}

// Interval returns the lesson's [start, end) minute offsets on its date.
func (l Lesson) Interval() (start, end int, err error) {
	start, err = timeofday.ToMinutes(l.StartTime)
	if err != nil {
		return 0, 0, err
	}
	return start, start + timeofday.HoursToMinutes(l.Duration), nil
}

// StartsAt returns the instant the lesson begins in loc.
// PRE: Date and StartTime are well-formed
func (l Lesson) StartsAt(loc *time.Location) (time.Time, error) {
	day, err := calendar.ParseDate(l.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	mins, err := timeofday.ToMinutes(l.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(mins) * time.Minute), nil
}

// Income returns duration * rate for completed lessons and zero otherwise.
func (l Lesson) Income() float64 {
	if l.Status != StatusCompleted {
		return 0
	}
	return l.Duration * l.HourlyRate
}

// Complete marks a planned lesson as completed.
// PRE: Status is planned and the lesson has started by now
// POST: Status is completed, UpdatedAt is now
func (l *Lesson) Complete(now time.Time) error {
	if l.Status != StatusPlanned {
		return ErrInvalidTransition
	}
	start, err := l.StartsAt(now.Location())
	if err != nil {
		return err
	}
	if start.After(now) {
		return ErrFutureCompletion
	}
	l.Status = StatusCompleted
	l.UpdatedAt = now
	return nil
}

// Cancel marks a planned lesson as cancelled.
// PRE: Status is planned
// POST: Status is cancelled, UpdatedAt is now
func (l *Lesson) Cancel(now time.Time) error {
	if l.Status != StatusPlanned {
		return ErrInvalidTransition
	}
	l.Status = StatusCancelled
	l.UpdatedAt = now
	return nil
}

// New builds a lesson record from validated form data.
// PRE: data passed Validator.Validate
// POST: Returns a record with ID, CreatedAt and UpdatedAt set; status defaults to planned, method to offline
func New(id string, data FormData, now time.Time) Lesson {
	status := data.Status
	if status == "" {
		status = StatusPlanned
	}
	method := data.TeachingMethod
	if method == "" {
		method = MethodOffline
	}
	return Lesson{
		ID:             id,
		Date:           data.Date,
		StartTime:      canonicalTime(data.StartTime),
		Duration:       data.EffectiveDuration(),
		StudentName:    strings.TrimSpace(data.StudentName),
		StudentID:      data.StudentID,
		TeachingMethod: method,
		Status:         status,
		HourlyRate:     data.HourlyRate,
		Notes:          data.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// canonicalTime zero-pads "H:MM" so stored start times sort as text.
func canonicalTime(s string) string {
	m, err := timeofday.ToMinutes(s)
	if err != nil {
		return s
	}
	return timeofday.FormatMinutes(m)
}

// Apply overwrites the editable fields of l with data, keeping ID and CreatedAt.
// PRE: data passed Validator.Validate
// POST: UpdatedAt is now
func (l *Lesson) Apply(data FormData, now time.Time) {
	if data.Status == "" {
		data.Status = l.Status
	}
	updated := New(l.ID, data, now)
	updated.CreatedAt = l.CreatedAt
	*l = updated
}
