package settings

import (
	"errors"

	"tutorbook/internal/domain/lesson"
)

// Defaults applied when no settings have been saved.
const (
	DefaultHourlyRate          = 55.0
	DefaultTaxRate             = 10.0
	DefaultTeachingMethod      = lesson.MethodOffline
	DefaultNotificationMinutes = 30
)

// Domain errors
var (
	ErrInvalidHourlyRate = errors.New("default hourly rate must be greater than zero")
	ErrInvalidTaxRate    = errors.New("tax rate must be between 0 and 100 percent")
	ErrInvalidMethod     = errors.New("default teaching method must be 'online' or 'offline'")
	ErrInvalidLeadTime   = errors.New("notification lead time cannot be negative")
)

// AppSettings is the process-wide configuration persisted alongside lessons.
// TaxRate is a percentage and is the only source of the tax applied to income.
type AppSettings struct {
	HourlyRate            float64       `json:"hourlyRate"`
	TaxRate               float64       `json:"taxRate"`
	DefaultTeachingMethod lesson.Method `json:"defaultTeachingMethod"`
	EnableNotifications   bool          `json:"enableNotifications"`
	NotificationMinutes   int           `json:"notificationTime"`
}

// Defaults returns the settings used before the user changes anything.
func Defaults() AppSettings {
	return AppSettings{
		HourlyRate:            DefaultHourlyRate,
		TaxRate:               DefaultTaxRate,
		DefaultTeachingMethod: DefaultTeachingMethod,
		EnableNotifications:   true,
		NotificationMinutes:   DefaultNotificationMinutes,
	}
}

// Validate checks the settings invariants.
// PRE: none
// POST: Returns nil if valid, the first violated invariant otherwise
func (s AppSettings) Validate() error {
	if s.HourlyRate <= 0 {
		return ErrInvalidHourlyRate
	}
	if s.TaxRate < 0 || s.TaxRate > 100 {
		return ErrInvalidTaxRate
	}
	if !s.DefaultTeachingMethod.Valid() {
		return ErrInvalidMethod
	}
	if s.NotificationMinutes < 0 {
		return ErrInvalidLeadTime
	}
	return nil
}

// Prefill fills the rate and method a lesson form leaves empty with the defaults.
// POST: explicitly given values are kept
func (s AppSettings) Prefill(form lesson.FormData) lesson.FormData {
	if form.HourlyRate == 0 {
		form.HourlyRate = s.HourlyRate
	}
	if form.TeachingMethod == "" {
		form.TeachingMethod = s.DefaultTeachingMethod
	}
	return form
}
