package settings_test

import (
	"errors"
	"testing"

	"tutorbook/internal/domain/lesson"
	"tutorbook/internal/domain/settings"
)

// TestDefaults tests the out-of-the-box settings.
func TestDefaults(t *testing.T) {
	s := settings.Defaults()
	if s.HourlyRate != 55 || s.TaxRate != 10 {
		t.Errorf("rates = %v/%v, want 55/10", s.HourlyRate, s.TaxRate)
	}
	if s.DefaultTeachingMethod != lesson.MethodOffline {
		t.Errorf("method = %s, want offline", s.DefaultTeachingMethod)
	}
	if !s.EnableNotifications || s.NotificationMinutes != 30 {
		t.Errorf("notifications = %v/%d, want true/30", s.EnableNotifications, s.NotificationMinutes)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should be valid: %v", err)
	}
}

// TestAppSettings_Validate tests each settings invariant.
func TestAppSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(s *settings.AppSettings)
		wantErr error
	}{
		{"zero rate", func(s *settings.AppSettings) { s.HourlyRate = 0 }, settings.ErrInvalidHourlyRate},
		{"negative tax", func(s *settings.AppSettings) { s.TaxRate = -1 }, settings.ErrInvalidTaxRate},
		{"tax over 100", func(s *settings.AppSettings) { s.TaxRate = 100.5 }, settings.ErrInvalidTaxRate},
		{"zero tax", func(s *settings.AppSettings) { s.TaxRate = 0 }, nil},
		{"full tax", func(s *settings.AppSettings) { s.TaxRate = 100 }, nil},
		{"bad method", func(s *settings.AppSettings) { s.DefaultTeachingMethod = "" }, settings.ErrInvalidMethod},
		{"negative lead", func(s *settings.AppSettings) { s.NotificationMinutes = -5 }, settings.ErrInvalidLeadTime},
		{"zero lead", func(s *settings.AppSettings) { s.NotificationMinutes = 0 }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := settings.Defaults()
			tt.modify(&s)
			if err := s.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPrefill(t *testing.T) {
	s := settings.Defaults()
	s.HourlyRate = 70

	d := s.Prefill(lesson.FormData{Date: "2024-05-15", StartTime: "10:00", Duration: 1.5})
	if d.HourlyRate != 70 || d.TeachingMethod != lesson.MethodOffline || d.Duration != 1.5 {
		t.Errorf("Prefill = %+v", d)
	}

	d = s.Prefill(lesson.FormData{HourlyRate: 90, TeachingMethod: lesson.MethodOnline})
	if d.HourlyRate != 90 || d.TeachingMethod != lesson.MethodOnline {
		t.Errorf("Prefill overwrote given values: %+v", d)
	}
}
