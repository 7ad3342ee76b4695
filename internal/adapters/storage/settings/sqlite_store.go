package settings

import (
	"context"
	"database/sql"
	"errors"

	"tutorbook/internal/adapters/storage"
	"tutorbook/internal/domain/lesson"
	domain "tutorbook/internal/domain/settings"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SettingsStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get returns the saved settings.
// PRE: none
// POST: Returns domain.Defaults() when nothing has been saved
func (s *SQLiteStore) Get(ctx context.Context) (domain.AppSettings, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT hourly_rate, tax_rate, default_teaching_method, enable_notifications, notification_minutes FROM app_settings WHERE id = 1")
	var v domain.AppSettings
	var method string
	err := row.Scan(&v.HourlyRate, &v.TaxRate, &method, &v.EnableNotifications, &v.NotificationMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Defaults(), nil
	}
	if err != nil {
		return domain.AppSettings{}, err
	}
	v.DefaultTeachingMethod = lesson.Method(method)
	return v, nil
}

// Save persists the settings.
// PRE: value has been validated
// POST: The singleton row holds value
func (s *SQLiteStore) Save(ctx context.Context, value domain.AppSettings) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO app_settings (id, hourly_rate, tax_rate, default_teaching_method, enable_notifications, notification_minutes) VALUES (1, ?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET hourly_rate=excluded.hourly_rate, tax_rate=excluded.tax_rate, default_teaching_method=excluded.default_teaching_method, enable_notifications=excluded.enable_notifications, notification_minutes=excluded.notification_minutes",
		value.HourlyRate, value.TaxRate, string(value.DefaultTeachingMethod), value.EnableNotifications, value.NotificationMinutes,
	)
	return err
}
