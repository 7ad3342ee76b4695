package orchestrators

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"tutorbook/internal/domain/export"
	domain "tutorbook/internal/domain/lesson"
	settingsDomain "tutorbook/internal/domain/settings"
)

// LessonStoreForBackup defines the bulk load/replace operations needed for backups.
type LessonStoreForBackup interface {
	Load(ctx context.Context) ([]domain.Lesson, error)
	SaveAll(ctx context.Context, lessons []domain.Lesson) error
}

// SettingsStoreForBackup reads and replaces the settings row.
type SettingsStoreForBackup interface {
	Get(ctx context.Context) (settingsDomain.AppSettings, error)
	Save(ctx context.Context, value settingsDomain.AppSettings) error
}

// ExportBackupDeps holds dependencies for ExportBackup.
type ExportBackupDeps struct {
	LessonStore   LessonStoreForBackup
	SettingsStore SettingsStoreForBackup
	Now           func() time.Time
}

// ExecuteExportBackup snapshots every lesson and the settings.
// PRE: none
// POST: returned backup carries the current version and a checksum over its payload
func ExecuteExportBackup(ctx context.Context, deps ExportBackupDeps) (*export.Backup, error) {
	lessons, err := deps.LessonStore.Load(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := deps.SettingsStore.Get(ctx)
	if err != nil {
		return nil, err
	}
	b, err := export.NewBackup(lessons, cfg, deps.Now())
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"lessons": len(b.Lessons), "version": b.Version}).Info("backup_exported")
	return b, nil
}

// ImportBackupInput carries the raw backup document.
type ImportBackupInput struct {
	Data []byte
}

// ImportBackupDeps holds dependencies for ImportBackup.
type ImportBackupDeps struct {
	LessonStore   LessonStoreForBackup
	SettingsStore SettingsStoreForBackup
}

// ImportBackupResult summarizes a restore.
type ImportBackupResult struct {
	Lessons        int
	Version        string
	CurrentVersion bool
	ExportDate     time.Time
}

// ExecuteImportBackup verifies a backup and replaces all lessons and settings with its contents.
// PRE: input.Data is a JSON backup document
// POST: a backup that fails verification replaces nothing; one from another version is restored with a warning
func ExecuteImportBackup(ctx context.Context, input ImportBackupInput, deps ImportBackupDeps) (ImportBackupResult, error) {
	b, err := export.ParseBackup(input.Data)
	if err != nil {
		logrus.WithError(err).Warn("backup_rejected")
		return ImportBackupResult{}, err
	}
	if !b.CurrentVersion() {
		logrus.WithFields(logrus.Fields{
			"backup_version":  b.Version,
			"current_version": export.BackupVersion,
		}).Warn("backup_version_mismatch")
	}

	if err := deps.LessonStore.SaveAll(ctx, b.Lessons); err != nil {
		return ImportBackupResult{}, err
	}
	if err := deps.SettingsStore.Save(ctx, b.Settings); err != nil {
		return ImportBackupResult{}, err
	}

	logrus.WithFields(logrus.Fields{"lessons": len(b.Lessons), "version": b.Version}).Info("backup_imported")
	return ImportBackupResult{
		Lessons:        len(b.Lessons),
		Version:        b.Version,
		CurrentVersion: b.CurrentVersion(),
		ExportDate:     b.ExportDate,
	}, nil
}
