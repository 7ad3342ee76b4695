package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// migration upgrades the schema by one version inside a transaction.
type migration struct {
	version     int
	description string
	statements  []string
}

// migrations is the ordered schema history. Append only; never edit a released step.
var migrations = []migration{
	{
		version:     1,
		description: "lesson and settings tables",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS lesson (
				id TEXT PRIMARY KEY,
				date TEXT NOT NULL,
				start_time TEXT NOT NULL,
				duration REAL NOT NULL CHECK (duration > 0),
				student_name TEXT NOT NULL,
				student_id TEXT NOT NULL DEFAULT '',
				teaching_method TEXT NOT NULL,
				status TEXT NOT NULL,
				hourly_rate REAL NOT NULL CHECK (hourly_rate > 0),
				notes TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS app_settings (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				hourly_rate REAL NOT NULL,
				tax_rate REAL NOT NULL,
				default_teaching_method TEXT NOT NULL,
				enable_notifications INTEGER NOT NULL,
				notification_minutes INTEGER NOT NULL
			)`,
		},
	},
	{
		version:     2,
		description: "lesson lookup indexes",
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_lesson_date ON lesson(date, start_time)`,
			`CREATE INDEX IF NOT EXISTS idx_lesson_student ON lesson(student_name)`,
		},
	},
	{
		version:     3,
		description: "reminder log",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS reminder_log (
				lesson_id TEXT PRIMARY KEY,
				sent_at TEXT NOT NULL,
				FOREIGN KEY (lesson_id) REFERENCES lesson(id) ON DELETE CASCADE
			)`,
		},
	},
}

// LatestSchemaVersion returns the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the applied schema version, or 0 for an untracked database.
// PRE: db is a valid database connection
// POST: Does not modify the database
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check schema_version: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var v sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema_version: %w", err)
	}
	return int(v.Int64), nil
}

// MigrateDB applies every migration newer than the recorded version.
// PRE: db is a valid database connection; path is used for logging only
// POST: SchemaVersion(db) == LatestSchemaVersion()
// INVARIANT: Each migration and its version row commit together
func MigrateDB(db *sql.DB, path string) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
		logrus.WithFields(logrus.Fields{
			"db":          path,
			"version":     m.version,
			"description": m.description,
		}).Info("schema_migrated")
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	for _, stmt := range m.statements {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	if _, err = tx.Exec(`INSERT INTO schema_version (version, description) VALUES (?, ?)`, m.version, m.description); err != nil {
		return err
	}
	return tx.Commit()
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(stmt), "\n")
	return line
}

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode and foreign keys enabled
func InitDB(db *sql.DB, path string) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return MigrateDB(db, path)
}
