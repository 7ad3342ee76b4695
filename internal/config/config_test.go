package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func lookup(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

// TestFromLookup_Defaults verifies every default when nothing is set.
func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookup(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Env != EnvDevelopment || cfg.Production() {
		t.Errorf("Env = %q", cfg.Env)
	}
	if cfg.DBPath != "tutorbook.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.LogLevel != logrus.InfoLevel {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.SlowQuery != 50*time.Millisecond {
		t.Errorf("SlowQuery = %v", cfg.SlowQuery)
	}
	if cfg.NotifyTo != nil {
		t.Errorf("NotifyTo = %v, want nil", cfg.NotifyTo)
	}
	if cfg.ReminderParsed == nil {
		t.Error("default reminder spec should parse")
	}
}

// TestFromLookup_Values verifies parsing of explicit values.
func TestFromLookup_Values(t *testing.T) {
	cfg, err := FromLookup(lookup(map[string]string{
		"TUTORBOOK_ENV":           "production",
		"TUTORBOOK_DB":            "/var/lib/tutorbook/data.db",
		"TUTORBOOK_LOG_LEVEL":     "debug",
		"TUTORBOOK_SLOW_QUERY_MS": "200",
		"TUTORBOOK_TZ":            "UTC",
		"TUTORBOOK_NOTIFY_TO":     " tutor@example.com, ,backup@example.com ",
		"TUTORBOOK_REMINDER_SPEC": "*/10 7-21 * * *",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Production() || cfg.DBPath != "/var/lib/tutorbook/data.db" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LogLevel != logrus.DebugLevel || cfg.SlowQuery != 200*time.Millisecond {
		t.Errorf("level=%v slow=%v", cfg.LogLevel, cfg.SlowQuery)
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v", cfg.Location)
	}
	if want := []string{"tutor@example.com", "backup@example.com"}; !reflect.DeepEqual(cfg.NotifyTo, want) {
		t.Errorf("NotifyTo = %v, want %v", cfg.NotifyTo, want)
	}
	next := cfg.ReminderParsed.Next(time.Date(2024, 5, 15, 21, 55, 0, 0, time.UTC))
	if want := time.Date(2024, 5, 16, 7, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("next run = %v, want %v", next, want)
	}
}

// TestFromLookup_Invalid verifies that bad values are rejected with the key name.
func TestFromLookup_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"TUTORBOOK_LOG_LEVEL", "loud"},
		{"TUTORBOOK_SLOW_QUERY_MS", "-5"},
		{"TUTORBOOK_SLOW_QUERY_MS", "fast"},
		{"TUTORBOOK_TZ", "Mars/Olympus"},
		{"TUTORBOOK_REMINDER_SPEC", "every now and then"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			_, err := FromLookup(lookup(map[string]string{tt.key: tt.value}))
			if err == nil || !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error = %v, want mention of %s", err, tt.key)
			}
		})
	}
}

// TestLoad_EnvFile verifies .env values apply and the process environment wins.
func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "TUTORBOOK_DB=from-file.db\nTUTORBOOK_EMAIL_FROM=\"Tutor <t@example.com>\"\nTUTORBOOK_LOG_LEVEL=warn\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("TUTORBOOK_DB", "")
	t.Setenv("TUTORBOOK_EMAIL_FROM", "")
	t.Setenv("TUTORBOOK_LOG_LEVEL", "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "from-file.db" {
		t.Errorf("DBPath = %q, want from-file.db", cfg.DBPath)
	}
	if cfg.EmailFrom != "Tutor <t@example.com>" {
		t.Errorf("EmailFrom = %q", cfg.EmailFrom)
	}
	if cfg.LogLevel != logrus.ErrorLevel {
		t.Errorf("LogLevel = %v, want error from the environment", cfg.LogLevel)
	}
}

// TestLoad_MissingFile verifies a missing .env is not an error.
func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

// TestSetupLogging verifies formatter selection by environment.
func TestSetupLogging(t *testing.T) {
	defer func() {
		logrus.SetFormatter(&logrus.TextFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetOutput(os.Stderr)
	}()

	var buf bytes.Buffer
	SetupLogging(Config{Env: EnvProduction, LogLevel: logrus.InfoLevel}, &buf)
	logrus.WithField("lesson_id", "l1").Info("lesson_added")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"lesson_id":"l1"`) {
		t.Errorf("production log is not JSON: %s", buf.String())
	}

	buf.Reset()
	SetupLogging(Config{Env: EnvDevelopment, LogLevel: logrus.WarnLevel}, &buf)
	logrus.Info("hidden")
	logrus.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("level filtering failed: %s", buf.String())
	}
}
