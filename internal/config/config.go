package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds process settings read from the environment and an optional .env file.
// User-editable preferences such as the tax rate live in the settings store, not here.
type Config struct {
	Env            string
	DBPath         string
	LogLevel       logrus.Level
	SlowQuery      time.Duration
	Location       *time.Location
	ResendKey      string
	EmailFrom      string
	NotifyTo       []string
	ReminderSpec   string
	ReminderParsed cron.Schedule
}

// Production reports whether the process runs in production mode.
func (c Config) Production() bool { return c.Env == EnvProduction }

// Load reads envFile when it exists, then the process environment. A non-empty
// environment variable wins over the file.
// PRE: envFile may be empty or missing
// POST: Returns a fully defaulted Config, or the first invalid value
func Load(envFile string) (Config, error) {
	fileVals := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVals = vals
		case errors.Is(err, fs.ErrNotExist):
			logrus.WithField("file", envFile).Debug("env_file_missing")
		default:
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	return FromLookup(func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fileVals[key]
	})
}

// FromLookup builds a Config from a key lookup. Empty values take defaults.
func FromLookup(get func(string) string) (Config, error) {
	val := func(key, def string) string {
		if v := strings.TrimSpace(get(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Env:          val("TUTORBOOK_ENV", EnvDevelopment),
		DBPath:       val("TUTORBOOK_DB", "tutorbook.db"),
		ResendKey:    val("TUTORBOOK_RESEND_KEY", ""),
		EmailFrom:    val("TUTORBOOK_EMAIL_FROM", "Tutorbook <reminders@tutorbook.local>"),
		NotifyTo:     splitList(val("TUTORBOOK_NOTIFY_TO", "")),
		ReminderSpec: val("TUTORBOOK_REMINDER_SPEC", "@every 5m"),
	}

	level, err := logrus.ParseLevel(val("TUTORBOOK_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("TUTORBOOK_LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	ms, err := strconv.Atoi(val("TUTORBOOK_SLOW_QUERY_MS", "50"))
	if err != nil || ms <= 0 {
		return Config{}, fmt.Errorf("TUTORBOOK_SLOW_QUERY_MS must be a positive integer, got %q", get("TUTORBOOK_SLOW_QUERY_MS"))
	}
	cfg.SlowQuery = time.Duration(ms) * time.Millisecond

	cfg.Location, err = time.LoadLocation(val("TUTORBOOK_TZ", "Local"))
	if err != nil {
		return Config{}, fmt.Errorf("TUTORBOOK_TZ: %w", err)
	}

	cfg.ReminderParsed, err = cron.ParseStandard(cfg.ReminderSpec)
	if err != nil {
		return Config{}, fmt.Errorf("TUTORBOOK_REMINDER_SPEC: %w", err)
	}
	// Specs without an explicit CRON_TZ follow TUTORBOOK_TZ rather than the host zone.
	if spec, ok := cfg.ReminderParsed.(*cron.SpecSchedule); ok && !hasTZPrefix(cfg.ReminderSpec) {
		spec.Location = cfg.Location
	}
	return cfg, nil
}

// SetupLogging configures the package-level logrus logger.
// JSON in production, text with full timestamps otherwise.
func SetupLogging(cfg Config, out io.Writer) {
	if cfg.Production() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetLevel(cfg.LogLevel)
	logrus.SetOutput(out)
}

func hasTZPrefix(spec string) bool {
	return strings.HasPrefix(spec, "CRON_TZ=") || strings.HasPrefix(spec, "TZ=")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
