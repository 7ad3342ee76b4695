package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	emailPkg "tutorbook/internal/adapters/email"
	"tutorbook/internal/adapters/storage"
	lessonStore "tutorbook/internal/adapters/storage/lesson"
	settingsStore "tutorbook/internal/adapters/storage/settings"
	"tutorbook/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// clock is replaced in tests.
var clock = time.Now

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, "tutorbook:", err)
		os.Exit(2)
	}
	config.SetupLogging(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		logrus.WithError(err).Debug("command_failed")
		fmt.Fprintln(os.Stderr, "tutorbook:", err)
		os.Exit(1)
	}
}

// app holds the wired stores and adapters shared by every subcommand.
type app struct {
	cfg      config.Config
	db       *storage.TimedDB
	lessons  *lessonStore.SQLiteStore
	settings *settingsStore.SQLiteStore
	sender   emailPkg.Sender
	now      func() time.Time
	newID    func() string
	out      io.Writer
	usage    string // of the running subcommand
}

func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(out)
		if len(args) == 0 {
			return errUsage
		}
		return nil
	}
	if args[0] == "version" {
		fmt.Fprintf(out, "tutorbook %s (schema %d)\n", version, storage.LatestSchemaVersion())
		return nil
	}
	cmd, ok := lookupCommand(args[0])
	if !ok {
		fmt.Fprintf(out, "unknown command %q\n\n", args[0])
		printUsage(out)
		return errUsage
	}

	a, err := openApp(cfg, out)
	if err != nil {
		return err
	}
	defer a.close()
	a.usage = cmd.usage
	if err := cmd.run(ctx, a, args[1:]); !errors.Is(err, errHelp) {
		return err
	}
	return nil
}

// openDB opens the SQLite file with foreign keys and a busy timeout on every connection.
func openDB(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.InitDB(db, path); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return db, nil
}

func openApp(cfg config.Config, out io.Writer) (*app, error) {
	db, err := openDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	timed := storage.NewTimedDB(db, cfg.SlowQuery)

	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom)
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.Production() {
			logrus.Warn("TUTORBOOK_RESEND_KEY is not set: reminder delivery is disabled")
		}
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &app{
		cfg:      cfg,
		db:       timed,
		lessons:  lessonStore.NewSQLiteStore(timed),
		settings: settingsStore.NewSQLiteStore(timed),
		sender:   sender,
		now:      func() time.Time { return clock().In(loc) },
		newID:    func() string { return uuid.New().String() },
		out:      out,
	}, nil
}

func (a *app) close() {
	s := a.db.Stats()
	logrus.WithFields(logrus.Fields{"queries": s.Total, "slow": s.Slow}).Debug("db_closed")
	if err := a.db.Close(); err != nil {
		logrus.WithError(err).Warn("db_close_failed")
	}
}
