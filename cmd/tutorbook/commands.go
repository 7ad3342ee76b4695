package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tutorbook/internal/adapters/spreadsheet"
	"tutorbook/internal/application/orchestrators"
	"tutorbook/internal/application/projections"
	"tutorbook/internal/domain/calendar"
	"tutorbook/internal/domain/export"
	domainLesson "tutorbook/internal/domain/lesson"
	"tutorbook/internal/domain/stats"
	"tutorbook/internal/domain/timeofday"
)

var (
	errUsage        = errors.New("usage")
	errHelp         = errors.New("help requested")
	errInvalidInput = errors.New("lesson input is invalid")
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"add", "add -student NAME [-date D] -start HH:MM [-duration H | -end HH:MM] [-rate R] [-method M] [-notes N]", "schedule a lesson", cmdAdd},
	{"edit", "edit -id ID [lesson flags]", "change a lesson; omitted flags keep their value", cmdEdit},
	{"complete", "complete ID...", "mark lessons completed", cmdComplete},
	{"cancel", "cancel ID...", "mark lessons cancelled", cmdCancel},
	{"delete", "delete ID...", "delete lessons", cmdDelete},
	{"slots", "slots [-date D] [-duration H] [-interval MIN] [-from HOUR] [-to HOUR]", "free start times on a day", cmdSlots},
	{"list", "list [-status S] [-q TEXT] [-from D] [-to D] [-sort date|student|income] [-dir asc|desc] [-page N] [-per-page N]", "list lessons", cmdList},
	{"stats", "stats [-day D | -month YYYY-MM | -year YYYY | -student NAME | -all]", "show statistics (default: this month)", cmdStats},
	{"year", "year [-year YYYY]", "monthly breakdown of a year", cmdYear},
	{"students", "students [-month YYYY-MM | -year YYYY | -all]", "per-student summary (default: all time)", cmdStudents},
	{"calendar", "calendar [-month YYYY-MM]", "month grid with daily hours", cmdCalendar},
	{"export", "export [-format xlsx|csv|json] [-o FILE] [window flags]", "export lessons and statistics", cmdExport},
	{"backup", "backup [-o FILE]", "write a full JSON backup", cmdBackup},
	{"restore", "restore FILE", "replace all data with a backup", cmdRestore},
	{"settings", "settings [-rate R] [-tax PCT] [-method M] [-notify on|off] [-lead MIN]", "show or change settings", cmdSettings},
	{"remind", "remind [-once]", "email reminders for upcoming lessons on TUTORBOOK_REMINDER_SPEC", cmdRemind},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "usage: tutorbook <command> [flags]")
	fmt.Fprintln(out)
	w := newTable(out)
	for _, c := range commands {
		row(w, "  "+c.name, c.summary)
	}
	w.Flush()
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	fs.Usage = func() {
		fmt.Fprintln(a.out, "usage: tutorbook", a.usage)
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return errUsage
	}
	return nil
}

// lessonFlags binds the editable lesson fields.
type lessonFlags struct {
	fs       *flag.FlagSet
	student  *string
	date     *string
	start    *string
	end      *string
	duration *float64
	rate     *float64
	method   *string
	status   *string
	notes    *string
}

func bindLessonFlags(fs *flag.FlagSet) *lessonFlags {
	return &lessonFlags{
		fs:       fs,
		student:  fs.String("student", "", "student name"),
		date:     fs.String("date", "", "lesson date YYYY-MM-DD (default today)"),
		start:    fs.String("start", "", "start time HH:MM"),
		end:      fs.String("end", "", "end time HH:MM (overrides -duration)"),
		duration: fs.Float64("duration", 1, "length in hours"),
		rate:     fs.Float64("rate", 0, "hourly rate (default from settings)"),
		method:   fs.String("method", "", "online or offline (default from settings)"),
		status:   fs.String("status", "", "planned, completed or cancelled"),
		notes:    fs.String("notes", "", "free-text notes"),
	}
}

// apply copies explicitly given flags onto base.
func (f *lessonFlags) apply(base domainLesson.FormData) domainLesson.FormData {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "student":
			base.StudentName = *f.student
		case "date":
			base.Date = *f.date
		case "start":
			base.StartTime = *f.start
		case "end":
			base.EndTime = *f.end
		case "duration":
			base.Duration = *f.duration
		case "rate":
			base.HourlyRate = *f.rate
		case "method":
			base.TeachingMethod = domainLesson.Method(*f.method)
		case "status":
			base.Status = domainLesson.Status(*f.status)
		case "notes":
			base.Notes = *f.notes
		}
	})
	return base
}

func cmdAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "add")
	lf := bindLessonFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	form := lf.apply(domainLesson.FormData{Duration: *lf.duration})
	if form.Date == "" {
		form.Date = calendar.FormatDate(a.now())
	}

	res, err := orchestrators.ExecuteAddLesson(ctx, orchestrators.AddLessonInput{Form: form}, orchestrators.AddLessonDeps{
		LessonStore:   a.lessons,
		SettingsStore: a.settings,
		GenerateID:    a.newID,
		Now:           a.now,
	})
	if err != nil {
		return err
	}
	if !res.Validation.Valid {
		fmt.Fprintln(a.out, "lesson not added:")
		printFieldErrors(a.out, res.Validation.FieldErrors)
		return errInvalidInput
	}
	fmt.Fprintf(a.out, "added %s: %s\n", res.Lesson.ID, describe(res.Lesson))
	return nil
}

func cmdEdit(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "edit")
	id := fs.String("id", "", "lesson ID")
	lf := bindLessonFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == "" {
		fs.Usage()
		return errUsage
	}

	current, err := a.lessons.GetByID(ctx, *id)
	if err != nil {
		return err
	}
	base := domainLesson.FormDataFromLesson(current)
	base.EndTime = "" // keep the stored duration unless -end is given
	form := lf.apply(base)

	res, err := orchestrators.ExecuteUpdateLesson(ctx, orchestrators.UpdateLessonInput{ID: *id, Form: form}, orchestrators.UpdateLessonDeps{
		LessonStore: a.lessons,
		Now:         a.now,
	})
	if err != nil {
		return err
	}
	if !res.Validation.Valid {
		fmt.Fprintln(a.out, "lesson not updated:")
		printFieldErrors(a.out, res.Validation.FieldErrors)
		return errInvalidInput
	}
	fmt.Fprintf(a.out, "updated %s: %s\n", res.Lesson.ID, describe(res.Lesson))
	return nil
}

func eachID(args []string, fn func(id string) error) error {
	if len(args) == 0 {
		return errUsage
	}
	var errs []error
	for _, id := range args {
		if err := fn(id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func cmdComplete(ctx context.Context, a *app, args []string) error {
	deps := orchestrators.LessonStatusDeps{LessonStore: a.lessons, Now: a.now}
	return eachID(args, func(id string) error {
		l, err := orchestrators.ExecuteCompleteLesson(ctx, orchestrators.LessonStatusInput{ID: id}, deps)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "completed %s: %s\n", l.ID, describe(l))
		return nil
	})
}

func cmdCancel(ctx context.Context, a *app, args []string) error {
	deps := orchestrators.LessonStatusDeps{LessonStore: a.lessons, Now: a.now}
	return eachID(args, func(id string) error {
		l, err := orchestrators.ExecuteCancelLesson(ctx, orchestrators.LessonStatusInput{ID: id}, deps)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "cancelled %s: %s\n", l.ID, describe(l))
		return nil
	})
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	deps := orchestrators.DeleteLessonDeps{LessonStore: a.lessons}
	return eachID(args, func(id string) error {
		if err := orchestrators.ExecuteDeleteLesson(ctx, orchestrators.DeleteLessonInput{ID: id}, deps); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted %s\n", id)
		return nil
	})
}

func cmdSlots(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "slots")
	q := projections.GetFreeSlotsQuery{}
	fs.StringVar(&q.Date, "date", calendar.FormatDate(a.now()), "date YYYY-MM-DD")
	fs.Float64Var(&q.Duration, "duration", 1, "lesson length in hours")
	fs.IntVar(&q.Interval, "interval", 30, "minutes between candidate start times")
	fs.IntVar(&q.StartHour, "from", 8, "first hour to consider")
	fs.IntVar(&q.EndHour, "to", 21, "last hour to consider")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	free, err := projections.QueryGetFreeSlots(ctx, q, projections.GetFreeSlotsDeps{LessonStore: a.lessons})
	if err != nil {
		return err
	}
	if len(free) == 0 {
		fmt.Fprintf(a.out, "no free %s slot on %s\n", timeofday.FormatDuration(q.Duration), q.Date)
		return nil
	}
	fmt.Fprintf(a.out, "free %s slots on %s:\n", timeofday.FormatDuration(q.Duration), q.Date)
	fmt.Fprintln(a.out, strings.Join(free, " "))
	return nil
}

func cmdList(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "list")
	q := projections.ListLessonsQuery{}
	status := fs.String("status", "", "planned, completed or cancelled")
	fs.StringVar(&q.Search, "q", "", "search student name and notes")
	fs.StringVar(&q.FromDate, "from", "", "first date YYYY-MM-DD")
	fs.StringVar(&q.ToDate, "to", "", "last date YYYY-MM-DD")
	fs.StringVar(&q.Sort, "sort", projections.SortDate, "date, student or income")
	fs.StringVar(&q.Dir, "dir", "asc", "asc or desc")
	fs.IntVar(&q.Page, "page", 1, "page number")
	fs.IntVar(&q.PerPage, "per-page", 20, "rows per page (10, 20, 50, 100, 200)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	q.Status = domainLesson.Status(*status)
	if q.Status != "" && !q.Status.Valid() {
		return domainLesson.ErrInvalidStatus
	}

	res, err := projections.QueryListLessons(ctx, q, projections.ListLessonsDeps{LessonStore: a.lessons})
	if err != nil {
		return err
	}
	printLessons(a.out, res.Lessons, res.Page)
	return nil
}

// windowFlags selects a stats.Window; at most one may be given.
type windowFlags struct {
	day     *string
	month   *string
	year    *int
	student *string
	all     *bool
}

func bindWindowFlags(fs *flag.FlagSet, withDay, withStudent bool) *windowFlags {
	w := &windowFlags{
		month: fs.String("month", "", "month YYYY-MM"),
		year:  fs.Int("year", 0, "calendar year"),
		all:   fs.Bool("all", false, "all time"),
	}
	if withDay {
		w.day = fs.String("day", "", "date YYYY-MM-DD")
	}
	if withStudent {
		w.student = fs.String("student", "", "exact student name")
	}
	return w
}

func (w *windowFlags) window(def stats.Window) (stats.Window, error) {
	var picked []stats.Window
	if w.day != nil && *w.day != "" {
		if _, err := calendar.ParseDate(*w.day, time.UTC); err != nil {
			return stats.Window{}, err
		}
		picked = append(picked, stats.Day(*w.day))
	}
	if *w.month != "" {
		m, err := parseMonth(*w.month)
		if err != nil {
			return stats.Window{}, err
		}
		picked = append(picked, stats.Month(m.Year(), m.Month()))
	}
	if *w.year != 0 {
		picked = append(picked, stats.Year(*w.year))
	}
	if w.student != nil && *w.student != "" {
		picked = append(picked, stats.Student(*w.student))
	}
	if *w.all {
		picked = append(picked, stats.AllTime())
	}
	switch len(picked) {
	case 0:
		return def, nil
	case 1:
		return picked[0], nil
	default:
		return stats.Window{}, errors.New("choose at most one of -day, -month, -year, -student, -all")
	}
}

func parseMonth(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q (use YYYY-MM)", s)
	}
	return t, nil
}

func windowTitle(w stats.Window) string {
	switch w.Kind {
	case stats.KindDay:
		return "Statistics for " + w.Date
	case stats.KindMonth:
		return fmt.Sprintf("Statistics for %s %d", w.Month, w.Year)
	case stats.KindYear:
		return fmt.Sprintf("Statistics for %d", w.Year)
	case stats.KindStudent:
		return "Statistics for " + w.Student
	default:
		return "Statistics for all time"
	}
}

func (a *app) statsDeps() projections.GetStatsDeps {
	return projections.GetStatsDeps{LessonStore: a.lessons, SettingsStore: a.settings}
}

func (a *app) thisMonth() stats.Window {
	now := a.now()
	return stats.Month(now.Year(), now.Month())
}

func cmdStats(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "stats")
	wf := bindWindowFlags(fs, true, true)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	w, err := wf.window(a.thisMonth())
	if err != nil {
		return err
	}
	s, err := projections.QueryGetStats(ctx, projections.GetStatsQuery{Window: w}, a.statsDeps())
	if err != nil {
		return err
	}
	printStats(a.out, windowTitle(w), s)
	return nil
}

func cmdYear(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "year")
	year := fs.Int("year", a.now().Year(), "calendar year")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ys, err := projections.QueryGetYearlyStats(ctx, projections.GetYearlyStatsQuery{Year: *year}, a.statsDeps())
	if err != nil {
		return err
	}
	printTable(a.out, export.YearlyHeader, export.YearlyRows(ys))
	fmt.Fprintf(a.out, "average monthly net income: %.2f\n", ys.AverageMonthlyIncome)
	return nil
}

func cmdStudents(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "students")
	wf := bindWindowFlags(fs, false, false)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	w, err := wf.window(stats.AllTime())
	if err != nil {
		return err
	}
	summaries, err := projections.QueryGetStudentStats(ctx, projections.GetStudentStatsQuery{Window: w}, a.statsDeps())
	if err != nil {
		return err
	}
	printTable(a.out, export.StudentHeader, export.StudentRows(summaries))
	return nil
}

func cmdCalendar(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "calendar")
	month := fs.String("month", "", "month YYYY-MM (default this month)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	now := a.now()
	q := projections.GetCalendarMonthQuery{Year: now.Year(), Month: now.Month(), Now: now}
	if *month != "" {
		m, err := parseMonth(*month)
		if err != nil {
			return err
		}
		q.Year, q.Month = m.Year(), m.Month()
	}
	cal, err := projections.QueryGetCalendarMonth(ctx, q, a.statsDeps())
	if err != nil {
		return err
	}
	printCalendar(a.out, cal)
	return nil
}

// createOutput returns stdout for "-" and a new file otherwise.
func (a *app) createOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return a.out, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func cmdExport(ctx context.Context, a *app, args []string) (err error) {
	fs := newFlagSet(a, "export")
	format := fs.String("format", export.FormatXLSX, "xlsx, csv or json")
	output := fs.String("o", "-", "output file, - for stdout")
	wf := bindWindowFlags(fs, true, true)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := export.ValidateFormat(*format); err != nil {
		return err
	}
	w, err := wf.window(a.thisMonth())
	if err != nil {
		return err
	}
	report, err := projections.QueryGetReport(ctx, projections.GetReportQuery{Window: w}, a.statsDeps())
	if err != nil {
		return err
	}

	out, closeOut, err := a.createOutput(*output)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeOut()) }()

	switch *format {
	case export.FormatCSV:
		err = spreadsheet.WriteLessonsCSV(out, export.LessonRows(report.Lessons))
	case export.FormatJSON:
		err = writeReportJSON(out, report)
	default:
		err = writeReportXLSX(out, report)
	}
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"format": *format, "lessons": len(report.Lessons), "output": *output}).Info("report_exported")
	return nil
}

func writeReportXLSX(out io.Writer, r projections.Report) (err error) {
	wb, err := spreadsheet.NewWorkbook()
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, wb.Close()) }()

	if err := wb.AddLessons(export.LessonRows(r.Lessons)); err != nil {
		return err
	}
	if err := wb.AddSummary(windowTitle(r.Window), export.StatsRows(r.Stats)); err != nil {
		return err
	}
	if r.Yearly != nil {
		if err := wb.AddYear(export.YearlyRows(*r.Yearly)); err != nil {
			return err
		}
	}
	if err := wb.AddStudents(export.StudentRows(r.Students)); err != nil {
		return err
	}
	_, err = wb.WriteTo(out)
	return err
}

func cmdBackup(ctx context.Context, a *app, args []string) (err error) {
	fs := newFlagSet(a, "backup")
	output := fs.String("o", "-", "output file, - for stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	b, err := orchestrators.ExecuteExportBackup(ctx, orchestrators.ExportBackupDeps{
		LessonStore:   a.lessons,
		SettingsStore: a.settings,
		Now:           a.now,
	})
	if err != nil {
		return err
	}
	data, err := b.ToJSON()
	if err != nil {
		return err
	}
	out, closeOut, err := a.createOutput(*output)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeOut()) }()
	_, err = out.Write(append(data, '\n'))
	return err
}

func cmdRestore(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	res, err := orchestrators.ExecuteImportBackup(ctx, orchestrators.ImportBackupInput{Data: data}, orchestrators.ImportBackupDeps{
		LessonStore:   a.lessons,
		SettingsStore: a.settings,
	})
	if err != nil {
		return fmt.Errorf("restore %s: %w", args[0], err)
	}
	fmt.Fprintf(a.out, "restored %d lessons from backup %s (exported %s)\n", res.Lessons, res.Version, res.ExportDate.Format(time.RFC3339))
	if !res.CurrentVersion {
		fmt.Fprintf(a.out, "warning: backup version %s differs from current version %s\n", res.Version, export.BackupVersion)
	}
	return nil
}

func cmdSettings(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "settings")
	rate := fs.Float64("rate", 0, "default hourly rate")
	tax := fs.Float64("tax", 0, "tax rate percent")
	method := fs.String("method", "", "default teaching method")
	notify := fs.String("notify", "", "on or off")
	lead := fs.Int("lead", 0, "reminder lead time in minutes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := a.settings.Get(ctx)
	if err != nil {
		return err
	}
	changed := false
	var parseErr error
	fs.Visit(func(fl *flag.Flag) {
		changed = true
		switch fl.Name {
		case "rate":
			cfg.HourlyRate = *rate
		case "tax":
			cfg.TaxRate = *tax
		case "method":
			cfg.DefaultTeachingMethod = domainLesson.Method(*method)
		case "notify":
			switch strings.ToLower(*notify) {
			case "on":
				cfg.EnableNotifications = true
			case "off":
				cfg.EnableNotifications = false
			default:
				parseErr = fmt.Errorf("-notify must be on or off, got %q", *notify)
			}
		case "lead":
			cfg.NotificationMinutes = *lead
		}
	})
	if parseErr != nil {
		return parseErr
	}
	if changed {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := a.settings.Save(ctx, cfg); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{"hourly_rate": cfg.HourlyRate, "tax_rate": cfg.TaxRate}).Info("settings_saved")
	}

	notifications := "off"
	if cfg.EnableNotifications {
		notifications = fmt.Sprintf("on, %d minutes before", cfg.NotificationMinutes)
	}
	w := newTable(a.out)
	row(w, "hourly rate", cfg.HourlyRate)
	row(w, "tax rate", fmt.Sprintf("%g%%", cfg.TaxRate))
	row(w, "default method", cfg.DefaultTeachingMethod)
	row(w, "reminders", notifications)
	return w.Flush()
}

func cmdRemind(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "remind")
	once := fs.Bool("once", false, "run a single pass and exit")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	sched := a.cfg.ReminderParsed
	if sched == nil {
		return errors.New("no reminder schedule configured")
	}
	pass := func() error {
		now := a.now()
		res, err := orchestrators.ExecuteSendReminders(ctx, orchestrators.SendRemindersInput{
			Interval: sched.Next(now).Sub(now),
			To:       a.cfg.NotifyTo,
			From:     a.cfg.EmailFrom,
		}, orchestrators.SendRemindersDeps{
			LessonStore:   a.lessons,
			SettingsStore: a.settings,
			ReminderLog:   a.lessons,
			EmailSender:   a.sender,
			Now:           func() time.Time { return now },
		})
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{"sent": res.Sent, "skipped": res.Skipped, "failed": res.Failed}).Info("reminder_pass")
		return nil
	}

	if *once {
		return pass()
	}

	logger := cron.PrintfLogger(logrus.StandardLogger())
	c := cron.New(cron.WithLocation(a.now().Location()), cron.WithLogger(logger))
	c.Schedule(sched, cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		if err := pass(); err != nil {
			logrus.WithError(err).Error("reminder_pass_failed")
		}
	})))
	c.Start()
	logrus.WithField("schedule", a.cfg.ReminderSpec).Info("reminder_scheduler_started")

	<-ctx.Done()
	<-c.Stop().Done()
	logrus.Info("reminder_scheduler_stopped")
	return nil
}
