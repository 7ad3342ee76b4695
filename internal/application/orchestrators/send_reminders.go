package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	emailAdapter "tutorbook/internal/adapters/email"
	"tutorbook/internal/domain/calendar"
	domain "tutorbook/internal/domain/lesson"
	"tutorbook/internal/domain/timeofday"
)

// ErrNoRecipients is returned when reminders are enabled but nobody would receive them.
var ErrNoRecipients = errors.New("no reminder recipients configured")

// reminderRenderer turns the markdown reminder body into HTML. Raw HTML in notes is escaped.
var reminderRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// LessonStoreForReminders defines the store interface needed by the reminder orchestrator.
type LessonStoreForReminders interface {
	ListByDate(ctx context.Context, date string) ([]domain.Lesson, error)
}

// ReminderLog records which lessons were already reminded.
type ReminderLog interface {
	WasSent(ctx context.Context, lessonID string) (bool, error)
	MarkSent(ctx context.Context, lessonID string, at time.Time) error
}

// SendRemindersInput carries input for the reminder orchestrator.
type SendRemindersInput struct {
	Interval time.Duration // how often the job runs; the scan window is this wide
	To       []string
	From     string
}

// SendRemindersDeps holds dependencies for SendReminders.
type SendRemindersDeps struct {
	LessonStore   LessonStoreForReminders
	SettingsStore SettingsReader
	ReminderLog   ReminderLog
	EmailSender   emailAdapter.Sender
	Now           func() time.Time // its Location is the tutor's local time zone
}

// SendRemindersResult summarizes one reminder run.
type SendRemindersResult struct {
	Sent    int
	Skipped int // already reminded
	Failed  int
}

// ExecuteSendReminders emails a reminder for each planned lesson starting in
// [minute(now)+lead, now+lead+interval), where lead is the configured notification time.
// Lessons have minute resolution, so the window opens at the top of the current minute.
// PRE: input.Interval > 0
// POST: each reminded lesson is marked sent; a failed send is logged and retried on the next run
// INVARIANT: a lesson is reminded at most once
func ExecuteSendReminders(ctx context.Context, input SendRemindersInput, deps SendRemindersDeps) (SendRemindersResult, error) {
	cfg, err := deps.SettingsStore.Get(ctx)
	if err != nil {
		return SendRemindersResult{}, err
	}
	if !cfg.EnableNotifications {
		logrus.Debug("reminders_disabled")
		return SendRemindersResult{}, nil
	}
	if len(input.To) == 0 {
		return SendRemindersResult{}, ErrNoRecipients
	}
	if input.Interval <= 0 {
		return SendRemindersResult{}, fmt.Errorf("reminder interval must be positive, got %s", input.Interval)
	}

	now := deps.Now()
	lead := time.Duration(cfg.NotificationMinutes) * time.Minute
	from := now.Truncate(time.Minute).Add(lead)
	to := now.Add(lead + input.Interval)

	due, err := lessonsStartingIn(ctx, deps.LessonStore, from, to)
	if err != nil {
		return SendRemindersResult{}, err
	}

	var result SendRemindersResult
	var pending []domain.Lesson
	var reqs []emailAdapter.SendRequest
	for _, l := range due {
		sent, err := deps.ReminderLog.WasSent(ctx, l.ID)
		if err != nil {
			return result, err
		}
		if sent {
			result.Skipped++
			continue
		}
		req, err := reminderRequest(l, input.To, input.From)
		if err != nil {
			return result, err
		}
		pending = append(pending, l)
		reqs = append(reqs, req)
	}
	if len(reqs) == 0 {
		return result, nil
	}

	// On failure the results still cover the leading requests the provider accepted.
	results, sendErr := deps.EmailSender.SendBatch(ctx, reqs)
	for i, l := range pending {
		if i >= len(results) {
			result.Failed++
			logrus.WithError(sendErr).WithField("lesson_id", l.ID).Warn("reminder_send_failed")
			continue
		}
		if err := deps.ReminderLog.MarkSent(ctx, l.ID, now); err != nil {
			return result, err
		}
		result.Sent++
		logrus.WithFields(logrus.Fields{
			"lesson_id":  l.ID,
			"message_id": results[i].MessageID,
			"starts":     l.Date + " " + l.StartTime,
		}).Info("reminder_sent")
	}
	return result, nil
}

// lessonsStartingIn returns planned lessons whose start lies in [from, to), in start order.
func lessonsStartingIn(ctx context.Context, store LessonStoreForReminders, from, to time.Time) ([]domain.Lesson, error) {
	loc := from.Location()
	var due []domain.Lesson
	y, m, d := from.Date()
	lastDate := calendar.FormatDate(to)
	for day := time.Date(y, m, d, 0, 0, 0, 0, loc); calendar.FormatDate(day) <= lastDate; day = day.AddDate(0, 0, 1) {
		lessons, err := store.ListByDate(ctx, calendar.FormatDate(day))
		if err != nil {
			return nil, err
		}
		for _, l := range lessons {
			if l.Status != domain.StatusPlanned {
				continue
			}
			start, err := l.StartsAt(loc)
			if err != nil {
				continue
			}
			if !start.Before(from) && start.Before(to) {
				due = append(due, l)
			}
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		a, _ := due[i].StartsAt(loc)
		b, _ := due[j].StartsAt(loc)
		return a.Before(b)
	})
	return due, nil
}

// reminderMarkdown is the plain-text body; it is also rendered to HTML.
func reminderMarkdown(l domain.Lesson) string {
	end, _ := l.EndTime()
	var b strings.Builder
	fmt.Fprintf(&b, "**Upcoming lesson with %s**\n\n", l.StudentName)
	fmt.Fprintf(&b, "- Date: %s\n", l.Date)
	fmt.Fprintf(&b, "- Time: %s-%s (%s)\n", l.StartTime, end, timeofday.FormatDuration(l.Duration))
	fmt.Fprintf(&b, "- Method: %s\n", l.TeachingMethod.Label())
	if notes := strings.TrimSpace(l.Notes); notes != "" {
		fmt.Fprintf(&b, "\nNotes:\n%s\n", notes)
	}
	return b.String()
}

func reminderRequest(l domain.Lesson, to []string, from string) (emailAdapter.SendRequest, error) {
	md := reminderMarkdown(l)
	var html bytes.Buffer
	if err := reminderRenderer.Convert([]byte(md), &html); err != nil {
		return emailAdapter.SendRequest{}, fmt.Errorf("render reminder: %w", err)
	}
	return emailAdapter.SendRequest{
		To:      to,
		From:    from,
		Subject: fmt.Sprintf("Lesson reminder: %s at %s", l.StudentName, l.StartTime),
		HTML:    html.String(),
		Text:    md,
		Tags:    map[string]string{"lesson_id": l.ID, "kind": "reminder"},
	}, nil
}
