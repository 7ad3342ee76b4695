package export

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"

	"tutorbook/internal/domain/lesson"
	"tutorbook/internal/domain/settings"
	"tutorbook/internal/domain/stats"
	"tutorbook/internal/domain/timeofday"
)

// BackupVersion is written into every backup and compared on import.
const BackupVersion = "1.0"

// Format constants for export file format.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Domain errors.
var (
	ErrInvalidFormat     = errors.New("invalid format: must be 'xlsx', 'csv' or 'json'")
	ErrInvalidBackup     = errors.New("backup is missing its version or export date")
	ErrChecksumMismatch  = errors.New("backup checksum does not match its contents")
	ErrDuplicateLessonID = errors.New("backup contains duplicate lesson IDs")
)

// ValidateFormat checks a requested export format.
func ValidateFormat(format string) error {
	switch format {
	case FormatXLSX, FormatCSV, FormatJSON:
		return nil
	default:
		return ErrInvalidFormat
	}
}

// LessonHeader labels the columns of LessonRow.Values.
var LessonHeader = []string{"No.", "Date", "Time", "Duration", "Student", "Method", "Status", "Hourly Rate", "Income", "Notes"}

// LessonRow is one lesson formatted for a spreadsheet.
type LessonRow struct {
	Seq        int
	Date       string
	Time       string
	Duration   string
	Student    string
	Method     string
	Status     string
	HourlyRate float64
	Income     float64 // zero unless completed
	Notes      string
}

// Values returns the row cells in LessonHeader order.
func (r LessonRow) Values() []any {
	return []any{r.Seq, r.Date, r.Time, r.Duration, r.Student, r.Method, r.Status, r.HourlyRate, r.Income, r.Notes}
}

// Strings returns the row cells as text for CSV output.
func (r LessonRow) Strings() []string {
	return []string{
		strconv.Itoa(r.Seq), r.Date, r.Time, r.Duration, r.Student, r.Method, r.Status,
		formatAmount(r.HourlyRate), formatAmount(r.Income), r.Notes,
	}
}

// LessonRows formats lessons for export, ordered by date then start time.
// PRE: none
// POST: Seq numbers start at 1 in output order
// INVARIANT: lessons is not modified
func LessonRows(lessons []lesson.Lesson) []LessonRow {
	sorted := make([]lesson.Lesson, len(lessons))
	copy(sorted, lessons)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return startMinutes(sorted[i]) < startMinutes(sorted[j])
	})

	rows := make([]LessonRow, 0, len(sorted))
	for i, l := range sorted {
		timeRange := l.StartTime
		if end, err := l.EndTime(); err == nil {
			timeRange = l.StartTime + "-" + end
		}
		rows = append(rows, LessonRow{
			Seq:        i + 1,
			Date:       l.Date,
			Time:       timeRange,
			Duration:   timeofday.FormatDuration(l.Duration),
			Student:    l.StudentName,
			Method:     l.TeachingMethod.Label(),
			Status:     l.Status.Label(),
			HourlyRate: l.HourlyRate,
			Income:     stats.Round2(l.Income()),
			Notes:      l.Notes,
		})
	}
	return rows
}

func startMinutes(l lesson.Lesson) int {
	m, err := timeofday.ToMinutes(l.StartTime)
	if err != nil {
		return timeofday.MinutesPerDay
	}
	return m
}

// StatRow is one labelled figure of a statistics report.
type StatRow struct {
	Label string
	Value float64
	Unit  string
}

// StatsRows lists the figures of s in report order.
func StatsRows(s stats.Stats) []StatRow {
	return []StatRow{
		{"Total lessons", float64(s.TotalLessons), "lessons"},
		{"Completed lessons", float64(s.CompletedLessons), "lessons"},
		{"Planned lessons", float64(s.PlannedLessons), "lessons"},
		{"Cancelled lessons", float64(s.CancelledLessons), "lessons"},
		{"Total hours", s.TotalHours, "hours"},
		{"Online hours", s.OnlineHours, "hours"},
		{"Offline hours", s.OfflineHours, "hours"},
		{"Gross income", s.GrossIncome, "currency"},
		{"Tax deduction", s.TaxDeduction, "currency"},
		{"Net income", s.NetIncome, "currency"},
		{"Unique students", float64(s.UniqueStudents), "students"},
		{"Completion rate", float64(s.CompletionRate), "%"},
		{"Average hourly rate", s.AverageHourlyRate, "currency/hour"},
	}
}

// YearlyHeader labels the columns of YearlyRows.
var YearlyHeader = []string{"Month", "Lessons", "Completed", "Hours", "Gross", "Tax", "Net"}

// YearlyRows returns one row per month followed by a total row.
func YearlyRows(ys stats.YearlyStats) [][]any {
	rows := make([][]any, 0, len(ys.Months)+1)
	for _, m := range ys.Months {
		rows = append(rows, monthRow(fmt.Sprintf("%d-%02d", ys.Year, int(m.Month)), m.Stats))
	}
	return append(rows, monthRow("Total", ys.Total))
}

func monthRow(label string, s stats.Stats) []any {
	return []any{label, s.TotalLessons, s.CompletedLessons, s.TotalHours, s.GrossIncome, s.TaxDeduction, s.NetIncome}
}

// StudentHeader labels the columns of StudentRows.
var StudentHeader = []string{"No.", "Student", "Lessons", "Completed", "Hours", "Net Income", "Average Rate", "Cancelled"}

// StudentRows formats per-student summaries in their given order.
func StudentRows(summaries []stats.StudentSummary) [][]any {
	rows := make([][]any, 0, len(summaries))
	for i, s := range summaries {
		rows = append(rows, []any{
			i + 1, s.Name, s.TotalLessons, s.CompletedLessons,
			timeofday.FormatDuration(s.TotalHours), s.NetIncome, s.AverageHourlyRate, s.CancelledLessons,
		})
	}
	return rows
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Backup is the full, self-describing copy of a user's data.
type Backup struct {
	Version    string               `json:"version"`
	ExportDate time.Time            `json:"exportDate"`
	Lessons    []lesson.Lesson      `json:"lessons"`
	Settings   settings.AppSettings `json:"settings"`
	Checksum   string               `json:"checksum"`
}

// NewBackup snapshots lessons and settings at now.
// PRE: none
// POST: Checksum covers Lessons and Settings
func NewBackup(lessons []lesson.Lesson, s settings.AppSettings, now time.Time) (*Backup, error) {
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	b := &Backup{
		Version:    BackupVersion,
		ExportDate: now.UTC(),
		Lessons:    lessons,
		Settings:   s,
	}
	sum, err := b.checksum()
	if err != nil {
		return nil, err
	}
	b.Checksum = sum
	return b, nil
}

func (b *Backup) checksum() (string, error) {
	payload, err := json.Marshal(struct {
		Lessons  []lesson.Lesson      `json:"lessons"`
		Settings settings.AppSettings `json:"settings"`
	}{b.Lessons, b.Settings})
	if err != nil {
		return "", fmt.Errorf("encode backup payload: %w", err)
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// CurrentVersion reports whether the backup was written by this BackupVersion.
func (b *Backup) CurrentVersion() bool {
	return b.Version == BackupVersion
}

// Verify checks the backup is complete, untampered, and holds valid records.
// PRE: b was decoded from JSON
// POST: Returns nil when every lesson and the settings satisfy their invariants
// INVARIANT: A version mismatch alone is not an error
func (b *Backup) Verify() error {
	if b.Version == "" || b.ExportDate.IsZero() {
		return ErrInvalidBackup
	}
	sum, err := b.checksum()
	if err != nil {
		return err
	}
	if sum != b.Checksum {
		return ErrChecksumMismatch
	}
	seen := make(map[string]bool, len(b.Lessons))
	for i := range b.Lessons {
		l := &b.Lessons[i]
		if err := l.Validate(); err != nil {
			return fmt.Errorf("lesson %d (%s): %w", i+1, l.ID, err)
		}
		if seen[l.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateLessonID, l.ID)
		}
		seen[l.ID] = true
	}
	if err := b.Settings.Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}

// ToJSON serializes the backup.
// PRE: Backup fields are populated
// POST: Returns indented JSON
func (b *Backup) ToJSON() ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// ParseBackup decodes and verifies a backup.
func ParseBackup(data []byte) (*Backup, error) {
	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	if err := b.Verify(); err != nil {
		return nil, err
	}
	return &b, nil
}
