package spreadsheet_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"tutorbook/internal/adapters/spreadsheet"
	"tutorbook/internal/domain/export"
	"tutorbook/internal/domain/lesson"
	"tutorbook/internal/domain/stats"
)

func sampleLessons() []lesson.Lesson {
	return []lesson.Lesson{
		{ID: "1", Date: "2024-05-02", StartTime: "10:00", Duration: 1, StudentName: "Bob", TeachingMethod: lesson.MethodOffline, Status: lesson.StatusPlanned, HourlyRate: 60},
		{ID: "2", Date: "2024-05-01", StartTime: "09:00", Duration: 1.5, StudentName: "Alice", TeachingMethod: lesson.MethodOnline, Status: lesson.StatusCompleted, HourlyRate: 80, Notes: "scales, arpeggios"},
	}
}

func newWorkbook(t *testing.T) *spreadsheet.Workbook {
	t.Helper()
	w, err := spreadsheet.NewWorkbook()
	if err != nil {
		t.Fatalf("NewWorkbook: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

// TestWorkbook_AllSheets writes every report and reads it back.
func TestWorkbook_AllSheets(t *testing.T) {
	lessons := sampleLessons()
	w := newWorkbook(t)

	if err := w.AddLessons(export.LessonRows(lessons)); err != nil {
		t.Fatalf("AddLessons: %v", err)
	}
	if err := w.AddSummary("May 2024", export.StatsRows(stats.Aggregate(lessons, stats.Month(2024, time.May), 10))); err != nil {
		t.Fatalf("AddSummary: %v", err)
	}
	if err := w.AddYear(export.YearlyRows(stats.Yearly(lessons, 2024, 10))); err != nil {
		t.Fatalf("AddYear: %v", err)
	}
	if err := w.AddStudents(export.StudentRows(stats.ByStudent(lessons, stats.AllTime(), 10))); err != nil {
		t.Fatalf("AddStudents: %v", err)
	}

	want := []string{spreadsheet.SheetLessons, spreadsheet.SheetSummary, spreadsheet.SheetYear, spreadsheet.SheetStudents}
	got := w.Sheets()
	if len(got) != len(want) {
		t.Fatalf("Sheets = %v, want %v", got, want)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	data := buf.Bytes()

	rows, err := spreadsheet.ReadSheet(bytes.NewReader(data), spreadsheet.SheetLessons)
	if err != nil {
		t.Fatalf("ReadSheet lessons: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("lesson rows = %d, want 3 (header + 2)", len(rows))
	}
	if rows[0][0] != "No." || rows[1][4] != "Alice" || rows[1][8] != "120" || rows[2][8] != "0" {
		t.Errorf("lesson sheet = %v", rows)
	}

	year, err := spreadsheet.ReadSheet(bytes.NewReader(data), spreadsheet.SheetYear)
	if err != nil {
		t.Fatalf("ReadSheet year: %v", err)
	}
	if len(year) != 14 || year[13][0] != "Total" {
		t.Errorf("year sheet has %d rows, last %v", len(year), year[len(year)-1])
	}

	summary, err := spreadsheet.ReadSheet(bytes.NewReader(data), spreadsheet.SheetSummary)
	if err != nil {
		t.Fatalf("ReadSheet summary: %v", err)
	}
	if summary[0][0] != "May 2024" || summary[1][0] != "Total lessons" || summary[1][1] != "2" {
		t.Errorf("summary sheet = %v", summary[:2])
	}
}

func TestWorkbook_DuplicateSheet(t *testing.T) {
	w := newWorkbook(t)
	if err := w.AddLessons(nil); err != nil {
		t.Fatalf("AddLessons: %v", err)
	}
	if err := w.AddLessons(nil); !errors.Is(err, spreadsheet.ErrSheetExists) {
		t.Errorf("second AddLessons = %v, want ErrSheetExists", err)
	}
}

func TestWorkbook_EmptyRefusesWrite(t *testing.T) {
	w := newWorkbook(t)
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err == nil {
		t.Error("expected error writing a workbook with no sheets")
	}
}

func TestReadSheet_Missing(t *testing.T) {
	w := newWorkbook(t)
	if err := w.AddLessons(nil); err != nil {
		t.Fatalf("AddLessons: %v", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if _, err := spreadsheet.ReadSheet(&buf, "Nope"); err == nil {
		t.Error("expected error for missing sheet")
	}
}

// TestWriteLessonsCSV tests header, quoting and row order.
func TestWriteLessonsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := spreadsheet.WriteLessonsCSV(&buf, export.LessonRows(sampleLessons())); err != nil {
		t.Fatalf("WriteLessonsCSV: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if records[0][1] != "Date" {
		t.Errorf("header = %v", records[0])
	}
	first := records[1]
	if first[1] != "2024-05-01" || first[2] != "09:00-10:30" || first[8] != "120.00" || first[9] != "scales, arpeggios" {
		t.Errorf("first row = %v", first)
	}
}
