package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"tutorbook/internal/application/listutil"
	"tutorbook/internal/application/projections"
	"tutorbook/internal/domain/export"
	domainLesson "tutorbook/internal/domain/lesson"
	"tutorbook/internal/domain/stats"
	"tutorbook/internal/domain/timeofday"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func row(w io.Writer, cells ...any) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		switch v := c.(type) {
		case float64:
			parts[i] = fmt.Sprintf("%.2f", v)
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	fmt.Fprintln(w, strings.Join(parts, "\t"))
}

func describe(l domainLesson.Lesson) string {
	end, _ := l.EndTime()
	return fmt.Sprintf("%s %s-%s %s (%s, %s)", l.Date, l.StartTime, end, l.StudentName, l.TeachingMethod, l.Status)
}

func printFieldErrors(out io.Writer, errs domainLesson.FieldErrors) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(out, "  %s: %s\n", f, errs[f])
	}
}

func printLessons(out io.Writer, lessons []domainLesson.Lesson, page listutil.PageInfo) {
	w := newTable(out)
	row(w, "ID", "DATE", "TIME", "DURATION", "STUDENT", "METHOD", "STATUS", "RATE", "INCOME")
	for _, l := range lessons {
		end, _ := l.EndTime()
		row(w, l.ID, l.Date, l.StartTime+"-"+end, timeofday.FormatDuration(l.Duration), l.StudentName,
			l.TeachingMethod.Label(), l.Status.Label(), l.HourlyRate, stats.Round2(l.Income()))
	}
	w.Flush()
	fmt.Fprintf(out, "rows %d-%d of %d (page %d/%d)\n", page.StartRow(), page.EndRow(), page.Total, page.Page, page.TotalPages)
}

func printStats(out io.Writer, title string, s stats.Stats) {
	fmt.Fprintln(out, title)
	w := newTable(out)
	for _, r := range export.StatsRows(s) {
		row(w, "  "+r.Label, r.Value, r.Unit)
	}
	w.Flush()
	if s.MostCancelledStudent != "" {
		fmt.Fprintf(out, "  Most cancellations: %s\n", s.MostCancelledStudent)
	}
}

func printTable(out io.Writer, header []string, rows [][]any) {
	w := newTable(out)
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = strings.ToUpper(h)
	}
	row(w, cells...)
	for _, r := range rows {
		row(w, r...)
	}
	w.Flush()
}

func printCalendar(out io.Writer, cal projections.GetCalendarMonthResult) {
	fmt.Fprintf(out, "%s %d\n", cal.Month, cal.Year)
	fmt.Fprintln(out, " Sun  Mon  Tue  Wed  Thu  Fri  Sat")
	for i, d := range cal.Days {
		cell := "   ."
		if d.InMonth {
			mark := " "
			if len(d.Lessons) > 0 {
				mark = "*"
			}
			cell = fmt.Sprintf("  %s%s", d.Date[8:], mark)
			if d.IsToday {
				cell = fmt.Sprintf(" [%s]", d.Date[8:])
			}
		}
		fmt.Fprint(out, cell)
		if i%7 == 6 {
			fmt.Fprintln(out)
		} else {
			fmt.Fprint(out, " ")
		}
	}

	w := newTable(out)
	for _, d := range cal.Days {
		if !d.InMonth || len(d.Lessons) == 0 {
			continue
		}
		names := make([]string, 0, len(d.Lessons))
		for _, l := range d.Lessons {
			names = append(names, l.StartTime+" "+l.StudentName)
		}
		row(w, d.Date, timeofday.FormatDuration(d.TotalHours),
			"done "+timeofday.FormatDuration(d.CompletedHours),
			"planned "+timeofday.FormatDuration(d.PlannedHours),
			strings.Join(names, ", "))
	}
	w.Flush()
	fmt.Fprintf(out, "%d lessons, %s completed, net %.2f\n", cal.Stats.TotalLessons,
		timeofday.FormatDuration(cal.Stats.TotalHours), cal.Stats.NetIncome)
}

type jsonReport struct {
	Window   stats.Window           `json:"window"`
	Stats    stats.Stats            `json:"stats"`
	Students []stats.StudentSummary `json:"students"`
	Yearly   *stats.YearlyStats     `json:"yearly,omitempty"`
	Lessons  []domainLesson.Lesson  `json:"lessons"`
}

func writeReportJSON(out io.Writer, r projections.Report) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Window:   r.Window,
		Stats:    r.Stats,
		Students: r.Students,
		Yearly:   r.Yearly,
		Lessons:  r.Lessons,
	})
}
