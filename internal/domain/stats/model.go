package stats

import (
	"math"
	"sort"
	"time"

	"tutorbook/internal/domain/calendar"
	"tutorbook/internal/domain/lesson"
)

// Kind selects which lessons a Window admits.
type Kind string

// Window kinds.
const (
	KindDay     Kind = "day"
	KindMonth   Kind = "month"
	KindYear    Kind = "year"
	KindStudent Kind = "student"
	KindAll     Kind = "all"
)

// Window filters lessons before aggregation. Use the constructors below.
type Window struct {
	Kind    Kind       `json:"kind"`
	Date    string     `json:"date,omitempty"` // KindDay, YYYY-MM-DD
	Year    int        `json:"year,omitempty"` // KindMonth, KindYear
	Month   time.Month `json:"month,omitempty"`
	Student string     `json:"student,omitempty"` // KindStudent, exact match
}

// Day admits lessons on the given YYYY-MM-DD date.
func Day(date string) Window { return Window{Kind: KindDay, Date: date} }

// Month admits lessons in the given calendar month.
func Month(year int, month time.Month) Window {
	return Window{Kind: KindMonth, Year: year, Month: month}
}

// Year admits lessons in the given calendar year.
func Year(year int) Window { return Window{Kind: KindYear, Year: year} }

// Student admits every lesson for the exact student name, across all time.
func Student(name string) Window { return Window{Kind: KindStudent, Student: name} }

// AllTime admits every lesson.
func AllTime() Window { return Window{Kind: KindAll} }

// Contains reports whether l falls inside the window.
// Lessons with an unparseable date never match a month or year window.
func (w Window) Contains(l lesson.Lesson) bool {
	switch w.Kind {
	case KindDay:
		return l.Date == w.Date
	case KindMonth, KindYear:
		d, err := calendar.ParseDate(l.Date, time.UTC)
		if err != nil || d.Year() != w.Year {
			return false
		}
		return w.Kind == KindYear || d.Month() == w.Month
	case KindStudent:
		return l.StudentName == w.Student
	case KindAll:
		return true
	default:
		return false
	}
}

// Stats is the aggregate for one window. Field names and units are stable:
// hours and currency are decimals rounded to 2 places, CompletionRate is a whole percentage.
type Stats struct {
	TotalLessons         int     `json:"totalLessons"`
	CompletedLessons     int     `json:"completedLessons"`
	PlannedLessons       int     `json:"plannedLessons"`
	CancelledLessons     int     `json:"cancelledLessons"`
	TotalHours           float64 `json:"totalHours"`
	OnlineHours          float64 `json:"onlineHours"`
	OfflineHours         float64 `json:"offlineHours"`
	GrossIncome          float64 `json:"grossIncome"`
	TaxDeduction         float64 `json:"taxDeduction"`
	NetIncome            float64 `json:"netIncome"`
	UniqueStudents       int     `json:"uniqueStudents"`
	CompletionRate       int     `json:"completionRate"`
	AverageHourlyRate    float64 `json:"averageHourlyRate"`
	MostCancelledStudent string  `json:"mostCancelledStudent,omitempty"`
}

// Round2 rounds to 2 decimal places, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Aggregate reduces the lessons inside w to a Stats record.
// PRE: taxRatePercent is in [0, 100]; lessons satisfy the record invariants
// POST: Only completed lessons contribute hours and income; empty input yields zero Stats
// INVARIANT: lessons is not modified; sums are rounded only at output
func Aggregate(lessons []lesson.Lesson, w Window, taxRatePercent float64) Stats {
	var s Stats
	var hours, online, offline, gross float64
	students := map[string]struct{}{}
	cancelled := map[string]int{}
	var cancelOrder []string

	for _, l := range lessons {
		if !w.Contains(l) {
			continue
		}
		s.TotalLessons++
		students[l.StudentName] = struct{}{}

		switch l.Status {
		case lesson.StatusCompleted:
			s.CompletedLessons++
			hours += l.Duration
			gross += l.Duration * l.HourlyRate
			switch l.TeachingMethod {
			case lesson.MethodOnline:
				online += l.Duration
			case lesson.MethodOffline:
				offline += l.Duration
			}
		case lesson.StatusPlanned:
			s.PlannedLessons++
		case lesson.StatusCancelled:
			s.CancelledLessons++
			if cancelled[l.StudentName] == 0 {
				cancelOrder = append(cancelOrder, l.StudentName)
			}
			cancelled[l.StudentName]++
		}
	}

	if s.TotalLessons == 0 {
		return Stats{}
	}

	tax := gross * taxRatePercent / 100
	net := gross - tax

	s.TotalHours = Round2(hours)
	s.OnlineHours = Round2(online)
	s.OfflineHours = Round2(offline)
	s.GrossIncome = Round2(gross)
	s.TaxDeduction = Round2(tax)
	s.NetIncome = Round2(net)
	s.UniqueStudents = len(students)
	s.CompletionRate = int(math.Round(100 * float64(s.CompletedLessons) / float64(s.TotalLessons)))
	if hours > 0 {
		s.AverageHourlyRate = Round2(net / hours)
	}

	best := 0
	for _, name := range cancelOrder {
		if cancelled[name] > best {
			best = cancelled[name]
			s.MostCancelledStudent = name
		}
	}
	return s
}

// MonthStats is one month's aggregate within a year.
type MonthStats struct {
	Month time.Month `json:"month"`
	Stats
}

// YearlyStats holds a year's monthly breakdown and its total.
type YearlyStats struct {
	Year                 int          `json:"year"`
	Months               []MonthStats `json:"monthlyStats"`
	Total                Stats        `json:"total"`
	AverageMonthlyIncome float64      `json:"averageMonthlyIncome"`
}

// Yearly aggregates each month of year plus the whole year.
// POST: Months has 12 entries; Total is aggregated from the records, not summed from Months
func Yearly(lessons []lesson.Lesson, year int, taxRatePercent float64) YearlyStats {
	ys := YearlyStats{Year: year, Months: make([]MonthStats, 0, 12)}
	for m := time.January; m <= time.December; m++ {
		ys.Months = append(ys.Months, MonthStats{Month: m, Stats: Aggregate(lessons, Month(year, m), taxRatePercent)})
	}
	ys.Total = Aggregate(lessons, Year(year), taxRatePercent)
	ys.AverageMonthlyIncome = Round2(ys.Total.NetIncome / 12)
	return ys
}

// StudentSummary is the aggregate for one student.
type StudentSummary struct {
	Name string `json:"name"`
	Stats
}

// ByStudent aggregates each distinct student appearing in w.
// POST: Sorted by net income, highest first; ties keep first-seen order
func ByStudent(lessons []lesson.Lesson, w Window, taxRatePercent float64) []StudentSummary {
	var names []string
	seen := map[string]bool{}
	for _, l := range lessons {
		if w.Contains(l) && !seen[l.StudentName] {
			seen[l.StudentName] = true
			names = append(names, l.StudentName)
		}
	}

	out := make([]StudentSummary, 0, len(names))
	for _, name := range names {
		var subset []lesson.Lesson
		for _, l := range lessons {
			if l.StudentName == name && w.Contains(l) {
				subset = append(subset, l)
			}
		}
		out = append(out, StudentSummary{Name: name, Stats: Aggregate(subset, AllTime(), taxRatePercent)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NetIncome > out[j].NetIncome })
	return out
}

// Income splits one lesson's earnings.
type Income struct {
	Gross float64 `json:"grossIncome"`
	Tax   float64 `json:"taxDeduction"`
	Net   float64 `json:"netIncome"`
}

// LessonIncome returns what l earns at its rate, whatever its status.
// Callers that only count realised income should check the status first.
func LessonIncome(l lesson.Lesson, taxRatePercent float64) Income {
	gross := l.Duration * l.HourlyRate
	tax := gross * taxRatePercent / 100
	return Income{Gross: Round2(gross), Tax: Round2(tax), Net: Round2(gross - tax)}
}

// DaySummary describes one calendar day.
type DaySummary struct {
	Date           string          `json:"date"`
	Lessons        []lesson.Lesson `json:"lessons"`
	TotalHours     float64         `json:"totalHours"`
	CompletedHours float64         `json:"completedHours"`
	PlannedHours   float64         `json:"plannedHours"`
}

// Daily summarises the lessons on date, keeping input order.
// TotalHours counts every status, cancelled included.
func Daily(lessons []lesson.Lesson, date string) DaySummary {
	d := DaySummary{Date: date, Lessons: []lesson.Lesson{}}
	var total, completed, planned float64
	for _, l := range lessons {
		if l.Date != date {
			continue
		}
		d.Lessons = append(d.Lessons, l)
		total += l.Duration
		switch l.Status {
		case lesson.StatusCompleted:
			completed += l.Duration
		case lesson.StatusPlanned:
			planned += l.Duration
		}
	}
	d.TotalHours = Round2(total)
	d.CompletedHours = Round2(completed)
	d.PlannedHours = Round2(planned)
	return d
}
