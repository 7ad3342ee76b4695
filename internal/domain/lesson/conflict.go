package lesson

import (
	"fmt"

	"tutorbook/internal/domain/timeofday"
)

// Candidate is a proposed lesson slot checked against existing lessons.
// Either Duration (hours) or EndTime ("HH:MM") describes its length; EndTime wins when set.
type Candidate struct {
	Date      string
	StartTime string
	Duration  float64
	EndTime   string
}

// Conflict identifies the existing lesson a candidate overlaps.
type Conflict struct {
	Lesson  Lesson
	EndTime string // computed end of the existing lesson
}

// Message describes the conflict for display next to the start time input.
func (c Conflict) Message() string {
	return fmt.Sprintf("time conflict with %s %s-%s", c.Lesson.StudentName, c.Lesson.StartTime, c.EndTime)
}

// interval returns the candidate's [start, end) minute offsets.
func (c Candidate) interval() (start, end int, err error) {
	start, err = timeofday.ToMinutes(c.StartTime)
	if err != nil {
		return 0, 0, err
	}
	if c.EndTime != "" {
		end, err = timeofday.ToMinutes(c.EndTime)
		if err != nil {
			return 0, 0, err
		}
		return start, end, nil
	}
	return start, start + timeofday.HoursToMinutes(c.Duration), nil
}

// Overlaps reports whether half-open minute intervals [s1,e1) and [s2,e2) intersect.
// Touching boundaries do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// FindConflict returns the first existing lesson the candidate overlaps, or nil.
// PRE: candidate has passed field validation
// POST: Cancelled lessons, lessons on other dates and excludeID are ignored;
// existing lessons with unparseable start times are skipped
// INVARIANT: existing is not modified; iteration order decides which conflict is reported
func FindConflict(candidate Candidate, existing []Lesson, excludeID string) *Conflict {
	cs, ce, err := candidate.interval()
	if err != nil {
		return nil
	}
	for _, l := range existing {
		if l.Date != candidate.Date || l.Status == StatusCancelled {
			continue
		}
		if excludeID != "" && l.ID == excludeID {
			continue
		}
		ls, le, err := l.Interval()
		if err != nil {
			continue
		}
		if Overlaps(cs, ce, ls, le) {
			return &Conflict{Lesson: l, EndTime: timeofday.FormatMinutes(le)}
		}
	}
	return nil
}
