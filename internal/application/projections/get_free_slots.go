package projections

import (
	"context"
	"fmt"
	"time"

	"tutorbook/internal/domain/calendar"
	domainLesson "tutorbook/internal/domain/lesson"
	"tutorbook/internal/domain/timeofday"
)

// GetFreeSlotsQuery describes the lesson to fit and the start times to try.
type GetFreeSlotsQuery struct {
	Date      string
	Duration  float64 // hours
	Interval  int     // minutes between candidate starts
	StartHour int
	EndHour   int
}

// GetFreeSlotsDeps holds dependencies for GetFreeSlots.
type GetFreeSlotsDeps struct {
	LessonStore LessonStore
}

// QueryGetFreeSlots lists the start times on a date where a lesson of the given
// length fits without overlapping another lesson or running past midnight.
// PRE: query.Date is YYYY-MM-DD; query.Duration > 0
// POST: Returns start times in ascending order; cancelled lessons never block a slot
func QueryGetFreeSlots(ctx context.Context, query GetFreeSlotsQuery, deps GetFreeSlotsDeps) ([]string, error) {
	if _, err := calendar.ParseDate(query.Date, time.UTC); err != nil {
		return nil, err
	}
	if query.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %v", query.Duration)
	}
	lessons, err := deps.LessonStore.ListByDate(ctx, query.Date)
	if err != nil {
		return nil, err
	}

	length := timeofday.HoursToMinutes(query.Duration)
	var free []string
	for _, start := range timeofday.Options(query.Interval, query.StartHour, query.EndHour) {
		m, _ := timeofday.ToMinutes(start)
		if m+length > timeofday.MinutesPerDay {
			continue
		}
		c := domainLesson.Candidate{Date: query.Date, StartTime: start, Duration: query.Duration}
		if domainLesson.FindConflict(c, lessons, "") == nil {
			free = append(free, start)
		}
	}
	return free, nil
}
