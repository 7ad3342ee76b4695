package projections

import (
	"context"
	"sort"
	"strings"

	"tutorbook/internal/application/listutil"
	domainLesson "tutorbook/internal/domain/lesson"
	"tutorbook/internal/domain/timeofday"
)

// Sortable columns for the lesson list.
const (
	SortDate    = "date"
	SortStudent = "student"
	SortIncome  = "income"
)

var lessonSortColumns = []string{SortDate, SortStudent, SortIncome}

// ListLessonsQuery carries filter, sort and page parameters.
type ListLessonsQuery struct {
	Status   domainLesson.Status // empty for all
	Search   string              // matches student name or notes
	FromDate string              // inclusive YYYY-MM-DD, optional
	ToDate   string              // inclusive YYYY-MM-DD, optional
	Sort     string
	Dir      string
	Page     int
	PerPage  int
}

// ListLessonsResult carries one page of lessons.
type ListLessonsResult struct {
	Lessons []domainLesson.Lesson
	Page    listutil.PageInfo
	Sort    listutil.SortParams
}

// ListLessonsDeps holds dependencies for ListLessons.
type ListLessonsDeps struct {
	LessonStore LessonStore
}

// QueryListLessons filters, sorts and paginates every lesson.
// PRE: none; unknown sort columns fall back to date
// POST: Lessons is at most Page.PerPage long; ties keep date then start order
func QueryListLessons(ctx context.Context, query ListLessonsQuery, deps ListLessonsDeps) (ListLessonsResult, error) {
	all, err := deps.LessonStore.Load(ctx)
	if err != nil {
		return ListLessonsResult{}, err
	}

	matched := make([]domainLesson.Lesson, 0, len(all))
	for _, l := range all {
		if query.Status != "" && l.Status != query.Status {
			continue
		}
		if query.FromDate != "" && l.Date < query.FromDate {
			continue
		}
		if query.ToDate != "" && l.Date > query.ToDate {
			continue
		}
		if !listutil.MatchesSearch(query.Search, l.StudentName, l.Notes) {
			continue
		}
		matched = append(matched, l)
	}

	sp := listutil.NormalizeSort(query.Sort, query.Dir, lessonSortColumns)
	if sp.Sort == "" {
		sp.Sort = SortDate
	}
	sortLessons(matched, sp)

	page, info := listutil.Paginate(matched, listutil.NormalizePage(query.Page, query.PerPage))
	return ListLessonsResult{Lessons: page, Page: info, Sort: sp}, nil
}

func sortLessons(lessons []domainLesson.Lesson, sp listutil.SortParams) {
	byStart := func(a, b domainLesson.Lesson) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		am, _ := timeofday.ToMinutes(a.StartTime)
		bm, _ := timeofday.ToMinutes(b.StartTime)
		return am - bm
	}
	var primary func(a, b domainLesson.Lesson) int
	switch sp.Sort {
	case SortStudent:
		primary = func(a, b domainLesson.Lesson) int {
			return strings.Compare(strings.ToLower(a.StudentName), strings.ToLower(b.StudentName))
		}
	case SortIncome:
		primary = func(a, b domainLesson.Lesson) int {
			switch ai, bi := a.Income(), b.Income(); {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			}
			return 0
		}
	default:
		primary = byStart
	}

	sort.SliceStable(lessons, func(i, j int) bool {
		c := primary(lessons[i], lessons[j])
		if sp.Desc() {
			c = -c
		}
		if c == 0 {
			c = byStart(lessons[i], lessons[j])
		}
		return c < 0
	})
}
