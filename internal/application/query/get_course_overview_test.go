package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulight/edulight-backend/internal/domain/catalog"
	"github.com/edulight/edulight-backend/internal/domain/enrollment"
	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"
	"github.com/edulight/edulight-backend/internal/domain/student"
)

// stubSummaryReader отдаёт фиксированный набор сводок по курсу.
type stubSummaryReader struct {
	summaries []*progress.CourseProgressSummary
}

func (s *stubSummaryReader) GetByCourse(context.Context, string) ([]*progress.CourseProgressSummary, error) {
	return s.summaries, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

type overviewFixture struct {
	handler     *GetCourseOverviewHandler
	lessons     *stubLessonRepo
	completions *stubCompletions
	summaries   *stubSummaryReader
	students    *stubStudentRepo
}

func newOverviewFixture() *overviewFixture {
	f := &overviewFixture{
		lessons: &stubLessonRepo{
			refs:   make(map[string][]catalog.LessonRef),
			drafts: make(map[string]int),
		},
		completions: &stubCompletions{
			failCourses: make(map[string]bool),
			perLesson:   make(map[string]int),
		},
		summaries: &stubSummaryReader{},
		students:  &stubStudentRepo{students: make(map[string]*student.Student)},
	}

	courses := &stubCourseRepo{courses: map[string]*catalog.Course{
		"course-1": {ID: "course-1", Title: "Go Basics"},
	}}
	enrollments := &stubEnrollmentRepo{byStudent: make(map[string][]*enrollment.Enrollment)}

	f.handler = NewGetCourseOverviewHandler(
		courses, f.lessons, enrollments, f.students, f.completions, f.summaries,
	)
	return f
}

func (f *overviewFixture) addLesson(id, title string, position, completedBy int) {
	f.lessons.refs["course-1"] = append(f.lessons.refs["course-1"], catalog.LessonRef{
		ID:       id,
		CourseID: "course-1",
		Title:    title,
		Status:   catalog.LessonStatusPublished,
		Position: position,
	})
	f.completions.perLesson[id] = completedBy
}

func (f *overviewFixture) addSummary(studentID string, completed, total int) {
	f.students.students[studentID] = &student.Student{ID: studentID, DisplayName: "Student " + studentID}
	f.summaries.summaries = append(f.summaries.summaries, &progress.CourseProgressSummary{
		StudentID:          studentID,
		CourseID:           "course-1",
		LessonsCompleted:   completed,
		TotalLessons:       total,
		ProgressPercentage: shared.PercentageOf(completed, total).Float64(),
		LastRecomputed:     time.Now().UTC(),
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestGetCourseOverview_LessonBreakdown(t *testing.T) {
	f := newOverviewFixture()
	f.addLesson("lesson-1", "Intro", 1, 9)
	f.addLesson("lesson-2", "Structs", 2, 4)
	f.addLesson("lesson-3", "Interfaces", 3, 0)

	result, err := f.handler.Handle(context.Background(), GetCourseOverviewQuery{
		CourseID:       "course-1",
		IncludeLessons: true,
	})

	require.NoError(t, err)
	require.Len(t, result.Lessons, 3)
	// Канонический порядок уроков, не порядок популярности.
	assert.Equal(t, "Intro", result.Lessons[0].Title)
	assert.Equal(t, 9, result.Lessons[0].CompletedCount)
	assert.Equal(t, 4, result.Lessons[1].CompletedCount)
	assert.Zero(t, result.Lessons[2].CompletedCount)
}

func TestGetCourseOverview_LessonBreakdownOmittedByDefault(t *testing.T) {
	f := newOverviewFixture()
	f.addLesson("lesson-1", "Intro", 1, 9)

	result, err := f.handler.Handle(context.Background(), GetCourseOverviewQuery{CourseID: "course-1"})

	require.NoError(t, err)
	assert.Nil(t, result.Lessons)
	assert.Equal(t, 1, result.PublishedLessons)
}

func TestGetCourseOverview_StudentsArePaginated(t *testing.T) {
	f := newOverviewFixture()
	f.addLesson("lesson-1", "Intro", 1, 0)
	// 25 студентов с убывающим прогрессом.
	for i := 0; i < 25; i++ {
		f.addSummary(fmt.Sprintf("student-%02d", i), 100-i, 100)
	}

	first, err := f.handler.Handle(context.Background(), GetCourseOverviewQuery{
		CourseID:        "course-1",
		IncludeStudents: true,
	})
	require.NoError(t, err)
	require.Len(t, first.Students, shared.DefaultPageSize)
	// Лидеры первыми.
	assert.Equal(t, "student-00", first.Students[0].StudentID)
	assert.Equal(t, float64(100), first.Students[0].ProgressPercentage)

	second, err := f.handler.Handle(context.Background(), GetCourseOverviewQuery{
		CourseID:        "course-1",
		IncludeStudents: true,
		Students:        shared.Pagination{Page: 2, PageSize: shared.DefaultPageSize},
	})
	require.NoError(t, err)
	require.Len(t, second.Students, 5)
	assert.Equal(t, "student-20", second.Students[0].StudentID)

	// Страница за пределами данных пуста, а не ошибка.
	third, err := f.handler.Handle(context.Background(), GetCourseOverviewQuery{
		CourseID:        "course-1",
		IncludeStudents: true,
		Students:        shared.Pagination{Page: 3, PageSize: shared.DefaultPageSize},
	})
	require.NoError(t, err)
	assert.Empty(t, third.Students)
}

func TestGetCourseOverview_AverageAndCompletedStudents(t *testing.T) {
	f := newOverviewFixture()
	f.addSummary("student-a", 4, 4)
	f.addSummary("student-b", 1, 4)

	result, err := f.handler.Handle(context.Background(), GetCourseOverviewQuery{CourseID: "course-1"})

	require.NoError(t, err)
	assert.Equal(t, 1, result.CompletedStudents)
	assert.InDelta(t, 62.5, result.AverageProgress, 0.001)
}

func TestGetCourseOverview_UnknownCourse(t *testing.T) {
	f := newOverviewFixture()

	_, err := f.handler.Handle(context.Background(), GetCourseOverviewQuery{CourseID: "ghost"})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}
