package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulight/edulight-backend/internal/domain/catalog"
	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"
	"github.com/edulight/edulight-backend/internal/domain/student"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type stubLessonRepo struct {
	refs   map[string][]catalog.LessonRef
	drafts map[string]int
}

func (r *stubLessonRepo) PublishedRefsByCourse(_ context.Context, courseID string) ([]catalog.LessonRef, error) {
	return r.refs[courseID], nil
}
func (r *stubLessonRepo) CountPublished(_ context.Context, courseID string) (int, error) {
	return len(r.refs[courseID]), nil
}
func (r *stubLessonRepo) CountByCourse(_ context.Context, courseID string) (int, int, error) {
	return len(r.refs[courseID]), r.drafts[courseID], nil
}
func (r *stubLessonRepo) Create(context.Context, *catalog.Lesson) error { return nil }
func (r *stubLessonRepo) GetByID(context.Context, string) (*catalog.Lesson, error) {
	return nil, shared.ErrLessonNotFound
}
func (r *stubLessonRepo) Update(context.Context, *catalog.Lesson) error { return nil }
func (r *stubLessonRepo) Delete(context.Context, string) error          { return nil }
func (r *stubLessonRepo) GetByCourse(context.Context, string) ([]*catalog.Lesson, error) {
	return nil, nil
}
func (r *stubLessonRepo) GetPublishedByCourse(context.Context, string) ([]*catalog.Lesson, error) {
	return nil, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

type completionsFixture struct {
	handler     *GetCompletionsHandler
	lessons     *stubLessonRepo
	completions *stubCompletions
}

func newCompletionsFixture() *completionsFixture {
	f := &completionsFixture{
		lessons: &stubLessonRepo{
			refs:   make(map[string][]catalog.LessonRef),
			drafts: make(map[string]int),
		},
		completions: &stubCompletions{
			failCourses: make(map[string]bool),
			records:     make(map[string][]*progress.CompletionRecord),
			perLesson:   make(map[string]int),
			minutes:     make(map[string]int),
		},
	}

	students := &stubStudentRepo{students: map[string]*student.Student{
		"student-1": {ID: "student-1", DisplayName: "Aliya"},
	}}
	courses := &stubCourseRepo{courses: map[string]*catalog.Course{
		"course-1": {ID: "course-1", Title: "Go Basics"},
	}}

	f.handler = NewGetCompletionsHandler(students, courses, f.lessons, f.completions)
	return f
}

func (f *completionsFixture) addLesson(id, title string, position int) {
	f.lessons.refs["course-1"] = append(f.lessons.refs["course-1"], catalog.LessonRef{
		ID:       id,
		CourseID: "course-1",
		Title:    title,
		Status:   catalog.LessonStatusPublished,
		Position: position,
	})
}

func (f *completionsFixture) record(lessonID string, completed bool, minutes int) {
	key := "student-1/course-1"
	rec := &progress.CompletionRecord{
		StudentID:        "student-1",
		LessonID:         lessonID,
		Completed:        completed,
		TimeSpentMinutes: minutes,
	}
	if completed {
		at := time.Now().UTC()
		rec.CompletedAt = &at
	}
	f.completions.records[key] = append(f.completions.records[key], rec)
	f.completions.minutes[key] += minutes
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestGetCompletions_ListsEveryPublishedLesson(t *testing.T) {
	f := newCompletionsFixture()
	f.addLesson("lesson-1", "Intro", 1)
	f.addLesson("lesson-2", "Structs", 2)
	f.addLesson("lesson-3", "Interfaces", 3)
	f.record("lesson-1", true, 25)
	f.record("lesson-2", false, 10)

	result, err := f.handler.Handle(context.Background(), GetCompletionsQuery{
		StudentID: "student-1",
		CourseID:  "course-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Lessons, 3)
	assert.Equal(t, 1, result.CompletedLessons)

	first := result.Lessons[0]
	assert.Equal(t, "Intro", first.Title)
	assert.True(t, first.Completed)
	require.NotNil(t, first.CompletedAt)
	assert.Equal(t, 25, first.TimeSpentMinutes)
	assert.Equal(t, "25m", first.TimeSpent)

	// Урок открывали, но не завершили: время есть, отметки нет.
	second := result.Lessons[1]
	assert.False(t, second.Completed)
	assert.Nil(t, second.CompletedAt)
	assert.Equal(t, "10m", second.TimeSpent)

	// Урок без записи в журнале присутствует как незавершённый.
	third := result.Lessons[2]
	assert.False(t, third.Completed)
	assert.Zero(t, third.TimeSpentMinutes)
	assert.Empty(t, third.TimeSpent)
}

func TestGetCompletions_TotalIncludesUnpublishedLessons(t *testing.T) {
	f := newCompletionsFixture()
	f.addLesson("lesson-1", "Intro", 1)
	f.record("lesson-1", true, 30)
	// Запись по снятому с публикации уроку: строки в журнале нет,
	// но в суммарное время она входит.
	f.completions.minutes["student-1/course-1"] += 45

	result, err := f.handler.Handle(context.Background(), GetCompletionsQuery{
		StudentID: "student-1",
		CourseID:  "course-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Lessons, 1)
	assert.Equal(t, 75, result.TotalTimeSpentMinutes)
	assert.Equal(t, "1h15m", result.TotalTimeSpent)
}

func TestGetCompletions_UnknownStudent(t *testing.T) {
	f := newCompletionsFixture()

	_, err := f.handler.Handle(context.Background(), GetCompletionsQuery{
		StudentID: "ghost",
		CourseID:  "course-1",
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetCompletions_UnknownCourse(t *testing.T) {
	f := newCompletionsFixture()

	_, err := f.handler.Handle(context.Background(), GetCompletionsQuery{
		StudentID: "student-1",
		CourseID:  "ghost",
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetCompletions_StorageFailure(t *testing.T) {
	f := newCompletionsFixture()
	f.addLesson("lesson-1", "Intro", 1)
	f.completions.failCourses["course-1"] = true

	_, err := f.handler.Handle(context.Background(), GetCompletionsQuery{
		StudentID: "student-1",
		CourseID:  "course-1",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInternal)
}

func TestGetCompletions_ValidationFailure(t *testing.T) {
	f := newCompletionsFixture()

	_, err := f.handler.Handle(context.Background(), GetCompletionsQuery{CourseID: "course-1"})

	assert.ErrorIs(t, err, shared.ErrValidation)
}
