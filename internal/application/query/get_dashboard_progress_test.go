package query

import (
	"context"
	"errors"
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

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type stubStudentRepo struct {
	students map[string]*student.Student
}

func (r *stubStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	if s, ok := r.students[id]; ok {
		return s, nil
	}
	return nil, shared.ErrStudentNotFound
}

func (r *stubStudentRepo) Create(context.Context, *student.Student) error { return nil }
func (r *stubStudentRepo) GetByEmail(context.Context, string) (*student.Student, error) {
	return nil, shared.ErrStudentNotFound
}
func (r *stubStudentRepo) Update(context.Context, *student.Student) error { return nil }
func (r *stubStudentRepo) Delete(context.Context, string) error           { return nil }
func (r *stubStudentRepo) GetAll(context.Context, student.ListOptions) ([]*student.Student, error) {
	return nil, nil
}
func (r *stubStudentRepo) GetByIDs(context.Context, []string) ([]*student.Student, error) {
	return nil, nil
}
func (r *stubStudentRepo) Count(context.Context) (int, error) { return 0, nil }
func (r *stubStudentRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.students[id]
	return ok, nil
}
func (r *stubStudentRepo) ExistsByEmail(context.Context, string) (bool, error) {
	return false, nil
}

type stubEnrollmentRepo struct {
	byStudent map[string][]*enrollment.Enrollment
	fail      error
}

func (r *stubEnrollmentRepo) GetByStudent(_ context.Context, studentID string) ([]*enrollment.Enrollment, error) {
	if r.fail != nil {
		return nil, r.fail
	}
	return r.byStudent[studentID], nil
}

func (r *stubEnrollmentRepo) Create(context.Context, *enrollment.Enrollment) error { return nil }
func (r *stubEnrollmentRepo) Delete(context.Context, string, string) error         { return nil }
func (r *stubEnrollmentRepo) Get(context.Context, string, string) (*enrollment.Enrollment, error) {
	return nil, shared.ErrEnrollmentNotFound
}
func (r *stubEnrollmentRepo) IsEnrolled(context.Context, string, string) (bool, error) {
	return false, nil
}
func (r *stubEnrollmentRepo) GetByCourse(context.Context, string) ([]*enrollment.Enrollment, error) {
	return nil, nil
}
func (r *stubEnrollmentRepo) CountByCourse(context.Context, string) (int, error) { return 0, nil }
func (r *stubEnrollmentRepo) GetAll(context.Context) ([]*enrollment.Enrollment, error) {
	return nil, nil
}

type stubCourseRepo struct {
	courses map[string]*catalog.Course
}

func (r *stubCourseRepo) GetByIDs(_ context.Context, ids []string) ([]*catalog.Course, error) {
	result := make([]*catalog.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.courses[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

func (r *stubCourseRepo) Create(context.Context, *catalog.Course) error { return nil }
func (r *stubCourseRepo) GetByID(_ context.Context, id string) (*catalog.Course, error) {
	if c, ok := r.courses[id]; ok {
		return c, nil
	}
	return nil, shared.ErrCourseNotFound
}
func (r *stubCourseRepo) Update(context.Context, *catalog.Course) error { return nil }
func (r *stubCourseRepo) Delete(context.Context, string) error          { return nil }
func (r *stubCourseRepo) GetAll(context.Context, catalog.ListOptions) ([]*catalog.Course, error) {
	return nil, nil
}
func (r *stubCourseRepo) GetByInstructor(context.Context, string, catalog.ListOptions) ([]*catalog.Course, error) {
	return nil, nil
}
func (r *stubCourseRepo) Count(context.Context) (int, error) { return 0, nil }
func (r *stubCourseRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.courses[id]
	return ok, nil
}

// stubCounter отдаёт живое число опубликованных уроков по курсу.
type stubCounter struct {
	published map[string]int
}

func (c *stubCounter) CountPublished(_ context.Context, courseID string) (int, error) {
	return c.published[courseID], nil
}

// stubCompletions отдаёт счётчики завершённых уроков; для курсов из
// failCourses все вызовы завершаются ошибкой хранилища.
type stubCompletions struct {
	completed   map[string]int // courseID -> completed count
	failCourses map[string]bool
	records     map[string][]*progress.CompletionRecord // studentID/courseID -> записи журнала
	perLesson   map[string]int                          // lessonID -> сколько студентов завершили
	minutes     map[string]int                          // studentID/courseID -> суммарные минуты
}

func (s *stubCompletions) CountCompletedInCourse(_ context.Context, _, courseID string) (int, error) {
	if s.failCourses[courseID] {
		return 0, errors.New("storage unavailable")
	}
	return s.completed[courseID], nil
}

func (s *stubCompletions) Upsert(context.Context, progress.CompletionChange) (*progress.CompletionRecord, error) {
	return nil, nil
}
func (s *stubCompletions) Get(context.Context, string, string) (*progress.CompletionRecord, error) {
	return nil, progress.ErrCompletionNotFound
}
func (s *stubCompletions) GetByStudentAndCourse(_ context.Context, studentID, courseID string) ([]*progress.CompletionRecord, error) {
	if s.failCourses[courseID] {
		return nil, errors.New("storage unavailable")
	}
	return s.records[studentID+"/"+courseID], nil
}
func (s *stubCompletions) CountCompletedByLesson(_ context.Context, lessonID string) (int, error) {
	return s.perLesson[lessonID], nil
}
func (s *stubCompletions) TotalTimeSpentInCourse(_ context.Context, studentID, courseID string) (int, error) {
	if s.failCourses[courseID] {
		return 0, errors.New("storage unavailable")
	}
	return s.minutes[studentID+"/"+courseID], nil
}

type stubSummaries struct {
	byKey map[string]*progress.CourseProgressSummary
}

func newStubSummaries() *stubSummaries {
	return &stubSummaries{byKey: make(map[string]*progress.CourseProgressSummary)}
}

func (s *stubSummaries) Get(_ context.Context, studentID, courseID string) (*progress.CourseProgressSummary, error) {
	if summary, ok := s.byKey[studentID+"/"+courseID]; ok {
		return summary.Clone(), nil
	}
	return nil, progress.ErrSummaryNotFound
}

func (s *stubSummaries) UpsertVersioned(_ context.Context, summary *progress.CourseProgressSummary) error {
	key := summary.StudentID + "/" + summary.CourseID
	if current, ok := s.byKey[key]; ok && current.Version != summary.Version {
		return shared.ErrOptimisticLock
	}
	summary.Version++
	s.byKey[key] = summary.Clone()
	return nil
}

func (s *stubSummaries) Delete(context.Context, string, string) error { return nil }
func (s *stubSummaries) DeleteByCourse(context.Context, string) (int, error) {
	return 0, nil
}
func (s *stubSummaries) GetByStudent(context.Context, string) ([]*progress.CourseProgressSummary, error) {
	return nil, nil
}
func (s *stubSummaries) GetByCourse(context.Context, string) ([]*progress.CourseProgressSummary, error) {
	return nil, nil
}
func (s *stubSummaries) FindStale(context.Context, int) ([]*progress.CourseProgressSummary, error) {
	return nil, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

type dashboardFixture struct {
	handler     *GetDashboardProgressHandler
	enrollments *stubEnrollmentRepo
	courses     *stubCourseRepo
	counter     *stubCounter
	completions *stubCompletions
}

func newDashboardFixture() *dashboardFixture {
	f := &dashboardFixture{
		enrollments: &stubEnrollmentRepo{byStudent: make(map[string][]*enrollment.Enrollment)},
		courses:     &stubCourseRepo{courses: make(map[string]*catalog.Course)},
		counter:     &stubCounter{published: make(map[string]int)},
		completions: &stubCompletions{
			completed:   make(map[string]int),
			failCourses: make(map[string]bool),
		},
	}

	aggregator := progress.NewAggregator(
		f.completions,
		newStubSummaries(),
		f.counter,
		progress.DefaultAggregatorConfig(),
	)

	students := &stubStudentRepo{students: map[string]*student.Student{
		"student-1": {ID: "student-1", DisplayName: "Aliya"},
	}}

	f.handler = NewGetDashboardProgressHandler(students, f.enrollments, f.courses, aggregator)
	return f
}

func (f *dashboardFixture) enroll(courseID, title string, published, completed int) {
	f.enrollments.byStudent["student-1"] = append(f.enrollments.byStudent["student-1"], &enrollment.Enrollment{
		ID:         "enr-" + courseID,
		StudentID:  "student-1",
		CourseID:   courseID,
		EnrolledAt: time.Now().UTC(),
	})
	f.courses.courses[courseID] = &catalog.Course{ID: courseID, Title: title}
	f.counter.published[courseID] = published
	f.completions.completed[courseID] = completed
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestGetDashboardProgress_ComputesPercentages(t *testing.T) {
	f := newDashboardFixture()
	f.enroll("course-1", "Go Basics", 3, 2)
	f.enroll("course-2", "SQL", 4, 0)

	result, err := f.handler.Handle(context.Background(), GetDashboardProgressQuery{
		StudentID:        "student-1",
		IncludeCompleted: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "Aliya", result.DisplayName)
	require.Len(t, result.Courses, 2)

	first := result.Courses[0]
	assert.Equal(t, "Go Basics", first.CourseTitle)
	assert.Equal(t, 2, first.LessonsCompleted)
	assert.Equal(t, 3, first.TotalLessons)
	// Полная точность хранится, округление до одного знака при отдаче.
	assert.InDelta(t, 66.7, first.ProgressPercentage, 0.001)
	assert.Equal(t, "2 из 3", first.ProgressFormatted)
	assert.False(t, first.IsCompleted)

	second := result.Courses[1]
	assert.Zero(t, second.ProgressPercentage)
	assert.False(t, second.Degraded)
}

func TestGetDashboardProgress_EmptyCourseIsNotCompleted(t *testing.T) {
	f := newDashboardFixture()
	f.enroll("course-1", "Empty Course", 0, 0)

	result, err := f.handler.Handle(context.Background(), GetDashboardProgressQuery{
		StudentID:        "student-1",
		IncludeCompleted: true,
	})

	require.NoError(t, err)
	require.Len(t, result.Courses, 1)
	// 0 из 0 - это 0%, а не 100%.
	assert.Zero(t, result.Courses[0].ProgressPercentage)
	assert.False(t, result.Courses[0].IsCompleted)
	assert.Zero(t, result.CompletedCourses)
}

func TestGetDashboardProgress_DegradedCourseFallsBackToZero(t *testing.T) {
	f := newDashboardFixture()
	f.enroll("course-1", "Go Basics", 5, 3)
	f.enroll("course-2", "Broken", 7, 2)
	f.completions.failCourses["course-2"] = true

	result, err := f.handler.Handle(context.Background(), GetDashboardProgressQuery{
		StudentID:        "student-1",
		IncludeCompleted: true,
	})

	require.NoError(t, err)
	require.Len(t, result.Courses, 2)

	healthy := result.Courses[0]
	assert.False(t, healthy.Degraded)
	assert.Equal(t, 3, healthy.LessonsCompleted)

	degraded := result.Courses[1]
	assert.True(t, degraded.Degraded)
	assert.Zero(t, degraded.LessonsCompleted)
	// Живое число уроков сохраняется даже в заглушке.
	assert.Equal(t, 7, degraded.TotalLessons)
	assert.Zero(t, degraded.ProgressPercentage)
}

func TestGetDashboardProgress_ExcludesCompletedCourses(t *testing.T) {
	f := newDashboardFixture()
	f.enroll("course-1", "Done", 4, 4)
	f.enroll("course-2", "In Progress", 4, 1)

	result, err := f.handler.Handle(context.Background(), GetDashboardProgressQuery{
		StudentID:        "student-1",
		IncludeCompleted: false,
	})

	require.NoError(t, err)
	require.Len(t, result.Courses, 1)
	assert.Equal(t, "In Progress", result.Courses[0].CourseTitle)
	assert.Equal(t, 1, result.CompletedCourses)
	assert.Equal(t, 2, result.TotalCourses)
}

func TestGetDashboardProgress_UnknownStudent(t *testing.T) {
	f := newDashboardFixture()

	_, err := f.handler.Handle(context.Background(), GetDashboardProgressQuery{StudentID: "ghost"})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetDashboardProgress_ValidationFailure(t *testing.T) {
	f := newDashboardFixture()

	_, err := f.handler.Handle(context.Background(), GetDashboardProgressQuery{})

	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestGetDashboardProgress_EnrollmentStoreFailure(t *testing.T) {
	f := newDashboardFixture()
	f.enroll("course-1", "Go Basics", 3, 2)
	f.enrollments.fail = errors.New("connection reset")

	_, err := f.handler.Handle(context.Background(), GetDashboardProgressQuery{StudentID: "student-1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInternal)
}
