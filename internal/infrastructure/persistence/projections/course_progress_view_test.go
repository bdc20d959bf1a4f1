package projections

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulight/edulight-backend/internal/domain/progress"
)

func summaryOf(studentID, courseID string, completed, total int) *progress.CourseProgressSummary {
	percentage := 0.0
	if total > 0 {
		percentage = float64(completed) / float64(total) * 100
	}
	return &progress.CourseProgressSummary{
		StudentID:          studentID,
		CourseID:           courseID,
		LessonsCompleted:   completed,
		TotalLessons:       total,
		ProgressPercentage: percentage,
		LastRecomputed:     time.Now().UTC(),
		Version:            1,
	}
}

func TestCourseProgressView_UpsertAndGet(t *testing.T) {
	view := NewCourseProgressView()
	ctx := context.Background()

	require.NoError(t, view.Upsert(summaryOf("student-1", "course-1", 2, 4)))

	got, err := view.Get(ctx, "student-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.LessonsCompleted)

	_, err = view.Get(ctx, "student-2", "course-1")
	assert.ErrorIs(t, err, progress.ErrSummaryNotFound)
}

func TestCourseProgressView_GetByCourseSortsByProgress(t *testing.T) {
	view := NewCourseProgressView()
	ctx := context.Background()

	require.NoError(t, view.Upsert(summaryOf("student-1", "course-1", 1, 4)))
	require.NoError(t, view.Upsert(summaryOf("student-2", "course-1", 4, 4)))
	require.NoError(t, view.Upsert(summaryOf("student-3", "course-1", 2, 4)))

	summaries, err := view.GetByCourse(ctx, "course-1")
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, "student-2", summaries[0].StudentID)
	assert.Equal(t, "student-3", summaries[1].StudentID)
	assert.Equal(t, "student-1", summaries[2].StudentID)
}

func TestCourseProgressView_ReadsReturnCopies(t *testing.T) {
	view := NewCourseProgressView()
	ctx := context.Background()

	require.NoError(t, view.Upsert(summaryOf("student-1", "course-1", 1, 4)))

	got, err := view.Get(ctx, "student-1", "course-1")
	require.NoError(t, err)
	got.LessonsCompleted = 99

	again, err := view.Get(ctx, "student-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.LessonsCompleted)
}

func TestCourseProgressView_RebuildCourseReplacesEntries(t *testing.T) {
	view := NewCourseProgressView()
	ctx := context.Background()

	require.NoError(t, view.Upsert(summaryOf("student-old", "course-1", 1, 4)))

	err := view.RebuildCourse("course-1", []*progress.CourseProgressSummary{
		summaryOf("student-1", "course-1", 3, 4),
		summaryOf("student-2", "course-1", 4, 4),
	})
	require.NoError(t, err)

	summaries, err := view.GetByCourse(ctx, "course-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	_, err = view.Get(ctx, "student-old", "course-1")
	assert.ErrorIs(t, err, progress.ErrSummaryNotFound)
}

func TestCourseProgressView_RemoveAndRemoveCourse(t *testing.T) {
	view := NewCourseProgressView()
	ctx := context.Background()

	require.NoError(t, view.Upsert(summaryOf("student-1", "course-1", 1, 4)))
	require.NoError(t, view.Upsert(summaryOf("student-2", "course-1", 2, 4)))

	view.Remove("student-1", "course-1")
	summaries, err := view.GetByCourse(ctx, "course-1")
	require.NoError(t, err)
	assert.Len(t, summaries, 1)

	view.RemoveCourse("course-1")
	summaries, err = view.GetByCourse(ctx, "course-1")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestCourseProgressView_VersionGrowsOnMutation(t *testing.T) {
	view := NewCourseProgressView()

	before := view.GetVersion()
	require.NoError(t, view.Upsert(summaryOf("student-1", "course-1", 1, 4)))
	assert.Greater(t, view.GetVersion(), before)
}
