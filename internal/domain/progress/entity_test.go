package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompletionRecordApply_SetsCompletedAtOnce(t *testing.T) {
	record, err := NewCompletionRecord(NewCompletionRecordParams{
		ID:        "rec-1",
		StudentID: "student-1",
		LessonID:  "lesson-1",
	})
	assert.NoError(t, err)
	assert.False(t, record.Completed)
	assert.Nil(t, record.CompletedAt)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err = record.Apply(true, 15, first)
	assert.NoError(t, err)
	assert.True(t, record.Completed)
	assert.NotNil(t, record.CompletedAt)
	assert.Equal(t, first, *record.CompletedAt)

	// Повторная отметка завершения не двигает CompletedAt.
	later := first.Add(2 * time.Hour)
	err = record.Apply(true, 10, later)
	assert.NoError(t, err)
	assert.Equal(t, first, *record.CompletedAt)
	assert.Equal(t, 25, record.TimeSpentMinutes)
}

func TestCompletionRecordApply_ClearingResetsCompletedAt(t *testing.T) {
	record, _ := NewCompletionRecord(NewCompletionRecordParams{
		ID:        "rec-1",
		StudentID: "student-1",
		LessonID:  "lesson-1",
	})

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.NoError(t, record.Apply(true, 0, first))
	assert.NoError(t, record.Apply(false, 0, first.Add(time.Hour)))
	assert.False(t, record.Completed)
	assert.Nil(t, record.CompletedAt)

	// После отмены новое завершение фиксирует новый момент.
	second := first.Add(48 * time.Hour)
	assert.NoError(t, record.Apply(true, 0, second))
	assert.NotNil(t, record.CompletedAt)
	assert.Equal(t, second, *record.CompletedAt)
}

func TestCompletionRecordApply_AccumulatesTime(t *testing.T) {
	record, _ := NewCompletionRecord(NewCompletionRecordParams{
		ID:        "rec-1",
		StudentID: "student-1",
		LessonID:  "lesson-1",
	})

	now := time.Now()
	assert.NoError(t, record.Apply(false, 20, now))
	assert.NoError(t, record.Apply(true, 30, now))
	assert.NoError(t, record.Apply(false, 5, now))
	assert.Equal(t, 55, record.TimeSpentMinutes)

	err := record.Apply(true, -1, now)
	assert.ErrorIs(t, err, ErrNegativeTimeSpent)
	assert.Equal(t, 55, record.TimeSpentMinutes)
}

func TestNewSummary_ComputesPercentage(t *testing.T) {
	now := time.Now()

	summary, err := NewSummary("student-1", "course-1", 2, 4, now)
	assert.NoError(t, err)
	assert.Equal(t, 50.0, summary.ProgressPercentage)
	assert.True(t, summary.IsConsistent())

	summary, err = NewSummary("student-1", "course-1", 0, 0, now)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, summary.ProgressPercentage)
	assert.True(t, summary.IsConsistent())
}

func TestNewSummary_RejectsCompletedAboveTotal(t *testing.T) {
	_, err := NewSummary("student-1", "course-1", 3, 2, time.Now())
	assert.ErrorIs(t, err, ErrInvalidCounts)
}

func TestSummaryIsStale(t *testing.T) {
	summary, _ := NewSummary("student-1", "course-1", 1, 3, time.Now())

	assert.False(t, summary.IsStale(3))
	assert.True(t, summary.IsStale(4))
	assert.True(t, summary.IsStale(2))
}

func TestZeroSummary(t *testing.T) {
	summary := ZeroSummary("student-1", "course-1", 7)
	assert.Equal(t, 0, summary.LessonsCompleted)
	assert.Equal(t, 7, summary.TotalLessons)
	assert.Equal(t, 0.0, summary.ProgressPercentage)

	// Отрицательный итог не должен просачиваться наружу.
	summary = ZeroSummary("student-1", "course-1", -1)
	assert.Equal(t, 0, summary.TotalLessons)
}
