package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edulight/edulight-backend/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type memCatalog struct {
	mu        sync.Mutex
	published map[string][]string // courseID -> published lesson IDs
}

func newMemCatalog() *memCatalog {
	return &memCatalog{published: make(map[string][]string)}
}

func (c *memCatalog) CountPublished(_ context.Context, courseID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published[courseID]), nil
}

func (c *memCatalog) publish(courseID string, lessonIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published[courseID] = append(c.published[courseID], lessonIDs...)
}

func (c *memCatalog) unpublish(courseID, lessonID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.published[courseID][:0]
	for _, id := range c.published[courseID] {
		if id != lessonID {
			kept = append(kept, id)
		}
	}
	c.published[courseID] = kept
}

type memCompletions struct {
	mu        sync.Mutex
	catalog   *memCatalog
	completed map[string]map[string]bool // studentID -> lessonID -> completed
}

func newMemCompletions(catalog *memCatalog) *memCompletions {
	return &memCompletions{catalog: catalog, completed: make(map[string]map[string]bool)}
}

func (m *memCompletions) complete(studentID string, lessonIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completed[studentID] == nil {
		m.completed[studentID] = make(map[string]bool)
	}
	for _, id := range lessonIDs {
		m.completed[studentID][id] = true
	}
}

func (m *memCompletions) Upsert(_ context.Context, change CompletionChange) (*CompletionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completed[change.StudentID] == nil {
		m.completed[change.StudentID] = make(map[string]bool)
	}
	m.completed[change.StudentID][change.LessonID] = change.Completed
	return &CompletionRecord{
		StudentID: change.StudentID,
		LessonID:  change.LessonID,
		Completed: change.Completed,
	}, nil
}

func (m *memCompletions) Get(context.Context, string, string) (*CompletionRecord, error) {
	return nil, ErrCompletionNotFound
}

func (m *memCompletions) GetByStudentAndCourse(context.Context, string, string) ([]*CompletionRecord, error) {
	return nil, nil
}

func (m *memCompletions) CountCompletedInCourse(_ context.Context, studentID, courseID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, lessonID := range m.catalog.published[courseID] {
		if m.completed[studentID][lessonID] {
			count++
		}
	}
	return count, nil
}

func (m *memCompletions) CountCompletedByLesson(context.Context, string) (int, error) {
	return 0, nil
}

func (m *memCompletions) TotalTimeSpentInCourse(context.Context, string, string) (int, error) {
	return 0, nil
}

type memSummaries struct {
	mu        sync.Mutex
	byKey     map[string]*CourseProgressSummary
	conflicts int // первые N upsert-ов завершаются конфликтом версий
	upserts   int
}

func newMemSummaries() *memSummaries {
	return &memSummaries{byKey: make(map[string]*CourseProgressSummary)}
}

func summaryKey(studentID, courseID string) string {
	return studentID + "|" + courseID
}

func (m *memSummaries) Get(_ context.Context, studentID, courseID string) (*CourseProgressSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary, ok := m.byKey[summaryKey(studentID, courseID)]
	if !ok {
		return nil, ErrSummaryNotFound
	}
	return summary.Clone(), nil
}

func (m *memSummaries) UpsertVersioned(_ context.Context, summary *CourseProgressSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.conflicts > 0 {
		m.conflicts--
		return shared.ErrSummaryConflict
	}
	key := summaryKey(summary.StudentID, summary.CourseID)
	if current, ok := m.byKey[key]; ok && current.Version != summary.Version {
		return shared.ErrSummaryConflict
	}
	summary.Version++
	m.byKey[key] = summary.Clone()
	return nil
}

func (m *memSummaries) Delete(_ context.Context, studentID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byKey, summaryKey(studentID, courseID))
	return nil
}

func (m *memSummaries) DeleteByCourse(_ context.Context, courseID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for key, summary := range m.byKey {
		if summary.CourseID == courseID {
			delete(m.byKey, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memSummaries) GetByStudent(_ context.Context, studentID string) ([]*CourseProgressSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*CourseProgressSummary
	for _, summary := range m.byKey {
		if summary.StudentID == studentID {
			result = append(result, summary.Clone())
		}
	}
	return result, nil
}

func (m *memSummaries) GetByCourse(_ context.Context, courseID string) ([]*CourseProgressSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*CourseProgressSummary
	for _, summary := range m.byKey {
		if summary.CourseID == courseID {
			result = append(result, summary.Clone())
		}
	}
	return result, nil
}

func (m *memSummaries) FindStale(context.Context, int) ([]*CourseProgressSummary, error) {
	return nil, nil
}

func newTestAggregator(catalog *memCatalog, completions *memCompletions, summaries *memSummaries) *Aggregator {
	return NewAggregator(completions, summaries, catalog, DefaultAggregatorConfig())
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestRecompute_ComputesPercentage(t *testing.T) {
	catalog := newMemCatalog()
	catalog.publish("course-1", "l1", "l2", "l3", "l4")
	completions := newMemCompletions(catalog)
	completions.complete("student-1", "l1", "l3")
	agg := newTestAggregator(catalog, completions, newMemSummaries())

	summary, err := agg.Recompute(context.Background(), "student-1", "course-1")
	assert.NoError(t, err)
	assert.Equal(t, 2, summary.LessonsCompleted)
	assert.Equal(t, 4, summary.TotalLessons)
	assert.Equal(t, 50.0, summary.ProgressPercentage)
	assert.True(t, summary.IsConsistent())
}

func TestRecompute_ZeroLessonCourse(t *testing.T) {
	catalog := newMemCatalog()
	agg := newTestAggregator(catalog, newMemCompletions(catalog), newMemSummaries())

	summary, err := agg.Recompute(context.Background(), "student-1", "course-empty")
	assert.NoError(t, err)
	assert.Equal(t, 0, summary.TotalLessons)
	assert.Equal(t, 0.0, summary.ProgressPercentage)
	assert.True(t, summary.IsConsistent())
}

func TestRecompute_Idempotent(t *testing.T) {
	catalog := newMemCatalog()
	catalog.publish("course-1", "l1", "l2")
	completions := newMemCompletions(catalog)
	completions.complete("student-1", "l1")
	agg := newTestAggregator(catalog, completions, newMemSummaries())

	first, err := agg.Recompute(context.Background(), "student-1", "course-1")
	assert.NoError(t, err)
	second, err := agg.Recompute(context.Background(), "student-1", "course-1")
	assert.NoError(t, err)

	assert.Equal(t, first.LessonsCompleted, second.LessonsCompleted)
	assert.Equal(t, first.TotalLessons, second.TotalLessons)
	assert.Equal(t, first.ProgressPercentage, second.ProgressPercentage)
	assert.Greater(t, second.Version, first.Version)
}

func TestGetOrCreate_FirstReadComputes(t *testing.T) {
	catalog := newMemCatalog()
	catalog.publish("course-1", "l1", "l2")
	completions := newMemCompletions(catalog)
	completions.complete("student-1", "l1", "l2")
	summaries := newMemSummaries()
	agg := newTestAggregator(catalog, completions, summaries)

	summary, err := agg.GetOrCreate(context.Background(), "student-1", "course-1")
	assert.NoError(t, err)
	assert.Equal(t, 100.0, summary.ProgressPercentage)

	stored, err := summaries.Get(context.Background(), "student-1", "course-1")
	assert.NoError(t, err)
	assert.Equal(t, 100.0, stored.ProgressPercentage)
}

func TestGetOrCreate_ServesStoredWhileTotalsMatch(t *testing.T) {
	catalog := newMemCatalog()
	catalog.publish("course-1", "l1", "l2")
	completions := newMemCompletions(catalog)
	agg := newTestAggregator(catalog, completions, newMemSummaries())

	first, err := agg.GetOrCreate(context.Background(), "student-1", "course-1")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, first.ProgressPercentage)

	// Запись о завершении без инвалидации: сохранённая сводка остаётся
	// в силе, пока количество опубликованных уроков не изменилось.
	completions.complete("student-1", "l1")

	second, err := agg.GetOrCreate(context.Background(), "student-1", "course-1")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, second.ProgressPercentage)
}

func TestGetOrCreate_RecomputesWhenPublishedCountChanges(t *testing.T) {
	catalog := newMemCatalog()
	catalog.publish("course-1", "l1", "l2")
	completions := newMemCompletions(catalog)
	completions.complete("student-1", "l1")
	agg := newTestAggregator(catalog, completions, newMemSummaries())

	first, err := agg.GetOrCreate(context.Background(), "student-1", "course-1")
	assert.NoError(t, err)
	assert.Equal(t, 50.0, first.ProgressPercentage)

	catalog.publish("course-1", "l3")

	second, err := agg.GetOrCreate(context.Background(), "student-1", "course-1")
	assert.NoError(t, err)
	assert.Equal(t, 3, second.TotalLessons)
	assert.Equal(t, 1, second.LessonsCompleted)
	assert.InDelta(t, 33.33, second.ProgressPercentage, 0.01)
}

func TestGetOrCreate_UnpublishedLessonLeavesProgress(t *testing.T) {
	catalog := newMemCatalog()
	catalog.publish("course-1", "l1", "l2")
	completions := newMemCompletions(catalog)
	completions.complete("student-1", "l1")
	agg := newTestAggregator(catalog, completions, newMemSummaries())

	first, err := agg.GetOrCreate(context.Background(), "student-1", "course-1")
	assert.NoError(t, err)
	assert.Equal(t, 50.0, first.ProgressPercentage)

	// Снятие с публикации единственного завершённого урока: запись о
	// прохождении остаётся, но из счётчиков урок выпадает.
	catalog.unpublish("course-1", "l1")

	second, err := agg.GetOrCreate(context.Background(), "student-1", "course-1")
	assert.NoError(t, err)
	assert.Equal(t, 1, second.TotalLessons)
	assert.Equal(t, 0, second.LessonsCompleted)
	assert.Equal(t, 0.0, second.ProgressPercentage)
}

func TestRecompute_RetriesOnVersionConflict(t *testing.T) {
	catalog := newMemCatalog()
	catalog.publish("course-1", "l1")
	completions := newMemCompletions(catalog)
	summaries := newMemSummaries()
	summaries.conflicts = 2
	agg := newTestAggregator(catalog, completions, summaries)

	summary, err := agg.Recompute(context.Background(), "student-1", "course-1")
	assert.NoError(t, err)
	assert.NotNil(t, summary)
	assert.Equal(t, 3, summaries.upserts)
}

func TestRecompute_ExhaustedConflictsReturnUnavailable(t *testing.T) {
	catalog := newMemCatalog()
	catalog.publish("course-1", "l1")
	summaries := newMemSummaries()
	summaries.conflicts = 100
	agg := newTestAggregator(catalog, newMemCompletions(catalog), summaries)

	_, err := agg.Recompute(context.Background(), "student-1", "course-1")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrServiceUnavailable))
	assert.True(t, shared.IsRetryable(err))
	assert.Equal(t, 3, summaries.upserts)
}

func TestInvalidateCourse_DropsAllSummaries(t *testing.T) {
	catalog := newMemCatalog()
	catalog.publish("course-1", "l1")
	completions := newMemCompletions(catalog)
	summaries := newMemSummaries()
	agg := newTestAggregator(catalog, completions, summaries)

	ctx := context.Background()
	_, err := agg.GetOrCreate(ctx, "student-1", "course-1")
	assert.NoError(t, err)
	_, err = agg.GetOrCreate(ctx, "student-2", "course-1")
	assert.NoError(t, err)

	deleted, err := agg.InvalidateCourse(ctx, "course-1")
	assert.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = summaries.Get(ctx, "student-1", "course-1")
	assert.ErrorIs(t, err, ErrSummaryNotFound)
}

func TestAggregator_CacheRoundTrip(t *testing.T) {
	catalog := newMemCatalog()
	catalog.publish("course-1", "l1", "l2")
	completions := newMemCompletions(catalog)
	completions.complete("student-1", "l1")
	cache := &memCache{entries: make(map[string]*CourseProgressSummary)}
	agg := newTestAggregator(catalog, completions, newMemSummaries()).WithCache(cache)

	ctx := context.Background()
	_, err := agg.GetOrCreate(ctx, "student-1", "course-1")
	assert.NoError(t, err)

	cached, err := cache.Get(ctx, "student-1", "course-1")
	assert.NoError(t, err)
	assert.Equal(t, 50.0, cached.ProgressPercentage)

	assert.NoError(t, agg.Invalidate(ctx, "student-1", "course-1"))
	_, err = cache.Get(ctx, "student-1", "course-1")
	assert.Error(t, err)
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]*CourseProgressSummary
}

func (c *memCache) Get(_ context.Context, studentID, courseID string) (*CourseProgressSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	summary, ok := c.entries[summaryKey(studentID, courseID)]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return summary.Clone(), nil
}

func (c *memCache) Set(_ context.Context, summary *CourseProgressSummary, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[summaryKey(summary.StudentID, summary.CourseID)] = summary.Clone()
	return nil
}

func (c *memCache) Delete(_ context.Context, studentID, courseID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, summaryKey(studentID, courseID))
	return nil
}

func (c *memCache) DeleteByCourse(_ context.Context, courseID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, summary := range c.entries {
		if summary.CourseID == courseID {
			delete(c.entries, key)
		}
	}
	return nil
}
