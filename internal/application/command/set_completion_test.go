package command

import (
	"context"
	"sync"
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

type fakeStudentRepo struct {
	students map[string]*student.Student
}

func newFakeStudentRepo(ids ...string) *fakeStudentRepo {
	r := &fakeStudentRepo{students: make(map[string]*student.Student)}
	for _, id := range ids {
		r.students[id] = &student.Student{ID: id}
	}
	return r
}

func (r *fakeStudentRepo) Create(_ context.Context, s *student.Student) error {
	r.students[s.ID] = s
	return nil
}

func (r *fakeStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	if s, ok := r.students[id]; ok {
		return s, nil
	}
	return nil, shared.ErrStudentNotFound
}

func (r *fakeStudentRepo) GetByEmail(context.Context, string) (*student.Student, error) {
	return nil, shared.ErrStudentNotFound
}

func (r *fakeStudentRepo) Update(context.Context, *student.Student) error { return nil }
func (r *fakeStudentRepo) Delete(context.Context, string) error           { return nil }

func (r *fakeStudentRepo) GetAll(context.Context, student.ListOptions) ([]*student.Student, error) {
	return nil, nil
}

func (r *fakeStudentRepo) GetByIDs(_ context.Context, ids []string) ([]*student.Student, error) {
	result := make([]*student.Student, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.students[id]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *fakeStudentRepo) Count(context.Context) (int, error) { return len(r.students), nil }

func (r *fakeStudentRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.students[id]
	return ok, nil
}

func (r *fakeStudentRepo) ExistsByEmail(context.Context, string) (bool, error) {
	return false, nil
}

type fakeLessonRepo struct {
	lessons map[string]*catalog.Lesson
}

func newFakeLessonRepo(lessons ...*catalog.Lesson) *fakeLessonRepo {
	r := &fakeLessonRepo{lessons: make(map[string]*catalog.Lesson)}
	for _, l := range lessons {
		r.lessons[l.ID] = l
	}
	return r
}

func (r *fakeLessonRepo) Create(_ context.Context, l *catalog.Lesson) error {
	r.lessons[l.ID] = l
	return nil
}

func (r *fakeLessonRepo) GetByID(_ context.Context, id string) (*catalog.Lesson, error) {
	if l, ok := r.lessons[id]; ok {
		return l, nil
	}
	return nil, shared.ErrLessonNotFound
}

func (r *fakeLessonRepo) Update(_ context.Context, l *catalog.Lesson) error {
	r.lessons[l.ID] = l
	return nil
}

func (r *fakeLessonRepo) Delete(_ context.Context, id string) error {
	delete(r.lessons, id)
	return nil
}

func (r *fakeLessonRepo) GetByCourse(_ context.Context, courseID string) ([]*catalog.Lesson, error) {
	var result []*catalog.Lesson
	for _, l := range r.lessons {
		if l.CourseID == courseID {
			result = append(result, l)
		}
	}
	return result, nil
}

func (r *fakeLessonRepo) GetPublishedByCourse(ctx context.Context, courseID string) ([]*catalog.Lesson, error) {
	all, _ := r.GetByCourse(ctx, courseID)
	var result []*catalog.Lesson
	for _, l := range all {
		if l.Status == catalog.LessonStatusPublished {
			result = append(result, l)
		}
	}
	return result, nil
}

func (r *fakeLessonRepo) PublishedRefsByCourse(ctx context.Context, courseID string) ([]catalog.LessonRef, error) {
	published, _ := r.GetPublishedByCourse(ctx, courseID)
	refs := make([]catalog.LessonRef, 0, len(published))
	for _, l := range published {
		refs = append(refs, catalog.LessonRef{ID: l.ID, Title: l.Title, Position: l.Position})
	}
	return refs, nil
}

func (r *fakeLessonRepo) CountByCourse(ctx context.Context, courseID string) (int, int, error) {
	all, _ := r.GetByCourse(ctx, courseID)
	published := 0
	for _, l := range all {
		if l.Status == catalog.LessonStatusPublished {
			published++
		}
	}
	return published, len(all) - published, nil
}

func (r *fakeLessonRepo) CountPublished(ctx context.Context, courseID string) (int, error) {
	published, _, err := r.CountByCourse(ctx, courseID)
	return published, err
}

type fakeCompletionRepo struct {
	mu      sync.Mutex
	records map[string]*progress.CompletionRecord // studentID+"/"+lessonID
	upserts int
}

func newFakeCompletionRepo() *fakeCompletionRepo {
	return &fakeCompletionRepo{records: make(map[string]*progress.CompletionRecord)}
}

func (r *fakeCompletionRepo) Upsert(_ context.Context, change progress.CompletionChange) (*progress.CompletionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++

	key := change.StudentID + "/" + change.LessonID
	now := time.Now().UTC()
	record, ok := r.records[key]
	if !ok {
		record = &progress.CompletionRecord{
			StudentID: change.StudentID,
			LessonID:  change.LessonID,
			CreatedAt: now,
		}
		r.records[key] = record
	}

	if change.Completed && !record.Completed {
		record.CompletedAt = &now
	}
	if !change.Completed {
		record.CompletedAt = nil
	}
	record.Completed = change.Completed
	record.TimeSpentMinutes += change.AddMinutes
	record.UpdatedAt = now

	return record, nil
}

func (r *fakeCompletionRepo) Get(_ context.Context, studentID, lessonID string) (*progress.CompletionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[studentID+"/"+lessonID]; ok {
		return record, nil
	}
	return nil, progress.ErrCompletionNotFound
}

func (r *fakeCompletionRepo) GetByStudentAndCourse(context.Context, string, string) ([]*progress.CompletionRecord, error) {
	return nil, nil
}

func (r *fakeCompletionRepo) CountCompletedInCourse(context.Context, string, string) (int, error) {
	return 0, nil
}

func (r *fakeCompletionRepo) CountCompletedByLesson(context.Context, string) (int, error) {
	return 0, nil
}

func (r *fakeCompletionRepo) TotalTimeSpentInCourse(context.Context, string, string) (int, error) {
	return 0, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *fakePublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.Event(nil), p.events...)
}

func publishedLesson(id, courseID string) *catalog.Lesson {
	return &catalog.Lesson{
		ID:       id,
		CourseID: courseID,
		Title:    "Lesson " + id,
		Status:   catalog.LessonStatusPublished,
	}
}

func newSetCompletionFixture(lessons ...*catalog.Lesson) (*SetCompletionHandler, *fakeCompletionRepo, *fakePublisher) {
	completions := newFakeCompletionRepo()
	publisher := &fakePublisher{}
	handler := NewSetCompletionHandler(
		newFakeStudentRepo("student-1"),
		newFakeLessonRepo(lessons...),
		completions,
		publisher,
	)
	return handler, completions, publisher
}

// ─────────────────────────────────────────────────────────────────────────────
// SetCompletionHandler
// ─────────────────────────────────────────────────────────────────────────────

func TestSetCompletionHandler_RecordsCompletion(t *testing.T) {
	handler, _, publisher := newSetCompletionFixture(publishedLesson("lesson-1", "course-1"))

	result, err := handler.Handle(context.Background(), SetCompletionCommand{
		StudentID:        "student-1",
		LessonID:         "lesson-1",
		Completed:        true,
		TimeSpentMinutes: 25,
	})

	require.NoError(t, err)
	assert.Equal(t, "course-1", result.CourseID)
	assert.True(t, result.Record.Completed)
	assert.NotNil(t, result.Record.CompletedAt)
	assert.Equal(t, 25, result.Record.TimeSpentMinutes)

	events := publisher.published()
	require.Len(t, events, 1)
	assert.Equal(t, shared.EventLessonCompleted, events[0].EventType())
}

func TestSetCompletionHandler_RepeatedCompletionAccumulatesTime(t *testing.T) {
	handler, completions, _ := newSetCompletionFixture(publishedLesson("lesson-1", "course-1"))
	ctx := context.Background()

	_, err := handler.Handle(ctx, SetCompletionCommand{
		StudentID: "student-1", LessonID: "lesson-1", Completed: true, TimeSpentMinutes: 10,
	})
	require.NoError(t, err)

	result, err := handler.Handle(ctx, SetCompletionCommand{
		StudentID: "student-1", LessonID: "lesson-1", Completed: true, TimeSpentMinutes: 15,
	})
	require.NoError(t, err)

	// Одна запись на пару (студент, урок), время только накапливается.
	assert.Equal(t, 25, result.Record.TimeSpentMinutes)
	assert.Len(t, completions.records, 1)
}

func TestSetCompletionHandler_UncompleteKeepsTime(t *testing.T) {
	handler, _, publisher := newSetCompletionFixture(publishedLesson("lesson-1", "course-1"))
	ctx := context.Background()

	_, err := handler.Handle(ctx, SetCompletionCommand{
		StudentID: "student-1", LessonID: "lesson-1", Completed: true, TimeSpentMinutes: 30,
	})
	require.NoError(t, err)

	result, err := handler.Handle(ctx, SetCompletionCommand{
		StudentID: "student-1", LessonID: "lesson-1", Completed: false,
	})
	require.NoError(t, err)

	assert.False(t, result.Record.Completed)
	assert.Nil(t, result.Record.CompletedAt)
	assert.Equal(t, 30, result.Record.TimeSpentMinutes)

	events := publisher.published()
	require.Len(t, events, 2)
	assert.Equal(t, shared.EventLessonUncompleted, events[1].EventType())
}

func TestSetCompletionHandler_DraftLessonIsAccepted(t *testing.T) {
	draft := &catalog.Lesson{
		ID:       "lesson-draft",
		CourseID: "course-1",
		Title:    "Draft",
		Status:   catalog.LessonStatusDraft,
	}
	handler, _, _ := newSetCompletionFixture(draft)

	result, err := handler.Handle(context.Background(), SetCompletionCommand{
		StudentID: "student-1", LessonID: "lesson-draft", Completed: true,
	})

	require.NoError(t, err)
	assert.True(t, result.Record.Completed)
}

func TestSetCompletionHandler_UnknownStudent(t *testing.T) {
	handler, _, publisher := newSetCompletionFixture(publishedLesson("lesson-1", "course-1"))

	_, err := handler.Handle(context.Background(), SetCompletionCommand{
		StudentID: "ghost", LessonID: "lesson-1", Completed: true,
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, publisher.published())
}

func TestSetCompletionHandler_UnknownLesson(t *testing.T) {
	handler, _, _ := newSetCompletionFixture()

	_, err := handler.Handle(context.Background(), SetCompletionCommand{
		StudentID: "student-1", LessonID: "ghost", Completed: true,
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSetCompletionHandler_NegativeMinutesRejected(t *testing.T) {
	handler, completions, _ := newSetCompletionFixture(publishedLesson("lesson-1", "course-1"))

	_, err := handler.Handle(context.Background(), SetCompletionCommand{
		StudentID: "student-1", LessonID: "lesson-1", Completed: true, TimeSpentMinutes: -5,
	})

	assert.Error(t, err)
	assert.Zero(t, completions.upserts)
}

func TestSetCompletionHandler_ConcurrentTogglesConvergeOnOneRecord(t *testing.T) {
	handler, completions, _ := newSetCompletionFixture(publishedLesson("lesson-1", "course-1"))

	const workers = 10
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			_, err := handler.Handle(context.Background(), SetCompletionCommand{
				StudentID:        "student-1",
				LessonID:         "lesson-1",
				Completed:        n%2 == 0,
				TimeSpentMinutes: 5,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Одна пара (студент, урок) - одна запись, сколько бы писателей ни было.
	completions.mu.Lock()
	defer completions.mu.Unlock()
	require.Len(t, completions.records, 1)
	assert.Equal(t, workers, completions.upserts)

	record := completions.records["student-1/lesson-1"]
	require.NotNil(t, record)
	assert.Equal(t, workers*5, record.TimeSpentMinutes)
	if record.Completed {
		assert.NotNil(t, record.CompletedAt)
	} else {
		assert.Nil(t, record.CompletedAt)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ImportCompletionsHandler
// ─────────────────────────────────────────────────────────────────────────────

func TestImportCompletionsHandler_PartialFailure(t *testing.T) {
	inner, _, publisher := newSetCompletionFixture(
		publishedLesson("lesson-1", "course-1"),
		publishedLesson("lesson-2", "course-1"),
	)
	handler := NewImportCompletionsHandler(inner)

	result, err := handler.Handle(context.Background(), ImportCompletionsCommand{
		Changes: []SetCompletionCommand{
			{StudentID: "student-1", LessonID: "lesson-1", Completed: true, TimeSpentMinutes: 10},
			{StudentID: "student-1", LessonID: "ghost", Completed: true},
			{StudentID: "student-1", LessonID: "lesson-2", Completed: true},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Len(t, result.Errors, 1)
	assert.Len(t, publisher.published(), 2)
}

func TestImportCompletionsHandler_InheritsCorrelationID(t *testing.T) {
	inner, _, publisher := newSetCompletionFixture(publishedLesson("lesson-1", "course-1"))
	handler := NewImportCompletionsHandler(inner)

	_, err := handler.Handle(context.Background(), ImportCompletionsCommand{
		CorrelationID: "import-42",
		Changes: []SetCompletionCommand{
			{StudentID: "student-1", LessonID: "lesson-1", Completed: true},
		},
	})

	require.NoError(t, err)
	events := publisher.published()
	require.Len(t, events, 1)
	completion, ok := events[0].(shared.LessonCompletionEvent)
	require.True(t, ok)
	assert.Equal(t, "import-42", completion.CorrelationID)
}
