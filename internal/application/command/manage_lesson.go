package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/edulight/edulight-backend/internal/domain/catalog"
	"github.com/edulight/edulight-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG COMMANDS
// Course and lesson lifecycle: create, update, publish, unpublish, delete.
// Lifecycle changes that alter the set of published lessons emit events;
// subscribers invalidate derived progress summaries for the course.
// ══════════════════════════════════════════════════════════════════════════════

// CreateCourseCommand contains the data to create a course.
type CreateCourseCommand struct {
	Title        string
	Description  string
	InstructorID string
}

// Validate validates the command.
func (c CreateCourseCommand) Validate() error {
	if c.Title == "" {
		return errors.New("create_course: title is required")
	}
	if c.InstructorID == "" {
		return errors.New("create_course: instructor_id is required")
	}
	return nil
}

// CreateLessonCommand contains the data to create a lesson (as a draft).
type CreateLessonCommand struct {
	CourseID        string
	Title           string
	Content         string
	Position        int
	DurationMinutes int
	VideoURL        string
}

// Validate validates the command.
func (c CreateLessonCommand) Validate() error {
	if c.CourseID == "" {
		return errors.New("create_lesson: course_id is required")
	}
	if c.Title == "" {
		return errors.New("create_lesson: title is required")
	}
	if c.Position < 0 {
		return errors.New("create_lesson: position must be non-negative")
	}
	if c.DurationMinutes < 0 {
		return errors.New("create_lesson: duration_minutes must be non-negative")
	}
	return nil
}

// UpdateLessonCommand contains the data to update a lesson's content.
type UpdateLessonCommand struct {
	LessonID        string
	Title           string
	Content         string
	Position        int
	DurationMinutes int
	VideoURL        string
}

// ManageCatalogHandler handles course and lesson write operations.
type ManageCatalogHandler struct {
	courseRepo     catalog.CourseRepository
	lessonRepo     catalog.LessonRepository
	eventPublisher shared.EventPublisher
}

// NewManageCatalogHandler creates a new ManageCatalogHandler.
func NewManageCatalogHandler(
	courseRepo catalog.CourseRepository,
	lessonRepo catalog.LessonRepository,
	eventPublisher shared.EventPublisher,
) *ManageCatalogHandler {
	return &ManageCatalogHandler{
		courseRepo:     courseRepo,
		lessonRepo:     lessonRepo,
		eventPublisher: eventPublisher,
	}
}

// CreateCourse creates a new course.
func (h *ManageCatalogHandler) CreateCourse(ctx context.Context, cmd CreateCourseCommand) (*catalog.Course, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_course: validation failed: %w", err)
	}

	course, err := catalog.NewCourse(catalog.NewCourseParams{
		ID:           uuid.NewString(),
		Title:        cmd.Title,
		Description:  cmd.Description,
		InstructorID: cmd.InstructorID,
	})
	if err != nil {
		return nil, fmt.Errorf("create_course: %w", err)
	}

	if err := h.courseRepo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create_course: failed to store course: %w", err)
	}

	_ = h.eventPublisher.Publish(shared.NewCourseCreatedEvent(course.ID, course.Title, course.InstructorID))

	return course, nil
}

// CreateLesson creates a new draft lesson in a course.
func (h *ManageCatalogHandler) CreateLesson(ctx context.Context, cmd CreateLessonCommand) (*catalog.Lesson, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_lesson: validation failed: %w", err)
	}

	exists, err := h.courseRepo.Exists(ctx, cmd.CourseID)
	if err != nil {
		return nil, fmt.Errorf("create_lesson: failed to check course: %w", err)
	}
	if !exists {
		return nil, shared.ErrCourseNotFound
	}

	lesson, err := catalog.NewLesson(catalog.NewLessonParams{
		ID:              uuid.NewString(),
		CourseID:        cmd.CourseID,
		Title:           cmd.Title,
		Content:         cmd.Content,
		Position:        cmd.Position,
		DurationMinutes: cmd.DurationMinutes,
		VideoURL:        cmd.VideoURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create_lesson: %w", err)
	}

	if err := h.lessonRepo.Create(ctx, lesson); err != nil {
		return nil, fmt.Errorf("create_lesson: failed to store lesson: %w", err)
	}

	// Drafts are invisible to students, no summary invalidation needed.
	_ = h.eventPublisher.Publish(shared.NewLessonLifecycleEvent(
		shared.EventLessonCreated, lesson.ID, lesson.CourseID, string(lesson.Status),
	))

	return lesson, nil
}

// UpdateLesson updates a lesson's content and attributes.
func (h *ManageCatalogHandler) UpdateLesson(ctx context.Context, cmd UpdateLessonCommand) (*catalog.Lesson, error) {
	if cmd.LessonID == "" {
		return nil, errors.New("update_lesson: lesson_id is required")
	}

	lesson, err := h.getLesson(ctx, cmd.LessonID, "update_lesson")
	if err != nil {
		return nil, err
	}

	if err := lesson.UpdateContent(cmd.Title, cmd.Content, cmd.Position, cmd.DurationMinutes, cmd.VideoURL); err != nil {
		return nil, fmt.Errorf("update_lesson: %w", err)
	}

	if err := h.lessonRepo.Update(ctx, lesson); err != nil {
		return nil, fmt.Errorf("update_lesson: failed to store lesson: %w", err)
	}

	_ = h.eventPublisher.Publish(shared.NewLessonLifecycleEvent(
		shared.EventLessonUpdated, lesson.ID, lesson.CourseID, string(lesson.Status),
	))

	return lesson, nil
}

// PublishLesson makes a lesson visible to students and part of the
// course's progress totals.
func (h *ManageCatalogHandler) PublishLesson(ctx context.Context, lessonID string) (*catalog.Lesson, error) {
	return h.transition(ctx, lessonID, "publish_lesson", shared.EventLessonPublished,
		func(l *catalog.Lesson) error { return l.Publish() })
}

// UnpublishLesson returns a lesson to draft. Existing completion records
// are kept; the lesson just stops counting towards progress.
func (h *ManageCatalogHandler) UnpublishLesson(ctx context.Context, lessonID string) (*catalog.Lesson, error) {
	return h.transition(ctx, lessonID, "unpublish_lesson", shared.EventLessonUnpublished,
		func(l *catalog.Lesson) error { return l.Unpublish() })
}

// DeleteLesson removes a lesson from the catalog. Completion records for
// the lesson are never deleted implicitly.
func (h *ManageCatalogHandler) DeleteLesson(ctx context.Context, lessonID string) error {
	lesson, err := h.getLesson(ctx, lessonID, "delete_lesson")
	if err != nil {
		return err
	}

	if err := h.lessonRepo.Delete(ctx, lessonID); err != nil {
		return fmt.Errorf("delete_lesson: failed to delete lesson: %w", err)
	}

	_ = h.eventPublisher.Publish(shared.NewLessonLifecycleEvent(
		shared.EventLessonDeleted, lesson.ID, lesson.CourseID, string(lesson.Status),
	))

	return nil
}

func (h *ManageCatalogHandler) transition(
	ctx context.Context,
	lessonID, op string,
	eventType shared.EventType,
	apply func(*catalog.Lesson) error,
) (*catalog.Lesson, error) {
	lesson, err := h.getLesson(ctx, lessonID, op)
	if err != nil {
		return nil, err
	}

	if err := apply(lesson); err != nil {
		// Publishing a published lesson (or drafting a draft) is a no-op
		// for callers that just want the target state.
		if errors.Is(err, catalog.ErrAlreadyPublished) || errors.Is(err, catalog.ErrAlreadyDraft) {
			return lesson, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := h.lessonRepo.Update(ctx, lesson); err != nil {
		return nil, fmt.Errorf("%s: failed to store lesson: %w", op, err)
	}

	_ = h.eventPublisher.Publish(shared.NewLessonLifecycleEvent(
		eventType, lesson.ID, lesson.CourseID, string(lesson.Status),
	))

	return lesson, nil
}

func (h *ManageCatalogHandler) getLesson(ctx context.Context, lessonID, op string) (*catalog.Lesson, error) {
	lesson, err := h.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrLessonNotFound
		}
		return nil, fmt.Errorf("%s: failed to get lesson: %w", op, err)
	}
	return lesson, nil
}
