// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/catalog"
	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"
	"github.com/edulight/edulight-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET COMPLETION COMMAND
// Records a student's completion state for a lesson: marking it completed,
// rolling a completion back, and accumulating study time. This is the write
// side of the completion ledger; course summaries are derived lazily and are
// deliberately NOT recomputed here.
// ══════════════════════════════════════════════════════════════════════════════

// SetCompletionCommand contains the data for a completion change.
type SetCompletionCommand struct {
	// StudentID is the internal ID of the student.
	StudentID string

	// LessonID is the lesson being marked.
	LessonID string

	// Completed is the new completion state.
	Completed bool

	// TimeSpentMinutes is added to the accumulated study time.
	// Zero is valid; negative values are rejected.
	TimeSpentMinutes int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SetCompletionCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("set_completion: student_id is required")
	}
	if c.LessonID == "" {
		return errors.New("set_completion: lesson_id is required")
	}
	if c.TimeSpentMinutes < 0 {
		return errors.New("set_completion: time_spent_minutes must be non-negative")
	}
	return nil
}

// SetCompletionResult contains the result of a completion change.
type SetCompletionResult struct {
	// Record is the completion record after the change.
	Record *progress.CompletionRecord

	// CourseID is the course the lesson belongs to.
	CourseID string

	// Events contains domain events generated.
	Events []shared.Event

	// RecordedAt is when the change was applied.
	RecordedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SetCompletionHandler handles the SetCompletionCommand.
type SetCompletionHandler struct {
	studentRepo    student.Repository
	lessonRepo     catalog.LessonRepository
	completionRepo progress.CompletionRepository
	eventPublisher shared.EventPublisher
}

// NewSetCompletionHandler creates a new SetCompletionHandler.
func NewSetCompletionHandler(
	studentRepo student.Repository,
	lessonRepo catalog.LessonRepository,
	completionRepo progress.CompletionRepository,
	eventPublisher shared.EventPublisher,
) *SetCompletionHandler {
	return &SetCompletionHandler{
		studentRepo:    studentRepo,
		lessonRepo:     lessonRepo,
		completionRepo: completionRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the set completion command.
//
// Uniqueness of the (student, lesson) record is enforced by a single atomic
// upsert in the repository, never by check-then-insert: concurrent calls for
// the same pair converge on one record.
func (h *SetCompletionHandler) Handle(ctx context.Context, cmd SetCompletionCommand) (*SetCompletionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("set_completion: validation failed: %w", err)
	}

	exists, err := h.studentRepo.Exists(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("set_completion: failed to check student: %w", err)
	}
	if !exists {
		return nil, shared.ErrStudentNotFound
	}

	// Resolve the lesson to its course. Unknown lesson is a hard error;
	// a draft lesson is accepted - the record simply does not count
	// towards progress until the lesson is published.
	lesson, err := h.lessonRepo.GetByID(ctx, cmd.LessonID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrLessonNotFound
		}
		return nil, fmt.Errorf("set_completion: failed to get lesson: %w", err)
	}

	record, err := h.completionRepo.Upsert(ctx, progress.CompletionChange{
		StudentID:  cmd.StudentID,
		LessonID:   cmd.LessonID,
		Completed:  cmd.Completed,
		AddMinutes: cmd.TimeSpentMinutes,
	})
	if err != nil {
		return nil, fmt.Errorf("set_completion: failed to upsert record: %w", err)
	}

	result := &SetCompletionResult{
		Record:     record,
		CourseID:   lesson.CourseID,
		RecordedAt: record.UpdatedAt,
		Events:     make([]shared.Event, 0, 1),
	}

	event := shared.NewLessonCompletionEvent(
		cmd.StudentID, cmd.LessonID, lesson.CourseID, cmd.Completed, cmd.TimeSpentMinutes,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	for _, e := range result.Events {
		_ = h.eventPublisher.Publish(e)
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BATCH IMPORT COMMAND
// For importing many completion records at once (e.g., from an LMS export).
// Summaries stay untouched: N imported records must not trigger N recomputes,
// the next dashboard read reconciles lazily.
// ══════════════════════════════════════════════════════════════════════════════

// ImportCompletionsCommand contains multiple completion changes.
type ImportCompletionsCommand struct {
	Changes       []SetCompletionCommand
	CorrelationID string
}

// ImportCompletionsResult contains results for the batch import.
type ImportCompletionsResult struct {
	TotalCount   int
	SuccessCount int
	FailedCount  int
	Results      []*SetCompletionResult
	Errors       map[string]error
}

// ImportCompletionsHandler handles batch completion imports.
type ImportCompletionsHandler struct {
	handler *SetCompletionHandler
}

// NewImportCompletionsHandler creates a new batch handler.
func NewImportCompletionsHandler(handler *SetCompletionHandler) *ImportCompletionsHandler {
	return &ImportCompletionsHandler{handler: handler}
}

// Handle executes the batch import command. Failures are collected per
// change; one bad record does not abort the import.
func (h *ImportCompletionsHandler) Handle(
	ctx context.Context,
	cmd ImportCompletionsCommand,
) (*ImportCompletionsResult, error) {
	result := &ImportCompletionsResult{
		TotalCount: len(cmd.Changes),
		Results:    make([]*SetCompletionResult, 0, len(cmd.Changes)),
		Errors:     make(map[string]error),
	}

	for i, change := range cmd.Changes {
		if change.CorrelationID == "" {
			change.CorrelationID = cmd.CorrelationID
		}

		changeResult, err := h.handler.Handle(ctx, change)
		if err != nil {
			result.FailedCount++
			result.Errors[fmt.Sprintf("%d:%s:%s", i, change.StudentID, change.LessonID)] = err
			continue
		}

		result.SuccessCount++
		result.Results = append(result.Results, changeResult)
	}

	return result, nil
}
