package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/edulight/edulight-backend/internal/domain/catalog"
	"github.com/edulight/edulight-backend/internal/domain/enrollment"
	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"
	"github.com/edulight/edulight-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT COMMANDS
// Enrolling a student registers the membership only; the first dashboard
// read computes the initial summary. Unenrolling drops the stored summary
// but keeps completion records, so re-enrolling restores earned progress.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollStudentCommand contains the data to enroll a student in a course.
type EnrollStudentCommand struct {
	StudentID     string
	CourseID      string
	CorrelationID string
}

// Validate validates the command.
func (c EnrollStudentCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("enroll_student: student_id is required")
	}
	if c.CourseID == "" {
		return errors.New("enroll_student: course_id is required")
	}
	return nil
}

// EnrollStudentHandler handles enrollment and unenrollment.
type EnrollStudentHandler struct {
	studentRepo    student.Repository
	courseRepo     catalog.CourseRepository
	enrollmentRepo enrollment.Repository
	aggregator     *progress.Aggregator
	eventPublisher shared.EventPublisher
}

// NewEnrollStudentHandler creates a new EnrollStudentHandler.
func NewEnrollStudentHandler(
	studentRepo student.Repository,
	courseRepo catalog.CourseRepository,
	enrollmentRepo enrollment.Repository,
	aggregator *progress.Aggregator,
	eventPublisher shared.EventPublisher,
) *EnrollStudentHandler {
	return &EnrollStudentHandler{
		studentRepo:    studentRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		aggregator:     aggregator,
		eventPublisher: eventPublisher,
	}
}

// Enroll adds the student to a course.
func (h *EnrollStudentHandler) Enroll(ctx context.Context, cmd EnrollStudentCommand) (*enrollment.Enrollment, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("enroll_student: validation failed: %w", err)
	}

	stud, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, shared.ErrStudentNotFound
	}
	if !stud.IsActive() {
		return nil, shared.WrapError("enrollment", "Enroll", shared.ErrInvalidState,
			"account is not active", student.ErrStudentNotActive)
	}

	exists, err := h.courseRepo.Exists(ctx, cmd.CourseID)
	if err != nil {
		return nil, fmt.Errorf("enroll_student: failed to check course: %w", err)
	}
	if !exists {
		return nil, shared.ErrCourseNotFound
	}

	enr, err := enrollment.NewEnrollment(uuid.NewString(), cmd.StudentID, cmd.CourseID)
	if err != nil {
		return nil, fmt.Errorf("enroll_student: %w", err)
	}

	if err := h.enrollmentRepo.Create(ctx, enr); err != nil {
		if errors.Is(err, enrollment.ErrAlreadyEnrolled) || shared.IsAlreadyExists(err) {
			return nil, shared.ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("enroll_student: failed to store enrollment: %w", err)
	}

	event := shared.NewEnrollmentEvent(shared.EventStudentEnrolled, cmd.StudentID, cmd.CourseID)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return enr, nil
}

// Unenroll removes the student from a course and drops the stored summary.
// Completion records stay: re-enrolling restores progress on the next read.
func (h *EnrollStudentHandler) Unenroll(ctx context.Context, cmd EnrollStudentCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("enroll_student: validation failed: %w", err)
	}

	if err := h.enrollmentRepo.Delete(ctx, cmd.StudentID, cmd.CourseID); err != nil {
		if errors.Is(err, enrollment.ErrNotEnrolled) || shared.IsNotFound(err) {
			return shared.ErrNotEnrolled
		}
		return fmt.Errorf("enroll_student: failed to delete enrollment: %w", err)
	}

	// Summary cleanup is best effort, leftovers are reclaimed lazily.
	_ = h.aggregator.Invalidate(ctx, cmd.StudentID, cmd.CourseID)

	event := shared.NewEnrollmentEvent(shared.EventStudentUnenrolled, cmd.StudentID, cmd.CourseID)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return nil
}
