package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/edulight/edulight-backend/internal/domain/shared"
	"github.com/edulight/edulight-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE STUDENT COMMAND
// Administrative account provisioning. Sign-up and login flows live in the
// identity service; this command backs admin tooling and data imports.
// ══════════════════════════════════════════════════════════════════════════════

// CreateStudentCommand contains the data to provision an account.
type CreateStudentCommand struct {
	Email       string
	DisplayName string
	Role        student.Role

	// InitialPassword is optional; accounts without one cannot log in
	// until the identity service sets a credential.
	InitialPassword string
}

// Validate validates the command.
func (c CreateStudentCommand) Validate() error {
	if c.Email == "" {
		return errors.New("create_student: email is required")
	}
	if c.DisplayName == "" {
		return errors.New("create_student: display_name is required")
	}
	return nil
}

// CreateStudentHandler handles the CreateStudentCommand.
type CreateStudentHandler struct {
	studentRepo    student.Repository
	eventPublisher shared.EventPublisher
}

// NewCreateStudentHandler creates a new CreateStudentHandler.
func NewCreateStudentHandler(studentRepo student.Repository, eventPublisher shared.EventPublisher) *CreateStudentHandler {
	return &CreateStudentHandler{
		studentRepo:    studentRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle provisions a new account.
func (h *CreateStudentHandler) Handle(ctx context.Context, cmd CreateStudentCommand) (*student.Student, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_student: validation failed: %w", err)
	}

	taken, err := h.studentRepo.ExistsByEmail(ctx, cmd.Email)
	if err != nil {
		return nil, fmt.Errorf("create_student: failed to check email: %w", err)
	}
	if taken {
		return nil, shared.ErrEmailAlreadyTaken
	}

	stud, err := student.NewStudent(student.NewStudentParams{
		ID:          uuid.NewString(),
		Email:       cmd.Email,
		DisplayName: cmd.DisplayName,
		Role:        cmd.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("create_student: %w", err)
	}

	if cmd.InitialPassword != "" {
		if err := stud.SetPassword(cmd.InitialPassword); err != nil {
			return nil, fmt.Errorf("create_student: %w", err)
		}
	}

	if err := h.studentRepo.Create(ctx, stud); err != nil {
		if shared.IsAlreadyExists(err) {
			return nil, shared.ErrEmailAlreadyTaken
		}
		return nil, fmt.Errorf("create_student: failed to store account: %w", err)
	}

	_ = h.eventPublisher.Publish(shared.NewStudentRegisteredEvent(
		stud.ID, stud.Email, stud.DisplayName, string(stud.Role),
	))

	return stud, nil
}
