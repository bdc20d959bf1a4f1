package enrollment

import (
	"context"
)

// Repository defines storage operations for enrollments.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create stores a new enrollment.
	// Returns ErrAlreadyEnrolled if the (student, course) pair exists.
	Create(ctx context.Context, enrollment *Enrollment) error

	// Delete removes the enrollment for a (student, course) pair.
	// Returns ErrNotEnrolled if there is none.
	Delete(ctx context.Context, studentID, courseID string) error

	// Get returns the enrollment for a (student, course) pair.
	// Returns ErrNotFound if there is none.
	Get(ctx context.Context, studentID, courseID string) (*Enrollment, error)

	// IsEnrolled reports whether the student is enrolled in the course.
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)

	// GetByStudent returns the student's enrollments ordered by
	// enrollment time. This ordering drives the dashboard course list.
	GetByStudent(ctx context.Context, studentID string) ([]*Enrollment, error)

	// GetByCourse returns all enrollments for a course.
	GetByCourse(ctx context.Context, courseID string) ([]*Enrollment, error)

	// CountByCourse returns the number of students enrolled in a course.
	CountByCourse(ctx context.Context, courseID string) (int, error)

	// GetAll returns every enrollment. Used by the nightly reconciliation
	// job, which walks all (student, course) pairs.
	GetAll(ctx context.Context) ([]*Enrollment, error)
}
