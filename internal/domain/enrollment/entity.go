// Package enrollment contains domain entities and business logic
// for student enrollment in courses.
// This is a pure domain layer with zero external dependencies.
package enrollment

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for enrollment package.
var (
	ErrInvalidStudentID = errors.New("enrollment: invalid student ID")
	ErrInvalidCourseID  = errors.New("enrollment: invalid course ID")
	ErrAlreadyEnrolled  = errors.New("enrollment: student already enrolled")
	ErrNotEnrolled      = errors.New("enrollment: student not enrolled")
	ErrNotFound         = errors.New("enrollment: not found")
)

// Enrollment represents a student's membership in a course.
// At most one enrollment exists per (student, course) pair.
// Unenrolling removes the enrollment but keeps completion records intact.
type Enrollment struct {
	ID         string
	StudentID  string
	CourseID   string
	EnrolledAt time.Time
}

// NewEnrollment creates a new enrollment with validation.
func NewEnrollment(id, studentID, courseID string) (*Enrollment, error) {
	if id == "" {
		return nil, errors.New("enrollment: id is required")
	}
	if studentID == "" {
		return nil, ErrInvalidStudentID
	}
	if courseID == "" {
		return nil, ErrInvalidCourseID
	}

	return &Enrollment{
		ID:         id,
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: time.Now().UTC(),
	}, nil
}

// String returns a string representation for logging.
func (e *Enrollment) String() string {
	return fmt.Sprintf("Enrollment{Student: %s, Course: %s}", e.StudentID, e.CourseID)
}
