// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// Infrastructure errors
	ErrInternal           = errors.New("internal error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "catalog", "progress", "enrollment"
	Op      string // Operation that failed, e.g., "Create", "Recompute"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound      = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("student", "Create", ErrAlreadyExists, "student already exists")
	ErrEmailAlreadyTaken    = NewDomainError("student", "Create", ErrAlreadyExists, "email already registered")
	ErrInvalidEmail         = NewDomainError("student", "Validate", ErrInvalidFormat, "invalid email address")
	ErrStudentNotActive     = NewDomainError("student", "CheckStatus", ErrInvalidState, "student account is not active")
	ErrInvalidRole          = NewDomainError("student", "Validate", ErrInvalidInput, "invalid role")
	ErrWeakPassword         = NewDomainError("student", "SetPassword", ErrInvalidInput, "password does not meet requirements")
)

// Catalog domain errors
var (
	ErrCourseNotFound       = NewDomainError("catalog", "FindCourse", ErrNotFound, "course not found")
	ErrCourseAlreadyExists  = NewDomainError("catalog", "CreateCourse", ErrAlreadyExists, "course already exists")
	ErrLessonNotFound       = NewDomainError("catalog", "FindLesson", ErrNotFound, "lesson not found")
	ErrLessonAlreadyExists  = NewDomainError("catalog", "CreateLesson", ErrAlreadyExists, "lesson already exists")
	ErrInvalidLessonStatus  = NewDomainError("catalog", "SetStatus", ErrStateTransition, "invalid lesson status transition")
	ErrLessonNotInCourse    = NewDomainError("catalog", "CheckLesson", ErrInvalidInput, "lesson does not belong to course")
	ErrInvalidLessonOrder   = NewDomainError("catalog", "Validate", ErrNegativeValue, "lesson position cannot be negative")
	ErrInvalidLessonMinutes = NewDomainError("catalog", "Validate", ErrNegativeValue, "lesson duration cannot be negative")
)

// Progress domain errors
var (
	ErrCompletionNotFound  = NewDomainError("progress", "FindCompletion", ErrNotFound, "completion record not found")
	ErrSummaryNotFound     = NewDomainError("progress", "FindSummary", ErrNotFound, "progress summary not found")
	ErrSummaryConflict     = NewDomainError("progress", "UpsertSummary", ErrOptimisticLock, "summary modified concurrently")
	ErrSummaryUnavailable  = NewDomainError("progress", "Recompute", ErrServiceUnavailable, "progress summary temporarily unavailable")
	ErrNegativeTimeSpent   = NewDomainError("progress", "Validate", ErrNegativeValue, "time spent cannot be negative")
	ErrCompletionForbidden = NewDomainError("progress", "SetCompletion", ErrInvalidState, "cannot record completion for a draft lesson")
)

// Enrollment domain errors
var (
	ErrEnrollmentNotFound = NewDomainError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrAlreadyEnrolled    = NewDomainError("enrollment", "Enroll", ErrAlreadyExists, "student already enrolled in course")
	ErrNotEnrolled        = NewDomainError("enrollment", "Unenroll", ErrNotFound, "student is not enrolled in course")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsConflict checks if the error is a concurrent modification conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOptimisticLock) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrOptimisticLock) ||
		errors.Is(err, ErrConcurrentModification)
}
