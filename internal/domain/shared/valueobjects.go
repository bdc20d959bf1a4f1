// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// StudentID represents a unique student identifier (UUID format).
type StudentID string

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// CourseID represents a unique course identifier (UUID format).
type CourseID string

// IsValid checks if the course ID is a valid UUID.
func (c CourseID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CourseID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c CourseID) IsEmpty() bool {
	return c == ""
}

// NewCourseID creates a new CourseID with validation.
func NewCourseID(id string) (CourseID, error) {
	cid := CourseID(strings.ToLower(strings.TrimSpace(id)))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewCourseID", ErrInvalidID, "invalid course ID format")
	}
	return cid, nil
}

// LessonID represents a unique lesson identifier (UUID format).
type LessonID string

// IsValid checks if the lesson ID is a valid UUID.
func (l LessonID) IsValid() bool {
	return uuidRegex.MatchString(string(l))
}

// String returns the string representation.
func (l LessonID) String() string {
	return string(l)
}

// IsEmpty checks if the ID is empty.
func (l LessonID) IsEmpty() bool {
	return l == ""
}

// NewLessonID creates a new LessonID with validation.
func NewLessonID(id string) (LessonID, error) {
	lid := LessonID(strings.ToLower(strings.TrimSpace(id)))
	if !lid.IsValid() {
		return "", NewDomainError("shared", "NewLessonID", ErrInvalidID, "invalid lesson ID format")
	}
	return lid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Email Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Email represents a normalized email address.
type Email string

// Deliberately loose: real validation happens on delivery, this only
// rejects obvious garbage.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValid checks if the email has a plausible format.
func (e Email) IsValid() bool {
	return emailRegex.MatchString(string(e))
}

// String returns the string representation.
func (e Email) String() string {
	return string(e)
}

// NewEmail creates a new Email with validation and normalization.
func NewEmail(value string) (Email, error) {
	e := Email(strings.ToLower(strings.TrimSpace(value)))
	if !e.IsValid() {
		return "", ErrInvalidEmail
	}
	return e, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Percentage Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Percentage represents a completion percentage in the range [0, 100].
type Percentage float64

const (
	MinPercentage Percentage = 0
	MaxPercentage Percentage = 100
)

// IsValid checks if the percentage is within valid range.
func (p Percentage) IsValid() bool {
	return p >= MinPercentage && p <= MaxPercentage
}

// Float64 returns the underlying float64 value.
func (p Percentage) Float64() float64 {
	return float64(p)
}

// Rounded returns the percentage rounded to one decimal place. Stored
// values keep full precision; presentation uses this.
func (p Percentage) Rounded() float64 {
	return math.Round(float64(p)*10) / 10
}

// IsComplete checks if the percentage means full completion.
func (p Percentage) IsComplete() bool {
	return p >= MaxPercentage
}

// PercentageOf computes completed/total as a percentage. Zero total yields
// zero percent, never a division error.
func PercentageOf(completed, total int) Percentage {
	if total <= 0 {
		return 0
	}
	return Percentage(float64(completed) / float64(total) * 100)
}

// NewPercentage creates a new Percentage with validation.
func NewPercentage(value float64) (Percentage, error) {
	p := Percentage(value)
	if !p.IsValid() {
		return 0, NewDomainError("shared", "NewPercentage", ErrValueOutOfRange, "percentage must be between 0 and 100")
	}
	return p, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Minutes Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Minutes represents a non-negative duration in whole minutes, the unit
// lessons and study time are tracked in.
type Minutes int

// IsValid checks if the value is non-negative.
func (m Minutes) IsValid() bool {
	return m >= 0
}

// Int returns the underlying int value.
func (m Minutes) Int() int {
	return int(m)
}

// Add accumulates additional minutes, flooring at zero.
func (m Minutes) Add(amount int) Minutes {
	result := Minutes(int(m) + amount)
	if result < 0 {
		return 0
	}
	return result
}

// Duration converts to a time.Duration.
func (m Minutes) Duration() time.Duration {
	return time.Duration(m) * time.Minute
}

// String returns a human-readable representation.
func (m Minutes) String() string {
	if m < 60 {
		return fmt.Sprintf("%dm", int(m))
	}
	return fmt.Sprintf("%dh%02dm", int(m)/60, int(m)%60)
}

// NewMinutes creates a new Minutes value with validation.
func NewMinutes(amount int) (Minutes, error) {
	if amount < 0 {
		return 0, NewDomainError("shared", "NewMinutes", ErrNegativeValue, "minutes cannot be negative")
	}
	return Minutes(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// DefaultPagination returns default pagination.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPageSize)
}
