// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Student events
	EventStudentRegistered  EventType = "student.registered"
	EventStudentUpdated     EventType = "student.updated"
	EventStudentDeactivated EventType = "student.deactivated"

	// Catalog events
	EventCourseCreated     EventType = "catalog.course_created"
	EventLessonCreated     EventType = "catalog.lesson_created"
	EventLessonUpdated     EventType = "catalog.lesson_updated"
	EventLessonPublished   EventType = "catalog.lesson_published"
	EventLessonUnpublished EventType = "catalog.lesson_unpublished"
	EventLessonDeleted     EventType = "catalog.lesson_deleted"

	// Progress events
	EventLessonCompleted    EventType = "progress.lesson_completed"
	EventLessonUncompleted  EventType = "progress.lesson_uncompleted"
	EventSummaryRecomputed  EventType = "progress.summary_recomputed"
	EventSummaryInvalidated EventType = "progress.summary_invalidated"

	// Enrollment events
	EventStudentEnrolled   EventType = "enrollment.enrolled"
	EventStudentUnenrolled EventType = "enrollment.unenrolled"

	// System events
	EventSummariesRefreshed EventType = "system.summaries_refreshed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Student Events
// ═══════════════════════════════════════════════════════════════════════════

// StudentRegisteredEvent is emitted when a new student account is created.
type StudentRegisteredEvent struct {
	BaseEvent
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Payload implements Event interface.
func (e StudentRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"email":        e.Email,
		"display_name": e.DisplayName,
		"role":         e.Role,
	}
}

// NewStudentRegisteredEvent creates a new StudentRegisteredEvent.
func NewStudentRegisteredEvent(studentID, email, displayName, role string) StudentRegisteredEvent {
	return StudentRegisteredEvent{
		BaseEvent:   NewBaseEvent(EventStudentRegistered, studentID),
		Email:       email,
		DisplayName: displayName,
		Role:        role,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Catalog Events
// ═══════════════════════════════════════════════════════════════════════════

// LessonLifecycleEvent covers creation, publication, unpublication and
// deletion of a lesson. All four change the set of published lessons a
// course exposes, which is what downstream consumers care about.
type LessonLifecycleEvent struct {
	BaseEvent
	LessonID string `json:"lesson_id"`
	CourseID string `json:"course_id"`
	Status   string `json:"status"`
}

// Payload implements Event interface.
func (e LessonLifecycleEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id": e.LessonID,
		"course_id": e.CourseID,
		"status":    e.Status,
	}
}

// NewLessonLifecycleEvent creates a lifecycle event of the given type.
func NewLessonLifecycleEvent(eventType EventType, lessonID, courseID, status string) LessonLifecycleEvent {
	return LessonLifecycleEvent{
		BaseEvent: NewBaseEvent(eventType, lessonID),
		LessonID:  lessonID,
		CourseID:  courseID,
		Status:    status,
	}
}

// CourseCreatedEvent is emitted when an instructor creates a course.
type CourseCreatedEvent struct {
	BaseEvent
	CourseID     string `json:"course_id"`
	Title        string `json:"title"`
	InstructorID string `json:"instructor_id"`
}

// Payload implements Event interface.
func (e CourseCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id":     e.CourseID,
		"title":         e.Title,
		"instructor_id": e.InstructorID,
	}
}

// NewCourseCreatedEvent creates a new CourseCreatedEvent.
func NewCourseCreatedEvent(courseID, title, instructorID string) CourseCreatedEvent {
	return CourseCreatedEvent{
		BaseEvent:    NewBaseEvent(EventCourseCreated, courseID),
		CourseID:     courseID,
		Title:        title,
		InstructorID: instructorID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// LessonCompletionEvent is emitted when a student marks a lesson completed
// or rolls a completion back. Completed distinguishes the two directions.
type LessonCompletionEvent struct {
	BaseEvent
	StudentID        string `json:"student_id"`
	LessonID         string `json:"lesson_id"`
	CourseID         string `json:"course_id"`
	Completed        bool   `json:"completed"`
	TimeSpentMinutes int    `json:"time_spent_minutes"`
}

// Payload implements Event interface.
func (e LessonCompletionEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":         e.StudentID,
		"lesson_id":          e.LessonID,
		"course_id":          e.CourseID,
		"completed":          e.Completed,
		"time_spent_minutes": e.TimeSpentMinutes,
	}
}

// NewLessonCompletionEvent creates a completion event. The event type is
// derived from the direction of the change.
func NewLessonCompletionEvent(studentID, lessonID, courseID string, completed bool, timeSpentMinutes int) LessonCompletionEvent {
	eventType := EventLessonCompleted
	if !completed {
		eventType = EventLessonUncompleted
	}
	return LessonCompletionEvent{
		BaseEvent:        NewBaseEvent(eventType, studentID),
		StudentID:        studentID,
		LessonID:         lessonID,
		CourseID:         courseID,
		Completed:        completed,
		TimeSpentMinutes: timeSpentMinutes,
	}
}

// SummaryRecomputedEvent is emitted after a course progress summary has been
// recomputed and stored.
type SummaryRecomputedEvent struct {
	BaseEvent
	StudentID          string  `json:"student_id"`
	CourseID           string  `json:"course_id"`
	LessonsCompleted   int     `json:"lessons_completed"`
	TotalLessons       int     `json:"total_lessons"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// Payload implements Event interface.
func (e SummaryRecomputedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":          e.StudentID,
		"course_id":           e.CourseID,
		"lessons_completed":   e.LessonsCompleted,
		"total_lessons":       e.TotalLessons,
		"progress_percentage": e.ProgressPercentage,
	}
}

// NewSummaryRecomputedEvent creates a new SummaryRecomputedEvent.
func NewSummaryRecomputedEvent(studentID, courseID string, completed, total int, percentage float64) SummaryRecomputedEvent {
	return SummaryRecomputedEvent{
		BaseEvent:          NewBaseEvent(EventSummaryRecomputed, studentID),
		StudentID:          studentID,
		CourseID:           courseID,
		LessonsCompleted:   completed,
		TotalLessons:       total,
		ProgressPercentage: percentage,
	}
}

// SummaryInvalidatedEvent is emitted when stored summaries for a course are
// dropped so the next read recomputes them. StudentID is empty when the
// whole course is invalidated.
type SummaryInvalidatedEvent struct {
	BaseEvent
	StudentID string `json:"student_id,omitempty"`
	CourseID  string `json:"course_id"`
	Reason    string `json:"reason"`
}

// Payload implements Event interface.
func (e SummaryInvalidatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"course_id":  e.CourseID,
		"reason":     e.Reason,
	}
}

// NewSummaryInvalidatedEvent creates a new SummaryInvalidatedEvent.
func NewSummaryInvalidatedEvent(studentID, courseID, reason string) SummaryInvalidatedEvent {
	return SummaryInvalidatedEvent{
		BaseEvent: NewBaseEvent(EventSummaryInvalidated, courseID),
		StudentID: studentID,
		CourseID:  courseID,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// EnrollmentEvent is emitted when a student enrolls in or leaves a course.
type EnrollmentEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
}

// Payload implements Event interface.
func (e EnrollmentEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"course_id":  e.CourseID,
	}
}

// NewEnrollmentEvent creates an enrollment event of the given type.
func NewEnrollmentEvent(eventType EventType, studentID, courseID string) EnrollmentEvent {
	return EnrollmentEvent{
		BaseEvent: NewBaseEvent(eventType, studentID),
		StudentID: studentID,
		CourseID:  courseID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// SummariesRefreshedEvent is emitted by the background sweep after it has
// reconciled stale progress summaries.
type SummariesRefreshedEvent struct {
	BaseEvent
	Checked    int           `json:"checked"`
	Recomputed int           `json:"recomputed"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
}

// Payload implements Event interface.
func (e SummariesRefreshedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"checked":    e.Checked,
		"recomputed": e.Recomputed,
		"failed":     e.Failed,
		"duration":   e.Duration.String(),
	}
}

// NewSummariesRefreshedEvent creates a new SummariesRefreshedEvent.
func NewSummariesRefreshedEvent(runID string, checked, recomputed, failed int, duration time.Duration) SummariesRefreshedEvent {
	return SummariesRefreshedEvent{
		BaseEvent:  NewBaseEvent(EventSummariesRefreshed, runID),
		Checked:    checked,
		Recomputed: recomputed,
		Failed:     failed,
		Duration:   duration,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
