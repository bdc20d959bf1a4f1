package eventhandler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON SUMMARY CHANGED HANDLER
// Поддерживает in-memory проекцию прогресса по курсам.
//
// Проекция - не источник истины. После пересчёта сводки кладём свежие
// цифры в проекцию, после сброса - выкидываем устаревшую запись, чтобы
// обзор курса не показывал заведомо неверный процент. Любая ошибка
// проекции не критична: следующий Rebuild из Postgres её вылечит.
// ═══════════════════════════════════════════════════════════════════════════

// ProgressViewUpdater - то, что умеет делать проекция прогресса.
// Интерфейс объявлен здесь, чтобы application-слой не зависел от
// конкретной реализации из infrastructure.
type ProgressViewUpdater interface {
	// Upsert вставляет или заменяет сводку.
	Upsert(summary *progress.CourseProgressSummary) error

	// Remove выкидывает сводку пары (студент, курс).
	Remove(studentID, courseID string)

	// RemoveCourse выкидывает сводки всех студентов курса.
	RemoveCourse(courseID string)
}

// OnSummaryChangedHandler переносит изменения сводок в проекцию.
type OnSummaryChangedHandler struct {
	view   ProgressViewUpdater
	logger *slog.Logger
}

// NewOnSummaryChangedHandler создаёт новый обработчик.
func NewOnSummaryChangedHandler(view ProgressViewUpdater, logger *slog.Logger) *OnSummaryChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnSummaryChangedHandler{
		view:   view,
		logger: logger.With("handler", "on_summary_changed"),
	}
}

// Handle обрабатывает событие изменения сводки.
// Сигнатура совместима с shared.EventHandler.
func (h *OnSummaryChangedHandler) Handle(event shared.Event) error {
	switch e := event.(type) {
	case shared.SummaryRecomputedEvent:
		return h.applyRecomputed(e)
	case shared.SummaryInvalidatedEvent:
		h.applyInvalidated(e)
		return nil
	default:
		h.logger.Warn("received unexpected event",
			"event_type", event.EventType(),
		)
		return nil
	}
}

// applyRecomputed кладёт свежую сводку в проекцию.
func (h *OnSummaryChangedHandler) applyRecomputed(event shared.SummaryRecomputedEvent) error {
	summary := &progress.CourseProgressSummary{
		StudentID:          event.StudentID,
		CourseID:           event.CourseID,
		LessonsCompleted:   event.LessonsCompleted,
		TotalLessons:       event.TotalLessons,
		ProgressPercentage: event.ProgressPercentage,
		LastRecomputed:     event.OccurredAt(),
		UpdatedAt:          time.Now().UTC(),
	}

	if err := h.view.Upsert(summary); err != nil {
		h.logger.Warn("failed to update progress view",
			"student_id", event.StudentID,
			"course_id", event.CourseID,
			"error", err,
		)
	}

	return nil
}

// applyInvalidated выкидывает устаревшие записи.
// Пустой StudentID означает сброс всего курса.
func (h *OnSummaryChangedHandler) applyInvalidated(event shared.SummaryInvalidatedEvent) {
	if event.StudentID == "" {
		h.view.RemoveCourse(event.CourseID)
		return
	}
	h.view.Remove(event.StudentID, event.CourseID)
}

// Register подписывает обработчик на события сводок.
func (h *OnSummaryChangedHandler) Register(bus shared.EventSubscriber) error {
	for _, eventType := range []shared.EventType{
		shared.EventSummaryRecomputed,
		shared.EventSummaryInvalidated,
	} {
		if err := bus.Subscribe(eventType, h.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
	}
	return nil
}
