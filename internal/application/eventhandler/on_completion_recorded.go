package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON COMPLETION RECORDED HANDLER
// Обрабатывает отметку урока выполненным (или её откат).
//
// Запись в журнале выполнений сама по себе сводку не пересчитывает.
// У обработчика два режима:
//
// 1. Ленивый (по умолчанию): сбрасываем сводку пары (студент, курс).
//    Следующее чтение дашборда пересчитает её одним запросом.
// 2. Жадный (EagerRecompute): пересчитываем сводку прямо сейчас.
//    Дороже на запись, но дашборд всегда тёплый. Включается флагом
//    для инсталляций, где чтений на порядки больше, чем записей.
// ═══════════════════════════════════════════════════════════════════════════

// CompletionRecordedConfig содержит конфигурацию обработчика.
type CompletionRecordedConfig struct {
	// EagerRecompute - пересчитывать сводку сразу после отметки,
	// а не откладывать до следующего чтения.
	EagerRecompute bool
}

// DefaultCompletionRecordedConfig возвращает конфигурацию по умолчанию.
func DefaultCompletionRecordedConfig() CompletionRecordedConfig {
	return CompletionRecordedConfig{
		EagerRecompute: false,
	}
}

// OnCompletionRecordedHandler поддерживает сводки в согласии с журналом выполнений.
type OnCompletionRecordedHandler struct {
	aggregator *progress.Aggregator
	bus        shared.EventPublisher
	logger     *slog.Logger
	config     CompletionRecordedConfig
}

// NewOnCompletionRecordedHandler создаёт новый обработчик.
func NewOnCompletionRecordedHandler(
	aggregator *progress.Aggregator,
	bus shared.EventPublisher,
	logger *slog.Logger,
	config CompletionRecordedConfig,
) *OnCompletionRecordedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnCompletionRecordedHandler{
		aggregator: aggregator,
		bus:        bus,
		logger:     logger.With("handler", "on_completion_recorded"),
		config:     config,
	}
}

// Handle обрабатывает событие отметки урока.
// Сигнатура совместима с shared.EventHandler.
func (h *OnCompletionRecordedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	completionEvent, ok := event.(shared.LessonCompletionEvent)
	if !ok {
		h.logger.Warn("received non-LessonCompletionEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing completion event",
		"student_id", completionEvent.StudentID,
		"lesson_id", completionEvent.LessonID,
		"course_id", completionEvent.CourseID,
		"completed", completionEvent.Completed,
	)

	if h.config.EagerRecompute {
		return h.recompute(ctx, completionEvent)
	}

	return h.invalidate(ctx, completionEvent)
}

// invalidate сбрасывает сводку пары (студент, курс).
func (h *OnCompletionRecordedHandler) invalidate(
	ctx context.Context,
	event shared.LessonCompletionEvent,
) error {
	if err := h.aggregator.Invalidate(ctx, event.StudentID, event.CourseID); err != nil {
		h.logger.Error("failed to invalidate summary",
			"student_id", event.StudentID,
			"course_id", event.CourseID,
			"error", err,
		)
		return fmt.Errorf("invalidate summary: %w", err)
	}

	if h.bus != nil {
		invalidated := shared.NewSummaryInvalidatedEvent(
			event.StudentID,
			event.CourseID,
			string(event.EventType()),
		)
		if err := h.bus.Publish(invalidated); err != nil {
			h.logger.Warn("failed to publish invalidation event",
				"student_id", event.StudentID,
				"course_id", event.CourseID,
				"error", err,
			)
		}
	}

	return nil
}

// recompute пересчитывает сводку немедленно.
// Гонку версий агрегатор разруливает сам, сюда долетает только
// исчерпание попыток.
func (h *OnCompletionRecordedHandler) recompute(
	ctx context.Context,
	event shared.LessonCompletionEvent,
) error {
	summary, err := h.aggregator.Recompute(ctx, event.StudentID, event.CourseID)
	if err != nil {
		h.logger.Error("failed to recompute summary",
			"student_id", event.StudentID,
			"course_id", event.CourseID,
			"error", err,
		)
		return fmt.Errorf("recompute summary: %w", err)
	}

	h.logger.Info("summary recomputed",
		"student_id", event.StudentID,
		"course_id", event.CourseID,
		"lessons_completed", summary.LessonsCompleted,
		"total_lessons", summary.TotalLessons,
	)

	if h.bus != nil {
		recomputed := shared.NewSummaryRecomputedEvent(
			summary.StudentID,
			summary.CourseID,
			summary.LessonsCompleted,
			summary.TotalLessons,
			summary.ProgressPercentage,
		)
		if err := h.bus.Publish(recomputed); err != nil {
			h.logger.Warn("failed to publish recompute event",
				"student_id", event.StudentID,
				"course_id", event.CourseID,
				"error", err,
			)
		}
	}

	return nil
}

// Register подписывает обработчик на события отметок.
func (h *OnCompletionRecordedHandler) Register(bus shared.EventSubscriber) error {
	for _, eventType := range []shared.EventType{
		shared.EventLessonCompleted,
		shared.EventLessonUncompleted,
	} {
		if err := bus.Subscribe(eventType, h.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
	}
	return nil
}
