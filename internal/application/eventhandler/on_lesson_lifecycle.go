// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LESSON LIFECYCLE HANDLER
// Обрабатывает публикацию, снятие с публикации и удаление урока.
//
// Любое из этих событий меняет знаменатель прогресса - множество
// опубликованных уроков курса. Сохранённые сводки по курсу после этого
// врут, поэтому мы их сбрасываем: следующее чтение пересчитает прогресс
// по актуальному составу курса.
//
// Сброс вместо пересчёта - осознанный выбор. Публикация урока трогает
// сводки всех студентов курса сразу, пересчитывать их синхронно в
// обработчике события дорого и не нужно.
// ═══════════════════════════════════════════════════════════════════════════

// OnLessonLifecycleHandler сбрасывает сводки курса при изменении состава уроков.
type OnLessonLifecycleHandler struct {
	aggregator *progress.Aggregator
	bus        shared.EventPublisher
	logger     *slog.Logger
}

// NewOnLessonLifecycleHandler создаёт новый обработчик.
func NewOnLessonLifecycleHandler(
	aggregator *progress.Aggregator,
	bus shared.EventPublisher,
	logger *slog.Logger,
) *OnLessonLifecycleHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnLessonLifecycleHandler{
		aggregator: aggregator,
		bus:        bus,
		logger:     logger.With("handler", "on_lesson_lifecycle"),
	}
}

// Handle обрабатывает событие жизненного цикла урока.
// Сигнатура совместима с shared.EventHandler.
func (h *OnLessonLifecycleHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	lifecycleEvent, ok := event.(shared.LessonLifecycleEvent)
	if !ok {
		h.logger.Warn("received non-LessonLifecycleEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	// Создание урока прогресс не трогает: новый урок рождается черновиком
	if event.EventType() == shared.EventLessonCreated {
		return nil
	}

	h.logger.Info("processing lesson lifecycle event",
		"event_type", lifecycleEvent.EventType(),
		"lesson_id", lifecycleEvent.LessonID,
		"course_id", lifecycleEvent.CourseID,
	)

	dropped, err := h.aggregator.InvalidateCourse(ctx, lifecycleEvent.CourseID)
	if err != nil {
		h.logger.Error("failed to invalidate course summaries",
			"course_id", lifecycleEvent.CourseID,
			"error", err,
		)
		return fmt.Errorf("invalidate course summaries: %w", err)
	}

	h.logger.Info("course summaries invalidated",
		"course_id", lifecycleEvent.CourseID,
		"summaries_dropped", dropped,
	)

	// Уведомляем остальных подписчиков (проекции, кэши)
	if h.bus != nil && dropped > 0 {
		invalidated := shared.NewSummaryInvalidatedEvent(
			"",
			lifecycleEvent.CourseID,
			string(lifecycleEvent.EventType()),
		)
		if err := h.bus.Publish(invalidated); err != nil {
			h.logger.Warn("failed to publish invalidation event",
				"course_id", lifecycleEvent.CourseID,
				"error", err,
			)
		}
	}

	return nil
}

// Register подписывает обработчик на все события, меняющие состав курса.
func (h *OnLessonLifecycleHandler) Register(bus shared.EventSubscriber) error {
	for _, eventType := range []shared.EventType{
		shared.EventLessonPublished,
		shared.EventLessonUnpublished,
		shared.EventLessonDeleted,
	} {
		if err := bus.Subscribe(eventType, h.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
	}
	return nil
}
