package progress

import (
	"context"
	"errors"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/shared"
	"github.com/edulight/edulight-backend/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATOR (Domain Service)
// Единственная точка записи сводок прогресса. Читатели получают сводки
// только отсюда: либо сохранённую, либо пересчитанную при устаревании.
// ══════════════════════════════════════════════════════════════════════════════

// AggregatorConfig содержит настройки агрегатора.
type AggregatorConfig struct {
	// MaxUpsertAttempts - сколько раз повторять пересчёт при конфликте
	// версий, прежде чем вернуть ошибку недоступности.
	MaxUpsertAttempts int

	// CacheTTL - время жизни сводки в кеше.
	CacheTTL time.Duration
}

// DefaultAggregatorConfig возвращает настройки по умолчанию.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		MaxUpsertAttempts: 3,
		CacheTTL:          5 * time.Minute,
	}
}

// Aggregator пересчитывает и выдаёт сводки прогресса по курсам.
type Aggregator struct {
	completions CompletionRepository
	summaries   SummaryRepository
	lessons     PublishedLessonCounter
	cache       SummaryCache // опционально, может быть nil
	config      AggregatorConfig

	// now подменяется в тестах.
	now func() time.Time
}

// NewAggregator создаёт агрегатор прогресса.
func NewAggregator(
	completions CompletionRepository,
	summaries SummaryRepository,
	lessons PublishedLessonCounter,
	config AggregatorConfig,
) *Aggregator {
	if config.MaxUpsertAttempts <= 0 {
		config.MaxUpsertAttempts = DefaultAggregatorConfig().MaxUpsertAttempts
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultAggregatorConfig().CacheTTL
	}

	return &Aggregator{
		completions: completions,
		summaries:   summaries,
		lessons:     lessons,
		config:      config,
		now:         time.Now,
	}
}

// WithCache подключает кеш сводок. Кеш - опциональная оптимизация:
// ошибки кеша не влияют на результат операций.
func (a *Aggregator) WithCache(cache SummaryCache) *Aggregator {
	a.cache = cache
	return a
}

// Recompute пересчитывает сводку пары (студент, курс) из источников истины
// и атомарно сохраняет её. Пересчёт идемпотентен: повторный вызов без
// изменений в данных даёт эквивалентную сводку.
//
// Сохранение защищено оптимистичной версией: при конфликте с параллельным
// пересчётом счётчики читаются заново и попытка повторяется. Побеждает
// последняя запись - обе стороны писали сводку из свежих данных.
func (a *Aggregator) Recompute(ctx context.Context, studentID, courseID string) (*CourseProgressSummary, error) {
	summary, err := retry.DoWithData(ctx,
		func(ctx context.Context) (*CourseProgressSummary, error) {
			return a.recomputeOnce(ctx, studentID, courseID)
		},
		retry.WithMaxAttempts(a.config.MaxUpsertAttempts),
		retry.WithInitialDelay(10*time.Millisecond),
		retry.WithMaxDelay(100*time.Millisecond),
		retry.WithRetryIf(func(err error) bool {
			// Повторяем только конфликт версий. Остальные ошибки
			// (недоступное хранилище, невалидные данные) всплывают сразу.
			return errors.Is(err, shared.ErrOptimisticLock)
		}),
	)
	if err != nil {
		if errors.Is(err, shared.ErrOptimisticLock) {
			return nil, shared.WrapError("progress", "Recompute", shared.ErrServiceUnavailable,
				"summary upsert retries exhausted", err)
		}
		return nil, err
	}

	a.cacheSet(ctx, summary)
	return summary, nil
}

func (a *Aggregator) recomputeOnce(ctx context.Context, studentID, courseID string) (*CourseProgressSummary, error) {
	total, err := a.lessons.CountPublished(ctx, courseID)
	if err != nil {
		return nil, shared.WrapError("progress", "Recompute", shared.ErrServiceUnavailable,
			"failed to count published lessons", err)
	}

	completed, err := a.completions.CountCompletedInCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, shared.WrapError("progress", "Recompute", shared.ErrServiceUnavailable,
			"failed to count completed lessons", err)
	}

	// Счётчик завершённых считается по опубликованным урокам, поэтому
	// не может превысить total. Если хранилище вернуло больше (гонка
	// с публикацией), конфликт версий всё равно отправит нас на новый круг.
	if completed > total {
		completed = total
	}

	summary, err := NewSummary(studentID, courseID, completed, total, a.now())
	if err != nil {
		return nil, err
	}

	current, err := a.summaries.Get(ctx, studentID, courseID)
	switch {
	case err == nil:
		summary.Version = current.Version
		summary.CreatedAt = current.CreatedAt
	case errors.Is(err, ErrSummaryNotFound) || shared.IsNotFound(err):
		summary.Version = 0
	default:
		return nil, shared.WrapError("progress", "Recompute", shared.ErrServiceUnavailable,
			"failed to read current summary", err)
	}

	if err := a.summaries.UpsertVersioned(ctx, summary); err != nil {
		return nil, err
	}

	return summary, nil
}

// GetOrCreate возвращает сводку пары (студент, курс), пересчитывая её при
// необходимости. Пересчёт запускается, если сводки ещё нет или если
// сохранённое количество уроков разошлось с живым количеством
// опубликованных уроков курса.
func (a *Aggregator) GetOrCreate(ctx context.Context, studentID, courseID string) (*CourseProgressSummary, error) {
	live, err := a.lessons.CountPublished(ctx, courseID)
	if err != nil {
		return nil, shared.WrapError("progress", "GetOrCreate", shared.ErrServiceUnavailable,
			"failed to count published lessons", err)
	}

	if summary := a.cacheGet(ctx, studentID, courseID); summary != nil && !summary.IsStale(live) {
		return summary, nil
	}

	summary, err := a.summaries.Get(ctx, studentID, courseID)
	switch {
	case err == nil:
		if !summary.IsStale(live) {
			a.cacheSet(ctx, summary)
			return summary, nil
		}
	case errors.Is(err, ErrSummaryNotFound) || shared.IsNotFound(err):
		// Сводки ещё нет - штатный случай, считаем первый раз.
	default:
		return nil, shared.WrapError("progress", "GetOrCreate", shared.ErrServiceUnavailable,
			"failed to read summary", err)
	}

	return a.Recompute(ctx, studentID, courseID)
}

// Invalidate отбрасывает сохранённую сводку пары (студент, курс).
// Следующее чтение пересчитает её заново. Отсутствие сводки - не ошибка.
func (a *Aggregator) Invalidate(ctx context.Context, studentID, courseID string) error {
	if a.cache != nil {
		_ = a.cache.Delete(ctx, studentID, courseID)
	}
	return a.summaries.Delete(ctx, studentID, courseID)
}

// InvalidateCourse отбрасывает сводки всех студентов курса. Вызывается
// при изменении состава опубликованных уроков. Возвращает количество
// удалённых сводок.
func (a *Aggregator) InvalidateCourse(ctx context.Context, courseID string) (int, error) {
	if a.cache != nil {
		_ = a.cache.DeleteByCourse(ctx, courseID)
	}
	return a.summaries.DeleteByCourse(ctx, courseID)
}

// LivePublishedCount возвращает живое количество опубликованных уроков
// курса. Используется читателями для деградации, когда сводка недоступна.
func (a *Aggregator) LivePublishedCount(ctx context.Context, courseID string) (int, error) {
	return a.lessons.CountPublished(ctx, courseID)
}

func (a *Aggregator) cacheGet(ctx context.Context, studentID, courseID string) *CourseProgressSummary {
	if a.cache == nil {
		return nil
	}
	summary, err := a.cache.Get(ctx, studentID, courseID)
	if err != nil {
		return nil
	}
	return summary
}

func (a *Aggregator) cacheSet(ctx context.Context, summary *CourseProgressSummary) {
	if a.cache == nil || summary == nil {
		return
	}
	_ = a.cache.Set(ctx, summary, a.config.CacheTTL)
}
