package progress

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// CompletionChange описывает изменение записи о прохождении урока.
type CompletionChange struct {
	// StudentID - студент.
	StudentID string

	// LessonID - урок.
	LessonID string

	// Completed - новое состояние завершения.
	Completed bool

	// AddMinutes - сколько минут изучения добавить к накопленному времени.
	AddMinutes int
}

// CompletionRepository определяет операции для записей о прохождении.
type CompletionRepository interface {
	// Upsert атомарно создаёт или обновляет запись для пары
	// (студент, урок) по правилам CompletionRecord.Apply. Одна SQL-команда,
	// без предварительного чтения: гонки параллельных вызовов разрешает
	// само хранилище. Возвращает запись после применения изменения.
	Upsert(ctx context.Context, change CompletionChange) (*CompletionRecord, error)

	// Get возвращает запись для пары (студент, урок).
	// Возвращает ErrCompletionNotFound, если записи нет.
	Get(ctx context.Context, studentID, lessonID string) (*CompletionRecord, error)

	// GetByStudentAndCourse возвращает записи студента по урокам курса
	// в каноническом порядке уроков.
	GetByStudentAndCourse(ctx context.Context, studentID, courseID string) ([]*CompletionRecord, error)

	// CountCompletedInCourse возвращает количество завершённых студентом
	// опубликованных уроков курса. Записи по черновикам и удалённым
	// урокам не учитываются.
	CountCompletedInCourse(ctx context.Context, studentID, courseID string) (int, error)

	// CountCompletedByLesson возвращает, сколько студентов завершили урок.
	CountCompletedByLesson(ctx context.Context, lessonID string) (int, error)

	// TotalTimeSpentInCourse возвращает суммарное время студента по
	// урокам курса в минутах.
	TotalTimeSpentInCourse(ctx context.Context, studentID, courseID string) (int, error)
}

// SummaryRepository определяет операции для сводок прогресса.
type SummaryRepository interface {
	// Get возвращает сводку для пары (студент, курс).
	// Возвращает ErrSummaryNotFound, если сводки нет. Отсутствие сводки -
	// штатная ситуация "ещё не считали", а не ошибка данных.
	Get(ctx context.Context, studentID, courseID string) (*CourseProgressSummary, error)

	// UpsertVersioned атомарно сохраняет сводку с проверкой версии:
	// запись обновляется, только если её текущая версия в хранилище равна
	// summary.Version. При расхождении возвращает shared.ErrSummaryConflict.
	// При успехе инкрементирует summary.Version.
	UpsertVersioned(ctx context.Context, summary *CourseProgressSummary) error

	// Delete удаляет сводку пары (студент, курс).
	// Отсутствие сводки не считается ошибкой.
	Delete(ctx context.Context, studentID, courseID string) error

	// DeleteByCourse удаляет сводки всех студентов курса.
	// Возвращает количество удалённых записей.
	DeleteByCourse(ctx context.Context, courseID string) (int, error)

	// GetByStudent возвращает все сводки студента.
	GetByStudent(ctx context.Context, studentID string) ([]*CourseProgressSummary, error)

	// GetByCourse возвращает сводки всех студентов курса.
	GetByCourse(ctx context.Context, courseID string) ([]*CourseProgressSummary, error)

	// FindStale возвращает сводки, у которых сохранённое количество
	// уроков разошлось с живым количеством опубликованных уроков курса.
	FindStale(ctx context.Context, limit int) ([]*CourseProgressSummary, error)
}

// SummaryCache определяет кеш сводок перед основным хранилищем.
// Кеш - оптимизация: его недоступность не должна ломать чтение.
type SummaryCache interface {
	// Get получает сводку из кеша.
	Get(ctx context.Context, studentID, courseID string) (*CourseProgressSummary, error)

	// Set сохраняет сводку в кеш.
	Set(ctx context.Context, summary *CourseProgressSummary, ttl time.Duration) error

	// Delete удаляет сводку пары (студент, курс) из кеша.
	Delete(ctx context.Context, studentID, courseID string) error

	// DeleteByCourse удаляет из кеша сводки всех студентов курса.
	DeleteByCourse(ctx context.Context, courseID string) error
}

// PublishedLessonCounter отдаёт живое количество опубликованных уроков
// курса. Реализуется каталогом; выделен отдельным интерфейсом, чтобы
// агрегатор не зависел от всего репозитория уроков.
type PublishedLessonCounter interface {
	CountPublished(ctx context.Context, courseID string) (int, error)
}
