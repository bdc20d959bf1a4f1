package catalog

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository определяет операции CRUD для курсов.
type CourseRepository interface {
	// Create создаёт новый курс.
	// Возвращает ErrCourseAlreadyExists, если курс уже существует.
	Create(ctx context.Context, course *Course) error

	// GetByID возвращает курс по ID.
	// Возвращает ErrCourseNotFound, если курс не найден.
	GetByID(ctx context.Context, id string) (*Course, error)

	// Update обновляет данные курса.
	// Возвращает ErrCourseNotFound, если курс не найден.
	Update(ctx context.Context, course *Course) error

	// Delete удаляет курс вместе с его уроками.
	// Возвращает ErrCourseNotFound, если курс не найден.
	Delete(ctx context.Context, id string) error

	// GetAll возвращает все курсы с пагинацией.
	GetAll(ctx context.Context, opts ListOptions) ([]*Course, error)

	// GetByInstructor возвращает курсы преподавателя.
	GetByInstructor(ctx context.Context, instructorID string, opts ListOptions) ([]*Course, error)

	// GetByIDs возвращает курсы по списку ID.
	GetByIDs(ctx context.Context, ids []string) ([]*Course, error)

	// Count возвращает общее количество курсов.
	Count(ctx context.Context) (int, error)

	// Exists проверяет существование курса по ID.
	Exists(ctx context.Context, id string) (bool, error)
}

// LessonRepository определяет операции для уроков.
// Методы, работающие только с опубликованными уроками, вынесены отдельно:
// именно по ним считается прогресс студентов.
type LessonRepository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// CRUD Operations
	// ─────────────────────────────────────────────────────────────────────────

	// Create создаёт новый урок.
	Create(ctx context.Context, lesson *Lesson) error

	// GetByID возвращает урок по ID.
	// Возвращает ErrLessonNotFound, если урок не найден.
	GetByID(ctx context.Context, id string) (*Lesson, error)

	// Update обновляет урок.
	// Возвращает ErrLessonNotFound, если урок не найден.
	Update(ctx context.Context, lesson *Lesson) error

	// Delete удаляет урок.
	// Записи о прохождении урока при этом не трогаются.
	Delete(ctx context.Context, id string) error

	// ─────────────────────────────────────────────────────────────────────────
	// Course Scope
	// ─────────────────────────────────────────────────────────────────────────

	// GetByCourse возвращает все уроки курса в каноническом порядке
	// (позиция, затем время создания), включая черновики.
	GetByCourse(ctx context.Context, courseID string) ([]*Lesson, error)

	// GetPublishedByCourse возвращает опубликованные уроки курса
	// в каноническом порядке.
	GetPublishedByCourse(ctx context.Context, courseID string) ([]*Lesson, error)

	// PublishedRefsByCourse возвращает лёгкие ссылки на опубликованные
	// уроки курса, без содержимого.
	PublishedRefsByCourse(ctx context.Context, courseID string) ([]LessonRef, error)

	// CountByCourse возвращает количество уроков курса с разбивкой по статусу.
	CountByCourse(ctx context.Context, courseID string) (published, draft int, err error)

	// CountPublished возвращает количество опубликованных уроков курса.
	// Это "живое" значение, с которым сравнивается сохранённый итог
	// в сводке прогресса.
	CountPublished(ctx context.Context, courseID string) (int, error)
}

// ListOptions содержит параметры для пагинации и сортировки.
type ListOptions struct {
	// Offset - смещение (для пагинации).
	Offset int

	// Limit - максимальное количество записей.
	Limit int

	// SortBy - поле для сортировки.
	SortBy string

	// SortDesc - сортировка по убыванию.
	SortDesc bool
}

// DefaultListOptions возвращает параметры по умолчанию.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset:   0,
		Limit:    50,
		SortBy:   "created_at",
		SortDesc: false,
	}
}

// WithOffset устанавливает смещение.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithLimit устанавливает лимит.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}

// WithSort устанавливает сортировку.
func (o ListOptions) WithSort(field string, desc bool) ListOptions {
	o.SortBy = field
	o.SortDesc = desc
	return o
}
