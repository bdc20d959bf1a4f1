// Package progress содержит доменную модель прохождения курсов: записи о
// завершении уроков и производные сводки прогресса по курсам.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNegativeTimeSpent - отрицательное время изучения.
	ErrNegativeTimeSpent = errors.New("time spent must be non-negative")

	// ErrInvalidCounts - счётчики сводки противоречат друг другу.
	ErrInvalidCounts = errors.New("lessons completed cannot exceed total lessons")

	// ErrCompletionNotFound - запись о прохождении не найдена.
	ErrCompletionNotFound = errors.New("completion record not found")

	// ErrSummaryNotFound - сводка прогресса не найдена.
	ErrSummaryNotFound = errors.New("progress summary not found")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: COMPLETION RECORD
// ══════════════════════════════════════════════════════════════════════════════

// CompletionRecord - факт прохождения урока студентом.
// На пару (студент, урок) существует не более одной записи; уникальность
// обеспечивается атомарным upsert в хранилище. Записи никогда не удаляются
// неявно - снятие урока с публикации или его удаление их не трогает.
type CompletionRecord struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// StudentID - студент.
	StudentID string

	// LessonID - урок.
	LessonID string

	// Completed - завершён ли урок.
	Completed bool

	// CompletedAt - момент завершения. Заполнен тогда и только тогда,
	// когда Completed == true.
	CompletedAt *time.Time

	// TimeSpentMinutes - накопленное время изучения урока в минутах.
	// Только растёт, при отмене завершения не сбрасывается.
	TimeSpentMinutes int

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewCompletionRecordParams содержит параметры для создания записи.
type NewCompletionRecordParams struct {
	ID        string
	StudentID string
	LessonID  string
}

// NewCompletionRecord создаёт новую запись о прохождении урока.
func NewCompletionRecord(params NewCompletionRecordParams) (*CompletionRecord, error) {
	if params.ID == "" {
		return nil, errors.New("completion record id is required")
	}
	if params.StudentID == "" {
		return nil, errors.New("student id is required")
	}
	if params.LessonID == "" {
		return nil, errors.New("lesson id is required")
	}

	now := time.Now().UTC()

	return &CompletionRecord{
		ID:        params.ID,
		StudentID: params.StudentID,
		LessonID:  params.LessonID,
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Apply применяет изменение состояния завершения и накапливает время.
// Правила для CompletedAt:
//   - переход в "завершён" при пустом CompletedAt фиксирует момент now;
//   - повторное "завершён" не меняет CompletedAt (идемпотентность);
//   - переход в "не завершён" очищает CompletedAt;
//   - следующее "завершён" после отмены фиксирует новый момент.
func (r *CompletionRecord) Apply(completed bool, addMinutes int, now time.Time) error {
	if addMinutes < 0 {
		return ErrNegativeTimeSpent
	}

	switch {
	case completed && r.CompletedAt == nil:
		at := now.UTC()
		r.CompletedAt = &at
	case !completed:
		r.CompletedAt = nil
	}

	r.Completed = completed
	r.TimeSpentMinutes += addMinutes
	r.UpdatedAt = now.UTC()
	return nil
}

// String возвращает строковое представление записи для логирования.
func (r *CompletionRecord) String() string {
	return fmt.Sprintf(
		"CompletionRecord{Student: %s, Lesson: %s, Completed: %t, TimeSpent: %dm}",
		r.StudentID, r.LessonID, r.Completed, r.TimeSpentMinutes,
	)
}

// Clone создаёт копию записи.
func (r *CompletionRecord) Clone() *CompletionRecord {
	if r == nil {
		return nil
	}

	clone := *r
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		clone.CompletedAt = &at
	}
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: COURSE PROGRESS SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// CourseProgressSummary - производная сводка прогресса студента по курсу.
// Источником истины остаются записи о прохождении и каталог уроков;
// сводка пересчитывается из них и может быть в любой момент отброшена.
type CourseProgressSummary struct {
	// StudentID - студент.
	StudentID string

	// CourseID - курс.
	CourseID string

	// LessonsCompleted - количество завершённых опубликованных уроков.
	LessonsCompleted int

	// TotalLessons - количество опубликованных уроков на момент пересчёта.
	// Расхождение с "живым" количеством означает, что сводка устарела.
	TotalLessons int

	// ProgressPercentage - процент прохождения в диапазоне [0, 100].
	// Хранится с полной точностью, округление делается при отдаче.
	ProgressPercentage float64

	// LastRecomputed - момент последнего пересчёта.
	LastRecomputed time.Time

	// Version - версия записи для оптимистичной блокировки.
	// Ноль означает, что сводка ещё не сохранялась.
	Version int64

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewSummary создаёт сводку из свежих счётчиков.
func NewSummary(studentID, courseID string, completed, total int, now time.Time) (*CourseProgressSummary, error) {
	if studentID == "" {
		return nil, errors.New("student id is required")
	}
	if courseID == "" {
		return nil, errors.New("course id is required")
	}
	if completed < 0 || total < 0 {
		return nil, shared.ErrNegativeValue
	}
	if completed > total {
		return nil, ErrInvalidCounts
	}

	ts := now.UTC()

	return &CourseProgressSummary{
		StudentID:          studentID,
		CourseID:           courseID,
		LessonsCompleted:   completed,
		TotalLessons:       total,
		ProgressPercentage: shared.PercentageOf(completed, total).Float64(),
		LastRecomputed:     ts,
		CreatedAt:          ts,
		UpdatedAt:          ts,
	}, nil
}

// ZeroSummary возвращает нулевую сводку с указанным общим количеством
// уроков. Используется как деградация, когда пересчёт недоступен.
func ZeroSummary(studentID, courseID string, total int) *CourseProgressSummary {
	if total < 0 {
		total = 0
	}
	return &CourseProgressSummary{
		StudentID:    studentID,
		CourseID:     courseID,
		TotalLessons: total,
	}
}

// IsStale проверяет сводку на устаревание относительно живого количества
// опубликованных уроков курса.
func (s *CourseProgressSummary) IsStale(livePublished int) bool {
	return s.TotalLessons != livePublished
}

// IsConsistent проверяет внутренний инвариант сводки:
// процент соответствует счётчикам и лежит в [0, 100].
func (s *CourseProgressSummary) IsConsistent() bool {
	if s.LessonsCompleted < 0 || s.TotalLessons < 0 || s.LessonsCompleted > s.TotalLessons {
		return false
	}
	if s.ProgressPercentage < 0 || s.ProgressPercentage > 100 {
		return false
	}
	expected := shared.PercentageOf(s.LessonsCompleted, s.TotalLessons).Float64()
	return s.ProgressPercentage == expected
}

// Percentage возвращает процент как value object.
func (s *CourseProgressSummary) Percentage() shared.Percentage {
	return shared.Percentage(s.ProgressPercentage)
}

// String возвращает строковое представление сводки для логирования.
func (s *CourseProgressSummary) String() string {
	return fmt.Sprintf(
		"CourseProgressSummary{Student: %s, Course: %s, %d/%d (%.1f%%), v%d}",
		s.StudentID, s.CourseID, s.LessonsCompleted, s.TotalLessons, s.ProgressPercentage, s.Version,
	)
}

// Clone создаёт копию сводки.
func (s *CourseProgressSummary) Clone() *CourseProgressSummary {
	if s == nil {
		return nil
	}

	clone := *s
	return &clone
}
