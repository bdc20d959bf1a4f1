// Package catalog содержит доменную модель учебного каталога: курсы и уроки.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// LessonStatus определяет состояние публикации урока.
type LessonStatus string

const (
	// LessonStatusDraft - урок в черновике, студентам не виден.
	LessonStatusDraft LessonStatus = "draft"
	// LessonStatusPublished - урок опубликован и доступен студентам.
	LessonStatusPublished LessonStatus = "published"
)

// IsValid проверяет, что статус корректен.
func (s LessonStatus) IsValid() bool {
	switch s {
	case LessonStatusDraft, LessonStatusPublished:
		return true
	default:
		return false
	}
}

// CountsTowardsProgress возвращает true, если уроки в этом статусе
// учитываются при подсчёте прогресса по курсу.
func (s LessonStatus) CountsTowardsProgress() bool {
	return s == LessonStatusPublished
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyTitle - пустое название.
	ErrEmptyTitle = errors.New("title is required")

	// ErrTitleTooLong - название превышает допустимую длину.
	ErrTitleTooLong = errors.New("title must be at most 200 chars")

	// ErrInvalidStatus - невалидный статус урока.
	ErrInvalidStatus = errors.New("invalid lesson status")

	// ErrNegativePosition - отрицательная позиция урока.
	ErrNegativePosition = errors.New("lesson position must be non-negative")

	// ErrNegativeDuration - отрицательная длительность урока.
	ErrNegativeDuration = errors.New("lesson duration must be non-negative")

	// ErrAlreadyPublished - урок уже опубликован.
	ErrAlreadyPublished = errors.New("lesson is already published")

	// ErrAlreadyDraft - урок уже в черновике.
	ErrAlreadyDraft = errors.New("lesson is already a draft")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course - курс, контейнер для уроков.
type Course struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// Title - название курса.
	Title string

	// Description - описание курса.
	Description string

	// InstructorID - идентификатор преподавателя, создавшего курс.
	InstructorID string

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewCourseParams содержит параметры для создания нового курса.
type NewCourseParams struct {
	ID           string
	Title        string
	Description  string
	InstructorID string
}

// NewCourse создаёт новый курс с валидацией всех полей.
func NewCourse(params NewCourseParams) (*Course, error) {
	if params.ID == "" {
		return nil, errors.New("course id is required")
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len(title) > 200 {
		return nil, ErrTitleTooLong
	}

	if params.InstructorID == "" {
		return nil, errors.New("instructor id is required")
	}

	now := time.Now().UTC()

	return &Course{
		ID:           params.ID,
		Title:        title,
		Description:  strings.TrimSpace(params.Description),
		InstructorID: params.InstructorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Rename обновляет название и описание курса.
func (c *Course) Rename(title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len(title) > 200 {
		return ErrTitleTooLong
	}

	c.Title = title
	c.Description = strings.TrimSpace(description)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// String возвращает строковое представление курса для логирования.
func (c *Course) String() string {
	return fmt.Sprintf("Course{ID: %s, Title: %q}", c.ID, c.Title)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: LESSON
// ══════════════════════════════════════════════════════════════════════════════

// Lesson - урок внутри курса. Прогресс студентов считается только по
// опубликованным урокам.
type Lesson struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// CourseID - курс, которому принадлежит урок.
	CourseID string

	// Title - название урока.
	Title string

	// Content - текстовое содержимое урока.
	Content string

	// Status - состояние публикации.
	Status LessonStatus

	// Position - порядковый номер урока внутри курса.
	// Уроки с одинаковой позицией упорядочиваются по времени создания.
	Position int

	// DurationMinutes - ожидаемая длительность урока в минутах.
	DurationMinutes int

	// VideoURL - ссылка на видеоматериал (опционально).
	VideoURL string

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewLessonParams содержит параметры для создания нового урока.
type NewLessonParams struct {
	ID              string
	CourseID        string
	Title           string
	Content         string
	Position        int
	DurationMinutes int
	VideoURL        string
}

// NewLesson создаёт новый урок в статусе черновика.
func NewLesson(params NewLessonParams) (*Lesson, error) {
	if params.ID == "" {
		return nil, errors.New("lesson id is required")
	}
	if params.CourseID == "" {
		return nil, errors.New("course id is required")
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len(title) > 200 {
		return nil, ErrTitleTooLong
	}

	if params.Position < 0 {
		return nil, ErrNegativePosition
	}
	if params.DurationMinutes < 0 {
		return nil, ErrNegativeDuration
	}

	now := time.Now().UTC()

	return &Lesson{
		ID:              params.ID,
		CourseID:        params.CourseID,
		Title:           title,
		Content:         params.Content,
		Status:          LessonStatusDraft,
		Position:        params.Position,
		DurationMinutes: params.DurationMinutes,
		VideoURL:        strings.TrimSpace(params.VideoURL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// IsPublished возвращает true, если урок опубликован.
func (l *Lesson) IsPublished() bool {
	return l.Status == LessonStatusPublished
}

// Publish публикует урок. Возвращает ошибку, если урок уже опубликован.
func (l *Lesson) Publish() error {
	if l.Status == LessonStatusPublished {
		return ErrAlreadyPublished
	}

	l.Status = LessonStatusPublished
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// Unpublish возвращает урок в черновик. Записи о прохождении урока при
// этом сохраняются - они просто перестают учитываться в прогрессе.
func (l *Lesson) Unpublish() error {
	if l.Status == LessonStatusDraft {
		return ErrAlreadyDraft
	}

	l.Status = LessonStatusDraft
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateContent обновляет название, содержимое и атрибуты урока.
func (l *Lesson) UpdateContent(title, content string, position, durationMinutes int, videoURL string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len(title) > 200 {
		return ErrTitleTooLong
	}
	if position < 0 {
		return ErrNegativePosition
	}
	if durationMinutes < 0 {
		return ErrNegativeDuration
	}

	l.Title = title
	l.Content = content
	l.Position = position
	l.DurationMinutes = durationMinutes
	l.VideoURL = strings.TrimSpace(videoURL)
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// String возвращает строковое представление урока для логирования.
func (l *Lesson) String() string {
	return fmt.Sprintf(
		"Lesson{ID: %s, Course: %s, Title: %q, Status: %s}",
		l.ID, l.CourseID, l.Title, l.Status,
	)
}

// Clone создаёт копию урока.
func (l *Lesson) Clone() *Lesson {
	if l == nil {
		return nil
	}

	clone := *l
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON REF
// ══════════════════════════════════════════════════════════════════════════════

// LessonRef - лёгкая ссылка на урок для списков и подсчётов,
// без содержимого.
type LessonRef struct {
	ID       string
	CourseID string
	Title    string
	Status   LessonStatus
	Position int
}

// SortLessons упорядочивает уроки по позиции, затем по времени создания.
// Это канонический порядок отображения уроков курса.
func SortLessons(lessons []*Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		if lessons[i].Position != lessons[j].Position {
			return lessons[i].Position < lessons[j].Position
		}
		return lessons[i].CreatedAt.Before(lessons[j].CreatedAt)
	})
}
