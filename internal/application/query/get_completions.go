package query

import (
	"context"
	"errors"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/catalog"
	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"
	"github.com/edulight/edulight-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COMPLETIONS QUERY
// Журнал прохождения курса одним студентом: по каждому опубликованному
// уроку - завершён ли он, когда и сколько времени на него ушло.
// Дашборд показывает проценты, этот запрос показывает из чего они состоят.
// ══════════════════════════════════════════════════════════════════════════════

// GetCompletionsQuery содержит параметры запроса журнала прохождения.
type GetCompletionsQuery struct {
	// StudentID - ID студента.
	StudentID string

	// CourseID - ID курса.
	CourseID string
}

// Validate проверяет корректность параметров.
func (q *GetCompletionsQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	if q.CourseID == "" {
		return errors.New("course_id is required")
	}
	return nil
}

// LessonCompletionDTO - одна строка журнала: урок и его состояние.
type LessonCompletionDTO struct {
	// LessonID - ID урока.
	LessonID string `json:"lesson_id"`

	// Title - название урока.
	Title string `json:"title"`

	// Position - позиция урока в курсе.
	Position int `json:"position"`

	// Completed - завершён ли урок.
	Completed bool `json:"completed"`

	// CompletedAt - момент завершения, если урок завершён.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// TimeSpentMinutes - накопленное время изучения в минутах.
	TimeSpentMinutes int `json:"time_spent_minutes"`

	// TimeSpent - то же, но человеко-читаемо ("1h25m").
	TimeSpent string `json:"time_spent,omitempty"`
}

// GetCompletionsResult содержит результат запроса.
type GetCompletionsResult struct {
	// StudentID - ID студента.
	StudentID string `json:"student_id"`

	// CourseID - ID курса.
	CourseID string `json:"course_id"`

	// Lessons - строки журнала в каноническом порядке уроков курса.
	// Уроки без записи в журнале присутствуют как незавершённые.
	Lessons []LessonCompletionDTO `json:"lessons"`

	// CompletedLessons - завершено уроков.
	CompletedLessons int `json:"completed_lessons"`

	// TotalTimeSpentMinutes - суммарное время по курсу в минутах,
	// включая время по урокам, снятым с публикации.
	TotalTimeSpentMinutes int `json:"total_time_spent_minutes"`

	// TotalTimeSpent - то же, но человеко-читаемо.
	TotalTimeSpent string `json:"total_time_spent"`

	// GeneratedAt - время генерации.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetCompletionsHandler обрабатывает запросы журнала прохождения.
type GetCompletionsHandler struct {
	studentRepo    student.Repository
	courseRepo     catalog.CourseRepository
	lessonRepo     catalog.LessonRepository
	completionRepo progress.CompletionRepository
}

// NewGetCompletionsHandler создаёт новый обработчик.
func NewGetCompletionsHandler(
	studentRepo student.Repository,
	courseRepo catalog.CourseRepository,
	lessonRepo catalog.LessonRepository,
	completionRepo progress.CompletionRepository,
) *GetCompletionsHandler {
	return &GetCompletionsHandler{
		studentRepo:    studentRepo,
		courseRepo:     courseRepo,
		lessonRepo:     lessonRepo,
		completionRepo: completionRepo,
	}
}

// Handle выполняет запрос.
func (h *GetCompletionsHandler) Handle(ctx context.Context, query GetCompletionsQuery) (*GetCompletionsResult, error) {
	// Валидация
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetCompletions", shared.ErrValidation, err.Error(), err)
	}

	if _, err := h.studentRepo.GetByID(ctx, query.StudentID); err != nil {
		return nil, shared.WrapError("query", "GetCompletions", shared.ErrStudentNotFound, "student not found", err)
	}
	if _, err := h.courseRepo.GetByID(ctx, query.CourseID); err != nil {
		return nil, shared.WrapError("query", "GetCompletions", shared.ErrCourseNotFound, "course not found", err)
	}

	refs, err := h.lessonRepo.PublishedRefsByCourse(ctx, query.CourseID)
	if err != nil {
		return nil, shared.WrapError("query", "GetCompletions", shared.ErrInternal, "failed to load lessons", err)
	}

	records, err := h.completionRepo.GetByStudentAndCourse(ctx, query.StudentID, query.CourseID)
	if err != nil {
		return nil, shared.WrapError("query", "GetCompletions", shared.ErrInternal, "failed to load completions", err)
	}
	byLesson := make(map[string]*progress.CompletionRecord, len(records))
	for _, record := range records {
		byLesson[record.LessonID] = record
	}

	// Суммарное время считает хранилище: в него входят и записи по
	// урокам, которые с тех пор сняли с публикации.
	totalMinutes, err := h.completionRepo.TotalTimeSpentInCourse(ctx, query.StudentID, query.CourseID)
	if err != nil {
		return nil, shared.WrapError("query", "GetCompletions", shared.ErrInternal, "failed to sum time spent", err)
	}

	result := &GetCompletionsResult{
		StudentID:             query.StudentID,
		CourseID:              query.CourseID,
		Lessons:               make([]LessonCompletionDTO, 0, len(refs)),
		TotalTimeSpentMinutes: totalMinutes,
		TotalTimeSpent:        shared.Minutes(totalMinutes).String(),
		GeneratedAt:           time.Now().UTC(),
	}

	for _, ref := range refs {
		row := LessonCompletionDTO{
			LessonID: ref.ID,
			Title:    ref.Title,
			Position: ref.Position,
		}
		if record, ok := byLesson[ref.ID]; ok {
			row.Completed = record.Completed
			row.CompletedAt = record.CompletedAt
			row.TimeSpentMinutes = record.TimeSpentMinutes
			if record.TimeSpentMinutes > 0 {
				row.TimeSpent = shared.Minutes(record.TimeSpentMinutes).String()
			}
		}
		if row.Completed {
			result.CompletedLessons++
		}
		result.Lessons = append(result.Lessons, row)
	}

	return result, nil
}
