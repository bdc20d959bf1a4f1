// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/catalog"
	"github.com/edulight/edulight-backend/internal/domain/enrollment"
	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"
	"github.com/edulight/edulight-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD PROGRESS QUERY
// Собирает дашборд студента: прогресс по всем курсам, на которые он записан.
// Это главный экран платформы - студент сразу видит, где он остановился
// и сколько осталось до завершения каждого курса.
//
// Философия: дашборд никогда не падает целиком. Если прогресс по одному
// курсу недоступен (хранилище, гонка версий), показываем нулевую запись
// с живым числом уроков, а остальные курсы отдаём как обычно.
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardProgressQuery содержит параметры запроса дашборда.
type GetDashboardProgressQuery struct {
	// StudentID - внутренний ID студента.
	StudentID string

	// IncludeCompleted - включать курсы, пройденные на 100%.
	// По умолчанию включены.
	IncludeCompleted bool

	// Limit - максимум курсов в ответе (0 = все).
	Limit int
}

// Validate проверяет корректность параметров.
func (q *GetDashboardProgressQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	if q.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}

// CourseProgressDTO - прогресс студента по одному курсу.
type CourseProgressDTO struct {
	// ─────────────────────────────────────────────────────────────────────────
	// Курс
	// ─────────────────────────────────────────────────────────────────────────

	// CourseID - ID курса.
	CourseID string `json:"course_id"`

	// CourseTitle - название курса.
	CourseTitle string `json:"course_title"`

	// EnrolledAt - когда студент записался.
	EnrolledAt time.Time `json:"enrolled_at"`

	// ─────────────────────────────────────────────────────────────────────────
	// Прогресс
	// ─────────────────────────────────────────────────────────────────────────

	// LessonsCompleted - пройдено опубликованных уроков.
	LessonsCompleted int `json:"lessons_completed"`

	// TotalLessons - всего опубликованных уроков в курсе.
	TotalLessons int `json:"total_lessons"`

	// ProgressPercentage - процент прохождения, округлён до одного знака.
	ProgressPercentage float64 `json:"progress_percentage"`

	// ProgressFormatted - человекочитаемый прогресс ("7 из 12").
	ProgressFormatted string `json:"progress_formatted"`

	// IsCompleted - курс пройден полностью.
	IsCompleted bool `json:"is_completed"`

	// LastRecomputed - когда сводка пересчитывалась в последний раз.
	// Нулевое время = сводка собрана на лету (fallback).
	LastRecomputed time.Time `json:"last_recomputed,omitempty"`

	// Degraded - прогресс недоступен, показана нулевая заглушка.
	Degraded bool `json:"degraded,omitempty"`
}

// GetDashboardProgressResult содержит результат запроса.
type GetDashboardProgressResult struct {
	// StudentID - ID студента.
	StudentID string `json:"student_id"`

	// DisplayName - отображаемое имя.
	DisplayName string `json:"display_name"`

	// Courses - прогресс по курсам в порядке записи (старые первыми).
	Courses []CourseProgressDTO `json:"courses"`

	// TotalCourses - всего курсов у студента.
	TotalCourses int `json:"total_courses"`

	// CompletedCourses - сколько курсов пройдено на 100%.
	CompletedCourses int `json:"completed_courses"`

	// GeneratedAt - время генерации.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetDashboardProgressHandler обрабатывает запросы дашборда.
type GetDashboardProgressHandler struct {
	studentRepo    student.Repository
	enrollmentRepo enrollment.Repository
	courseRepo     catalog.CourseRepository
	aggregator     *progress.Aggregator
}

// NewGetDashboardProgressHandler создаёт новый обработчик.
func NewGetDashboardProgressHandler(
	studentRepo student.Repository,
	enrollmentRepo enrollment.Repository,
	courseRepo catalog.CourseRepository,
	aggregator *progress.Aggregator,
) *GetDashboardProgressHandler {
	return &GetDashboardProgressHandler{
		studentRepo:    studentRepo,
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
		aggregator:     aggregator,
	}
}

// Handle выполняет запрос.
func (h *GetDashboardProgressHandler) Handle(ctx context.Context, query GetDashboardProgressQuery) (*GetDashboardProgressResult, error) {
	// Валидация
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetDashboardProgress", shared.ErrValidation, err.Error(), err)
	}

	// Получаем студента
	stud, err := h.studentRepo.GetByID(ctx, query.StudentID)
	if err != nil {
		return nil, shared.WrapError("query", "GetDashboardProgress", shared.ErrStudentNotFound, "student not found", err)
	}

	// Записи на курсы, отсортированы по времени записи
	enrollments, err := h.enrollmentRepo.GetByStudent(ctx, stud.ID)
	if err != nil {
		return nil, shared.WrapError("query", "GetDashboardProgress", shared.ErrInternal, "failed to load enrollments", err)
	}

	result := &GetDashboardProgressResult{
		StudentID:   stud.ID,
		DisplayName: stud.DisplayName,
		Courses:     make([]CourseProgressDTO, 0, len(enrollments)),
		GeneratedAt: time.Now().UTC(),
	}

	if len(enrollments) == 0 {
		return result, nil
	}

	// Названия курсов одним батчем
	courseIDs := make([]string, len(enrollments))
	for i, enr := range enrollments {
		courseIDs[i] = enr.CourseID
	}
	titles := h.loadCourseTitles(ctx, courseIDs)

	for _, enr := range enrollments {
		dto := h.buildCourseProgressDTO(ctx, stud.ID, enr, titles[enr.CourseID])

		if dto.IsCompleted {
			result.CompletedCourses++
			if !query.IncludeCompleted {
				continue
			}
		}

		result.Courses = append(result.Courses, dto)

		if query.Limit > 0 && len(result.Courses) >= query.Limit {
			break
		}
	}

	result.TotalCourses = len(enrollments)

	return result, nil
}

// buildCourseProgressDTO строит DTO прогресса по одному курсу.
// Ошибка агрегатора не валит весь дашборд: вместо прогресса
// возвращается нулевая запись с живым числом уроков.
func (h *GetDashboardProgressHandler) buildCourseProgressDTO(
	ctx context.Context,
	studentID string,
	enr *enrollment.Enrollment,
	courseTitle string,
) CourseProgressDTO {
	dto := CourseProgressDTO{
		CourseID:    enr.CourseID,
		CourseTitle: courseTitle,
		EnrolledAt:  enr.EnrolledAt,
	}

	summary, err := h.aggregator.GetOrCreate(ctx, studentID, enr.CourseID)
	if err != nil {
		// Fallback: нулевая сводка, но с актуальным числом уроков
		total, countErr := h.aggregator.LivePublishedCount(ctx, enr.CourseID)
		if countErr != nil {
			total = 0
		}
		summary = progress.ZeroSummary(studentID, enr.CourseID, total)
		dto.Degraded = true
	}

	dto.LessonsCompleted = summary.LessonsCompleted
	dto.TotalLessons = summary.TotalLessons
	dto.ProgressPercentage = summary.Percentage().Rounded()
	dto.ProgressFormatted = formatLessonCount(summary.LessonsCompleted, summary.TotalLessons)
	dto.IsCompleted = summary.TotalLessons > 0 && summary.LessonsCompleted >= summary.TotalLessons
	dto.LastRecomputed = summary.LastRecomputed

	return dto
}

// loadCourseTitles получает названия курсов батчем.
// Отсутствующий курс не считается ошибкой: запись могла пережить курс.
func (h *GetDashboardProgressHandler) loadCourseTitles(ctx context.Context, courseIDs []string) map[string]string {
	titles := make(map[string]string, len(courseIDs))

	courses, err := h.courseRepo.GetByIDs(ctx, courseIDs)
	if err != nil {
		return titles
	}

	for _, course := range courses {
		titles[course.ID] = course.Title
	}

	return titles
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// formatLessonCount форматирует счётчик уроков на русском.
func formatLessonCount(completed, total int) string {
	if total == 0 {
		return "уроков пока нет"
	}
	return fmt.Sprintf("%d из %d", completed, total)
}
