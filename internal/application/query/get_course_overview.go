package query

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/catalog"
	"github.com/edulight/edulight-backend/internal/domain/enrollment"
	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"
	"github.com/edulight/edulight-backend/internal/domain/student"
	"github.com/edulight/edulight-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSE OVERVIEW QUERY
// Обзор курса для преподавателя: сколько студентов записано, как далеко
// они продвинулись, какие уроки опубликованы. По сути это "дашборд
// наоборот" - не студент смотрит на свои курсы, а преподаватель на
// свою аудиторию.
// ══════════════════════════════════════════════════════════════════════════════

// CourseProgressReader отдаёт сохранённые сводки прогресса по курсу.
// Реализуется и репозиторием, и in-memory проекцией.
type CourseProgressReader interface {
	GetByCourse(ctx context.Context, courseID string) ([]*progress.CourseProgressSummary, error)
}

// GetCourseOverviewQuery содержит параметры запроса обзора курса.
type GetCourseOverviewQuery struct {
	// CourseID - ID курса.
	CourseID string

	// IncludeStudents - включить построчную разбивку по студентам.
	IncludeStudents bool

	// IncludeLessons - включить разбивку по урокам (сколько студентов
	// завершили каждый опубликованный урок).
	IncludeLessons bool

	// Students - страница разбивки по студентам (по умолчанию
	// первая страница стандартного размера).
	Students shared.Pagination
}

// Validate проверяет корректность параметров.
func (q *GetCourseOverviewQuery) Validate() error {
	if q.CourseID == "" {
		return errors.New("course_id is required")
	}
	q.Students = shared.NewPagination(q.Students.Page, q.Students.PageSize)
	return nil
}

// StudentProgressDTO - строка разбивки: один студент на курсе.
type StudentProgressDTO struct {
	// StudentID - ID студента.
	StudentID string `json:"student_id"`

	// DisplayName - отображаемое имя.
	DisplayName string `json:"display_name"`

	// LessonsCompleted - пройдено уроков.
	LessonsCompleted int `json:"lessons_completed"`

	// TotalLessons - всего уроков на момент пересчёта сводки.
	TotalLessons int `json:"total_lessons"`

	// ProgressPercentage - процент, округлён до одного знака.
	ProgressPercentage float64 `json:"progress_percentage"`

	// IsCompleted - курс пройден полностью.
	IsCompleted bool `json:"is_completed"`

	// LastRecomputed - свежесть сводки.
	LastRecomputed time.Time `json:"last_recomputed,omitempty"`

	// LastRecomputedAgo - то же, но человеко-читаемо ("2h ago").
	LastRecomputedAgo string `json:"last_recomputed_ago,omitempty"`
}

// GetCourseOverviewResult содержит результат запроса.
type GetCourseOverviewResult struct {
	// ─────────────────────────────────────────────────────────────────────────
	// Курс
	// ─────────────────────────────────────────────────────────────────────────

	// CourseID - ID курса.
	CourseID string `json:"course_id"`

	// Title - название курса.
	Title string `json:"title"`

	// PublishedLessons - опубликованных уроков.
	PublishedLessons int `json:"published_lessons"`

	// DraftLessons - черновиков.
	DraftLessons int `json:"draft_lessons"`

	// ─────────────────────────────────────────────────────────────────────────
	// Аудитория
	// ─────────────────────────────────────────────────────────────────────────

	// EnrolledStudents - записано студентов.
	EnrolledStudents int `json:"enrolled_students"`

	// CompletedStudents - прошли курс полностью.
	CompletedStudents int `json:"completed_students"`

	// AverageProgress - средний процент прохождения по сохранённым
	// сводкам, округлён до одного знака.
	AverageProgress float64 `json:"average_progress"`

	// Students - построчная разбивка (если запрошена), отсортирована
	// по проценту прохождения, лидеры первыми.
	Students []StudentProgressDTO `json:"students,omitempty"`

	// Lessons - разбивка по урокам (если запрошена), в каноническом
	// порядке уроков курса.
	Lessons []LessonStatsDTO `json:"lessons,omitempty"`

	// GeneratedAt - время генерации.
	GeneratedAt time.Time `json:"generated_at"`
}

// LessonStatsDTO - строка разбивки по урокам: один опубликованный урок.
type LessonStatsDTO struct {
	// LessonID - ID урока.
	LessonID string `json:"lesson_id"`

	// Title - название урока.
	Title string `json:"title"`

	// Position - позиция урока в курсе.
	Position int `json:"position"`

	// CompletedCount - сколько студентов завершили урок.
	CompletedCount int `json:"completed_count"`
}

// GetCourseOverviewHandler обрабатывает запросы обзора курса.
type GetCourseOverviewHandler struct {
	courseRepo     catalog.CourseRepository
	lessonRepo     catalog.LessonRepository
	enrollmentRepo enrollment.Repository
	studentRepo    student.Repository
	completionRepo progress.CompletionRepository
	summaryReader  CourseProgressReader
}

// NewGetCourseOverviewHandler создаёт новый обработчик.
func NewGetCourseOverviewHandler(
	courseRepo catalog.CourseRepository,
	lessonRepo catalog.LessonRepository,
	enrollmentRepo enrollment.Repository,
	studentRepo student.Repository,
	completionRepo progress.CompletionRepository,
	summaryReader CourseProgressReader,
) *GetCourseOverviewHandler {
	return &GetCourseOverviewHandler{
		courseRepo:     courseRepo,
		lessonRepo:     lessonRepo,
		enrollmentRepo: enrollmentRepo,
		studentRepo:    studentRepo,
		completionRepo: completionRepo,
		summaryReader:  summaryReader,
	}
}

// Handle выполняет запрос.
func (h *GetCourseOverviewHandler) Handle(ctx context.Context, query GetCourseOverviewQuery) (*GetCourseOverviewResult, error) {
	// Валидация
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetCourseOverview", shared.ErrValidation, err.Error(), err)
	}

	// Курс обязан существовать
	course, err := h.courseRepo.GetByID(ctx, query.CourseID)
	if err != nil {
		return nil, shared.WrapError("query", "GetCourseOverview", shared.ErrCourseNotFound, "course not found", err)
	}

	result := &GetCourseOverviewResult{
		CourseID:    course.ID,
		Title:       course.Title,
		GeneratedAt: time.Now().UTC(),
	}

	// Состав уроков
	published, drafts, err := h.lessonRepo.CountByCourse(ctx, course.ID)
	if err != nil {
		return nil, shared.WrapError("query", "GetCourseOverview", shared.ErrInternal, "failed to count lessons", err)
	}
	result.PublishedLessons = published
	result.DraftLessons = drafts

	// Размер аудитории
	enrolled, err := h.enrollmentRepo.CountByCourse(ctx, course.ID)
	if err != nil {
		return nil, shared.WrapError("query", "GetCourseOverview", shared.ErrInternal, "failed to count enrollments", err)
	}
	result.EnrolledStudents = enrolled

	// Разбивка по урокам не зависит от сводок: она считается прямо
	// по журналу прохождения.
	if query.IncludeLessons {
		result.Lessons, err = h.buildLessonRows(ctx, course.ID)
		if err != nil {
			return nil, err
		}
	}

	// Сводки прогресса. Их отсутствие не ошибка: курс мог только
	// что открыться, и ни одна сводка ещё не материализована.
	summaries, err := h.summaryReader.GetByCourse(ctx, course.ID)
	if err != nil || len(summaries) == 0 {
		return result, nil
	}

	var totalPct float64
	for _, s := range summaries {
		totalPct += s.ProgressPercentage
		if s.TotalLessons > 0 && s.LessonsCompleted >= s.TotalLessons {
			result.CompletedStudents++
		}
	}
	result.AverageProgress = shared.Percentage(totalPct / float64(len(summaries))).Rounded()

	if query.IncludeStudents {
		result.Students = h.buildStudentRows(ctx, summaries, query.Students)
	}

	return result, nil
}

// buildStudentRows строит страницу разбивки по студентам, лидеры первыми.
func (h *GetCourseOverviewHandler) buildStudentRows(
	ctx context.Context,
	summaries []*progress.CourseProgressSummary,
	page shared.Pagination,
) []StudentProgressDTO {
	sorted := make([]*progress.CourseProgressSummary, len(summaries))
	copy(sorted, summaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProgressPercentage > sorted[j].ProgressPercentage
	})

	offset := page.Offset()
	if offset >= len(sorted) {
		return nil
	}
	sorted = sorted[offset:]
	if len(sorted) > page.Limit() {
		sorted = sorted[:page.Limit()]
	}

	// Имена одним батчем
	ids := make([]string, len(sorted))
	for i, s := range sorted {
		ids[i] = s.StudentID
	}
	names := make(map[string]string, len(ids))
	if students, err := h.studentRepo.GetByIDs(ctx, ids); err == nil {
		for _, st := range students {
			names[st.ID] = st.DisplayName
		}
	}

	rows := make([]StudentProgressDTO, 0, len(sorted))
	for _, s := range sorted {
		row := StudentProgressDTO{
			StudentID:          s.StudentID,
			DisplayName:        names[s.StudentID],
			LessonsCompleted:   s.LessonsCompleted,
			TotalLessons:       s.TotalLessons,
			ProgressPercentage: s.Percentage().Rounded(),
			IsCompleted:        s.TotalLessons > 0 && s.LessonsCompleted >= s.TotalLessons,
			LastRecomputed:     s.LastRecomputed,
		}
		if !s.LastRecomputed.IsZero() {
			row.LastRecomputedAgo = timeutil.FormatRelative(s.LastRecomputed)
		}
		rows = append(rows, row)
	}

	return rows
}

// buildLessonRows строит разбивку по опубликованным урокам курса.
func (h *GetCourseOverviewHandler) buildLessonRows(ctx context.Context, courseID string) ([]LessonStatsDTO, error) {
	refs, err := h.lessonRepo.PublishedRefsByCourse(ctx, courseID)
	if err != nil {
		return nil, shared.WrapError("query", "GetCourseOverview", shared.ErrInternal, "failed to load lessons", err)
	}

	rows := make([]LessonStatsDTO, 0, len(refs))
	for _, ref := range refs {
		count, err := h.completionRepo.CountCompletedByLesson(ctx, ref.ID)
		if err != nil {
			return nil, shared.WrapError("query", "GetCourseOverview", shared.ErrInternal, "failed to count lesson completions", err)
		}
		rows = append(rows, LessonStatsDTO{
			LessonID:       ref.ID,
			Title:          ref.Title,
			Position:       ref.Position,
			CompletedCount: count,
		})
	}

	return rows, nil
}
