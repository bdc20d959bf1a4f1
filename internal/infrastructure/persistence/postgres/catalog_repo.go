package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/catalog"
	"github.com/edulight/edulight-backend/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements catalog.CourseRepository for PostgreSQL.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

const courseColumns = `id, title, description, instructor_id, created_at, updated_at`

// Create creates a new course.
func (r *CourseRepository) Create(ctx context.Context, c *catalog.Course) error {
	query := `
		INSERT INTO courses (id, title, description, instructor_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		c.ID,
		c.Title,
		c.Description,
		c.InstructorID,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrCourseAlreadyExists
		}
		return fmt.Errorf("failed to create course: %w", err)
	}

	return nil
}

// GetByID returns a course by ID.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*catalog.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanCourse(row)
}

// Update updates a course.
func (r *CourseRepository) Update(ctx context.Context, c *catalog.Course) error {
	query := `
		UPDATE courses SET
			title = $1,
			description = $2,
			updated_at = $3
		WHERE id = $4
	`

	result, err := r.conn.Exec(ctx, query,
		c.Title,
		c.Description,
		time.Now().UTC(),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrCourseNotFound
	}

	return nil
}

// Delete removes a course. Lessons, enrollments and progress summaries
// go with it through ON DELETE CASCADE.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, "DELETE FROM courses WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrCourseNotFound
	}

	return nil
}

// GetAll returns all courses with pagination.
func (r *CourseRepository) GetAll(ctx context.Context, opts catalog.ListOptions) ([]*catalog.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses`, courseColumns)
	query += r.buildOrderBy(opts)
	query += " LIMIT $1 OFFSET $2"

	rows, err := r.conn.Query(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	return r.scanCourses(rows)
}

// GetByInstructor returns courses owned by the given instructor.
func (r *CourseRepository) GetByInstructor(ctx context.Context, instructorID string, opts catalog.ListOptions) ([]*catalog.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE instructor_id = $3`, courseColumns)
	query += r.buildOrderBy(opts)
	query += " LIMIT $1 OFFSET $2"

	rows, err := r.conn.Query(ctx, query, opts.Limit, opts.Offset, instructorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses by instructor: %w", err)
	}
	defer rows.Close()

	return r.scanCourses(rows)
}

// GetByIDs returns courses by a list of IDs.
func (r *CourseRepository) GetByIDs(ctx context.Context, ids []string) ([]*catalog.Course, error) {
	if len(ids) == 0 {
		return []*catalog.Course{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id IN (%s)`,
		courseColumns, strings.Join(placeholders, ", "))

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses by ids: %w", err)
	}
	defer rows.Close()

	return r.scanCourses(rows)
}

// Count returns the total number of courses.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM courses").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}

// Exists checks if a course exists by ID.
func (r *CourseRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)",
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check course existence: %w", err)
	}
	return exists, nil
}

// scanCourse scans a single course from a row.
func (r *CourseRepository) scanCourse(row pgx.Row) (*catalog.Course, error) {
	var c catalog.Course

	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.InstructorID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan course: %w", err)
	}

	return &c, nil
}

// scanCourses scans multiple courses from rows.
func (r *CourseRepository) scanCourses(rows pgx.Rows) ([]*catalog.Course, error) {
	var courses []*catalog.Course

	for rows.Next() {
		var c catalog.Course

		err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Description,
			&c.InstructorID,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}

		courses = append(courses, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return courses, nil
}

// buildOrderBy builds ORDER BY clause for course listings.
func (r *CourseRepository) buildOrderBy(opts catalog.ListOptions) string {
	orderField := "created_at"
	validFields := map[string]string{
		"title":      "title",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}

	if field, ok := validFields[opts.SortBy]; ok {
		orderField = field
	}

	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}

	return fmt.Sprintf(" ORDER BY %s %s", orderField, direction)
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LessonRepository implements catalog.LessonRepository for PostgreSQL.
type LessonRepository struct {
	conn *Connection
}

// NewLessonRepository creates a new LessonRepository.
func NewLessonRepository(conn *Connection) *LessonRepository {
	return &LessonRepository{conn: conn}
}

const lessonColumns = `id, course_id, title, content, status, position,
	   duration_minutes, video_url, created_at, updated_at`

// Canonical lesson order: position first, creation time breaks ties.
const lessonOrder = ` ORDER BY position ASC, created_at ASC`

// Create creates a new lesson.
func (r *LessonRepository) Create(ctx context.Context, l *catalog.Lesson) error {
	query := `
		INSERT INTO lessons (
			id, course_id, title, content, status, position,
			duration_minutes, video_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.conn.Exec(ctx, query,
		l.ID,
		l.CourseID,
		l.Title,
		l.Content,
		string(l.Status),
		l.Position,
		l.DurationMinutes,
		l.VideoURL,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrCourseNotFound
		}
		return fmt.Errorf("failed to create lesson: %w", err)
	}

	return nil
}

// GetByID returns a lesson by ID.
func (r *LessonRepository) GetByID(ctx context.Context, id string) (*catalog.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE id = $1`, lessonColumns)

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanLesson(row)
}

// Update updates a lesson, including its publication status.
func (r *LessonRepository) Update(ctx context.Context, l *catalog.Lesson) error {
	query := `
		UPDATE lessons SET
			title = $1,
			content = $2,
			status = $3,
			position = $4,
			duration_minutes = $5,
			video_url = $6,
			updated_at = $7
		WHERE id = $8
	`

	result, err := r.conn.Exec(ctx, query,
		l.Title,
		l.Content,
		string(l.Status),
		l.Position,
		l.DurationMinutes,
		l.VideoURL,
		time.Now().UTC(),
		l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrLessonNotFound
	}

	return nil
}

// Delete removes a lesson. Completion records referencing it are removed
// by the schema; summaries are reconciled by invalidation downstream.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, "DELETE FROM lessons WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrLessonNotFound
	}

	return nil
}

// GetByCourse returns all lessons of a course in canonical order,
// drafts included.
func (r *LessonRepository) GetByCourse(ctx context.Context, courseID string) ([]*catalog.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE course_id = $1`, lessonColumns) + lessonOrder

	rows, err := r.conn.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons by course: %w", err)
	}
	defer rows.Close()

	return r.scanLessons(rows)
}

// GetPublishedByCourse returns published lessons of a course in
// canonical order.
func (r *LessonRepository) GetPublishedByCourse(ctx context.Context, courseID string) ([]*catalog.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE course_id = $1 AND status = 'published'`, lessonColumns) + lessonOrder

	rows, err := r.conn.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query published lessons: %w", err)
	}
	defer rows.Close()

	return r.scanLessons(rows)
}

// PublishedRefsByCourse returns lightweight references to the published
// lessons of a course, without the content column.
func (r *LessonRepository) PublishedRefsByCourse(ctx context.Context, courseID string) ([]catalog.LessonRef, error) {
	query := `
		SELECT id, course_id, title, status, position
		FROM lessons
		WHERE course_id = $1 AND status = 'published'
	` + lessonOrder

	rows, err := r.conn.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query published lesson refs: %w", err)
	}
	defer rows.Close()

	var refs []catalog.LessonRef
	for rows.Next() {
		var ref catalog.LessonRef
		var status string
		if err := rows.Scan(&ref.ID, &ref.CourseID, &ref.Title, &status, &ref.Position); err != nil {
			return nil, fmt.Errorf("failed to scan lesson ref: %w", err)
		}
		ref.Status = catalog.LessonStatus(status)
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

// CountByCourse returns lesson counts of a course broken down by status.
func (r *LessonRepository) CountByCourse(ctx context.Context, courseID string) (published, draft int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'published'),
			COUNT(*) FILTER (WHERE status = 'draft')
		FROM lessons
		WHERE course_id = $1
	`

	err = r.conn.QueryRow(ctx, query, courseID).Scan(&published, &draft)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count lessons by course: %w", err)
	}

	return published, draft, nil
}

// CountPublished returns the live number of published lessons of a
// course. Progress staleness checks compare stored totals against this.
func (r *LessonRepository) CountPublished(ctx context.Context, courseID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM lessons WHERE course_id = $1 AND status = 'published'",
		courseID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count published lessons: %w", err)
	}
	return count, nil
}

// scanLesson scans a single lesson from a row.
func (r *LessonRepository) scanLesson(row pgx.Row) (*catalog.Lesson, error) {
	var l catalog.Lesson
	var status string

	err := row.Scan(
		&l.ID,
		&l.CourseID,
		&l.Title,
		&l.Content,
		&status,
		&l.Position,
		&l.DurationMinutes,
		&l.VideoURL,
		&l.CreatedAt,
		&l.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrLessonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan lesson: %w", err)
	}

	l.Status = catalog.LessonStatus(status)

	return &l, nil
}

// scanLessons scans multiple lessons from rows.
func (r *LessonRepository) scanLessons(rows pgx.Rows) ([]*catalog.Lesson, error) {
	var lessons []*catalog.Lesson

	for rows.Next() {
		var l catalog.Lesson
		var status string

		err := rows.Scan(
			&l.ID,
			&l.CourseID,
			&l.Title,
			&l.Content,
			&status,
			&l.Position,
			&l.DurationMinutes,
			&l.VideoURL,
			&l.CreatedAt,
			&l.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}

		l.Status = catalog.LessonStatus(status)

		lessons = append(lessons, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return lessons, nil
}
