package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/progress"
	"github.com/edulight/edulight-backend/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUMMARY REPOSITORY IMPLEMENTATION
// Derived per-course progress rows with an optimistic version column.
// Writers must present the version they read; a mismatch means someone
// recomputed in between and the caller has to re-read and retry.
// ══════════════════════════════════════════════════════════════════════════════

// SummaryRepository implements progress.SummaryRepository for PostgreSQL.
type SummaryRepository struct {
	conn *Connection
}

// NewSummaryRepository creates a new SummaryRepository.
func NewSummaryRepository(conn *Connection) *SummaryRepository {
	return &SummaryRepository{conn: conn}
}

const summaryColumns = `student_id, course_id, lessons_completed, total_lessons,
	   progress_percentage, last_recomputed, version, created_at, updated_at`

// Get returns the summary for a (student, course) pair.
func (r *SummaryRepository) Get(ctx context.Context, studentID, courseID string) (*progress.CourseProgressSummary, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM course_progress_summaries WHERE student_id = $1 AND course_id = $2`,
		summaryColumns,
	)

	row := r.conn.QueryRow(ctx, query, studentID, courseID)

	summary, err := r.scanSummary(row)
	if IsNoRows(err) {
		return nil, progress.ErrSummaryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	return summary, nil
}

// UpsertVersioned stores the summary guarded by its version. The row is
// only touched when the stored version equals summary.Version; a fresh
// insert expects Version 0. On success the new version is written back
// into summary.Version.
func (r *SummaryRepository) UpsertVersioned(ctx context.Context, summary *progress.CourseProgressSummary) error {
	now := time.Now().UTC()

	// The conditional DO UPDATE makes the version check atomic: when the
	// WHERE clause fails nothing is written and RETURNING yields no row.
	query := `
		INSERT INTO course_progress_summaries (
			student_id, course_id, lessons_completed, total_lessons,
			progress_percentage, last_recomputed, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7 + 1, $8, $9)
		ON CONFLICT (student_id, course_id) DO UPDATE SET
			lessons_completed = EXCLUDED.lessons_completed,
			total_lessons = EXCLUDED.total_lessons,
			progress_percentage = EXCLUDED.progress_percentage,
			last_recomputed = EXCLUDED.last_recomputed,
			version = course_progress_summaries.version + 1,
			updated_at = EXCLUDED.updated_at
		WHERE course_progress_summaries.version = $7
		RETURNING version
	`

	createdAt := summary.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	var newVersion int64
	err := r.conn.QueryRow(ctx, query,
		summary.StudentID,
		summary.CourseID,
		summary.LessonsCompleted,
		summary.TotalLessons,
		summary.ProgressPercentage,
		summary.LastRecomputed,
		summary.Version,
		createdAt,
		now,
	).Scan(&newVersion)

	if IsNoRows(err) {
		return shared.ErrSummaryConflict
	}
	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}

	summary.Version = newVersion
	summary.UpdatedAt = now

	return nil
}

// Delete removes the summary for a (student, course) pair. A missing
// row is not an error.
func (r *SummaryRepository) Delete(ctx context.Context, studentID, courseID string) error {
	_, err := r.conn.Exec(ctx,
		"DELETE FROM course_progress_summaries WHERE student_id = $1 AND course_id = $2",
		studentID, courseID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete summary: %w", err)
	}
	return nil
}

// DeleteByCourse removes the summaries of every student on the course
// and returns how many rows went away.
func (r *SummaryRepository) DeleteByCourse(ctx context.Context, courseID string) (int, error) {
	result, err := r.conn.Exec(ctx,
		"DELETE FROM course_progress_summaries WHERE course_id = $1",
		courseID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete summaries by course: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// GetByStudent returns all summaries of a student.
func (r *SummaryRepository) GetByStudent(ctx context.Context, studentID string) ([]*progress.CourseProgressSummary, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM course_progress_summaries WHERE student_id = $1 ORDER BY course_id`,
		summaryColumns,
	)

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries by student: %w", err)
	}
	defer rows.Close()

	return r.scanSummaries(rows)
}

// GetByCourse returns the summaries of every student on the course.
func (r *SummaryRepository) GetByCourse(ctx context.Context, courseID string) ([]*progress.CourseProgressSummary, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM course_progress_summaries WHERE course_id = $1 ORDER BY progress_percentage DESC, student_id`,
		summaryColumns,
	)

	rows, err := r.conn.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries by course: %w", err)
	}
	defer rows.Close()

	return r.scanSummaries(rows)
}

// FindStale returns summaries whose stored lesson total disagrees with
// the live published count of their course. Oldest recomputations first
// so the refresh job drains the backlog in fair order.
func (r *SummaryRepository) FindStale(ctx context.Context, limit int) ([]*progress.CourseProgressSummary, error) {
	query := `
		SELECT s.student_id, s.course_id, s.lessons_completed, s.total_lessons,
			   s.progress_percentage, s.last_recomputed, s.version, s.created_at, s.updated_at
		FROM course_progress_summaries s
		WHERE s.total_lessons <> (
			SELECT COUNT(*)
			FROM lessons l
			WHERE l.course_id = s.course_id AND l.status = 'published'
		)
		ORDER BY s.last_recomputed ASC
		LIMIT $1
	`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale summaries: %w", err)
	}
	defer rows.Close()

	return r.scanSummaries(rows)
}

// scanSummary scans a single summary from a row.
func (r *SummaryRepository) scanSummary(row pgx.Row) (*progress.CourseProgressSummary, error) {
	var s progress.CourseProgressSummary

	err := row.Scan(
		&s.StudentID,
		&s.CourseID,
		&s.LessonsCompleted,
		&s.TotalLessons,
		&s.ProgressPercentage,
		&s.LastRecomputed,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// scanSummaries scans multiple summaries from rows.
func (r *SummaryRepository) scanSummaries(rows pgx.Rows) ([]*progress.CourseProgressSummary, error) {
	var summaries []*progress.CourseProgressSummary

	for rows.Next() {
		var s progress.CourseProgressSummary

		err := rows.Scan(
			&s.StudentID,
			&s.CourseID,
			&s.LessonsCompleted,
			&s.TotalLessons,
			&s.ProgressPercentage,
			&s.LastRecomputed,
			&s.Version,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}

		summaries = append(summaries, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return summaries, nil
}
