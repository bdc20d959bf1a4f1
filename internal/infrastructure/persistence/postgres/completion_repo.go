package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/progress"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION REPOSITORY IMPLEMENTATION
// The lesson completion ledger. One row per (student, lesson), updated
// with a single upsert so concurrent requests for the same pair are
// serialized by the database, not by application locks.
// ══════════════════════════════════════════════════════════════════════════════

// CompletionRepository implements progress.CompletionRepository for PostgreSQL.
type CompletionRepository struct {
	conn *Connection
}

// NewCompletionRepository creates a new CompletionRepository.
func NewCompletionRepository(conn *Connection) *CompletionRepository {
	return &CompletionRepository{conn: conn}
}

const completionColumns = `id, student_id, lesson_id, completed, completed_at,
	   time_spent_minutes, created_at, updated_at`

// Upsert atomically creates or updates the record for a (student, lesson)
// pair. completed_at follows the toggle rules: set once on the first
// transition to completed, kept on repeats, cleared on rollback. Time
// spent accumulates across calls.
func (r *CompletionRepository) Upsert(ctx context.Context, change progress.CompletionChange) (*progress.CompletionRecord, error) {
	if change.AddMinutes < 0 {
		return nil, progress.ErrNegativeTimeSpent
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO lesson_completions (
			id, student_id, lesson_id, completed, completed_at,
			time_spent_minutes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			CASE WHEN $4 THEN $5::timestamptz ELSE NULL END,
			$6, $5, $5
		)
		ON CONFLICT (student_id, lesson_id) DO UPDATE SET
			completed = EXCLUDED.completed,
			completed_at = CASE
				WHEN NOT EXCLUDED.completed THEN NULL
				WHEN lesson_completions.completed_at IS NULL THEN EXCLUDED.updated_at
				ELSE lesson_completions.completed_at
			END,
			time_spent_minutes = lesson_completions.time_spent_minutes + $6,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + completionColumns

	row := r.conn.QueryRow(ctx, query,
		uuid.NewString(),
		change.StudentID,
		change.LessonID,
		change.Completed,
		now,
		change.AddMinutes,
	)

	record, err := r.scanCompletion(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert completion: %w", err)
	}

	return record, nil
}

// Get returns the record for a (student, lesson) pair.
func (r *CompletionRepository) Get(ctx context.Context, studentID, lessonID string) (*progress.CompletionRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM lesson_completions WHERE student_id = $1 AND lesson_id = $2`,
		completionColumns,
	)

	row := r.conn.QueryRow(ctx, query, studentID, lessonID)

	record, err := r.scanCompletion(row)
	if IsNoRows(err) {
		return nil, progress.ErrCompletionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get completion: %w", err)
	}

	return record, nil
}

// GetByStudentAndCourse returns the student's records for the lessons of
// a course, in canonical lesson order. Drafts are included, they carry
// accumulated time even though they do not count towards progress.
func (r *CompletionRepository) GetByStudentAndCourse(ctx context.Context, studentID, courseID string) ([]*progress.CompletionRecord, error) {
	query := `
		SELECT c.id, c.student_id, c.lesson_id, c.completed, c.completed_at,
			   c.time_spent_minutes, c.created_at, c.updated_at
		FROM lesson_completions c
		JOIN lessons l ON l.id = c.lesson_id
		WHERE c.student_id = $1 AND l.course_id = $2
		ORDER BY l.position ASC, l.created_at ASC
	`

	rows, err := r.conn.Query(ctx, query, studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions by course: %w", err)
	}
	defer rows.Close()

	return r.scanCompletions(rows)
}

// CountCompletedInCourse returns how many published lessons of the
// course the student has completed. Records pointing at drafts do not
// count, records for deleted lessons are gone with the lesson row.
func (r *CompletionRepository) CountCompletedInCourse(ctx context.Context, studentID, courseID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM lesson_completions c
		JOIN lessons l ON l.id = c.lesson_id
		WHERE c.student_id = $1
		  AND l.course_id = $2
		  AND l.status = 'published'
		  AND c.completed
	`

	var count int
	err := r.conn.QueryRow(ctx, query, studentID, courseID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed lessons: %w", err)
	}

	return count, nil
}

// CountCompletedByLesson returns how many students completed the lesson.
func (r *CompletionRepository) CountCompletedByLesson(ctx context.Context, lessonID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM lesson_completions WHERE lesson_id = $1 AND completed",
		lessonID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions by lesson: %w", err)
	}
	return count, nil
}

// TotalTimeSpentInCourse returns the student's accumulated study time
// across the lessons of a course, in minutes.
func (r *CompletionRepository) TotalTimeSpentInCourse(ctx context.Context, studentID, courseID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(c.time_spent_minutes), 0)
		FROM lesson_completions c
		JOIN lessons l ON l.id = c.lesson_id
		WHERE c.student_id = $1 AND l.course_id = $2
	`

	var total int
	err := r.conn.QueryRow(ctx, query, studentID, courseID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum time spent: %w", err)
	}

	return total, nil
}

// scanCompletion scans a single completion record from a row.
func (r *CompletionRepository) scanCompletion(row pgx.Row) (*progress.CompletionRecord, error) {
	var rec progress.CompletionRecord

	err := row.Scan(
		&rec.ID,
		&rec.StudentID,
		&rec.LessonID,
		&rec.Completed,
		&rec.CompletedAt,
		&rec.TimeSpentMinutes,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// scanCompletions scans multiple completion records from rows.
func (r *CompletionRepository) scanCompletions(rows pgx.Rows) ([]*progress.CompletionRecord, error) {
	var records []*progress.CompletionRecord

	for rows.Next() {
		var rec progress.CompletionRecord

		err := rows.Scan(
			&rec.ID,
			&rec.StudentID,
			&rec.LessonID,
			&rec.Completed,
			&rec.CompletedAt,
			&rec.TimeSpentMinutes,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}
