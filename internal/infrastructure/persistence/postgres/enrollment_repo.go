package postgres

import (
	"context"
	"fmt"

	"github.com/edulight/edulight-backend/internal/domain/enrollment"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements enrollment.Repository for PostgreSQL.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

const enrollmentColumns = `id, student_id, course_id, enrolled_at`

// Create stores a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	query := `
		INSERT INTO enrollments (id, student_id, course_id, enrolled_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.conn.Exec(ctx, query,
		e.ID,
		e.StudentID,
		e.CourseID,
		e.EnrolledAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return enrollment.ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	return nil
}

// Delete removes the enrollment for a (student, course) pair.
// Completion records and summaries are untouched here, they are cleaned
// up by the caller where needed.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, courseID string) error {
	result, err := r.conn.Exec(ctx,
		"DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2",
		studentID, courseID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return enrollment.ErrNotEnrolled
	}

	return nil
}

// Get returns the enrollment for a (student, course) pair.
func (r *EnrollmentRepository) Get(ctx context.Context, studentID, courseID string) (*enrollment.Enrollment, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM enrollments WHERE student_id = $1 AND course_id = $2`,
		enrollmentColumns,
	)

	row := r.conn.QueryRow(ctx, query, studentID, courseID)
	return r.scanEnrollment(row)
}

// IsEnrolled reports whether the student is enrolled in the course.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)",
		studentID, courseID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return exists, nil
}

// GetByStudent returns the student's enrollments ordered by enrollment
// time, oldest first. The dashboard relies on this ordering.
func (r *EnrollmentRepository) GetByStudent(ctx context.Context, studentID string) ([]*enrollment.Enrollment, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at ASC, id ASC`,
		enrollmentColumns,
	)

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments by student: %w", err)
	}
	defer rows.Close()

	return r.scanEnrollments(rows)
}

// GetByCourse returns all enrollments for a course.
func (r *EnrollmentRepository) GetByCourse(ctx context.Context, courseID string) ([]*enrollment.Enrollment, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM enrollments WHERE course_id = $1 ORDER BY enrolled_at ASC, id ASC`,
		enrollmentColumns,
	)

	rows, err := r.conn.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments by course: %w", err)
	}
	defer rows.Close()

	return r.scanEnrollments(rows)
}

// CountByCourse returns the number of students enrolled in a course.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM enrollments WHERE course_id = $1",
		courseID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return count, nil
}

// GetAll returns every enrollment. The nightly reconciliation job walks
// the full set, so there is no pagination here.
func (r *EnrollmentRepository) GetAll(ctx context.Context) ([]*enrollment.Enrollment, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM enrollments ORDER BY enrolled_at ASC, id ASC`,
		enrollmentColumns,
	)

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query all enrollments: %w", err)
	}
	defer rows.Close()

	return r.scanEnrollments(rows)
}

// scanEnrollment scans a single enrollment from a row.
func (r *EnrollmentRepository) scanEnrollment(row pgx.Row) (*enrollment.Enrollment, error) {
	var e enrollment.Enrollment

	err := row.Scan(
		&e.ID,
		&e.StudentID,
		&e.CourseID,
		&e.EnrolledAt,
	)

	if IsNoRows(err) {
		return nil, enrollment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	return &e, nil
}

// scanEnrollments scans multiple enrollments from rows.
func (r *EnrollmentRepository) scanEnrollments(rows pgx.Rows) ([]*enrollment.Enrollment, error) {
	var enrollments []*enrollment.Enrollment

	for rows.Next() {
		var e enrollment.Enrollment

		err := rows.Scan(
			&e.ID,
			&e.StudentID,
			&e.CourseID,
			&e.EnrolledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}

		enrollments = append(enrollments, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return enrollments, nil
}
