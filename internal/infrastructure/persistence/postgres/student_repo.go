// Package postgres implements PostgreSQL persistence layer for Edulight.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/student"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `id, email, display_name, role, password_hash, status,
	   last_seen_at, created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new account.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (
			id, email, display_name, role, password_hash, status,
			last_seen_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.Email,
		s.DisplayName,
		string(s.Role),
		s.PasswordHash,
		string(s.Status),
		s.LastSeenAt,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return student.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetByID returns an account by internal ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanStudent(row)
}

// GetByEmail returns an account by email.
func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*student.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE email = $1`, studentColumns)

	row := r.conn.QueryRow(ctx, query, email)
	return r.scanStudent(row)
}

// Update updates an account.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `
		UPDATE students SET
			email = $1,
			display_name = $2,
			role = $3,
			password_hash = $4,
			status = $5,
			last_seen_at = $6,
			updated_at = $7
		WHERE id = $8
	`

	result, err := r.conn.Exec(ctx, query,
		s.Email,
		s.DisplayName,
		string(s.Role),
		s.PasswordHash,
		string(s.Status),
		s.LastSeenAt,
		time.Now().UTC(),
		s.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return student.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to update student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return student.ErrStudentNotFound
	}

	return nil
}

// Delete removes an account. Enrollments and completion records go with
// it through ON DELETE CASCADE.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return student.ErrStudentNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bulk Operations
// ─────────────────────────────────────────────────────────────────────────────

// GetAll returns all accounts with pagination.
func (r *StudentRepository) GetAll(ctx context.Context, opts student.ListOptions) ([]*student.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students`, studentColumns)

	args := []interface{}{opts.Limit, opts.Offset}
	if opts.Role != "" {
		query += " WHERE role = $3"
		args = append(args, string(opts.Role))
	}

	query += r.buildOrderBy(opts)
	query += " LIMIT $1 OFFSET $2"

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	return r.scanStudents(rows)
}

// GetByIDs returns accounts by a list of IDs.
func (r *StudentRepository) GetByIDs(ctx context.Context, ids []string) ([]*student.Student, error) {
	if len(ids) == 0 {
		return []*student.Student{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT %s FROM students WHERE id IN (%s)`,
		studentColumns, strings.Join(placeholders, ", "))

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students by ids: %w", err)
	}
	defer rows.Close()

	return r.scanStudents(rows)
}

// Count returns the total number of accounts.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Existence Checks
// ─────────────────────────────────────────────────────────────────────────────

// Exists checks if an account exists by ID.
func (r *StudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)",
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check student existence: %w", err)
	}
	return exists, nil
}

// ExistsByEmail checks if an email is already taken.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM students WHERE email = $1)",
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check student existence by email: %w", err)
	}
	return exists, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scanStudent scans a single account from a row.
func (r *StudentRepository) scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	var role, status string

	err := row.Scan(
		&s.ID,
		&s.Email,
		&s.DisplayName,
		&role,
		&s.PasswordHash,
		&status,
		&s.LastSeenAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, student.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.Role = student.Role(role)
	s.Status = student.Status(status)

	return &s, nil
}

// scanStudents scans multiple accounts from rows.
func (r *StudentRepository) scanStudents(rows pgx.Rows) ([]*student.Student, error) {
	var students []*student.Student

	for rows.Next() {
		var s student.Student
		var role, status string

		err := rows.Scan(
			&s.ID,
			&s.Email,
			&s.DisplayName,
			&role,
			&s.PasswordHash,
			&status,
			&s.LastSeenAt,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}

		s.Role = student.Role(role)
		s.Status = student.Status(status)

		students = append(students, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return students, nil
}

// buildOrderBy builds ORDER BY clause.
func (r *StudentRepository) buildOrderBy(opts student.ListOptions) string {
	orderField := "created_at"
	validFields := map[string]string{
		"display_name": "display_name",
		"name":         "display_name",
		"email":        "email",
		"last_seen_at": "last_seen_at",
		"created_at":   "created_at",
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
