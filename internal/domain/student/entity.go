// Package student содержит доменную модель учётной записи Edulight.
package student

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/edulight/edulight-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Role определяет роль пользователя на платформе.
type Role string

const (
	// RoleStudent - студент, проходит курсы.
	RoleStudent Role = "student"
	// RoleInstructor - преподаватель, создаёт курсы и уроки.
	RoleInstructor Role = "instructor"
	// RoleAdmin - администратор платформы.
	RoleAdmin Role = "admin"
)

// IsValid проверяет, что роль корректна.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanEnroll возвращает true, если пользователь с этой ролью может
// записываться на курсы.
func (r Role) CanEnroll() bool {
	return r == RoleStudent
}

// CanManageCourses возвращает true, если роль допускает управление курсами.
func (r Role) CanManageCourses() bool {
	return r == RoleInstructor || r == RoleAdmin
}

// Status определяет текущий статус учётной записи.
type Status string

const (
	// StatusActive - учётная запись активна.
	StatusActive Status = "active"
	// StatusSuspended - учётная запись временно заблокирована.
	StatusSuspended Status = "suspended"
	// StatusDeactivated - учётная запись деактивирована пользователем.
	StatusDeactivated Status = "deactivated"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusDeactivated:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - учётная запись пользователя платформы.
// Название историческое: большинство пользователей - студенты, но той же
// сущностью представлены преподаватели и администраторы.
type Student struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// Email - адрес электронной почты, уникален в системе.
	Email string

	// DisplayName - отображаемое имя.
	DisplayName string

	// Role - роль на платформе.
	Role Role

	// PasswordHash - bcrypt-хеш пароля. Пустой, пока пароль не установлен.
	PasswordHash string

	// Status - текущий статус учётной записи.
	Status Status

	// LastSeenAt - время последней активности.
	LastSeenAt time.Time

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidEmail - невалидный адрес почты.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidDisplayName - невалидное отображаемое имя.
	ErrInvalidDisplayName = errors.New("invalid display name: must be 1-100 chars")

	// ErrInvalidRole - невалидная роль.
	ErrInvalidRole = errors.New("invalid role")

	// ErrWeakPassword - пароль короче минимальной длины.
	ErrWeakPassword = errors.New("password must be at least 8 chars")

	// ErrStudentNotFound - учётная запись не найдена.
	ErrStudentNotFound = errors.New("student not found")

	// ErrStudentAlreadyExists - учётная запись уже существует.
	ErrStudentAlreadyExists = errors.New("student already exists")

	// ErrStudentNotActive - учётная запись не активна.
	ErrStudentNotActive = errors.New("student account is not active")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewStudentParams содержит параметры для создания учётной записи.
type NewStudentParams struct {
	ID          string
	Email       string
	DisplayName string
	Role        Role
}

// NewStudent создаёт новую учётную запись с валидацией всех полей.
func NewStudent(params NewStudentParams) (*Student, error) {
	if params.ID == "" {
		return nil, errors.New("student id is required")
	}

	email, err := shared.NewEmail(params.Email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if len(displayName) == 0 || len(displayName) > 100 {
		return nil, ErrInvalidDisplayName
	}

	role := params.Role
	if role == "" {
		role = RoleStudent
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	now := time.Now().UTC()

	return &Student{
		ID:          params.ID,
		Email:       email.String(),
		DisplayName: displayName,
		Role:        role,
		Status:      StatusActive,
		LastSeenAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// SetPassword хеширует и устанавливает пароль.
func (s *Student) SetPassword(raw string) error {
	if len(raw) < 8 {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.PasswordHash = string(hash)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// CheckPassword проверяет пароль против сохранённого хеша.
func (s *Student) CheckPassword(raw string) bool {
	if s.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(raw)) == nil
}

// IsActive возвращает true, если учётная запись активна.
func (s *Student) IsActive() bool {
	return s.Status == StatusActive
}

// Rename обновляет отображаемое имя.
func (s *Student) Rename(displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if len(displayName) == 0 || len(displayName) > 100 {
		return ErrInvalidDisplayName
	}

	s.DisplayName = displayName
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Touch обновляет время последней активности.
func (s *Student) Touch(at time.Time) {
	s.LastSeenAt = at.UTC()
	s.UpdatedAt = s.LastSeenAt
}

// Suspend временно блокирует учётную запись.
func (s *Student) Suspend() error {
	if s.Status != StatusActive {
		return ErrStudentNotActive
	}

	s.Status = StatusSuspended
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Reinstate снимает блокировку.
func (s *Student) Reinstate() error {
	if s.Status != StatusSuspended {
		return errors.New("can only reinstate suspended accounts")
	}

	s.Status = StatusActive
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Deactivate деактивирует учётную запись.
func (s *Student) Deactivate() {
	s.Status = StatusDeactivated
	s.UpdatedAt = time.Now().UTC()
}

// String возвращает строковое представление для логирования.
// Хеш пароля в вывод не попадает.
func (s *Student) String() string {
	return fmt.Sprintf(
		"Student{ID: %s, Email: %s, Role: %s, Status: %s}",
		s.ID, s.Email, s.Role, s.Status,
	)
}

// Clone создаёт копию учётной записи.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}

	clone := *s
	return &clone
}
