package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет основные операции CRUD для учётных записей.
type Repository interface {
	// Create создаёт новую учётную запись.
	// Возвращает ErrStudentAlreadyExists, если email уже занят.
	Create(ctx context.Context, student *Student) error

	// GetByID возвращает учётную запись по внутреннему ID.
	// Возвращает ErrStudentNotFound, если запись не найдена.
	GetByID(ctx context.Context, id string) (*Student, error)

	// GetByEmail возвращает учётную запись по адресу почты.
	// Возвращает ErrStudentNotFound, если запись не найдена.
	GetByEmail(ctx context.Context, email string) (*Student, error)

	// Update обновляет учётную запись.
	// Возвращает ErrStudentNotFound, если запись не найдена.
	Update(ctx context.Context, student *Student) error

	// Delete удаляет учётную запись.
	// Возвращает ErrStudentNotFound, если запись не найдена.
	Delete(ctx context.Context, id string) error

	// GetAll возвращает учётные записи с пагинацией.
	GetAll(ctx context.Context, opts ListOptions) ([]*Student, error)

	// GetByIDs возвращает учётные записи по списку ID.
	GetByIDs(ctx context.Context, ids []string) ([]*Student, error)

	// Count возвращает общее количество учётных записей.
	Count(ctx context.Context) (int, error)

	// Exists проверяет существование учётной записи по ID.
	Exists(ctx context.Context, id string) (bool, error)

	// ExistsByEmail проверяет, занят ли email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// ListOptions содержит параметры для пагинации и сортировки.
type ListOptions struct {
	// Offset - смещение (для пагинации).
	Offset int

	// Limit - максимальное количество записей.
	Limit int

	// SortBy - поле для сортировки.
	SortBy string

	// SortDesc - сортировка по убыванию.
	SortDesc bool

	// Role - фильтр по роли (пустая строка - все роли).
	Role Role
}

// DefaultListOptions возвращает параметры по умолчанию.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset:   0,
		Limit:    50,
		SortBy:   "created_at",
		SortDesc: false,
	}
}

// WithOffset устанавливает смещение.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithLimit устанавливает лимит.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}

// WithRole устанавливает фильтр по роли.
func (o ListOptions) WithRole(role Role) ListOptions {
	o.Role = role
	return o
}
