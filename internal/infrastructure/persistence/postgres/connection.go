// Package postgres реализует слой хранения Edulight поверх PostgreSQL.
// Здесь живёт источник истины: учётные записи, каталог курсов, записи
// на курсы, журнал прохождения уроков и производные сводки прогресса
// с их колонкой версии.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrConnectionClosed возвращается при операциях над закрытым пулом.
	ErrConnectionClosed = errors.New("postgres: connection pool is closed")

	// ErrMigrationFailed возвращается при сбое миграции.
	ErrMigrationFailed = errors.New("postgres: migration failed")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONNECTION POOL
// ══════════════════════════════════════════════════════════════════════════════

// PoolOptions - настройки пула соединений. Значения приходят из
// config.DatabaseConfig; нули заменяются умолчаниями.
type PoolOptions struct {
	// MaxConns - максимум соединений в пуле.
	MaxConns int32

	// MinConns - минимум простаивающих соединений.
	MinConns int32

	// MaxConnLifetime - максимальное время жизни соединения.
	// Важно за pgbouncer и при ротации кредов.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime - максимальный простой соединения.
	MaxConnIdleTime time.Duration
}

// DefaultPoolOptions возвращает настройки пула по умолчанию.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// Connection - пул соединений PostgreSQL.
type Connection struct {
	pool   *pgxpool.Pool
	closed bool
	mu     sync.RWMutex
}

// NewConnectionFromURL создаёт пул по строке подключения.
// Managed-провайдеры выдают единый DATABASE_URL, поэтому это
// основной способ подключения.
func NewConnectionFromURL(ctx context.Context, databaseURL string, opts PoolOptions) (*Connection, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse database URL: %w", err)
	}

	defaults := DefaultPoolOptions()
	if opts.MaxConns <= 0 {
		opts.MaxConns = defaults.MaxConns
	}
	if opts.MinConns <= 0 {
		opts.MinConns = defaults.MinConns
	}
	if opts.MaxConnLifetime <= 0 {
		opts.MaxConnLifetime = defaults.MaxConnLifetime
	}
	if opts.MaxConnIdleTime <= 0 {
		opts.MaxConnIdleTime = defaults.MaxConnIdleTime
	}

	poolConfig.MaxConns = opts.MaxConns
	poolConfig.MinConns = opts.MinConns
	poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	return &Connection{pool: pool}, nil
}

// Close закрывает пул соединений.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.pool.Close()
}

// Ping проверяет, живо ли соединение с базой.
func (c *Connection) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrConnectionClosed
	}

	return c.pool.Ping(ctx)
}

// Exec выполняет запрос без возвращаемых строк.
func (c *Connection) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return pgconn.CommandTag{}, ErrConnectionClosed
	}

	return c.pool.Exec(ctx, sql, args...)
}

// Query выполняет запрос, возвращающий строки.
func (c *Connection) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrConnectionClosed
	}

	return c.pool.Query(ctx, sql, args...)
}

// QueryRow выполняет запрос, возвращающий одну строку.
func (c *Connection) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.pool.QueryRow(ctx, sql, args...)
}

// withTx выполняет fn в транзакции: commit при nil, rollback иначе.
func (c *Connection) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConnectionClosed
	}
	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit error: %w", err)
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATIONS
// Обе бинарные цели прогоняют миграции при старте: API и Worker
// делят одну схему, и любой из них может подняться первым.
// ══════════════════════════════════════════════════════════════════════════════

// Migration - одна миграция схемы.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// Migrator применяет встроенные миграции.
type Migrator struct {
	conn      *Connection
	tableName string
}

// NewMigrator создаёт мигратор со встроенным набором миграций.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:      conn,
		tableName: "schema_migrations",
	}
}

// Migrate применяет все непройденные миграции.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.ensureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, mig := range migrations() {
		if applied[mig.Version] {
			continue
		}

		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		// Миграция и её запись фиксируются в одной транзакции.
		err := m.conn.withTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}

			insertQuery := fmt.Sprintf(
				"INSERT INTO %s (version, name) VALUES ($1, $2)",
				m.tableName,
			)
			_, err := tx.Exec(ctx, insertQuery, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}

	return nil
}

// RollbackLast откатывает последнюю применённую миграцию.
func (m *Migrator) RollbackLast(ctx context.Context) error {
	if err := m.ensureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	var lastVersion int
	for v := range applied {
		if v > lastVersion {
			lastVersion = v
		}
	}
	if lastVersion == 0 {
		return nil
	}

	var migration *Migration
	all := migrations()
	for i := range all {
		if all[i].Version == lastVersion {
			migration = &all[i]
			break
		}
	}
	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, lastVersion)
	}

	return m.conn.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, migration.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", lastVersion, err)
		}

		deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName)
		_, err := tx.Exec(ctx, deleteQuery, lastVersion)
		return err
	})
}

// ensureMigrationTable создаёт таблицу учёта миграций, если её нет.
func (m *Migrator) ensureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	_, err := m.conn.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	return nil
}

// appliedVersions возвращает версии уже применённых миграций.
func (m *Migrator) appliedVersions(ctx context.Context) (map[int]bool, error) {
	query := fmt.Sprintf("SELECT version FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// migrations возвращает встроенный набор миграций схемы.
func migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_students",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_catalog",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_enrollments",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_progress",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// IsUniqueViolation сообщает, нарушен ли уникальный индекс.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// IsForeignKeyViolation сообщает, нарушен ли внешний ключ.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}

// IsNoRows сообщает, вернул ли запрос пустой результат.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
