package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/entities"
)

var _ entities.Store = (*repository)(nil)

type repository struct {
	db *sql.DB
}

// Open connects to dsn, applies pending migrations and returns the store.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (entities.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := NewMigrationRunner(db, logger).RunMigrations(); err != nil {
		db.Close()

		return nil, err
	}

	return NewRepository(db), nil
}

// NewRepository wraps an already migrated database.
func NewRepository(db *sql.DB) entities.Store {
	return &repository{db: db}
}

func (repo *repository) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value FROM kv_entries WHERE key = $1 AND value IS NOT NULL`

	var value []byte

	err := repo.db.QueryRowContext(ctx, q, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entities.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return value, nil
}

func (repo *repository) Set(ctx context.Context, key string, value []byte) error {
	const q = `INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := repo.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

// Update locks the row with SELECT ... FOR UPDATE. Absent keys are first
// inserted with a NULL value so that concurrent first writers also queue on
// the row lock.
func (repo *repository) Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	const reserve = `INSERT INTO kv_entries (key, value) VALUES ($1, NULL) ON CONFLICT (key) DO NOTHING`

	if _, err := tx.ExecContext(ctx, reserve, key); err != nil {
		return fmt.Errorf("failed to reserve %s: %w", key, err)
	}

	var current []byte

	if err := tx.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = $1 FOR UPDATE`, key).Scan(&current); err != nil {
		return fmt.Errorf("failed to lock %s: %w", key, err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	const q = `UPDATE kv_entries SET value = $2, updated_at = NOW() WHERE key = $1`

	if _, err := tx.ExecContext(ctx, q, key, next); err != nil {
		return fmt.Errorf("failed to update %s: %w", key, err)
	}

	return tx.Commit()
}

func (repo *repository) Delete(ctx context.Context, key string) error {
	result, err := repo.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1 AND value IS NOT NULL`, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return entities.ErrNotFound
	}

	return nil
}

func (repo *repository) Close() error {
	return repo.db.Close()
}
