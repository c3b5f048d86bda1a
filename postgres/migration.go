package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

/*
MigrationRunner applies the schema migrations embedded under migrations/ using
golang-migrate. Files follow {version}_{description}.up.sql / .down.sql and are
applied in version order; applied versions are tracked in schema_migrations.
*/
type MigrationRunner struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewMigrationRunner(db *sql.DB, logger *zap.Logger) *MigrationRunner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MigrationRunner{db: db, logger: logger}
}

func (m *MigrationRunner) RunMigrations() error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(m.db, &pgxmigrate.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Debug("no migrations to apply")

			return nil
		}

		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.logger.Info("applied database migrations")

	return nil
}
