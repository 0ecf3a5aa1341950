package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// withMigrator opens a migrator over the embedded files for the duration of fn
func withMigrator(dbURL string, fn func(*migrate.Migrate) error) error {
	src, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()
	return fn(m)
}

// Run applies every pending up migration
func Run(dbURL string, log *zap.Logger) error {
	return withMigrator(dbURL, func(m *migrate.Migrate) error {
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("schema up to date")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		version, dirty, _ := m.Version()
		log.Info("schema migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	})
}

// Rollback reverts the most recent migration
func Rollback(dbURL string, log *zap.Logger) error {
	return withMigrator(dbURL, func(m *migrate.Migrate) error {
		if err := m.Steps(-1); err != nil {
			return fmt.Errorf("migrate down one step: %w", err)
		}
		log.Info("rolled back one migration")
		return nil
	})
}
