package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/banshee-data/taxiin.report/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies all pending migrations. Being at the latest version
// already is not an error.
func (db *DB) MigrateUp() error {
	return db.withMigrate("up", (*migrate.Migrate).Up)
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown() error {
	return db.withMigrate("down", func(m *migrate.Migrate) error { return m.Steps(-1) })
}

// MigrateForce sets the schema version without running anything. Only for
// recovering from a dirty state.
func (db *DB) MigrateForce(version int) error {
	return db.withMigrate(fmt.Sprintf("force %d", version), func(m *migrate.Migrate) error {
		return m.Force(version)
	})
}

// MigrateVersion reports the schema version and dirty flag; 0 when nothing
// has been applied.
func (db *DB) MigrateVersion() (version uint, dirty bool, err error) {
	err = db.withMigrate("version", func(m *migrate.Migrate) error {
		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	return version, dirty, err
}

// withMigrate runs fn against a migrate instance over the embedded scripts.
// The instance is not closed: that would close db.DB as well.
func (db *DB) withMigrate(action string, fn func(*migrate.Migrate) error) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", action, err)
	}
	return nil
}

// migrateLogger prefixes golang-migrate output on the package logger.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }
