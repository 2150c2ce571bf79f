package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/hashicorp/go-hclog"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Tables dropped when the schema cannot be upgraded in place, children first.
var resetTables = []string{
	"instructions",
	"ingredients",
	"recipes",
	"change_cursors",
}

type options struct {
	logger         hclog.Logger
	resetOnFailure bool
}

// Option configures RunMigrations.
type Option func(*options)

// WithLogger sets the logger used for upgrade progress.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithResetOnFailure drops and recreates every table when the schema is dirty
// or an upgrade step fails. Stored recipes and change cursors are lost, so
// the next sync pass pulls the remote feed from the beginning.
func WithResetOnFailure(reset bool) Option {
	return func(o *options) {
		o.resetOnFailure = reset
	}
}

// RunMigrations applies all pending migrations for the given database driver.
// The caller keeps ownership of db.
func RunMigrations(db *sql.DB, driver string, opts ...Option) error {
	o := &options{logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(o)
	}

	m, err := newMigrate(db, driver)
	if err != nil {
		return err
	}

	_, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if !dirty {
		err = m.Up()
		if err == nil || errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		if !o.resetOnFailure {
			return fmt.Errorf("migration failed: %w", err)
		}
		o.logger.Warn("schema upgrade failed, recreating tables", "error", err)
	} else {
		if !o.resetOnFailure {
			return fmt.Errorf("schema is dirty and reset is disabled")
		}
		o.logger.Warn("schema is dirty, recreating tables")
	}

	if err := resetSchema(db); err != nil {
		return err
	}
	if err := m.Force(database.NilVersion); err != nil {
		return fmt.Errorf("failed to clear schema version: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed after reset: %w", err)
	}

	o.logger.Warn("schema recreated; local recipes and change cursors were discarded")
	return nil
}

// GetMigrationVersion returns the current migration version. A database
// without any applied migration reports version 0.
func GetMigrationVersion(db *sql.DB, driver string) (version uint, dirty bool, err error) {
	m, err := newMigrate(db, driver)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// LatestVersion returns the highest migration version embedded for driver.
func LatestVersion(driver string) (uint, error) {
	src, err := sourceFor(driver)
	if err != nil {
		return 0, err
	}
	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("failed to read first migration: %w", err)
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return v, nil
			}
			return 0, fmt.Errorf("failed to read migration after %d: %w", v, err)
		}
		v = next
	}
}

func sourceFor(driver string) (source.Driver, error) {
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", driver)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("failed to load migration source: %w", err)
	}
	return src, nil
}

func newMigrate(db *sql.DB, driver string) (*migrate.Migrate, error) {
	sourceDriver, err := sourceFor(driver)
	if err != nil {
		return nil, err
	}

	var databaseDriver database.Driver
	switch driver {
	case "postgres":
		databaseDriver, err = postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres driver: %w", err)
		}
	case "sqlite":
		databaseDriver, err = sqlite.WithInstance(db, &sqlite.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
		}
	}

	m, err := migrate.NewWithInstance(
		"iofs", sourceDriver,
		driver, databaseDriver,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

func resetSchema(db *sql.DB) error {
	for _, table := range resetTables {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return nil
}
