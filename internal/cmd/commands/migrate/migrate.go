package migrate

import (
	"database/sql"
	"flag"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql

	"github.com/hashicorp-forge/recipebox/internal/cmd/base"
	"github.com/hashicorp-forge/recipebox/internal/config"
	schema "github.com/hashicorp-forge/recipebox/internal/migrate"
	"github.com/hashicorp-forge/recipebox/pkg/database"
)

type Command struct {
	*base.Command

	flagConfig string
	flagStatus bool
}

func (c *Command) Synopsis() string {
	return "Apply database schema migrations"
}

func (c *Command) Help() string {
	return `Usage: recipebox migrate [options]

  Brings the recipe database schema up to date. With -status, prints the
  current and latest schema versions without changing anything.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("migrate", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to recipebox config file",
	)
	f.BoolVar(
		&c.flagStatus, "status", false,
		"Print schema versions only.",
	)

	return f
}

func (c *Command) Run(args []string) int {
	ui := c.UI

	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		ui.Error(fmt.Sprintf("error parsing config file: %v", err))
		return 1
	}
	driver := cfg.Database.Driver

	sqlDB, closeDB, err := c.open(cfg)
	if err != nil {
		ui.Error(fmt.Sprintf("error connecting to database: %v", err))
		return 1
	}
	defer closeDB()

	latest, err := schema.LatestVersion(driver)
	if err != nil {
		ui.Error(fmt.Sprintf("error reading migrations: %v", err))
		return 1
	}
	current, dirty, err := schema.GetMigrationVersion(sqlDB, driver)
	if err != nil {
		ui.Error(fmt.Sprintf("error reading schema version: %v", err))
		return 1
	}

	if c.flagStatus {
		ui.Output(fmt.Sprintf("driver:  %s", driver))
		ui.Output(fmt.Sprintf("current: %d (dirty: %t)", current, dirty))
		ui.Output(fmt.Sprintf("latest:  %d", latest))
		return 0
	}

	if err := schema.RunMigrations(sqlDB, driver,
		schema.WithLogger(c.Log),
		schema.WithResetOnFailure(cfg.Database.ResetOnDirty),
	); err != nil {
		ui.Error(fmt.Sprintf("migration failed: %v", err))
		return 1
	}

	ui.Info(fmt.Sprintf("Schema is at version %d (was %d)", latest, current))
	return 0
}

// open returns a database/sql handle for cfg. PostgreSQL goes through
// lib/pq directly; SQLite reuses the GORM connection so its pragmas apply.
func (c *Command) open(cfg *config.Config) (*sql.DB, func(), error) {
	dbCfg := cfg.DatabaseConfig()

	if dbCfg.DriverName() == database.DriverPostgres {
		sqlDB, err := sql.Open("postgres", dbCfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		if err := sqlDB.Ping(); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return sqlDB, func() { _ = sqlDB.Close() }, nil
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(dbCfg, c.Log)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	return sqlDB, func() { _ = database.Close(db) }, nil
}
