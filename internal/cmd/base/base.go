package base

import (
	"flag"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/recipebox/internal/config"
	"github.com/hashicorp-forge/recipebox/internal/migrate"
	"github.com/hashicorp-forge/recipebox/pkg/database"
)

// Command is embedded by every CLI command.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui
}

// FlagSet wraps flag.FlagSet with help output for command usage text.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	return &FlagSet{FlagSet: f}
}

// Help returns the flag descriptions formatted for Help().
func (f *FlagSet) Help() string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n")
	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "\n  -%s", fl.Name)
		if fl.DefValue != "" {
			fmt.Fprintf(&b, "=%s", fl.DefValue)
		}
		fmt.Fprintf(&b, "\n      %s\n", fl.Usage)
	})
	return b.String()
}

// LoadConfig parses the configuration file and applies its log level.
func (c *Command) LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.NewConfig(path)
	if err != nil {
		return nil, err
	}
	c.Log.SetLevel(cfg.Level())
	return cfg, nil
}

// OpenDatabase connects to the configured database and brings its schema up
// to date.
func (c *Command) OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.DatabaseConfig(), c.Log)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	if err := migrate.RunMigrations(sqlDB, cfg.Database.Driver,
		migrate.WithLogger(c.Log),
		migrate.WithResetOnFailure(cfg.Database.ResetOnDirty),
	); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return db, nil
}
