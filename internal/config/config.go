// Package config loads the recipebox HCL configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/hashicorp-forge/recipebox/pkg/database"
	"github.com/hashicorp-forge/recipebox/pkg/notifications/backends"
	"github.com/hashicorp-forge/recipebox/pkg/router"
	"github.com/hashicorp-forge/recipebox/pkg/syncer"
)

const (
	// DefaultDatabasePath is the SQLite file used when none is configured.
	DefaultDatabasePath = ".recipebox/recipebox.db"

	// DefaultMetricsAddress serves Prometheus metrics during sync.
	DefaultMetricsAddress = "127.0.0.1:9464"
)

// Config is the root of the configuration file.
type Config struct {
	// LogLevel is one of trace, debug, info, warn or error.
	LogLevel string `hcl:"log_level,optional"`

	Database      *Database        `hcl:"database,block"`
	Defaults      *router.Defaults `hcl:"defaults,block"`
	Sync          *Sync            `hcl:"sync,block"`
	Metrics       *Metrics         `hcl:"metrics,block"`
	Notifications *backends.Config `hcl:"notifications,block"`
}

// Database configures the local record store.
type Database struct {
	Driver   string `hcl:"driver,optional"`
	Path     string `hcl:"path,optional"`
	DSN      string `hcl:"dsn,optional"`
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	User     string `hcl:"user,optional"`
	Password string `hcl:"password,optional"`
	DBName   string `hcl:"dbname,optional"`
	SSLMode  string `hcl:"sslmode,optional"`

	// ResetOnDirty drops and recreates the schema when an upgrade cannot be
	// applied in place.
	ResetOnDirty bool `hcl:"reset_on_dirty,optional"`
}

// Sync configures remote change feed synchronization.
type Sync struct {
	Interval       string `hcl:"interval,optional"`
	MaxBackoff     string `hcl:"max_backoff,optional"`
	PageSize       int64  `hcl:"page_size,optional"`
	FetchDocuments bool   `hcl:"fetch_documents,optional"`

	// PrefsFile keeps change cursors in a JSON file instead of the database.
	PrefsFile string `hcl:"prefs_file,optional"`

	Accounts []Account `hcl:"account,block"`

	interval   time.Duration
	maxBackoff time.Duration
}

// Account is a remote account to sync.
type Account struct {
	ID string `hcl:"id,label"`

	// CredentialsFile is a Google service account or OAuth client file.
	CredentialsFile string `hcl:"credentials_file,optional"`

	// TokenFile holds a JSON OAuth2 token.
	TokenFile string `hcl:"token_file,optional"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `hcl:"enabled,optional"`
	Address string `hcl:"address,optional"`
}

// NewConfig parses the configuration file at path. An empty path yields the
// defaults. Environment variables take precedence over the file.
func NewConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Database == nil {
		c.Database = &Database{}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = database.DriverSQLite
	}
	if c.Database.Driver == database.DriverSQLite && c.Database.Path == "" && c.Database.DSN == "" {
		c.Database.Path = DefaultDatabasePath
	}

	defaults := router.DefaultValues()
	if c.Defaults != nil {
		defaults = c.Defaults.Merge(defaults)
	}
	c.Defaults = &defaults

	if c.Sync == nil {
		c.Sync = &Sync{}
	}
	var err error
	if c.Sync.interval, err = parseDuration("sync.interval", c.Sync.Interval, syncer.DefaultInterval); err != nil {
		return err
	}
	if c.Sync.maxBackoff, err = parseDuration("sync.max_backoff", c.Sync.MaxBackoff, syncer.DefaultMaxBackoff); err != nil {
		return err
	}
	if c.Sync.PageSize == 0 {
		c.Sync.PageSize = syncer.DefaultPageSize
	}

	if c.Metrics == nil {
		c.Metrics = &Metrics{}
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = DefaultMetricsAddress
	}

	if c.Notifications != nil && c.Notifications.Redpanda != nil && c.Notifications.Redpanda.Topic == "" {
		c.Notifications.Redpanda.Topic = backends.DefaultTopic
	}
	return nil
}

func parseDuration(field, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return d, nil
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&c.Database),
		validation.Field(&c.Sync),
		validation.Field(&c.Notifications, validation.By(validateNotifications)),
	)
}

// Validate implements validation.Validatable.
func (d Database) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In(database.DriverSQLite, database.DriverPostgres)),
		validation.Field(&d.Path, validation.When(d.Driver == database.DriverSQLite && d.DSN == "", validation.Required)),
		validation.Field(&d.Host, validation.When(d.Driver == database.DriverPostgres && d.DSN == "", validation.Required)),
		validation.Field(&d.Port, validation.Min(0), validation.Max(65535)),
	)
}

// Validate implements validation.Validatable.
func (s Sync) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.PageSize, validation.Min(int64(1)), validation.Max(int64(1000))),
		validation.Field(&s.interval, validation.Min(time.Second)),
		validation.Field(&s.maxBackoff, validation.Min(time.Second)),
		validation.Field(&s.Accounts, validation.By(uniqueAccounts)),
	)
}

// Validate implements validation.Validatable.
func (a Account) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ID, validation.Required),
	)
}

func uniqueAccounts(value any) error {
	accounts, _ := value.([]Account)
	seen := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		if seen[a.ID] {
			return fmt.Errorf("duplicate account %q", a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

func validateNotifications(value any) error {
	cfg, _ := value.(*backends.Config)
	if cfg == nil || cfg.Redpanda == nil || !cfg.Redpanda.Enabled {
		return nil
	}
	if len(cfg.Redpanda.Brokers) == 0 {
		return fmt.Errorf("redpanda backend requires at least one broker")
	}
	return nil
}

// DatabaseConfig converts the database block for database.Connect.
func (c *Config) DatabaseConfig() database.Config {
	d := c.Database
	return database.Config{
		Driver:   d.Driver,
		Path:     d.Path,
		DSN:      d.DSN,
		Host:     d.Host,
		Port:     d.Port,
		User:     d.User,
		Password: d.Password,
		DBName:   d.DBName,
		SSLMode:  d.SSLMode,
	}
}

// EnsureDataDir creates the directory holding the SQLite file.
func (c *Config) EnsureDataDir() error {
	if c.Database.Driver != database.DriverSQLite || c.Database.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Database.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// SyncInterval returns the parsed sync interval.
func (c *Config) SyncInterval() time.Duration {
	return c.Sync.interval
}

// SyncMaxBackoff returns the parsed backoff cap.
func (c *Config) SyncMaxBackoff() time.Duration {
	return c.Sync.maxBackoff
}

// Level returns the configured log level.
func (c *Config) Level() hclog.Level {
	return hclog.LevelFromString(c.LogLevel)
}
