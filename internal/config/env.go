package config

import (
	"os"
	"strings"

	"github.com/hashicorp-forge/recipebox/pkg/notifications/backends"
)

// Environment variables that override the configuration file.
const (
	EnvLogLevel        = "RECIPEBOX_LOG_LEVEL"
	EnvDatabasePath    = "RECIPEBOX_DATABASE_PATH"
	EnvDatabaseDSN     = "RECIPEBOX_DATABASE_DSN"
	EnvRedpandaBrokers = "REDPANDA_BROKERS"
	EnvChangesTopic    = "RECIPEBOX_CHANGES_TOPIC"
)

// applyEnv overrides file values from the environment. Broker lists are
// comma separated.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}

	if v := os.Getenv(EnvDatabasePath); v != "" {
		if c.Database == nil {
			c.Database = &Database{}
		}
		c.Database.Path = v
	}
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		if c.Database == nil {
			c.Database = &Database{}
		}
		c.Database.DSN = v
	}

	brokers := os.Getenv(EnvRedpandaBrokers)
	topic := os.Getenv(EnvChangesTopic)
	if brokers == "" && topic == "" {
		return
	}
	if c.Notifications == nil {
		c.Notifications = &backends.Config{}
	}
	if c.Notifications.Redpanda == nil {
		c.Notifications.Redpanda = &backends.RedpandaConfig{}
	}
	if brokers != "" {
		var list []string
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				list = append(list, b)
			}
		}
		c.Notifications.Redpanda.Brokers = list
		c.Notifications.Redpanda.Enabled = true
	}
	if topic != "" {
		c.Notifications.Redpanda.Topic = topic
	}
}
