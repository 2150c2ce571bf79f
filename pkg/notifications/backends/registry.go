package backends

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp-forge/recipebox/pkg/notifications"
)

// DefaultTopic is the topic change events are exported to.
const DefaultTopic = "recipebox.changes"

// Config holds backend configuration from HCL
type Config struct {
	// Audit backend logs every event
	Audit *AuditConfig `hcl:"audit,block"`

	// Redpanda backend exports events to a topic
	Redpanda *RedpandaConfig `hcl:"redpanda,block"`
}

// AuditConfig configures the audit backend
type AuditConfig struct {
	Enabled bool `hcl:"enabled,optional"`
}

// RedpandaConfig configures the Redpanda backend
type RedpandaConfig struct {
	Enabled bool     `hcl:"enabled,optional"`
	Brokers []string `hcl:"brokers,optional"`
	Topic   string   `hcl:"topic,optional"`
}

// Registry manages available change event backends
type Registry struct {
	backends map[string]Backend
}

// NewRegistry creates a new backend registry from configuration
func NewRegistry(cfg *Config, logger hclog.Logger) (*Registry, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	registry := &Registry{
		backends: make(map[string]Backend),
	}

	if cfg == nil {
		return registry, nil
	}

	if cfg.Audit != nil && cfg.Audit.Enabled {
		registry.Register(NewAuditBackend(logger))
		logger.Info("initialized audit backend")
	}

	if cfg.Redpanda != nil && cfg.Redpanda.Enabled {
		topic := cfg.Redpanda.Topic
		if topic == "" {
			topic = DefaultTopic
		}
		backend, err := NewRedpandaBackend(RedpandaBackendConfig{
			Brokers: cfg.Redpanda.Brokers,
			Topic:   topic,
			Logger:  logger,
		})
		if err != nil {
			_ = registry.Close()
			return nil, fmt.Errorf("failed to initialize redpanda backend: %w", err)
		}
		registry.Register(backend)
		logger.Info("initialized redpanda backend",
			"brokers", cfg.Redpanda.Brokers,
			"topic", topic,
		)
	}

	return registry, nil
}

// Register adds a backend, replacing any with the same name.
func (r *Registry) Register(b Backend) {
	r.backends[b.Name()] = b
}

// GetBackend returns a backend by name
func (r *Registry) GetBackend(name string) (Backend, bool) {
	backend, ok := r.backends[name]
	return backend, ok
}

// GetAll returns all registered backends ordered by name
func (r *Registry) GetAll() []Backend {
	backends := make([]Backend, 0, len(r.backends))
	for _, name := range r.GetBackendNames() {
		backends = append(backends, r.backends[name])
	}
	return backends
}

// GetBackendNames returns the sorted names of all registered backends
func (r *Registry) GetBackendNames() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sinks returns the backends as hub sinks.
func (r *Registry) Sinks() []notifications.Sink {
	all := r.GetAll()
	sinks := make([]notifications.Sink, len(all))
	for i, b := range all {
		sinks[i] = b
	}
	return sinks
}

// Close closes every backend.
func (r *Registry) Close() error {
	var result *multierror.Error
	for _, b := range r.GetAll() {
		if err := b.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close %s backend: %w", b.Name(), err))
		}
	}
	return result.ErrorOrNil()
}
