// Package config defines the ledger process configuration and how it is
// loaded.
package config

import (
	"fmt"
	"time"

	"github.com/okian/realmrep/internal/adapters/repository"
	"github.com/okian/realmrep/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// StoreBackend selects the record store: memory, badger, sqlite, postgres.
	// badger holds an exclusive lock on its directory, so only one process
	// can use it; sqlite and postgres can be shared with other writers.
	StoreBackend string `koanf:"store_backend"`

	// DataDir holds the badger and sqlite files.
	DataDir string `koanf:"data_dir"`

	// DatabaseURL is the postgres DSN, required by the postgres backend.
	DatabaseURL string `koanf:"database_url"`

	// SinkQueueSize bounds the in-memory event sink queue.
	SinkQueueSize int `koanf:"sink_queue_size"`

	// SinkWorkers sets the number of event publishing workers.
	SinkWorkers int `koanf:"sink_workers"`

	// SinkDedupeWindow is how many published event IDs are remembered to
	// suppress duplicates.
	SinkDedupeWindow int `koanf:"sink_dedupe_window"`

	// NATSURL enables NATS publishing when set; otherwise events are logged.
	NATSURL string `koanf:"nats_url"`

	// NATSSubject is the subject interaction events are published on.
	NATSSubject string `koanf:"nats_subject"`

	// MetricsAddr is the listen address of the Prometheus endpoint; empty disables it.
	MetricsAddr string `koanf:"metrics_addr"`

	// DecayIntervalSeconds is the period of the decay sweep.
	DecayIntervalSeconds int `koanf:"decay_interval_seconds"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            logger.FormatText,
		StoreBackend:         string(repository.BackendSQLite),
		DataDir:              "data",
		SinkQueueSize:        4096,
		SinkWorkers:          2,
		SinkDedupeWindow:     50_000,
		NATSSubject:          "realmrep.interaction.recorded",
		MetricsAddr:          ":9090",
		DecayIntervalSeconds: 3600,
	}
}

// DecayInterval returns the sweep period.
func (c *Config) DecayInterval() time.Duration {
	return time.Duration(c.DecayIntervalSeconds) * time.Second
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch repository.Backend(c.StoreBackend) {
	case repository.BackendMemory:
	case repository.BackendBadger, repository.BackendSQLite:
		if c.DataDir == "" {
			return fmt.Errorf("%w: data_dir is required for the %s backend", ErrInvalidConfig, c.StoreBackend)
		}
	case repository.BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}

	if c.LogFormat != logger.FormatText && c.LogFormat != logger.FormatJSON {
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.SinkQueueSize <= 0 {
		return fmt.Errorf("%w: sink_queue_size must be positive", ErrInvalidConfig)
	}
	if c.SinkWorkers <= 0 {
		return fmt.Errorf("%w: sink_workers must be positive", ErrInvalidConfig)
	}
	if c.SinkDedupeWindow <= 0 {
		return fmt.Errorf("%w: sink_dedupe_window must be positive", ErrInvalidConfig)
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		return fmt.Errorf("%w: nats_subject must not be empty", ErrInvalidConfig)
	}
	if c.DecayIntervalSeconds <= 0 {
		return fmt.Errorf("%w: decay_interval_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}
