// Package config defines service configuration and its loader.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Store selects the backend: memory or postgres.
	Store       string `koanf:"store"`
	DatabaseURL string `koanf:"database_url"`
	DBMaxConns  int    `koanf:"db_max_conns"`
	DBMinConns  int    `koanf:"db_min_conns"`

	// DefaultPageLimit applies when a request omits limit.
	DefaultPageLimit int `koanf:"default_page_limit"`
	// MaxPageLimit caps limit on every paged read.
	MaxPageLimit int `koanf:"max_page_limit"`
	// NearDefaultLimit is the window size when rankings/near omits limit.
	NearDefaultLimit int `koanf:"near_default_limit"`

	// DedupeSize bounds the submission idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// EventQueueSize bounds the in-memory domain event queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of event publisher workers.
	WorkerCount int `koanf:"worker_count"`

	// NATSURL enables event publication to NATS when set.
	NATSURL           string `koanf:"nats_url"`
	NATSSubjectPrefix string `koanf:"nats_subject_prefix"`

	// ResetSchedulerEnabled runs cron-driven resets in-process.
	ResetSchedulerEnabled bool `koanf:"reset_scheduler_enabled"`
	// ResetSyncIntervalSec is how often scheduled jobs are reconciled.
	ResetSyncIntervalSec int `koanf:"reset_sync_interval_sec"`

	// SubmitRateLimit is the per-client submissions per second; 0 disables.
	SubmitRateLimit float64 `koanf:"submit_rate_limit"`
	SubmitRateBurst int     `koanf:"submit_rate_burst"`
	// TrustedProxy reads the client address from X-Forwarded-For and
	// X-Real-IP. Leave it off unless a proxy overwrites those headers.
	TrustedProxy bool `koanf:"trusted_proxy"`

	// MetricsHistogramBuckets overrides the latency buckets in milliseconds.
	MetricsHistogramBuckets []float64 `koanf:"metrics_histogram_buckets"`
	// MetricsConstLabels are attached to every exported metric.
	MetricsConstLabels map[string]string `koanf:"metrics_const_labels"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		Store:                 StoreMemory,
		DBMaxConns:            10,
		DBMinConns:            1,
		DefaultPageLimit:      10,
		MaxPageLimit:          100,
		NearDefaultLimit:      10,
		DedupeSize:            100_000,
		EventQueueSize:        10_000,
		WorkerCount:           runtime.NumCPU(),
		NATSSubjectPrefix:     "podium",
		ResetSchedulerEnabled: false,
		ResetSyncIntervalSec:  60,
		SubmitRateLimit:       0,
		SubmitRateBurst:       20,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}
	if c.MaxPageLimit < 1 {
		return fmt.Errorf("%w: max_page_limit must be positive", ErrInvalidConfig)
	}
	if c.DefaultPageLimit < 1 || c.DefaultPageLimit > c.MaxPageLimit {
		return fmt.Errorf("%w: default_page_limit must be in [1, max_page_limit]", ErrInvalidConfig)
	}
	if c.NearDefaultLimit < 1 || c.NearDefaultLimit > c.MaxPageLimit {
		return fmt.Errorf("%w: near_default_limit must be in [1, max_page_limit]", ErrInvalidConfig)
	}
	if c.EventQueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("%w: db_min_conns/db_max_conns out of range", ErrInvalidConfig)
	}
	if c.ResetSyncIntervalSec < 1 {
		return fmt.Errorf("%w: reset_sync_interval_sec must be positive", ErrInvalidConfig)
	}
	if c.SubmitRateLimit < 0 {
		return fmt.Errorf("%w: submit_rate_limit must not be negative", ErrInvalidConfig)
	}
	if c.SubmitRateLimit > 0 && c.SubmitRateBurst < 1 {
		return fmt.Errorf("%w: submit_rate_burst must be positive when rate limiting", ErrInvalidConfig)
	}
	for i := 1; i < len(c.MetricsHistogramBuckets); i++ {
		if c.MetricsHistogramBuckets[i] <= c.MetricsHistogramBuckets[i-1] {
			return fmt.Errorf("%w: metrics_histogram_buckets must be strictly increasing", ErrInvalidConfig)
		}
	}
	return nil
}
