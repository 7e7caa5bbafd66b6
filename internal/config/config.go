// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Validation errors wrap ErrInvalidConfig, loader errors wrap ErrLoadConfig.
package config

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/okian/statline/internal/domain/attribute"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory change queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of change feed workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxSessions bounds the number of live sessions; the oldest is evicted beyond it.
	MaxSessions int `koanf:"max_sessions"`

	// DefaultValues is the pool a session starts with when the client sends none.
	DefaultValues []int `koanf:"default_values"`

	// StreamBuffer is the per-subscriber snapshot buffer of the live stream.
	StreamBuffer int `koanf:"stream_buffer"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":9080",
		QueueSize:     4096,
		WorkerCount:   runtime.NumCPU(),
		MaxSessions:   10_000,
		DefaultValues: []int{15, 14, 13, 12, 10, 9, 8},
		StreamBuffer:  8,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case len(c.DefaultValues) != attribute.Count:
		return fmt.Errorf("%w: default_values must hold %d values, got %d", ErrInvalidConfig, attribute.Count, len(c.DefaultValues))
	case c.MaxSessions <= 0:
		return fmt.Errorf("%w: max_sessions must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.StreamBuffer <= 0:
		return fmt.Errorf("%w: stream_buffer must be positive", ErrInvalidConfig)
	case !slices.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)):
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
