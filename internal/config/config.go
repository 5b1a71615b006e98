// Package config defines service configuration and how it is loaded.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Guest store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DefaultVariant names the scoring variant used when a request names none.
	DefaultVariant string `koanf:"default_variant"`

	// HighConfidenceThreshold and MediumConfidenceThreshold bucket the average
	// pair difference. Both comparisons are strict.
	HighConfidenceThreshold   float64 `koanf:"high_confidence_threshold"`
	MediumConfidenceThreshold float64 `koanf:"medium_confidence_threshold"`

	// NotificationQueueSize bounds the in-memory notification queue.
	NotificationQueueSize int `koanf:"notification_queue_size"`

	// NotifierCount sets the number of notification workers.
	NotifierCount int `koanf:"notifier_count"`

	// NotificationDedupeSize bounds the emitted-milestone key cache.
	NotificationDedupeSize int `koanf:"notification_dedupe_size"`

	// InboxSize caps undrained notifications kept per guest.
	InboxSize int `koanf:"inbox_size"`

	// GuestStore selects where guest records live: memory or file.
	GuestStore string `koanf:"guest_store"`

	// GuestDataDir is the file store directory.
	GuestDataDir string `koanf:"guest_data_dir"`

	// Maximums overrides normalization maximums per variant and letter, e.g.
	// maximums.balanced.L = 14.
	Maximums map[string]map[string]float64 `koanf:"maximums"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                  "info",
		LogFormat:                 "text",
		Addr:                      ":9080",
		DefaultVariant:            "enhanced",
		HighConfidenceThreshold:   30,
		MediumConfidenceThreshold: 15,
		NotificationQueueSize:     1024,
		NotifierCount:             runtime.NumCPU(),
		NotificationDedupeSize:    100_000,
		InboxSize:                 64,
		GuestStore:                StoreMemory,
		GuestDataDir:              "data/guests",
		Maximums:                  map[string]map[string]float64{},
	}
}

// Validate checks values that the rest of the process relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DefaultVariant) == "" {
		return fmt.Errorf("%w: default_variant must not be empty", ErrInvalidConfig)
	}
	if c.HighConfidenceThreshold <= 0 || c.MediumConfidenceThreshold <= 0 {
		return fmt.Errorf("%w: confidence thresholds must be positive", ErrInvalidConfig)
	}
	if c.HighConfidenceThreshold < c.MediumConfidenceThreshold {
		return fmt.Errorf("%w: high_confidence_threshold %g below medium_confidence_threshold %g",
			ErrInvalidConfig, c.HighConfidenceThreshold, c.MediumConfidenceThreshold)
	}
	if c.NotificationQueueSize <= 0 {
		return fmt.Errorf("%w: notification_queue_size must be positive", ErrInvalidConfig)
	}
	if c.InboxSize <= 0 {
		return fmt.Errorf("%w: inbox_size must be positive", ErrInvalidConfig)
	}
	switch c.GuestStore {
	case StoreMemory:
	case StoreFile:
		if strings.TrimSpace(c.GuestDataDir) == "" {
			return fmt.Errorf("%w: guest_data_dir is required for the file store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown guest_store %q", ErrInvalidConfig, c.GuestStore)
	}
	return nil
}
