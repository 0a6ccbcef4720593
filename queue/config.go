package queue

import "time"

// Config holds configuration for the pending action queue
type Config struct {
	// StorageKey is the store key holding the persisted queue
	// default: "@sync_queue"
	StorageKey string `mapstructure:"storage_key" toml:"storage_key"`
	// MaxRetries is the number of failed replays an action survives; the
	// next failure drops it. 0 selects the default, so an action always
	// survives at least one failure.
	// default: 3
	MaxRetries int `mapstructure:"max_retries" toml:"max_retries"`
	// ReplayTimeout bounds a single action's replay; overrunning counts as
	// a failure
	// default: 30 * time.Second
	ReplayTimeout time.Duration `mapstructure:"replay_timeout" toml:"replay_timeout"`
	// NotifyOnDrop emits a sync-failed notification when an action is dropped
	// default: false
	NotifyOnDrop bool `mapstructure:"notify_on_drop" toml:"notify_on_drop"`
}

// DefaultConfig returns the default queue configuration
func DefaultConfig() *Config {
	return &Config{
		StorageKey:    "@sync_queue",
		MaxRetries:    3,
		ReplayTimeout: 30 * time.Second,
	}
}

// MergeDefaults fills zero values with defaults
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.StorageKey == "" {
		c.StorageKey = defaults.StorageKey
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.ReplayTimeout == 0 {
		c.ReplayTimeout = defaults.ReplayTimeout
	}
	return c
}

// Validate validates the queue configuration
func (c *Config) Validate() error {
	if c.StorageKey == "" {
		return ErrInvalidConfig("storage_key is required")
	}
	if c.MaxRetries < 0 {
		return ErrInvalidConfig("max_retries cannot be negative")
	}
	if c.ReplayTimeout <= 0 {
		return ErrInvalidReplayTimeout(c.ReplayTimeout)
	}
	return nil
}
