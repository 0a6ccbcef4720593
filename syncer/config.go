package syncer

import "time"

// Config holds configuration for the syncer
type Config struct {
	// PassTimeout bounds one replay pass including the cache refresh
	// default: 2m
	PassTimeout time.Duration `mapstructure:"pass_timeout" toml:"pass_timeout"`
	// CronSpec schedules the periodic "sync" chain
	// default: "@every 5m"
	CronSpec    string `mapstructure:"cron_spec" toml:"cron_spec"`
	DisableCron bool   `mapstructure:"disable_cron" toml:"disable_cron"`
	// SkipInitialSync disables the pass Start runs when already online
	SkipInitialSync bool `mapstructure:"skip_initial_sync" toml:"skip_initial_sync"`
}

// DefaultConfig returns the default syncer configuration
func DefaultConfig() *Config {
	return &Config{
		PassTimeout: 2 * time.Minute,
		CronSpec:    "@every 5m",
	}
}

// MergeDefaults fills zero values with defaults
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.PassTimeout == 0 {
		c.PassTimeout = defaults.PassTimeout
	}
	if c.CronSpec == "" {
		c.CronSpec = defaults.CronSpec
	}
	return c
}

// Validate validates the syncer configuration
func (c *Config) Validate() error {
	if c.PassTimeout <= 0 {
		return ErrInvalidConfig("pass_timeout must be greater than 0")
	}
	if !c.DisableCron && c.CronSpec == "" {
		return ErrInvalidConfig("cron_spec is required unless disable_cron is set")
	}
	return nil
}
