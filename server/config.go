package server

import "time"

// Config holds configuration for the admin HTTP server
type Config struct {
	// default: "127.0.0.1:8080"
	Addr string `mapstructure:"addr" toml:"addr"`
	// default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" toml:"read_timeout"`
	// WriteTimeout must cover a manual sync pass
	// default: 3m
	WriteTimeout time.Duration `mapstructure:"write_timeout" toml:"write_timeout"`
	// default: 10s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" toml:"shutdown_timeout"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:            "127.0.0.1:8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    3 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// MergeDefaults fills zero values with defaults
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
	return c
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrInvalidConfig("addr is required")
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		return ErrInvalidConfig("timeouts cannot be negative")
	}
	return nil
}
