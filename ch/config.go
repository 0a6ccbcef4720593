package ch

import (
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type Config struct {
	// Enabled turns on the ClickHouse audit trail
	Enabled     bool          `mapstructure:"enabled" toml:"enabled"`
	Hosts       []string      `mapstructure:"hosts" toml:"hosts"`
	Database    string        `mapstructure:"database" toml:"database"`
	Username    string        `mapstructure:"username" toml:"username"`
	Password    string        `mapstructure:"password" toml:"password"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" toml:"dial_timeout"`
	Debug       bool          `mapstructure:"debug" toml:"debug"`
	// clickhouse settings (https://clickhouse.com/docs/en/operations/settings/settings)
	Settings clickhouse.Settings `mapstructure:"settings" toml:"settings"`
	// batch insert config
	WriterConfig *WriterConfig `mapstructure:"writer" toml:"writer"`
}

type WriterConfig struct {
	FlushInterval time.Duration `mapstructure:"flush_interval" toml:"flush_interval"`
	FlushSize     int           `mapstructure:"flush_size" toml:"flush_size"`
	// MinFlushSize is the smallest buffer an interval tick flushes.
	// 0 flushes on every tick.
	MinFlushSize int `mapstructure:"min_flush_size" toml:"min_flush_size"`
	// MaxWaitTime forces a tick flush once the oldest buffered row is this
	// old, whatever MinFlushSize says. 0 disables it.
	MaxWaitTime time.Duration `mapstructure:"max_wait_time" toml:"max_wait_time"`
}

func DefaultConfig() *Config {
	return &Config{
		Database:     "default",
		Username:     "default",
		DialTimeout:  10 * time.Second,
		WriterConfig: DefaultWriterConfig(),
	}
}

// DefaultWriterConfig returns the default writer config. Sync events are
// low volume, so batches are small.
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		FlushInterval: 5 * time.Second,
		FlushSize:     500,
		MinFlushSize:  50,
		MaxWaitTime:   30 * time.Second,
	}
}

// MergeDefaults fills zero values with defaults
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Database == "" {
		c.Database = defaults.Database
	}
	if c.Username == "" {
		c.Username = defaults.Username
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.WriterConfig == nil {
		c.WriterConfig = defaults.WriterConfig
	} else {
		w, d := c.WriterConfig, defaults.WriterConfig
		if w.FlushInterval == 0 {
			w.FlushInterval = d.FlushInterval
		}
		if w.FlushSize == 0 {
			w.FlushSize = d.FlushSize
		}
	}
	return c
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Hosts) == 0 {
		return ErrInvalidConfig("hosts are required")
	}
	if c.Username == "" {
		return ErrInvalidConfig("username is required")
	}
	if c.WriterConfig != nil {
		return c.WriterConfig.Validate()
	}
	return nil
}

func (w *WriterConfig) Validate() error {
	if w.FlushInterval <= 0 {
		return ErrInvalidConfig("writer.flush_interval is required")
	}
	if w.FlushSize <= 0 {
		return ErrInvalidConfig("writer.flush_size is required")
	}
	if w.MinFlushSize < 0 {
		return ErrInvalidConfig("writer.min_flush_size cannot be negative")
	}
	if w.MinFlushSize > w.FlushSize {
		return ErrInvalidConfig("writer.min_flush_size cannot be greater than writer.flush_size")
	}
	if w.MaxWaitTime < 0 {
		return ErrInvalidConfig("writer.max_wait_time cannot be negative")
	}
	return nil
}
