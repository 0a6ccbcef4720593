package db

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
)

var validLogLevels = []string{"silent", "error", "warn", "info"}

// Config configures the MySQL connection backing the mysql store. The
// campus_kv table is small and hot, so the pool stays small.
type Config struct {
	Host string `mapstructure:"host" toml:"host"`
	// default: 3306
	Port     int    `mapstructure:"port" toml:"port"`
	User     string `mapstructure:"user" toml:"user"`
	Password string `mapstructure:"password" toml:"password"`
	Database string `mapstructure:"database" toml:"database"`
	// Params are extra DSN parameters, e.g. {"tls" = "preferred"}.
	// charset defaults to utf8mb4.
	Params map[string]string `mapstructure:"params" toml:"params"`
	// Loc is the time zone of DATETIME values
	// default: "UTC"
	Loc  string     `mapstructure:"loc" toml:"loc"`
	Pool PoolConfig `mapstructure:"pool" toml:"pool"`

	// LogLevel is the gorm log level: silent, error, warn, info
	// default: "warn"
	LogLevel string `mapstructure:"log_level" toml:"log_level"`
	// default: 500ms
	SlowThreshold time.Duration `mapstructure:"slow_threshold" toml:"slow_threshold"`
}

// PoolConfig sizes the database/sql pool
type PoolConfig struct {
	// default: 4
	MaxOpen int `mapstructure:"max_open" toml:"max_open"`
	// default: 2
	MaxIdle int `mapstructure:"max_idle" toml:"max_idle"`
	// default: 30m
	MaxLifetime time.Duration `mapstructure:"max_lifetime" toml:"max_lifetime"`
	// default: 5m
	MaxIdleTime time.Duration `mapstructure:"max_idle_time" toml:"max_idle_time"`
}

// DefaultConfig returns the default configuration. Host, user and database
// have no defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:          3306,
		Loc:           "UTC",
		LogLevel:      "warn",
		SlowThreshold: 500 * time.Millisecond,
		Pool: PoolConfig{
			MaxOpen:     4,
			MaxIdle:     2,
			MaxLifetime: 30 * time.Minute,
			MaxIdleTime: 5 * time.Minute,
		},
	}
}

// MergeDefaults fills zero values with defaults
func (c *Config) MergeDefaults() *Config {
	d := DefaultConfig()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.Loc == "" {
		c.Loc = d.Loc
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.SlowThreshold == 0 {
		c.SlowThreshold = d.SlowThreshold
	}
	if c.Pool.MaxOpen == 0 {
		c.Pool.MaxOpen = d.Pool.MaxOpen
	}
	if c.Pool.MaxIdle == 0 {
		c.Pool.MaxIdle = d.Pool.MaxIdle
	}
	if c.Pool.MaxLifetime == 0 {
		c.Pool.MaxLifetime = d.Pool.MaxLifetime
	}
	if c.Pool.MaxIdleTime == 0 {
		c.Pool.MaxIdleTime = d.Pool.MaxIdleTime
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch {
	case c.Host == "":
		return ErrInvalidConfig("host is required")
	case c.Port <= 0 || c.Port > 65535:
		return ErrInvalidConfig(fmt.Sprintf("port %d out of range", c.Port))
	case c.User == "":
		return ErrInvalidConfig("user is required")
	case c.Database == "":
		return ErrInvalidConfig("database is required")
	case c.Pool.MaxOpen < 0 || c.Pool.MaxIdle < 0:
		return ErrInvalidConfig("pool sizes cannot be negative")
	case c.Pool.MaxIdle > c.Pool.MaxOpen && c.Pool.MaxOpen > 0:
		return ErrInvalidConfig("pool.max_idle cannot exceed pool.max_open")
	}
	if !slices.ContainsFunc(validLogLevels, func(l string) bool { return strings.EqualFold(l, c.LogLevel) }) {
		return ErrInvalidConfig(fmt.Sprintf("log_level %q must be one of: %s", c.LogLevel, strings.Join(validLogLevels, ", ")))
	}
	if _, err := time.LoadLocation(c.Loc); err != nil {
		return ErrInvalidConfig(fmt.Sprintf("loc %q: %v", c.Loc, err))
	}
	return nil
}

// DSN renders the driver connection string. parseTime is always on; the
// store relies on time.Time columns.
func (c *Config) DSN() (string, error) {
	loc, err := time.LoadLocation(c.Loc)
	if err != nil {
		return "", ErrInvalidConfig(fmt.Sprintf("loc %q: %v", c.Loc, err))
	}

	dc := mysqldriver.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	dc.DBName = c.Database
	dc.ParseTime = true
	dc.Loc = loc
	dc.Params = map[string]string{"charset": "utf8mb4"}
	for k, v := range c.Params {
		dc.Params[k] = v
	}
	return dc.FormatDSN(), nil
}
