package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/campuscommunity/synckit/db"
	"github.com/campuscommunity/synckit/logger"
	"go.uber.org/zap"
)

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMySQL  = "mysql"
)

// Config selects and configures a store backend
type Config struct {
	// Driver is one of memory, file, sqlite, redis, mysql
	// default: "file"
	Driver string `mapstructure:"driver" toml:"driver"`
	// Dir is the directory of the file backend
	// default: "./data/store"
	Dir string `mapstructure:"dir" toml:"dir"`
	// Path is the database file of the sqlite backend
	// default: "./data/campus.db"
	Path  string       `mapstructure:"path" toml:"path"`
	Redis *RedisConfig `mapstructure:"redis" toml:"redis"`
	MySQL *db.Config   `mapstructure:"mysql" toml:"mysql"`
}

// DefaultConfig returns the default store configuration
func DefaultConfig() *Config {
	return &Config{
		Driver: DriverFile,
		Dir:    "./data/store",
		Path:   "./data/campus.db",
	}
}

// MergeDefaults fills zero values with defaults
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Driver == "" {
		c.Driver = defaults.Driver
	}
	c.Driver = strings.ToLower(c.Driver)
	if c.Dir == "" {
		c.Dir = defaults.Dir
	}
	if c.Path == "" {
		c.Path = defaults.Path
	}
	if c.Driver == DriverRedis {
		if c.Redis == nil {
			c.Redis = DefaultRedisConfig()
		} else {
			c.Redis.MergeDefaults()
		}
	}
	if c.Driver == DriverMySQL && c.MySQL != nil {
		c.MySQL.MergeDefaults()
	}
	return c
}

// Validate validates the store configuration
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverMemory, DriverFile, DriverSQLite:
		return nil
	case DriverRedis:
		if c.Redis == nil {
			return ErrInvalidConfig("redis section is required for the redis driver")
		}
		return c.Redis.Validate()
	case DriverMySQL:
		if c.MySQL == nil {
			return ErrInvalidConfig("mysql section is required for the mysql driver")
		}
		if err := c.MySQL.Validate(); err != nil {
			return ErrInvalidConfig(err.Error())
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
}

// Open builds the backend selected by cfg.Driver
func Open(ctx context.Context, log logger.Logger, cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug("opening store", zap.String("driver", cfg.Driver))

	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		return NewFile(cfg.Dir)
	case DriverSQLite:
		return NewSQLite(log, cfg.Path)
	case DriverRedis:
		return NewRedis(log, cfg.Redis)
	default:
		database, err := db.NewMySQL(log, cfg.MySQL)
		if err != nil {
			return nil, ErrConnection(err)
		}
		s, err := NewMySQL(ctx, database)
		if err != nil {
			_ = database.Close()
			return nil, err
		}
		return s, nil
	}
}
