package store

import (
	"context"
	"errors"
	"time"

	"github.com/campuscommunity/synckit/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds configuration for the redis backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr" toml:"addr"`
	Username string `mapstructure:"username" toml:"username"`
	Password string `mapstructure:"password" toml:"password"`
	DB       int    `mapstructure:"db" toml:"db"`
	// KeyPrefix is prepended to every key, e.g. "campus:"
	KeyPrefix string `mapstructure:"key_prefix" toml:"key_prefix"`
	// default: 10
	PoolSize     int `mapstructure:"pool_size" toml:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns" toml:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries" toml:"max_retries"`
	// default: 5s
	DialTimeout  time.Duration `mapstructure:"dial_timeout" toml:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" toml:"write_timeout"`
}

// DefaultRedisConfig returns the default redis configuration
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:        "localhost:6379",
		PoolSize:    10,
		DialTimeout: 5 * time.Second,
	}
}

// MergeDefaults fills zero values with defaults
func (c *RedisConfig) MergeDefaults() *RedisConfig {
	defaults := DefaultRedisConfig()
	if c.PoolSize == 0 {
		c.PoolSize = defaults.PoolSize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	return c
}

// Validate validates the redis configuration
func (c *RedisConfig) Validate() error {
	switch {
	case c.Addr == "":
		return ErrInvalidConfig("redis addr is required")
	case c.DB < 0:
		return ErrInvalidConfig("redis db cannot be negative")
	case c.PoolSize < 0:
		return ErrInvalidConfig("redis pool_size cannot be negative")
	case c.MinIdleConns < 0:
		return ErrInvalidConfig("redis min_idle_conns cannot be negative")
	case c.MaxRetries < 0:
		return ErrInvalidConfig("redis max_retries cannot be negative")
	case c.DialTimeout < 0, c.ReadTimeout < 0, c.WriteTimeout < 0:
		return ErrInvalidConfig("redis timeouts cannot be negative")
	}
	return nil
}

// Options converts the config to go-redis options
func (c *RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to redis and returns a Store. The connection is verified
// with PING before returning.
func NewRedis(log logger.Logger, cfg *RedisConfig) (Store, error) {
	if cfg == nil {
		cfg = DefaultRedisConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(cfg.Options())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, ErrConnection(err)
	}

	log.Info("redis store connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.String("key_prefix", cfg.KeyPrefix),
	)
	return &redisStore{client: client, prefix: cfg.KeyPrefix}, nil
}

func (r *redisStore) GetString(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, ErrRead(key, err)
	}
	return v, true, nil
}

func (r *redisStore) SetString(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return ErrWrite(key, err)
	}
	return nil
}

func (r *redisStore) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return ErrRemove(key, err)
	}
	return nil
}

func (r *redisStore) Close() error {
	return r.client.Close()
}
