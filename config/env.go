package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/campuscommunity/synckit/ch"
	"github.com/campuscommunity/synckit/db"
	"github.com/campuscommunity/synckit/kafka"
	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/remote"
	"github.com/campuscommunity/synckit/server"
	"github.com/campuscommunity/synckit/store"
	"github.com/campuscommunity/synckit/syncer"
)

// applyEnv overrides file values with CAMPUS_* variables. Sections are
// allocated as needed; defaults are merged afterwards.
func applyEnv(c *Config) error {
	if c.Log == nil {
		c.Log = &logger.Config{}
	}
	c.Log.Level = getEnv("CAMPUS_LOG_LEVEL", c.Log.Level)
	c.Log.Encoding = getEnv("CAMPUS_LOG_ENCODING", c.Log.Encoding)

	if c.Remote == nil {
		c.Remote = &remote.Config{}
	}
	c.Remote.BaseURL = getEnv("CAMPUS_API_BASE_URL", c.Remote.BaseURL)
	c.APIToken = getEnv("CAMPUS_API_TOKEN", c.APIToken)

	if c.Store == nil {
		c.Store = &store.Config{}
	}
	c.Store.Driver = getEnv("CAMPUS_STORE_DRIVER", c.Store.Driver)
	c.Store.Dir = getEnv("CAMPUS_STORE_DIR", c.Store.Dir)
	c.Store.Path = getEnv("CAMPUS_SQLITE_PATH", c.Store.Path)
	if v := os.Getenv("CAMPUS_REDIS_ADDR"); v != "" {
		if c.Store.Redis == nil {
			c.Store.Redis = &store.RedisConfig{}
		}
		c.Store.Redis.Addr = v
		c.Store.Redis.Password = getEnv("CAMPUS_REDIS_PASSWORD", c.Store.Redis.Password)
	}
	if v := os.Getenv("CAMPUS_MYSQL_HOST"); v != "" {
		if c.Store.MySQL == nil {
			c.Store.MySQL = &db.Config{}
		}
		c.Store.MySQL.Host = v
		c.Store.MySQL.User = getEnv("CAMPUS_MYSQL_USER", c.Store.MySQL.User)
		c.Store.MySQL.Password = getEnv("CAMPUS_MYSQL_PASSWORD", c.Store.MySQL.Password)
		c.Store.MySQL.Database = getEnv("CAMPUS_MYSQL_DATABASE", c.Store.MySQL.Database)
	}

	if c.Connectivity == nil {
		c.Connectivity = &ConnectivityConfig{}
	}
	c.Connectivity.URL = getEnv("CAMPUS_PROBE_URL", c.Connectivity.URL)
	c.Connectivity.StartOffline = getEnvBool("CAMPUS_START_OFFLINE", c.Connectivity.StartOffline)

	if c.Sync == nil {
		c.Sync = &syncer.Config{}
	}
	d, err := getEnvDuration("CAMPUS_SYNC_PASS_TIMEOUT", c.Sync.PassTimeout)
	if err != nil {
		return err
	}
	c.Sync.PassTimeout = d
	c.Sync.CronSpec = getEnv("CAMPUS_SYNC_CRON", c.Sync.CronSpec)

	if c.Kafka == nil {
		c.Kafka = &kafka.Config{}
	}
	if brokers := getEnvList("CAMPUS_KAFKA_BROKERS"); len(brokers) > 0 {
		if c.Kafka.Producer == nil {
			c.Kafka.Producer = &kafka.ProducerConfig{}
		}
		c.Kafka.Producer.Brokers = brokers
		c.Kafka.Enabled = true
	}
	c.Kafka.Enabled = getEnvBool("CAMPUS_KAFKA_ENABLED", c.Kafka.Enabled)

	if c.ClickHouse == nil {
		c.ClickHouse = &ch.Config{}
	}
	if hosts := getEnvList("CAMPUS_CLICKHOUSE_HOSTS"); len(hosts) > 0 {
		c.ClickHouse.Hosts = hosts
		c.ClickHouse.Enabled = true
	}
	c.ClickHouse.Enabled = getEnvBool("CAMPUS_CLICKHOUSE_ENABLED", c.ClickHouse.Enabled)
	c.ClickHouse.Password = getEnv("CAMPUS_CLICKHOUSE_PASSWORD", c.ClickHouse.Password)

	if c.HTTP == nil {
		c.HTTP = &server.Config{}
	}
	c.HTTP.Addr = getEnv("CAMPUS_HTTP_ADDR", c.HTTP.Addr)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, ErrInvalidDuration(key, v, err)
	}
	return d, nil
}

// getEnvList splits a comma separated variable, dropping empty items
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvBool keeps defaultValue when the variable is unset or unparsable
func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}
