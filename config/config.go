// Package config loads the campus-sync configuration: a TOML file, optional
// dotenv files and CAMPUS_* environment overrides, in that order.
package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/campuscommunity/synckit/cache"
	"github.com/campuscommunity/synckit/ch"
	"github.com/campuscommunity/synckit/connectivity"
	"github.com/campuscommunity/synckit/kafka"
	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/queue"
	"github.com/campuscommunity/synckit/remote"
	"github.com/campuscommunity/synckit/server"
	"github.com/campuscommunity/synckit/store"
	"github.com/campuscommunity/synckit/syncer"
	"github.com/joho/godotenv"
)

// Config is the complete campus-sync configuration
type Config struct {
	Log    *logger.Config `mapstructure:"log" toml:"log"`
	Store  *store.Config  `mapstructure:"store" toml:"store"`
	Queue  *queue.Config  `mapstructure:"queue" toml:"queue"`
	Remote *remote.Config `mapstructure:"remote" toml:"remote"`
	// APIToken is sent as a bearer token to the campus API. Prefer
	// CAMPUS_API_TOKEN over the file.
	APIToken     string              `mapstructure:"api_token" toml:"api_token"`
	Connectivity *ConnectivityConfig `mapstructure:"connectivity" toml:"connectivity"`
	Cache        *CacheConfig        `mapstructure:"cache" toml:"cache"`
	Sync         *syncer.Config      `mapstructure:"sync" toml:"sync"`
	Kafka        *kafka.Config       `mapstructure:"kafka" toml:"kafka"`
	ClickHouse   *ch.Config          `mapstructure:"clickhouse" toml:"clickhouse"`
	HTTP         *server.Config      `mapstructure:"http" toml:"http"`
}

// ConnectivityConfig selects the connectivity signal. Without a probe URL
// the signal is manual and driven through PUT /connectivity.
type ConnectivityConfig struct {
	connectivity.ProberConfig `mapstructure:",squash"`
	// StartOffline is the initial state of the manual signal
	StartOffline bool `mapstructure:"start_offline" toml:"start_offline"`
}

// Manual reports whether no prober is configured
func (c *ConnectivityConfig) Manual() bool {
	return c.URL == ""
}

// CacheConfig configures the read-through caches
type CacheConfig struct {
	News  *cache.ReadThroughConfig `mapstructure:"news" toml:"news"`
	Clubs *cache.ReadThroughConfig `mapstructure:"clubs" toml:"clubs"`
}

// DefaultConfig returns the default configuration: file store, manual
// connectivity, kafka and clickhouse disabled
func DefaultConfig() *Config {
	return (&Config{}).MergeDefaults()
}

// MergeDefaults allocates missing sections and fills zero values
func (c *Config) MergeDefaults() *Config {
	if c.Log == nil {
		c.Log = logger.DefaultConfig()
	} else {
		c.Log.MergeDefaults()
	}
	if c.Store == nil {
		c.Store = store.DefaultConfig()
	}
	c.Store.MergeDefaults()
	if c.Queue == nil {
		c.Queue = queue.DefaultConfig()
	} else {
		c.Queue.MergeDefaults()
	}
	if c.Remote == nil {
		c.Remote = remote.DefaultConfig()
	} else {
		c.Remote.MergeDefaults()
	}
	if c.Connectivity == nil {
		c.Connectivity = &ConnectivityConfig{}
	}
	c.Connectivity.ProberConfig.MergeDefaults()
	if c.Cache == nil {
		c.Cache = &CacheConfig{}
	}
	c.Cache.News = mergeReadThrough(c.Cache.News, "news")
	c.Cache.Clubs = mergeReadThrough(c.Cache.Clubs, "clubs")
	if c.Sync == nil {
		c.Sync = syncer.DefaultConfig()
	} else {
		c.Sync.MergeDefaults()
	}
	if c.Kafka == nil {
		c.Kafka = kafka.DefaultConfig()
	}
	c.Kafka.MergeDefaults()
	if c.ClickHouse == nil {
		c.ClickHouse = ch.DefaultConfig()
	} else {
		c.ClickHouse.MergeDefaults()
	}
	if c.HTTP == nil {
		c.HTTP = server.DefaultConfig()
	} else {
		c.HTTP.MergeDefaults()
	}
	return c
}

func mergeReadThrough(c *cache.ReadThroughConfig, name string) *cache.ReadThroughConfig {
	if c == nil {
		c = cache.DefaultReadThroughConfig()
	} else {
		c.MergeDefaults()
	}
	if c.Name == "" {
		c.Name = name
	}
	return c
}

// Validate validates every section
func (c *Config) Validate() error {
	checks := []struct {
		section string
		fn      func() error
	}{
		{"log", c.Log.Validate},
		{"store", c.Store.Validate},
		{"queue", c.Queue.Validate},
		{"remote", c.Remote.Validate},
		{"cache.news", c.Cache.News.Validate},
		{"cache.clubs", c.Cache.Clubs.Validate},
		{"sync", c.Sync.Validate},
		{"kafka", c.Kafka.Validate},
		{"clickhouse", c.ClickHouse.Validate},
		{"http", c.HTTP.Validate},
	}
	if !c.Connectivity.Manual() {
		checks = append(checks, struct {
			section string
			fn      func() error
		}{"connectivity", c.Connectivity.ProberConfig.Validate})
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			return ErrInvalid(check.section, err)
		}
	}
	return nil
}

// Load reads the TOML file at path (skipped when empty), loads envFiles
// (".env" when none are given; a missing file is ignored), applies CAMPUS_*
// overrides, merges defaults and validates.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, ErrEnvFile(err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ErrRead(path, err)
		}
		if err := decodeTOML(data, cfg); err != nil {
			return nil, ErrParse(path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
