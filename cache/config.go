package cache

import "time"

// ReadThroughConfig holds configuration for ReadThrough
type ReadThroughConfig struct {
	// Name identifies the cache in logs and metrics (required)
	Name string `mapstructure:"name" toml:"name"`
	// RefreshInterval is the interval between background refreshes
	// default: 5 * time.Minute
	RefreshInterval time.Duration `mapstructure:"refresh_interval" toml:"refresh_interval"`
	// FetchTimeout bounds each fetch attempt
	// default: 10 * time.Second
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" toml:"fetch_timeout"`
	// MaxRetries is the number of fetch attempts per refresh
	// default: 1
	MaxRetries int `mapstructure:"max_retries" toml:"max_retries"`
}

// DefaultReadThroughConfig returns the default configuration for ReadThrough.
// Name has no default.
func DefaultReadThroughConfig() *ReadThroughConfig {
	return &ReadThroughConfig{
		RefreshInterval: 5 * time.Minute,
		FetchTimeout:    10 * time.Second,
		MaxRetries:      1,
	}
}

// MergeDefaults fills zero values with defaults
func (c *ReadThroughConfig) MergeDefaults() *ReadThroughConfig {
	defaults := DefaultReadThroughConfig()
	if c.RefreshInterval == 0 {
		c.RefreshInterval = defaults.RefreshInterval
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = defaults.FetchTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	return c
}

// Validate validates the configuration
func (c *ReadThroughConfig) Validate() error {
	if c.Name == "" {
		return ErrInvalidName(c.Name)
	}
	if c.RefreshInterval <= 0 {
		return ErrInvalidRefreshInterval(c.RefreshInterval)
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidFetchTimeout(c.FetchTimeout)
	}
	if c.MaxRetries < 1 {
		return ErrInvalidMaxRetries(c.MaxRetries)
	}
	return nil
}
