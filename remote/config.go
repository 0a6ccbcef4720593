package remote

import (
	"net/url"
	"time"
)

// Config holds configuration for the campus API client
type Config struct {
	// BaseURL is the API root, e.g. https://api.campuscommunity.com
	BaseURL string `mapstructure:"base_url" toml:"base_url"`
	// Timeout bounds each HTTP request
	// default: 10 * time.Second
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout"`
	// RateLimit is the sustained request rate in requests per second
	// default: 5
	RateLimit float64 `mapstructure:"rate_limit" toml:"rate_limit"`
	// default: 10
	Burst int `mapstructure:"burst" toml:"burst"`
	// default: "campus-sync/1.0"
	UserAgent string `mapstructure:"user_agent" toml:"user_agent"`
}

// DefaultConfig returns the default client configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "https://api.campuscommunity.com",
		Timeout:   10 * time.Second,
		RateLimit: 5,
		Burst:     10,
		UserAgent: "campus-sync/1.0",
	}
}

// MergeDefaults fills zero values with defaults
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = defaults.BaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = defaults.RateLimit
	}
	if c.Burst == 0 {
		c.Burst = defaults.Burst
	}
	if c.UserAgent == "" {
		c.UserAgent = defaults.UserAgent
	}
	return c
}

// Validate validates the client configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidConfig("base_url must be an absolute URL")
	}
	if c.Timeout <= 0 {
		return ErrInvalidConfig("timeout must be > 0")
	}
	if c.RateLimit < 0 {
		return ErrInvalidConfig("rate_limit cannot be negative")
	}
	if c.Burst < 1 {
		return ErrInvalidConfig("burst must be >= 1")
	}
	return nil
}
