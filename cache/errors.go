package cache

import (
	"fmt"
	"time"
)

var (
	// ErrCacheClosed is returned when a stopped ReadThrough is started again
	ErrCacheClosed = fmt.Errorf("cache: cache is closed")
	// ErrInvalidConfig is returned when a required dependency is missing
	ErrInvalidConfig = fmt.Errorf("cache: invalid config")
)

// ErrFetch wraps a failed fetch after all attempts
func ErrFetch(err error) error {
	return fmt.Errorf("cache: fetch failed: %w", err)
}

// ErrInvalidName returns an error for invalid name
func ErrInvalidName(name string) error {
	return fmt.Errorf("cache: invalid name: %q (must be non-empty)", name)
}

// ErrInvalidRefreshInterval returns an error for invalid refresh interval
func ErrInvalidRefreshInterval(interval time.Duration) error {
	return fmt.Errorf("cache: invalid refresh interval: %v (must be > 0)", interval)
}

// ErrInvalidFetchTimeout returns an error for invalid fetch timeout
func ErrInvalidFetchTimeout(timeout time.Duration) error {
	return fmt.Errorf("cache: invalid fetch timeout: %v (must be > 0)", timeout)
}

// ErrInvalidMaxRetries returns an error for invalid max retries
func ErrInvalidMaxRetries(retries int) error {
	return fmt.Errorf("cache: invalid max retries: %d (must be >= 1)", retries)
}
