package store

import "fmt"

var (
	// ErrClosed is returned when a closed store is used
	ErrClosed = fmt.Errorf("store: store is closed")
	// ErrUnknownDriver is returned by Open for an unsupported driver name
	ErrUnknownDriver = fmt.Errorf("store: unknown driver")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("store: invalid config: %s", msg)
}

// ErrRead wraps a backend read failure
func ErrRead(key string, err error) error {
	return fmt.Errorf("store: read %q failed: %w", key, err)
}

// ErrWrite wraps a backend write failure
func ErrWrite(key string, err error) error {
	return fmt.Errorf("store: write %q failed: %w", key, err)
}

// ErrRemove wraps a backend remove failure
func ErrRemove(key string, err error) error {
	return fmt.Errorf("store: remove %q failed: %w", key, err)
}

// ErrDecode is returned when a stored value is not valid JSON for the target
func ErrDecode(key string, err error) error {
	return fmt.Errorf("store: decode %q failed: %w", key, err)
}

// ErrEncode is returned when a value cannot be encoded to JSON
func ErrEncode(key string, err error) error {
	return fmt.Errorf("store: encode %q failed: %w", key, err)
}

// ErrConnection backend connection error
func ErrConnection(err error) error {
	return fmt.Errorf("store: connection failed: %w", err)
}
