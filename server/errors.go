package server

import "fmt"

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("server: invalid config: %s", msg)
}

// ErrListen the listener could not be opened
func ErrListen(addr string, err error) error {
	return fmt.Errorf("server: listen on %s failed: %w", addr, err)
}
