package remote

import "fmt"

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("remote: invalid config: %s", msg)
}

// StatusError is returned for a non-2xx response
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %s %s: status %d", e.Method, e.Path, e.Code)
}

// Permanent reports whether retrying the same request cannot succeed
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != 408 && e.Code != 429
}

// ErrRequest wraps a transport failure
func ErrRequest(method, path string, err error) error {
	return fmt.Errorf("remote: %s %s: %w", method, path, err)
}

// ErrDecode wraps a response decoding failure
func ErrDecode(path string, err error) error {
	return fmt.Errorf("remote: decode %s: %w", path, err)
}

// ErrUnsupportedAction is returned by Replay for a payload it cannot route
func ErrUnsupportedAction(t string) error {
	return fmt.Errorf("remote: unsupported action type %q", t)
}
