package connectivity

import "fmt"

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("connectivity: invalid config: %s", msg)
}

// ErrUnhealthy is a probe failure caused by a server error status
func ErrUnhealthy(status int) error {
	return fmt.Errorf("connectivity: health check returned status %d", status)
}
