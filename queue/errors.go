package queue

import (
	"fmt"
	"time"
)

var (
	// ErrNotInitialized is returned by mutations before Initialize
	ErrNotInitialized = fmt.Errorf("queue: not initialized")
	// ErrReplayTimeout is the failure recorded for a replay that overran
	// Config.ReplayTimeout
	ErrReplayTimeout = fmt.Errorf("queue: replay timed out")
	// ErrReplayRejected is the failure recorded when replay reports false
	ErrReplayRejected = fmt.Errorf("queue: replay rejected")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("queue: invalid config: %s", msg)
}

// ErrInvalidPayload wraps a payload validation or decode failure
func ErrInvalidPayload(err error) error {
	return fmt.Errorf("queue: invalid payload: %w", err)
}

// ErrUnknownActionType is returned when decoding an action of unknown type
func ErrUnknownActionType(t ActionType) error {
	return fmt.Errorf("queue: unknown action type %q", string(t))
}

// ErrInvalidReplayTimeout returns an error for invalid replay timeout
func ErrInvalidReplayTimeout(timeout time.Duration) error {
	return fmt.Errorf("queue: invalid replay timeout: %v (must be > 0)", timeout)
}
