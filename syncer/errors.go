package syncer

import "fmt"

var (
	// ErrOffline a pass was requested while offline
	ErrOffline = fmt.Errorf("syncer: offline")
	// ErrBusy a pass is already running
	ErrBusy = fmt.Errorf("syncer: sync already in progress")
	// ErrStopped the syncer has been stopped
	ErrStopped = fmt.Errorf("syncer: stopped")
	// ErrAlreadyStarted Start was called twice
	ErrAlreadyStarted = fmt.Errorf("syncer: already started")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("syncer: invalid config: %s", msg)
}
