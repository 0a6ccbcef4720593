package cron

import "fmt"

var (
	// ErrNoTasks is returned when attempting to add a chain job with no tasks
	ErrNoTasks = fmt.Errorf("cron: no tasks provided")

	// ErrCronClosed is returned when attempting to operate on a closed cron manager
	ErrCronClosed = fmt.Errorf("cron: cron manager is closed")

	// ErrUnknownChain no chain with that name was added
	ErrUnknownChain = fmt.Errorf("cron: unknown chain")

	// ErrDuplicateChain a chain with that name already exists
	ErrDuplicateChain = fmt.Errorf("cron: duplicate chain")
)

// ErrInvalidSpec is returned when a cron spec string is invalid
func ErrInvalidSpec(spec string, err error) error {
	return fmt.Errorf("cron: invalid cron spec %q: %w", spec, err)
}

// ErrTaskFailed wraps the error of the task that aborted a chain
func ErrTaskFailed(task string, err error) error {
	return fmt.Errorf("cron: task %s failed: %w", task, err)
}
