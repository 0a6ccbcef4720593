// Package cron runs named chains of tasks on cron schedules. The syncer
// uses it for periodic replay and cache refresh.
package cron

import (
	"context"
	"time"

	"github.com/campuscommunity/synckit/logger"
)

// Task is one step of a chain
type Task interface {
	// Name must be unique within its chain
	Name() string
	// Run executes the step. ctx carries the chain's SharedData.
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to a Task
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (t TaskFunc) Name() string { return t.TaskName }

func (t TaskFunc) Run(ctx context.Context) error { return t.Fn(ctx) }

// NewTask returns a Task running fn
func NewTask(name string, fn func(ctx context.Context) error) Task {
	return TaskFunc{TaskName: name, Fn: fn}
}

// Chain is a set of tasks that run in order on one schedule
type Chain struct {
	Name string
	// Spec is a cron spec with an optional seconds field, or a descriptor
	// such as "@every 5m"
	Spec  string
	Tasks []Task
	// Timeout bounds one run of the whole chain. 0 means no limit.
	Timeout time.Duration
}

// Cron schedules task chains. A chain run is skipped while the previous run
// of the same chain is still going.
type Cron interface {
	Start()
	// Close stops scheduling, cancels running chains and waits for them
	Close()
	// AddTasks schedules tasks as chain name. A failing task aborts the rest
	// of that run.
	AddTasks(name string, spec string, tasks ...Task) error
	AddChain(chain Chain) error
	// RunNow runs chain name once, synchronously, outside its schedule
	RunNow(ctx context.Context, name string) error
}

// NewCron creates a cron manager. Recovery and logging middlewares always
// wrap every task, outermost first, followed by mws.
func NewCron(log logger.Logger, mws ...Middleware) Cron {
	defaultMws := []Middleware{
		recoveryMiddleware(log),
		loggingMiddleware(log),
	}
	return newCronManager(log, append(defaultMws, mws...)...)
}
