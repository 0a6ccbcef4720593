package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campuscommunity/synckit/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// specParser accepts 5 or 6 field specs and descriptors like "@every 5m"
var specParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// chainJob runs its tasks in order, sharing one SharedData per run
type chainJob struct {
	name    string
	tasks   []Task
	timeout time.Duration
	logger  logger.Logger
	baseCtx context.Context
}

// Run is called by the scheduler
func (j *chainJob) Run() {
	_ = j.run(j.baseCtx)
}

func (j *chainJob) run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	ctx, _ = WithSharedData(ctx)

	j.logger.Debug("chain job started", zap.String("chain_name", j.name))

	for _, task := range j.tasks {
		if err := ctx.Err(); err != nil {
			j.logger.Warn("chain job stopped", zap.String("chain_name", j.name), zap.Error(err))
			return err
		}
		if err := task.Run(ctx); err != nil {
			j.logger.Error("chain job aborted due to task failure",
				zap.String("chain_name", j.name),
				zap.String("task_name", task.Name()),
				zap.Error(err),
			)
			return ErrTaskFailed(task.Name(), err)
		}
	}

	j.logger.Debug("chain job completed", zap.String("chain_name", j.name))
	return nil
}

type cronManager struct {
	cron        *cron.Cron
	middlewares []Middleware
	logger      logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	chains map[string]*chainJob
	closed bool
}

func newCronManager(log logger.Logger, mws ...Middleware) *cronManager {
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &cronManager{
		cron: cron.New(
			cron.WithParser(specParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl)),
		),
		middlewares: mws,
		logger:      log,
		ctx:         ctx,
		cancel:      cancel,
		chains:      make(map[string]*chainJob),
	}
}

func (m *cronManager) Start() {
	m.cron.Start()
}

func (m *cronManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	<-m.cron.Stop().Done()
}

// AddTasks schedules a chain. Example specs: "0 */5 * * * *" (every five
// minutes, seconds field first), "*/5 * * * *", "@every 5m".
func (m *cronManager) AddTasks(name, spec string, tasks ...Task) error {
	return m.AddChain(Chain{Name: name, Spec: spec, Tasks: tasks})
}

func (m *cronManager) AddChain(chain Chain) error {
	if len(chain.Tasks) == 0 {
		return ErrNoTasks
	}
	if _, err := specParser.Parse(chain.Spec); err != nil {
		return ErrInvalidSpec(chain.Spec, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrCronClosed
	}
	if _, ok := m.chains[chain.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateChain, chain.Name)
	}

	wrapped := make([]Task, len(chain.Tasks))
	for i, task := range chain.Tasks {
		named := &wrappedTask{
			name: fmt.Sprintf("%s:%s", chain.Name, task.Name()),
			exec: task.Run,
		}
		wrapped[i] = applyMiddlewares(named, m.middlewares...)
	}

	job := &chainJob{
		name:    chain.Name,
		tasks:   wrapped,
		timeout: chain.Timeout,
		logger:  m.logger,
		baseCtx: m.ctx,
	}
	if _, err := m.cron.AddJob(chain.Spec, job); err != nil {
		return ErrInvalidSpec(chain.Spec, err)
	}
	m.chains[chain.Name] = job

	m.logger.Info("chain added",
		zap.String("chain_name", chain.Name),
		zap.String("spec", chain.Spec),
		zap.Int("task_count", len(chain.Tasks)),
	)
	return nil
}

func (m *cronManager) RunNow(ctx context.Context, name string) error {
	m.mu.Lock()
	job, ok := m.chains[name]
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return ErrCronClosed
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChain, name)
	}
	return job.run(ctx)
}

// cronLogger adapts logger.Logger to the robfig/cron logger interface
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), zap.Error(err))...)
}

func kvFields(kv []any) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	return fields
}
