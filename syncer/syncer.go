// Package syncer drives the pending action queue. It replays the queue when
// connectivity returns, on demand and on a cron schedule, and refreshes the
// read caches after a pass that delivered something.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/campuscommunity/synckit/connectivity"
	"github.com/campuscommunity/synckit/cron"
	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/queue"
	"github.com/campuscommunity/synckit/routine"
	"go.uber.org/zap"
)

// Pass triggers
const (
	TriggerStartup   = "startup"
	TriggerReconnect = "reconnect"
	TriggerManual    = "manual"
	TriggerCron      = "cron"
)

// resultKey is the cron.SharedData key of the replay result in the sync chain
const resultKey = "sync.result"

// Refresher reloads a read cache from the remote side. cache.ReadThrough
// satisfies it.
type Refresher interface {
	Sync(ctx context.Context) error
}

// PassObserver is told about every pass that starts
type PassObserver interface {
	PassStarted(trigger string)
}

// Status is a snapshot of the syncer state
type Status struct {
	Online      bool         `json:"online"`
	Running     bool         `json:"running"`
	QueueLength int          `json:"queueLength"`
	LastPassAt  time.Time    `json:"lastPassAt,omitzero"`
	LastTrigger string       `json:"lastTrigger,omitempty"`
	LastResult  queue.Result `json:"lastResult"`
}

// Option configures optional collaborators
type Option func(s *Syncer)

// WithRefreshers refreshes rs after every pass with at least one success
func WithRefreshers(rs ...Refresher) Option {
	return func(s *Syncer) { s.refreshers = append(s.refreshers, rs...) }
}

// WithPassObserver reports pass starts to o
func WithPassObserver(o PassObserver) Option {
	return func(s *Syncer) { s.observer = o }
}

type pass struct {
	trigger string
	task    *routine.Task
	result  queue.Result
}

// Syncer runs replay passes. At most one pass runs at a time; a trigger
// that arrives while a pass runs is folded into it.
type Syncer struct {
	logger     logger.Logger
	cfg        *Config
	queue      queue.Queue
	replay     queue.ReplayFunc
	signal     connectivity.Signal
	refreshers []Refresher
	observer   PassObserver
	now        func() time.Time

	mu          sync.Mutex
	current     *pass
	started     bool
	stopped     bool
	watcher     *routine.Task
	unsubscribe func()
	lastPassAt  time.Time
	lastTrigger string
	lastResult  queue.Result
}

// New creates a Syncer replaying q through replay, gated by signal
func New(
	log logger.Logger,
	cfg *Config,
	q queue.Queue,
	replay queue.ReplayFunc,
	signal connectivity.Signal,
	opts ...Option,
) (*Syncer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if q == nil || replay == nil || signal == nil {
		return nil, ErrInvalidConfig("queue, replay and signal are required")
	}

	s := &Syncer{
		logger: log,
		cfg:    cfg,
		queue:  q,
		replay: replay,
		signal: signal,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start watches the connectivity signal until Stop or until ctx ends. When
// already online it starts a pass right away.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true

	changes, unsubscribe := s.signal.Subscribe()
	s.unsubscribe = unsubscribe
	s.watcher = routine.Start(ctx, s.logger, "syncer-watch", func(ctx context.Context) error {
		return s.watch(ctx, changes)
	})
	s.mu.Unlock()

	s.logger.Info("syncer started",
		zap.Bool("online", s.signal.IsOnline()),
		zap.Duration("pass_timeout", s.cfg.PassTimeout),
	)

	if !s.cfg.SkipInitialSync && s.signal.IsOnline() {
		s.trigger(ctx, TriggerStartup)
	}
	return nil
}

// Stop stops watching, cancels a running pass and waits for it
func (s *Syncer) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	watcher, current, unsubscribe := s.watcher, s.current, s.unsubscribe
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if watcher != nil {
		watcher.Cancel()
		_ = watcher.Wait()
	}
	if current != nil {
		current.task.Cancel()
		_ = current.task.Wait()
	}
	s.logger.Info("syncer stopped")
}

func (s *Syncer) watch(ctx context.Context, changes <-chan bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case online, ok := <-changes:
			if !ok {
				return nil
			}
			s.logger.Info("connectivity changed", zap.Bool("online", online))
			if online {
				s.trigger(ctx, TriggerReconnect)
			}
		}
	}
}

// trigger starts a pass in the background; an offline or busy syncer just
// logs
func (s *Syncer) trigger(ctx context.Context, trigger string) {
	if _, err := s.startPass(ctx, trigger, true); err != nil {
		s.logger.Debug("sync pass not started", zap.String("trigger", trigger), zap.Error(err))
	}
}

// SyncNow runs a pass and waits for its result. It returns ErrOffline when
// offline and ErrBusy while another pass runs.
func (s *Syncer) SyncNow(ctx context.Context) (queue.Result, error) {
	return s.runAndWait(ctx, TriggerManual, true)
}

func (s *Syncer) runAndWait(ctx context.Context, trigger string, refresh bool) (queue.Result, error) {
	p, err := s.startPass(ctx, trigger, refresh)
	if err != nil {
		return queue.Result{}, err
	}
	if err := p.task.Wait(); err != nil {
		return p.result, err
	}
	return p.result, nil
}

func (s *Syncer) startPass(ctx context.Context, trigger string, refresh bool) (*pass, error) {
	if !s.signal.IsOnline() {
		return nil, ErrOffline
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStopped
	}
	if s.current != nil {
		return nil, ErrBusy
	}

	p := &pass{trigger: trigger}
	// a pass outlives the request that started it only up to PassTimeout
	passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PassTimeout)
	p.task = routine.Start(passCtx, s.logger, "sync-pass-"+trigger, func(ctx context.Context) error {
		defer cancel()
		defer s.finish(p)
		p.result = s.runPass(ctx, trigger, refresh)
		return nil
	})
	s.current = p
	return p, nil
}

func (s *Syncer) finish(p *pass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == p {
		s.current = nil
	}
	s.lastPassAt = s.now()
	s.lastTrigger = p.trigger
	s.lastResult = p.result
}

func (s *Syncer) runPass(ctx context.Context, trigger string, refresh bool) queue.Result {
	if s.observer != nil {
		s.observer.PassStarted(trigger)
	}
	start := s.now()
	pending := s.queue.GetQueueLength()

	res := s.queue.ProcessPendingActions(ctx, s.replay)

	s.logger.Info("sync pass finished",
		zap.String("trigger", trigger),
		zap.Int("pending", pending),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("dropped", res.Dropped),
		zap.Duration("duration", s.now().Sub(start)),
	)

	if refresh && res.Succeeded > 0 {
		s.refresh(ctx)
	}
	return res
}

// refresh reloads every read cache; failures are logged
func (s *Syncer) refresh(ctx context.Context) {
	for _, r := range s.refreshers {
		if err := r.Sync(ctx); err != nil {
			s.logger.Warn("cache refresh after sync failed", zap.Error(err))
		}
	}
}

// Status returns a snapshot of the syncer state
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Online:      s.signal.IsOnline(),
		Running:     s.current != nil,
		QueueLength: s.queue.GetQueueLength(),
		LastPassAt:  s.lastPassAt,
		LastTrigger: s.lastTrigger,
		LastResult:  s.lastResult,
	}
}

// RegisterCron adds the "sync" chain to c: a replay task followed by a
// cache refresh task that only runs when the replay delivered something.
// It does nothing when the cron is disabled in the config.
func (s *Syncer) RegisterCron(c cron.Cron) error {
	if s.cfg.DisableCron {
		return nil
	}

	replay := cron.NewTask("replay", func(ctx context.Context) error {
		res, err := s.runAndWait(ctx, TriggerCron, false)
		switch {
		case err == nil:
			cron.GetSharedData(ctx).Set(resultKey, res)
			return nil
		case errors.Is(err, ErrOffline), errors.Is(err, ErrBusy):
			s.logger.Debug("scheduled sync skipped", zap.Error(err))
			return nil
		default:
			return err
		}
	})

	refresh := cron.NewTask("refresh", func(ctx context.Context) error {
		res, ok := cron.Lookup[queue.Result](ctx, resultKey)
		if !ok || res.Succeeded == 0 {
			return nil
		}
		s.refresh(ctx)
		return nil
	})

	return c.AddChain(cron.Chain{
		Name:    "sync",
		Spec:    s.cfg.CronSpec,
		Tasks:   []cron.Task{replay, refresh},
		Timeout: s.cfg.PassTimeout,
	})
}
