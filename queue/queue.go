// Package queue implements the durable pending action queue.
//
// User mutations made while offline are appended to the queue, persisted
// immediately, and replayed in FIFO order once the client is back online.
// A failed replay increments the action's retry count; an action that fails
// more than Config.MaxRetries times is dropped. The queue is persisted after
// every individual outcome so a crash mid-pass loses at most the in-flight
// action's transition.
//
// Storage errors never reach callers: they are logged and the in-memory
// queue stays authoritative until the next successful write.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/model"
	"github.com/campuscommunity/synckit/routine"
	"github.com/campuscommunity/synckit/store"
	"go.uber.org/zap"
)

// ReplayFunc performs the remote mutation for action. It reports true when
// the remote side confirmed it. A false result, an error, a panic or a
// timeout all count as one failed attempt, except when the pass context
// itself ended: the action is then left as it was.
type ReplayFunc func(ctx context.Context, action PendingAction) (bool, error)

// Result summarizes one replay pass. Dropped actions are also counted in
// Failed.
type Result struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Dropped   int `json:"dropped"`
}

// Queue is the pending action queue
type Queue interface {
	// Initialize loads the persisted queue. Only the first call loads; later
	// calls are no-ops. Mutations before Initialize return ErrNotInitialized.
	Initialize(ctx context.Context)

	// AddAction appends a new action for payload and persists the queue.
	// Only invalid payloads and a missing Initialize are reported as errors.
	AddAction(ctx context.Context, payload Payload) (PendingAction, error)

	// RemoveAction removes the action with id and persists. Unknown ids are
	// a no-op.
	RemoveAction(ctx context.Context, id string) error

	// ProcessPendingActions replays a snapshot of the queue in FIFO order.
	// Actions enqueued during the pass wait for the next one. Cancelling ctx
	// stops the pass before the next action.
	ProcessPendingActions(ctx context.Context, replay ReplayFunc) Result

	// GetQueue returns a copy of the pending actions
	GetQueue() []PendingAction

	GetQueueLength() int

	// ClearQueue drops every pending action and persists
	ClearQueue(ctx context.Context) error
}

// Notifier receives user-visible sync events
type Notifier interface {
	CreateSyncSuccessNotification(ctx context.Context, actionLabel, details string) model.Notification
	CreateSyncFailedNotification(ctx context.Context, actionLabel, details string) model.Notification
}

// Outcome is the result of replaying one action
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDropped Outcome = "dropped"
)

// Observer is told about queue activity, e.g. for metrics or auditing.
// Calls are made synchronously from the queue; implementations must not
// block.
type Observer interface {
	ActionEnqueued(action PendingAction)
	// ActionReplayed reports one replay attempt; action carries the updated
	// retry count
	ActionReplayed(action PendingAction, outcome Outcome, elapsed time.Duration, err error)
	QueueLength(n int)
}

// Option configures optional queue collaborators
type Option func(q *defaultQueue)

// WithNotifier emits sync notifications through n
func WithNotifier(n Notifier) Option {
	return func(q *defaultQueue) { q.notifier = n }
}

// WithObservers adds observers
func WithObservers(obs ...Observer) Option {
	return func(q *defaultQueue) { q.observers = append(q.observers, obs...) }
}

type defaultQueue struct {
	logger    logger.Logger
	store     store.Store
	cfg       *Config
	notifier  Notifier
	observers []Observer
	now       func() time.Time

	mu        sync.Mutex
	actions   []PendingAction
	ready     bool
	lastStamp int64

	// persistMu orders writes so the last write always carries the latest
	// state
	persistMu sync.Mutex
}

// New creates a queue persisting through s. Initialize must be called
// before use.
func New(log logger.Logger, s store.Store, cfg *Config, opts ...Option) (Queue, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrInvalidConfig("store is required")
	}

	q := &defaultQueue{
		logger: log,
		store:  s,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

func (q *defaultQueue) Initialize(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready {
		q.logger.Debug("queue already initialized")
		return
	}

	q.actions = q.load(ctx)
	for _, a := range q.actions {
		if a.Timestamp > q.lastStamp {
			q.lastStamp = a.Timestamp
		}
	}
	q.ready = true

	q.logger.Info("sync queue loaded", zap.Int("pending", len(q.actions)))
	q.notifyLength(len(q.actions))
}

// load reads the persisted queue, skipping entries that cannot be decoded
func (q *defaultQueue) load(ctx context.Context) []PendingAction {
	var raws []json.RawMessage
	ok, err := store.GetJSON(ctx, q.store, q.cfg.StorageKey, &raws)
	if err != nil {
		q.logger.Error("failed to load sync queue", zap.Error(err))
		return []PendingAction{}
	}
	if !ok {
		return []PendingAction{}
	}

	actions := make([]PendingAction, 0, len(raws))
	for i, raw := range raws {
		var a PendingAction
		if err := json.Unmarshal(raw, &a); err != nil {
			q.logger.Warn("skipping undecodable queued action",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		actions = append(actions, a)
	}
	return actions
}

func (q *defaultQueue) AddAction(ctx context.Context, payload Payload) (PendingAction, error) {
	if err := ValidatePayload(payload); err != nil {
		return PendingAction{}, err
	}
	payload, _ = valuePayload(payload)

	q.mu.Lock()
	if !q.ready {
		q.mu.Unlock()
		return PendingAction{}, ErrNotInitialized
	}
	stamp := q.now().UnixMilli()
	if stamp <= q.lastStamp {
		stamp = q.lastStamp + 1
	}
	q.lastStamp = stamp

	typ := payload.ActionType()
	action := PendingAction{
		ID:        fmt.Sprintf("%s_%d", typ, stamp),
		Type:      typ,
		Timestamp: stamp,
		Payload:   payload,
	}
	q.actions = append(q.actions, action)
	n := len(q.actions)
	q.mu.Unlock()

	q.persist(ctx)

	q.logger.Info("action queued",
		zap.String("action_id", action.ID),
		zap.String("type", string(typ)),
	)
	for _, o := range q.observers {
		o.ActionEnqueued(action)
	}
	q.notifyLength(n)
	return action, nil
}

func (q *defaultQueue) RemoveAction(ctx context.Context, id string) error {
	q.mu.Lock()
	if !q.ready {
		q.mu.Unlock()
		return ErrNotInitialized
	}
	removed := q.removeLocked(id)
	n := len(q.actions)
	q.mu.Unlock()

	q.persist(ctx)
	if removed {
		q.logger.Info("action removed", zap.String("action_id", id))
	}
	q.notifyLength(n)
	return nil
}

func (q *defaultQueue) removeLocked(id string) bool {
	for i, a := range q.actions {
		if a.ID == id {
			q.actions = append(q.actions[:i:i], q.actions[i+1:]...)
			return true
		}
	}
	return false
}

func (q *defaultQueue) ProcessPendingActions(ctx context.Context, replay ReplayFunc) Result {
	var result Result

	q.mu.Lock()
	if !q.ready {
		q.mu.Unlock()
		q.logger.Warn("replay skipped: queue not initialized")
		return result
	}
	snapshot := make([]PendingAction, len(q.actions))
	copy(snapshot, q.actions)
	q.mu.Unlock()

	q.logger.Info("processing pending actions", zap.Int("pending", len(snapshot)))

	for i, action := range snapshot {
		if err := ctx.Err(); err != nil {
			q.logger.Warn("replay pass cancelled",
				zap.Int("remaining", len(snapshot)-i),
				zap.Error(err),
			)
			break
		}

		start := time.Now()
		ok, err := q.replayOne(ctx, replay, action)
		elapsed := time.Since(start)

		// a pass cancelled mid-replay leaves the in-flight action as it was
		if !ok && ctx.Err() != nil {
			q.logger.Warn("replay pass cancelled",
				zap.String("action_id", action.ID),
				zap.Int("remaining", len(snapshot)-i),
				zap.Error(err),
			)
			break
		}

		if ok {
			q.succeed(ctx, action, elapsed)
			result.Succeeded++
		} else {
			if q.fail(ctx, action, elapsed, err) {
				result.Dropped++
			}
			result.Failed++
		}
	}

	q.logger.Info("replay pass complete",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("dropped", result.Dropped),
	)
	return result
}

// replayOne runs replay under the per-action timeout with panic recovery
func (q *defaultQueue) replayOne(ctx context.Context, replay ReplayFunc, action PendingAction) (bool, error) {
	actx, cancel := context.WithTimeout(ctx, q.cfg.ReplayTimeout)
	defer cancel()

	var ok bool
	task := routine.Start(actx, q.logger, "replay-"+action.ID, func(ctx context.Context) error {
		var err error
		ok, err = replay(ctx, action)
		return err
	})

	select {
	case <-task.Done():
	case <-actx.Done():
		// a replay that already finished keeps its own result
		select {
		case <-task.Done():
		default:
			task.Cancel()
			if err := ctx.Err(); err != nil {
				return false, context.Cause(ctx)
			}
			return false, ErrReplayTimeout
		}
	}
	if err := task.Wait(); err != nil {
		return false, err
	}
	if !ok {
		return false, ErrReplayRejected
	}
	return true, nil
}

func (q *defaultQueue) succeed(ctx context.Context, action PendingAction, elapsed time.Duration) {
	q.mu.Lock()
	q.removeLocked(action.ID)
	n := len(q.actions)
	q.mu.Unlock()

	q.persist(ctx)

	q.logger.Info("action synced",
		zap.String("action_id", action.ID),
		zap.String("type", string(action.Type)),
		zap.Duration("elapsed", elapsed),
	)
	if q.notifier != nil {
		q.notifier.CreateSyncSuccessNotification(context.WithoutCancel(ctx), action.Type.Label(), action.Detail())
	}
	for _, o := range q.observers {
		o.ActionReplayed(action, OutcomeSuccess, elapsed, nil)
	}
	q.notifyLength(n)
}

// fail records a failed attempt and reports whether the action was dropped.
// Actions removed from the queue while their replay ran are not put back.
func (q *defaultQueue) fail(ctx context.Context, action PendingAction, elapsed time.Duration, cause error) bool {
	q.mu.Lock()
	action.RetryCount++
	dropped := false
	for i := range q.actions {
		if q.actions[i].ID == action.ID {
			q.actions[i].RetryCount++
			action.RetryCount = q.actions[i].RetryCount
			dropped = action.RetryCount > q.cfg.MaxRetries
			if dropped {
				q.removeLocked(action.ID)
			}
			break
		}
	}
	n := len(q.actions)
	q.mu.Unlock()

	q.persist(ctx)

	outcome := OutcomeFailure
	if dropped {
		outcome = OutcomeDropped
		q.logger.Error("action dropped after max retries",
			zap.String("action_id", action.ID),
			zap.String("type", string(action.Type)),
			zap.Int("retry_count", action.RetryCount),
			zap.Bool("dropped", true),
			zap.Error(cause),
		)
		if q.cfg.NotifyOnDrop && q.notifier != nil {
			q.notifier.CreateSyncFailedNotification(context.WithoutCancel(ctx), action.Type.Label(), action.Detail())
		}
	} else {
		q.logger.Warn("action replay failed",
			zap.String("action_id", action.ID),
			zap.String("type", string(action.Type)),
			zap.Int("retry_count", action.RetryCount),
			zap.Error(cause),
		)
	}
	for _, o := range q.observers {
		o.ActionReplayed(action, outcome, elapsed, cause)
	}
	q.notifyLength(n)
	return dropped
}

func (q *defaultQueue) GetQueue() []PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PendingAction, len(q.actions))
	copy(out, q.actions)
	return out
}

func (q *defaultQueue) GetQueueLength() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

func (q *defaultQueue) ClearQueue(ctx context.Context) error {
	q.mu.Lock()
	if !q.ready {
		q.mu.Unlock()
		return ErrNotInitialized
	}
	cleared := len(q.actions)
	q.actions = []PendingAction{}
	q.mu.Unlock()

	q.persist(ctx)
	q.logger.Warn("sync queue cleared", zap.Int("discarded", cleared))
	q.notifyLength(0)
	return nil
}

// persist writes the current queue. Failures are logged and swallowed.
func (q *defaultQueue) persist(ctx context.Context) {
	q.persistMu.Lock()
	defer q.persistMu.Unlock()

	snapshot := q.GetQueue()
	if err := store.SetJSON(context.WithoutCancel(ctx), q.store, q.cfg.StorageKey, snapshot); err != nil {
		q.logger.Error("failed to persist sync queue",
			zap.Int("pending", len(snapshot)),
			zap.Error(err),
		)
	}
}

func (q *defaultQueue) notifyLength(n int) {
	for _, o := range q.observers {
		o.QueueLength(n)
	}
}
