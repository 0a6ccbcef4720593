package cache

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/routine"
	"go.uber.org/zap"
)

// FetchFunc loads the live list from the remote API. It should respect ctx.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// OnlineFunc reports current connectivity
type OnlineFunc func() bool

// Source tells where a ReadThrough result came from
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
	SourceNone   Source = "none"
)

// ReadObserver is notified of every ReadThrough.Get outcome
type ReadObserver func(cache string, src Source)

// ReadThrough serves live data when online and falls back to the local cache
// otherwise.
type ReadThrough[T any] interface {
	// Get fetches live data when online, saving it to the cache and stamping
	// the sync metadata. On fetch failure or while offline it returns the
	// cached list, or an empty list with SourceNone. The returned error is
	// the fetch failure, for diagnostics only; items are always usable.
	Get(ctx context.Context) (items []T, src Source, err error)

	// Sync fetches and stores live data regardless of connectivity
	Sync(ctx context.Context) error

	// Start begins the background refresh. It refreshes once immediately
	// when online; failures are logged, not returned.
	Start() error

	// Stop stops the background refresh. It can be called multiple times.
	Stop()
}

// ReadThroughOption configures optional ReadThrough collaborators
type ReadThroughOption func(*readThroughOptions)

type readThroughOptions struct {
	metadata *SyncMetadata
	observer ReadObserver
}

// WithSyncMetadata stamps md after every successful fetch
func WithSyncMetadata(md *SyncMetadata) ReadThroughOption {
	return func(o *readThroughOptions) { o.metadata = md }
}

// WithReadObserver reports every Get outcome to fn
func WithReadObserver(fn ReadObserver) ReadThroughOption {
	return func(o *readThroughOptions) { o.observer = fn }
}

type readThrough[T any] struct {
	logger   logger.Logger
	fetch    FetchFunc[T]
	cache    Cache[T]
	online   OnlineFunc
	metadata *SyncMetadata
	observer ReadObserver

	name            string
	refreshInterval time.Duration
	fetchTimeout    time.Duration
	maxRetries      int

	mu      sync.Mutex
	task    *routine.Task
	stopped bool
	once    sync.Once
}

// NewReadThrough creates a ReadThrough over cache. online may be nil, in
// which case the client is assumed online.
func NewReadThrough[T any](
	log logger.Logger,
	cfg *ReadThroughConfig,
	fetch FetchFunc[T],
	cache Cache[T],
	online OnlineFunc,
	opts ...ReadThroughOption,
) (ReadThrough[T], error) {
	if cfg == nil {
		cfg = DefaultReadThroughConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fetch == nil || cache == nil {
		return nil, ErrInvalidConfig
	}
	if online == nil {
		online = func() bool { return true }
	}

	var o readThroughOptions
	for _, opt := range opts {
		opt(&o)
	}

	return &readThrough[T]{
		logger:          log,
		fetch:           fetch,
		cache:           cache,
		online:          online,
		metadata:        o.metadata,
		observer:        o.observer,
		name:            cfg.Name,
		refreshInterval: cfg.RefreshInterval,
		fetchTimeout:    cfg.FetchTimeout,
		maxRetries:      cfg.MaxRetries,
	}, nil
}

func (rt *readThrough[T]) Get(ctx context.Context) ([]T, Source, error) {
	var fetchErr error
	if rt.online() {
		items, err := rt.refresh(ctx)
		if err == nil {
			rt.observe(SourceRemote)
			return items, SourceRemote, nil
		}
		fetchErr = err
		rt.logger.Warn("fetch failed, serving cache",
			zap.String("cache", rt.name),
			zap.Error(err),
		)
	}

	if items, ok := rt.cache.Get(ctx); ok {
		rt.observe(SourceCache)
		return items, SourceCache, fetchErr
	}
	rt.observe(SourceNone)
	return []T{}, SourceNone, fetchErr
}

func (rt *readThrough[T]) Sync(ctx context.Context) error {
	_, err := rt.refresh(ctx)
	return err
}

func (rt *readThrough[T]) Start() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.stopped {
		return ErrCacheClosed
	}
	if rt.task != nil {
		return nil
	}

	rt.task = routine.Start(context.Background(), rt.logger, rt.name+"-refresh", func(ctx context.Context) error {
		rt.refreshIfOnline(ctx)

		ticker := time.NewTicker(rt.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rt.refreshIfOnline(ctx)
			case <-ctx.Done():
				rt.logger.Info("stopping refresh", zap.String("cache", rt.name))
				return nil
			}
		}
	})
	return nil
}

func (rt *readThrough[T]) Stop() {
	rt.once.Do(func() {
		rt.mu.Lock()
		rt.stopped = true
		task := rt.task
		rt.mu.Unlock()
		if task != nil {
			task.Cancel()
			task.Wait()
		}
	})
}

func (rt *readThrough[T]) observe(src Source) {
	if rt.observer != nil {
		rt.observer(rt.name, src)
	}
}

func (rt *readThrough[T]) refreshIfOnline(ctx context.Context) {
	if !rt.online() {
		rt.logger.Debug("offline, skipping refresh", zap.String("cache", rt.name))
		return
	}
	if _, err := rt.refresh(ctx); err != nil && ctx.Err() == nil {
		rt.logger.Error("periodic refresh failed",
			zap.String("cache", rt.name),
			zap.Error(err),
		)
	}
}

// refresh fetches with retry and stores the result
func (rt *readThrough[T]) refresh(ctx context.Context) ([]T, error) {
	items, err := rt.fetchWithRetry(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	rt.cache.Save(ctx, items)
	if rt.metadata != nil {
		rt.metadata.SetLastSync(ctx)
	}
	return items, nil
}

// fetchWithRetry fetches with exponential backoff between attempts
func (rt *readThrough[T]) fetchWithRetry(ctx context.Context) ([]T, error) {
	var lastErr error

	for attempt := 0; attempt < rt.maxRetries; attempt++ {
		// 1s, 2s, 4s, ...
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			rt.logger.Warn("retrying fetch after backoff",
				zap.String("cache", rt.name),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ErrFetch(ctx.Err())
			}
		}

		fetchCtx, cancel := context.WithTimeout(ctx, rt.fetchTimeout)
		items, err := rt.fetch(fetchCtx)
		cancel()

		if err == nil {
			rt.logger.Debug("fetch completed",
				zap.String("cache", rt.name),
				zap.Int("attempt", attempt+1),
				zap.Int("items", len(items)),
			)
			return items, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, ErrFetch(err)
		}

		rt.logger.Warn("fetch failed, will retry",
			zap.String("cache", rt.name),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", rt.maxRetries),
		)
	}

	return nil, ErrFetch(lastErr)
}

// isRetryableError reports transient failures such as timeouts and
// connection resets
func isRetryableError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()
	retryableErrors := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"status 5",
	}
	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}
	return false
}
