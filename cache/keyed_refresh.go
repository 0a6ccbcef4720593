package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuscommunity/synckit/logger"
	"go.uber.org/zap"
)

// KeyFetchFunc loads the live list for one id
type KeyFetchFunc[T any] func(ctx context.Context, id string) ([]T, error)

// KeyedRefresher refreshes a KeyedCache for every id ids returns, e.g. the
// updates of each subscribed club
type KeyedRefresher[T any] struct {
	logger logger.Logger
	cache  KeyedCache[T]
	ids    func(ctx context.Context) []string
	fetch  KeyFetchFunc[T]
}

// NewKeyedRefresher creates a KeyedRefresher
func NewKeyedRefresher[T any](
	log logger.Logger, c KeyedCache[T], ids func(ctx context.Context) []string, fetch KeyFetchFunc[T],
) *KeyedRefresher[T] {
	return &KeyedRefresher[T]{logger: log, cache: c, ids: ids, fetch: fetch}
}

// Sync fetches and saves every id. A failed id keeps its cached list; the
// failures are joined into the returned error. It stops early when ctx ends.
func (r *KeyedRefresher[T]) Sync(ctx context.Context) error {
	var errs []error
	saved := 0
	for _, id := range r.ids(ctx) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		items, err := r.fetch(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		r.cache.Save(ctx, id, items)
		saved++
	}

	r.logger.Debug("keyed cache refreshed", zap.Int("saved", saved), zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}
