// Package cache provides the local read caches of the sync kit.
//
// Every cache persists through a store.Store and never fails its reader:
// a missing key, an undecodable value or a store error all read as "absent"
// and are logged. Writes are logged and swallowed the same way, so a broken
// disk degrades the client to online-only instead of crashing it.
//
// Available caches:
//   - Cache:             a list under a fixed key ({data, timestamp} envelope)
//   - KeyedCache:        a list per id under prefix+id
//   - NotificationCache: the bare notification array, newest first
//   - SyncMetadata:      the last successful sync time
//   - ReadThrough:       live fetch with fallback to a Cache, plus periodic refresh
package cache

import (
	"context"
	"time"

	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/model"
	"github.com/campuscommunity/synckit/store"
	"go.uber.org/zap"
)

// Persisted keys
const (
	KeyNews              = "@campus_news"
	KeyClubs             = "@campus_clubs"
	KeyClubUpdatesPrefix = "@campus_club_updates_"
	KeyNotifications     = "@campus_notifications"
	KeyLastSync          = "@campus_last_sync"
)

// isoLayout renders UTC times with millisecond precision and a Z suffix
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

func formatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Entry is the stored envelope of a cached list
type Entry[T any] struct {
	Data      []T    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// Cache is a list stored under a single fixed key
type Cache[T any] interface {
	// Save overwrites the stored list and stamps it with the current time
	Save(ctx context.Context, items []T)
	// Get returns the stored list, even if stale. ok is false when nothing
	// usable is stored.
	Get(ctx context.Context) (items []T, ok bool)
	Clear(ctx context.Context)
}

// KeyedCache is a family of lists addressed by id
type KeyedCache[T any] interface {
	Save(ctx context.Context, id string, items []T)
	Get(ctx context.Context, id string) (items []T, ok bool)
	Clear(ctx context.Context, id string)
}

type storeCache[T any] struct {
	logger logger.Logger
	store  store.Store
	key    string
}

// New returns a Cache persisting under key
func New[T any](log logger.Logger, s store.Store, key string) Cache[T] {
	return &storeCache[T]{logger: log, store: s, key: key}
}

// NewNewsCache returns the news list cache
func NewNewsCache(log logger.Logger, s store.Store) Cache[model.NewsItem] {
	return New[model.NewsItem](log, s, KeyNews)
}

// NewClubsCache returns the subscribed clubs cache
func NewClubsCache(log logger.Logger, s store.Store) Cache[model.Club] {
	return New[model.Club](log, s, KeyClubs)
}

func (c *storeCache[T]) Save(ctx context.Context, items []T) {
	saveEntry(ctx, c.logger, c.store, c.key, items)
}

func (c *storeCache[T]) Get(ctx context.Context) ([]T, bool) {
	return loadEntry[T](ctx, c.logger, c.store, c.key)
}

func (c *storeCache[T]) Clear(ctx context.Context) {
	remove(ctx, c.logger, c.store, c.key)
}

type keyedCache[T any] struct {
	logger logger.Logger
	store  store.Store
	prefix string
}

// NewKeyed returns a KeyedCache whose keys are prefix+id
func NewKeyed[T any](log logger.Logger, s store.Store, prefix string) KeyedCache[T] {
	return &keyedCache[T]{logger: log, store: s, prefix: prefix}
}

// NewClubUpdatesCache returns the per-club updates cache
func NewClubUpdatesCache(log logger.Logger, s store.Store) KeyedCache[model.Update] {
	return NewKeyed[model.Update](log, s, KeyClubUpdatesPrefix)
}

func (c *keyedCache[T]) Save(ctx context.Context, id string, items []T) {
	saveEntry(ctx, c.logger, c.store, c.prefix+id, items)
}

func (c *keyedCache[T]) Get(ctx context.Context, id string) ([]T, bool) {
	return loadEntry[T](ctx, c.logger, c.store, c.prefix+id)
}

func (c *keyedCache[T]) Clear(ctx context.Context, id string) {
	remove(ctx, c.logger, c.store, c.prefix+id)
}

func saveEntry[T any](ctx context.Context, log logger.Logger, s store.Store, key string, items []T) {
	if items == nil {
		items = []T{}
	}
	entry := Entry[T]{Data: items, Timestamp: formatISO(time.Now())}
	if err := store.SetJSON(ctx, s, key, entry); err != nil {
		log.Error("cache save failed", zap.String("key", key), zap.Error(err))
		return
	}
	log.Debug("cache saved", zap.String("key", key), zap.Int("items", len(items)))
}

func loadEntry[T any](ctx context.Context, log logger.Logger, s store.Store, key string) ([]T, bool) {
	var entry Entry[T]
	ok, err := store.GetJSON(ctx, s, key, &entry)
	if err != nil {
		log.Error("cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok || entry.Data == nil {
		return nil, false
	}
	return entry.Data, true
}

func remove(ctx context.Context, log logger.Logger, s store.Store, key string) {
	if err := s.Remove(ctx, key); err != nil {
		log.Error("cache clear failed", zap.String("key", key), zap.Error(err))
	}
}
