package cache

import (
	"context"
	"sync"

	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/model"
	"github.com/campuscommunity/synckit/store"
	"go.uber.org/zap"
)

// NotificationCache persists the notification list as a bare array, newest
// first. Read-modify-write operations are serialized within the process.
type NotificationCache struct {
	logger logger.Logger
	store  store.Store
	mu     sync.Mutex
}

// NewNotificationCache returns a NotificationCache persisting under
// KeyNotifications
func NewNotificationCache(log logger.Logger, s store.Store) *NotificationCache {
	return &NotificationCache{logger: log, store: s}
}

// Save overwrites the stored list
func (c *NotificationCache) Save(ctx context.Context, list []model.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.save(ctx, list)
}

// Get returns the stored list; ok is false when none is stored
func (c *NotificationCache) Get(ctx context.Context) ([]model.Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Clear removes the stored list
func (c *NotificationCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	remove(ctx, c.logger, c.store, KeyNotifications)
}

// AddNotification prepends n to the stored list
func (c *NotificationCache) AddNotification(ctx context.Context, n model.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, _ := c.load(ctx)
	updated := make([]model.Notification, 0, len(existing)+1)
	updated = append(updated, n)
	updated = append(updated, existing...)
	c.save(ctx, updated)
}

// MarkAsRead sets IsRead on the notification with the given id. Unknown ids
// leave the list unchanged.
func (c *NotificationCache) MarkAsRead(ctx context.Context, id string) {
	c.update(ctx, func(n *model.Notification) {
		if n.ID == id {
			n.IsRead = true
		}
	})
}

// MarkAllAsRead sets IsRead on every stored notification
func (c *NotificationCache) MarkAllAsRead(ctx context.Context) {
	c.update(ctx, func(n *model.Notification) { n.IsRead = true })
}

func (c *NotificationCache) update(ctx context.Context, fn func(n *model.Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list, ok := c.load(ctx)
	if !ok {
		return
	}
	for i := range list {
		fn(&list[i])
	}
	c.save(ctx, list)
}

func (c *NotificationCache) load(ctx context.Context) ([]model.Notification, bool) {
	var list []model.Notification
	ok, err := store.GetJSON(ctx, c.store, KeyNotifications, &list)
	if err != nil {
		c.logger.Error("notification cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok || list == nil {
		return nil, false
	}
	return list, true
}

func (c *NotificationCache) save(ctx context.Context, list []model.Notification) {
	if list == nil {
		list = []model.Notification{}
	}
	if err := store.SetJSON(ctx, c.store, KeyNotifications, list); err != nil {
		c.logger.Error("notification cache save failed", zap.Error(err))
	}
}
