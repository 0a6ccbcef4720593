package cache

import (
	"context"
	"time"

	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/store"
	"go.uber.org/zap"
)

// SyncMetadata records when the caches were last refreshed from the API
type SyncMetadata struct {
	logger logger.Logger
	store  store.Store
}

// NewSyncMetadata returns a SyncMetadata persisting under KeyLastSync
func NewSyncMetadata(log logger.Logger, s store.Store) *SyncMetadata {
	return &SyncMetadata{logger: log, store: s}
}

// SetLastSync stamps the current time
func (m *SyncMetadata) SetLastSync(ctx context.Context) {
	if err := store.SetJSON(ctx, m.store, KeyLastSync, formatISO(time.Now())); err != nil {
		m.logger.Error("set last sync failed", zap.Error(err))
	}
}

// GetLastSync returns the last sync time, or false if none was recorded
func (m *SyncMetadata) GetLastSync(ctx context.Context) (time.Time, bool) {
	var raw string
	ok, err := store.GetJSON(ctx, m.store, KeyLastSync, &raw)
	if err != nil {
		m.logger.Error("get last sync failed", zap.Error(err))
		return time.Time{}, false
	}
	if !ok || raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		m.logger.Warn("invalid last sync timestamp", zap.String("value", raw), zap.Error(err))
		return time.Time{}, false
	}
	return t, true
}
