// Package store provides the durable key-value store the sync queue, caches
// and notifications persist through.
//
// Values are opaque strings (JSON documents in practice). Keys are
// partitioned by their owners: each cache, the queue and the notification
// list use distinct keys, so backends only need per-key atomicity.
//
// Available backends:
//   - memory: process-local map, for tests and ephemeral runs
//   - file:   one file per key under a directory
//   - sqlite: a single-table database via modernc.org/sqlite
//   - redis:  go-redis client, optional key prefix
//   - mysql:  gorm over the db package
package store

import (
	"context"
	"encoding/json"
)

// Store is an asynchronous-safe string key-value store.
type Store interface {
	// GetString returns the value for key. ok is false when the key does not
	// exist; that is not an error.
	GetString(ctx context.Context, key string) (value string, ok bool, err error)
	// SetString stores value under key, replacing any previous value.
	SetString(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases the backend's resources.
	Close() error
}

// GetJSON reads key and decodes it into v. It reports false when the key is
// absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.GetString(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, ErrDecode(key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return ErrEncode(key, err)
	}
	return s.SetString(ctx, key, string(raw))
}
