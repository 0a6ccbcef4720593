package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// fileStore keeps one file per key in a directory. Writes go through a temp
// file and a rename so a crash never leaves a half-written value behind.
type fileStore struct {
	dir    string
	mu     sync.RWMutex
	closed bool
}

// NewFile returns a Store rooted at dir, creating it if needed.
func NewFile(dir string) (Store, error) {
	if dir == "" {
		return nil, ErrInvalidConfig("file store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ErrConnection(fmt.Errorf("create store dir: %w", err))
	}
	return &fileStore{dir: dir}, nil
}

func (f *fileStore) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *fileStore) GetString(_ context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return "", false, ErrClosed
	}

	b, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, ErrRead(key, err)
	}
	return string(b), true, nil
}

func (f *fileStore) SetString(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return ErrWrite(key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return ErrWrite(key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return ErrWrite(key, err)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return ErrWrite(key, err)
	}
	return nil
}

func (f *fileStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ErrRemove(key, err)
	}
	return nil
}

func (f *fileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
