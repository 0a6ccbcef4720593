package cron

import (
	"context"
	"sync"
)

type contextKey string

const sharedDataKey contextKey = "cron:shared_data"

// SharedData passes values between the tasks of one chain run. Each run
// gets a fresh instance.
type SharedData struct {
	data sync.Map
}

// WithSharedData returns a child of ctx carrying a new SharedData
func WithSharedData(ctx context.Context) (context.Context, *SharedData) {
	shared := &SharedData{}
	return context.WithValue(ctx, sharedDataKey, shared), shared
}

// GetSharedData returns the SharedData of ctx, or nil outside a chain run
func GetSharedData(ctx context.Context) *SharedData {
	if val, ok := ctx.Value(sharedDataKey).(*SharedData); ok {
		return val
	}
	return nil
}

func (s *SharedData) Set(key string, value any) {
	s.data.Store(key, value)
}

func (s *SharedData) Get(key string) (any, bool) {
	return s.data.Load(key)
}

func (s *SharedData) Delete(key string) {
	s.data.Delete(key)
}

// Range stops when f returns false
func (s *SharedData) Range(f func(key string, value any) bool) {
	s.data.Range(func(k, v any) bool {
		return f(k.(string), v)
	})
}

// Lookup returns the value stored under key in the SharedData of ctx when
// it exists and has type T
func Lookup[T any](ctx context.Context, key string) (T, bool) {
	var zero T
	shared := GetSharedData(ctx)
	if shared == nil {
		return zero, false
	}
	v, ok := shared.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
