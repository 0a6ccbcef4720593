package logger

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func resetGlobal(t *testing.T) {
	t.Helper()
	globalMu.Lock()
	globalLogger = nil
	initOnce = sync.Once{}
	globalMu.Unlock()
}

func TestGlobal_DefaultInitialization(t *testing.T) {
	resetGlobal(t)

	Info("boot", zap.String("key", "value"))

	if GetGlobalLogger() == nil {
		t.Fatal("global logger should be initialized after calling Info")
	}
	if GetGlobalLogger() != GetGlobalLogger() {
		t.Error("GetGlobalLogger should return the same instance")
	}
}

func TestGlobal_SetGlobalLogger(t *testing.T) {
	resetGlobal(t)
	core, recorded := observer.New(zapcore.DebugLevel)
	SetGlobalLogger(zap.New(core, zap.AddCallerSkip(1)))

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	entries := recorded.All()
	want := []string{"debug message", "info message", "warn message", "error message"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, entry := range entries {
		if entry.Message != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], entry.Message)
		}
	}
}

func TestGlobal_ConcurrentAccess(t *testing.T) {
	resetGlobal(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			Info("concurrent message", zap.Int("goroutine", id))
		}(i)
	}
	wg.Wait()
}

func TestNew_SetsGlobalLogger(t *testing.T) {
	resetGlobal(t)

	if _, err := New(&Config{Level: "debug", Encoding: "json"}); err != nil {
		t.Fatalf("New failed: %v", err)
	}

	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		t.Error("globalLogger should be set after New")
	}
}
