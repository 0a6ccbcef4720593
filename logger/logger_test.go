package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_NilConfig(t *testing.T) {
	l, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) failed: %v", err)
	}
	if l == nil {
		t.Fatal("New(nil) returned nil logger")
	}
	l.Info("test")
	_ = l.Sync()
}

func TestNew_PartialConfig(t *testing.T) {
	l, err := New(&Config{Level: "debug", Encoding: "console", Name: "campus-sync"})
	if err != nil {
		t.Fatalf("New with partial config failed: %v", err)
	}
	l.Debug("partial config")
	_ = l.Sync()
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"invalid level", &Config{Level: "loud", Encoding: "json"}},
		{"invalid encoding", &Config{Level: "info", Encoding: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestConfig_MergeDefaults(t *testing.T) {
	cfg := (&Config{Level: "warn"}).MergeDefaults()
	if cfg.Level != "warn" {
		t.Errorf("expected level to be kept, got %q", cfg.Level)
	}
	if cfg.Encoding != "json" || len(cfg.OutputPaths) != 1 || len(cfg.ErrorOutputPaths) != 1 {
		t.Errorf("defaults not merged: %+v", cfg)
	}
}

func TestComponent(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	log := Component(zap.New(core), "queue")
	log.Info("hello")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["component"]; got != "queue" {
		t.Errorf("expected component=queue, got %v", got)
	}
}

func TestComponent_NilLogger(t *testing.T) {
	log := Component(nil, "queue")
	if log == nil {
		t.Fatal("expected a nop logger")
	}
	log.Info("discarded")
}
