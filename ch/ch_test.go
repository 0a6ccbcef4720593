package ch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/campuscommunity/synckit/queue"
	"go.uber.org/zap"
)

type fakeInserter struct {
	mu      sync.Mutex
	batches map[TableName][][]Table
	err     error
}

func newFakeInserter() *fakeInserter {
	return &fakeInserter{batches: make(map[TableName][][]Table)}
}

func (f *fakeInserter) InsertBatch(_ context.Context, table TableName, rows []Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches[table] = append(f.batches[table], rows)
	return nil
}

func (f *fakeInserter) rowCount(table TableName) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches[table] {
		n += len(b)
	}
	return n
}

func (f *fakeInserter) batchCount(table TableName) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches[table])
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func event(id string) Table {
	return SyncEvent{ActionID: id, ActionType: "CREATE_NEWS", Outcome: "success", EventTime: time.Now()}
}

func TestWriter_FlushOnSize(t *testing.T) {
	ins := newFakeInserter()
	w := newWriter(ins, &WriterConfig{FlushInterval: time.Hour, FlushSize: 3}, zap.NewNop())
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx := context.Background()
	if err := w.Write(ctx, []Table{event("a"), event("b"), event("c"), event("d")}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	waitFor(t, func() bool { return ins.rowCount(TableSyncEvents) == 3 })
	if got := ins.batchCount(TableSyncEvents); got != 1 {
		t.Errorf("batches = %d, want 1", got)
	}
}

func TestWriter_CloseFlushesBuffered(t *testing.T) {
	ins := newFakeInserter()
	w := newWriter(ins, &WriterConfig{FlushInterval: time.Hour, FlushSize: 100}, zap.NewNop())
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	if err := w.Write(context.Background(), []Table{event("a"), event("b")}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	if got := ins.rowCount(TableSyncEvents); got != 2 {
		t.Errorf("rows after close = %d, want 2", got)
	}
	if err := w.Write(context.Background(), []Table{event("c")}); !errors.Is(err, ErrWriterClosed) {
		t.Errorf("Write() after close = %v, want ErrWriterClosed", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestWriter_FlushOnInterval(t *testing.T) {
	ins := newFakeInserter()
	w := newWriter(ins, &WriterConfig{FlushInterval: 10 * time.Millisecond, FlushSize: 100}, zap.NewNop())
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Write(context.Background(), []Table{event("a")}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return ins.rowCount(TableSyncEvents) == 1 })
}

func TestWriter_InsertFailureIsLogged(t *testing.T) {
	ins := newFakeInserter()
	ins.err = errors.New("clickhouse down")
	w := newWriter(ins, &WriterConfig{FlushInterval: time.Hour, FlushSize: 10}, zap.NewNop())
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(context.Background(), []Table{event("a")}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() = %v, insert failures should not surface", err)
	}
}

func TestWriter_ShouldFlush(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		cfg    WriterConfig
		rows   int
		waited time.Duration
		want   bool
	}{
		{"no minimum", WriterConfig{MinFlushSize: 0}, 1, 0, true},
		{"minimum reached", WriterConfig{MinFlushSize: 5}, 5, 0, true},
		{"below minimum", WriterConfig{MinFlushSize: 5, MaxWaitTime: time.Minute}, 2, time.Second, false},
		{"waited too long", WriterConfig{MinFlushSize: 5, MaxWaitTime: time.Minute}, 2, 2 * time.Minute, true},
		{"no max wait", WriterConfig{MinFlushSize: 5}, 2, time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			w := &defaultWriter{config: &cfg, now: func() time.Time { return now }}
			if got := w.shouldFlush(tt.rows, now.Add(-tt.waited)); got != tt.want {
				t.Errorf("shouldFlush() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{"disabled", &Config{}, ""},
		{"enabled defaults", (&Config{Enabled: true, Hosts: []string{"ch:9000"}}).MergeDefaults(), ""},
		{"no hosts", (&Config{Enabled: true}).MergeDefaults(), "hosts are required"},
		{
			"min above flush size",
			(&Config{Enabled: true, Hosts: []string{"ch:9000"}, WriterConfig: &WriterConfig{FlushSize: 10, MinFlushSize: 20}}).MergeDefaults(),
			"min_flush_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

type recordingWriter struct {
	rows []Table
	err  error
}

func (r *recordingWriter) Start() error { return nil }
func (r *recordingWriter) Close() error { return nil }
func (r *recordingWriter) Write(_ context.Context, rows []Table) error {
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, rows...)
	return nil
}

func TestAuditWriter(t *testing.T) {
	rw := &recordingWriter{}
	audit := NewAuditWriter(zap.NewNop(), rw)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	audit.now = func() time.Time { return fixed }

	action := queue.PendingAction{ID: "UPDATE_CLUB_1", Type: queue.ActionUpdateClub, RetryCount: 4}
	audit.ActionEnqueued(action)
	audit.ActionReplayed(action, queue.OutcomeDropped, 1500*time.Millisecond, errors.New("status 500"))
	audit.QueueLength(0)

	if len(rw.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rw.rows))
	}
	if got := rw.rows[0].(SyncEvent).Outcome; got != OutcomeEnqueued {
		t.Errorf("first outcome = %q", got)
	}

	replayed := rw.rows[1].(SyncEvent)
	want := SyncEvent{
		ActionID:   "UPDATE_CLUB_1",
		ActionType: "UPDATE_CLUB",
		Outcome:    "dropped",
		RetryCount: 4,
		DurationMs: 1500,
		Error:      "status 500",
		EventTime:  fixed,
	}
	if replayed != want {
		t.Errorf("replayed row = %+v, want %+v", replayed, want)
	}
	if len(replayed.Values()) != len(replayed.Columns()) {
		t.Errorf("values/columns mismatch: %d vs %d", len(replayed.Values()), len(replayed.Columns()))
	}
}

func TestAuditWriter_WriteErrorSwallowed(t *testing.T) {
	audit := NewAuditWriter(zap.NewNop(), &recordingWriter{err: errors.New("clickhouse down")})
	audit.ActionReplayed(queue.PendingAction{ID: "x"}, queue.OutcomeSuccess, 0, nil)
}
