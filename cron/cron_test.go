package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/campuscommunity/synckit/routine"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAddTasks_Validation(t *testing.T) {
	c := NewCron(zap.NewNop())
	defer c.Close()

	noop := NewTask("noop", func(context.Context) error { return nil })

	if err := c.AddTasks("empty", "@every 1m"); !errors.Is(err, ErrNoTasks) {
		t.Errorf("no tasks: err = %v", err)
	}
	if err := c.AddTasks("bad", "not a spec", noop); err == nil {
		t.Error("invalid spec accepted")
	}
	if err := c.AddTasks("sync", "*/5 * * * *", noop); err != nil {
		t.Errorf("five field spec: %v", err)
	}
	if err := c.AddTasks("sync", "0 */5 * * * *", noop); !errors.Is(err, ErrDuplicateChain) {
		t.Errorf("duplicate: err = %v", err)
	}
	if err := c.RunNow(context.Background(), "missing"); !errors.Is(err, ErrUnknownChain) {
		t.Errorf("unknown chain: err = %v", err)
	}
}

func TestRunNow_SharedDataFlowsThroughChain(t *testing.T) {
	c := NewCron(zap.NewNop())
	defer c.Close()

	var got int
	produce := NewTask("produce", func(ctx context.Context) error {
		GetSharedData(ctx).Set("succeeded", 3)
		return nil
	})
	consume := NewTask("consume", func(ctx context.Context) error {
		n, ok := Lookup[int](ctx, "succeeded")
		if !ok {
			return errors.New("missing shared value")
		}
		got = n
		return nil
	})

	if err := c.AddTasks("sync", "@every 1h", produce, consume); err != nil {
		t.Fatal(err)
	}
	if err := c.RunNow(context.Background(), "sync"); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}
	if got != 3 {
		t.Errorf("consumer saw %d, want 3", got)
	}
}

func TestRunNow_FailureAbortsChain(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewCron(zap.New(core))
	defer c.Close()

	var secondRan atomic.Bool
	boom := errors.New("boom")
	if err := c.AddTasks("sync", "@every 1h",
		NewTask("first", func(context.Context) error { return boom }),
		NewTask("second", func(context.Context) error { secondRan.Store(true); return nil }),
	); err != nil {
		t.Fatal(err)
	}

	err := c.RunNow(context.Background(), "sync")
	if !errors.Is(err, boom) {
		t.Errorf("RunNow() error = %v, want wrapping boom", err)
	}
	if secondRan.Load() {
		t.Error("second task ran after failure")
	}
	if logs.FilterMessage("chain job aborted due to task failure").Len() != 1 {
		t.Error("abort was not logged")
	}
}

func TestRunNow_PanicRecovered(t *testing.T) {
	c := NewCron(zap.NewNop())
	defer c.Close()

	if err := c.AddTasks("sync", "@every 1h",
		NewTask("panics", func(context.Context) error { panic("bad task") }),
	); err != nil {
		t.Fatal(err)
	}

	if err := c.RunNow(context.Background(), "sync"); !errors.Is(err, routine.ErrPanicRecovered) {
		t.Errorf("RunNow() error = %v, want ErrPanicRecovered", err)
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	c := NewCron(zap.NewNop(), TimeoutMiddleware(20*time.Millisecond))
	defer c.Close()

	if err := c.AddTasks("slow", "@every 1h",
		NewTask("wait", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	); err != nil {
		t.Fatal(err)
	}

	if err := c.RunNow(context.Background(), "slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RunNow() error = %v, want deadline exceeded", err)
	}
}

func TestScheduledRun(t *testing.T) {
	c := NewCron(zap.NewNop())

	ran := make(chan struct{}, 1)
	if err := c.AddChain(Chain{
		Name: "tick",
		Spec: "* * * * * *",
		Tasks: []Task{NewTask("signal", func(context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		})},
		Timeout: time.Second,
	}); err != nil {
		t.Fatal(err)
	}
	c.Start()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("chain was not scheduled")
	}

	c.Close()
	if err := c.AddTasks("late", "@every 1m", NewTask("x", func(context.Context) error { return nil })); !errors.Is(err, ErrCronClosed) {
		t.Errorf("AddTasks() after Close = %v", err)
	}
}

func TestLookup_OutsideChain(t *testing.T) {
	if _, ok := Lookup[int](context.Background(), "k"); ok {
		t.Error("Lookup outside a chain should miss")
	}

	ctx, shared := WithSharedData(context.Background())
	shared.Set("k", "not an int")
	if _, ok := Lookup[int](ctx, "k"); ok {
		t.Error("Lookup with wrong type should miss")
	}
}
