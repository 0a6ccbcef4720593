package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campuscommunity/synckit/model"
	"github.com/campuscommunity/synckit/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// failingStore fails every operation
type failingStore struct{}

var errDisk = errors.New("disk full")

func (failingStore) GetString(context.Context, string) (string, bool, error) { return "", false, errDisk }
func (failingStore) SetString(context.Context, string, string) error          { return errDisk }
func (failingStore) Remove(context.Context, string) error                     { return errDisk }
func (failingStore) Close() error                                             { return nil }

func TestCache_SaveGetClear(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	c := NewNewsCache(zap.NewNop(), s)

	if _, ok := c.Get(ctx); ok {
		t.Fatal("empty cache reported data")
	}

	news := []model.NewsItem{{ID: "n1", Title: "Orientation"}, {ID: "n2", Title: "Hackathon"}}
	c.Save(ctx, news)

	got, ok := c.Get(ctx)
	if !ok || len(got) != 2 || got[0].ID != "n1" || got[1].Title != "Hackathon" {
		t.Fatalf("Get() = %+v, %v", got, ok)
	}

	var entry Entry[model.NewsItem]
	if ok, err := store.GetJSON(ctx, s, KeyNews, &entry); !ok || err != nil {
		t.Fatalf("raw entry missing: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, entry.Timestamp); err != nil {
		t.Errorf("timestamp %q is not ISO: %v", entry.Timestamp, err)
	}

	c.Clear(ctx)
	if _, ok := c.Get(ctx); ok {
		t.Error("cache not cleared")
	}
}

func TestCache_EmptyListIsPresent(t *testing.T) {
	ctx := context.Background()
	c := NewClubsCache(zap.NewNop(), store.NewMemory())
	c.Save(ctx, nil)
	got, ok := c.Get(ctx)
	if !ok || len(got) != 0 {
		t.Errorf("Get() = %v, %v; want empty and present", got, ok)
	}
}

func TestCache_CorruptValueReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	_ = s.SetString(ctx, KeyClubs, "{broken")

	core, logs := observer.New(zapcore.ErrorLevel)
	c := NewClubsCache(zap.New(core), s)
	if _, ok := c.Get(ctx); ok {
		t.Error("corrupt value should read as absent")
	}
	if logs.Len() != 1 {
		t.Errorf("expected one error log, got %d", logs.Len())
	}
}

func TestCache_StoreFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.ErrorLevel)
	c := NewNewsCache(zap.New(core), failingStore{})

	c.Save(ctx, []model.NewsItem{{ID: "n1"}})
	if _, ok := c.Get(ctx); ok {
		t.Error("Get on failing store should be absent")
	}
	c.Clear(ctx)
	if logs.Len() != 3 {
		t.Errorf("expected 3 error logs, got %d", logs.Len())
	}
}

func TestKeyedCache(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	c := NewClubUpdatesCache(zap.NewNop(), s)

	c.Save(ctx, "c1", []model.Update{{ID: "u1"}})
	c.Save(ctx, "c2", []model.Update{{ID: "u2"}, {ID: "u3"}})

	if got, ok := c.Get(ctx, "c1"); !ok || len(got) != 1 || got[0].ID != "u1" {
		t.Errorf("c1 = %+v, %v", got, ok)
	}
	if got, ok := c.Get(ctx, "c2"); !ok || len(got) != 2 {
		t.Errorf("c2 = %+v, %v", got, ok)
	}
	if _, ok, _ := s.GetString(ctx, KeyClubUpdatesPrefix+"c1"); !ok {
		t.Error("expected key @campus_club_updates_c1")
	}

	c.Clear(ctx, "c1")
	if _, ok := c.Get(ctx, "c1"); ok {
		t.Error("c1 not cleared")
	}
	if _, ok := c.Get(ctx, "c2"); !ok {
		t.Error("clearing c1 removed c2")
	}
}

func TestSyncMetadata(t *testing.T) {
	ctx := context.Background()
	md := NewSyncMetadata(zap.NewNop(), store.NewMemory())

	if _, ok := md.GetLastSync(ctx); ok {
		t.Fatal("unexpected last sync")
	}

	before := time.Now().Add(-time.Second)
	md.SetLastSync(ctx)
	got, ok := md.GetLastSync(ctx)
	if !ok {
		t.Fatal("last sync not recorded")
	}
	if got.Before(before) || got.After(time.Now().Add(time.Second)) {
		t.Errorf("last sync %v out of range", got)
	}
}

func TestSyncMetadata_InvalidValue(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	_ = s.SetString(ctx, KeyLastSync, `"yesterday"`)
	if _, ok := NewSyncMetadata(zap.NewNop(), s).GetLastSync(ctx); ok {
		t.Error("invalid timestamp should read as absent")
	}
}

func TestKeyedRefresher(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	updates := NewClubUpdatesCache(zap.NewNop(), s)
	updates.Save(ctx, "c2", []model.Update{{ID: "old"}})

	errDown := errors.New("club feed down")
	r := NewKeyedRefresher(zap.NewNop(), updates,
		func(context.Context) []string { return []string{"c1", "c2"} },
		func(_ context.Context, id string) ([]model.Update, error) {
			if id == "c2" {
				return nil, errDown
			}
			return []model.Update{{ID: id + "-u1"}}, nil
		},
	)

	err := r.Sync(ctx)
	if !errors.Is(err, errDown) {
		t.Fatalf("Sync error = %v, want %v", err, errDown)
	}

	got, ok := updates.Get(ctx, "c1")
	if !ok || len(got) != 1 || got[0].ID != "c1-u1" {
		t.Errorf("c1 updates = %+v, %v", got, ok)
	}
	got, ok = updates.Get(ctx, "c2")
	if !ok || len(got) != 1 || got[0].ID != "old" {
		t.Errorf("failed refresh must keep the cached list, got %+v", got)
	}
}
