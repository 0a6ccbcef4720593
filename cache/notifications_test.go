package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/campuscommunity/synckit/model"
	"github.com/campuscommunity/synckit/store"
	"go.uber.org/zap"
)

func TestNotificationCache_AddPrepends(t *testing.T) {
	ctx := context.Background()
	c := NewNotificationCache(zap.NewNop(), store.NewMemory())

	c.AddNotification(ctx, model.Notification{ID: "a"})
	c.AddNotification(ctx, model.Notification{ID: "b"})
	c.AddNotification(ctx, model.Notification{ID: "c"})

	list, ok := c.Get(ctx)
	if !ok || len(list) != 3 {
		t.Fatalf("Get() = %+v, %v", list, ok)
	}
	for i, want := range []string{"c", "b", "a"} {
		if list[i].ID != want {
			t.Errorf("list[%d] = %s, want %s", i, list[i].ID, want)
		}
	}
}

func TestNotificationCache_MarkAsRead(t *testing.T) {
	ctx := context.Background()
	c := NewNotificationCache(zap.NewNop(), store.NewMemory())

	// no stored list: no-op
	c.MarkAsRead(ctx, "x")
	if _, ok := c.Get(ctx); ok {
		t.Fatal("MarkAsRead created a list")
	}

	c.Save(ctx, []model.Notification{{ID: "a"}, {ID: "b"}})
	c.MarkAsRead(ctx, "b")
	c.MarkAsRead(ctx, "unknown")

	list, _ := c.Get(ctx)
	if list[0].IsRead || !list[1].IsRead {
		t.Errorf("unexpected read state: %+v", list)
	}

	c.MarkAllAsRead(ctx)
	list, _ = c.Get(ctx)
	for _, n := range list {
		if !n.IsRead {
			t.Errorf("%s still unread", n.ID)
		}
	}

	c.Clear(ctx)
	if _, ok := c.Get(ctx); ok {
		t.Error("Clear left data behind")
	}
}

func TestNotificationCache_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	c := NewNotificationCache(zap.NewNop(), store.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.AddNotification(ctx, model.Notification{ID: fmt.Sprintf("n%d", i)})
		}(i)
	}
	wg.Wait()

	list, _ := c.Get(ctx)
	if len(list) != 50 {
		t.Errorf("expected 50 notifications, got %d", len(list))
	}
}
