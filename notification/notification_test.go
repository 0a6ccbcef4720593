package notification

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/campuscommunity/synckit/cache"
	"github.com/campuscommunity/synckit/model"
	"github.com/campuscommunity/synckit/store"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (Service, store.Store) {
	t.Helper()
	s := store.NewMemory()
	return New(zap.NewNop(), cache.NewNotificationCache(zap.NewNop(), s)), s
}

func TestCreateNotification(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	n := svc.CreateNotification(ctx, model.NotificationClub, "title", "msg", WithClubID("7"), WithRelatedID("u1"))
	if !strings.HasPrefix(n.ID, "notif_") {
		t.Errorf("unexpected id %q", n.ID)
	}
	if n.IsRead || n.ClubID != "7" || n.RelatedID != "u1" || n.Timestamp.IsZero() {
		t.Errorf("unexpected notification %+v", n)
	}

	all := svc.GetAll(ctx)
	if len(all) != 1 || all[0].ID != n.ID {
		t.Errorf("GetAll() = %+v", all)
	}
}

func TestCreateNotification_UniqueIDsWithinSameMillisecond(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.(*defaultService).now = func() time.Time { return fixed }

	a := svc.CreateNotification(ctx, model.NotificationSystem, "a", "a")
	b := svc.CreateNotification(ctx, model.NotificationSystem, "b", "b")
	if a.ID == b.ID {
		t.Errorf("duplicate id %q", a.ID)
	}
}

func TestProducers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		name      string
		create    func() model.Notification
		wantType  model.NotificationType
		wantTitle string
		wantMsg   string
	}{
		{
			name:      "sync success",
			create:    func() model.Notification { return svc.CreateSyncSuccessNotification(ctx, "News post", "Fest") },
			wantType:  model.NotificationSystem,
			wantTitle: "✅ Sync Complete",
			wantMsg:   "Your News post has been synced: Fest",
		},
		{
			name:      "sync failed",
			create:    func() model.Notification { return svc.CreateSyncFailedNotification(ctx, "Club update", "Meetup") },
			wantType:  model.NotificationSystem,
			wantTitle: "⚠️ Sync Failed",
			wantMsg:   "Your Club update could not be synced and was discarded: Meetup",
		},
		{
			name:      "news",
			create:    func() model.Notification { return svc.CreateNewsNotification(ctx, "Fest", "Dean", "n1") },
			wantType:  model.NotificationNews,
			wantTitle: "📰 New Announcement",
			wantMsg:   "Dean posted: Fest",
		},
		{
			name:      "club",
			create:    func() model.Notification { return svc.CreateClubNotification(ctx, "Drama", "Auditions", "3") },
			wantType:  model.NotificationClub,
			wantTitle: "🎭 Drama Update",
			wantMsg:   "Auditions",
		},
		{
			name:      "admin",
			create:    func() model.Notification { return svc.CreateAdminNotification(ctx, "Maintenance", "Down at 2am") },
			wantType:  model.NotificationAdmin,
			wantTitle: "👑 Maintenance",
			wantMsg:   "Down at 2am",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.create()
			if n.Type != tt.wantType || n.Title != tt.wantTitle || n.Message != tt.wantMsg {
				t.Errorf("got {%s %q %q}, want {%s %q %q}", n.Type, n.Title, n.Message, tt.wantType, tt.wantTitle, tt.wantMsg)
			}
		})
	}

	all := svc.GetAll(ctx)
	if all[0].Type != model.NotificationAdmin || all[len(all)-1].Title != "✅ Sync Complete" {
		t.Error("notifications are not newest first")
	}
	news := all[2]
	if news.RelatedID != "n1" {
		t.Errorf("news relatedId = %q", news.RelatedID)
	}
	club := all[1]
	if club.ClubID != "3" {
		t.Errorf("club clubId = %q", club.ClubID)
	}
}

func TestMarkAllAsRead_UnreadCountZero(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	svc.CreateAdminNotification(ctx, "a", "a")
	svc.CreateNewsNotification(ctx, "b", "x", "")
	svc.CreateSyncSuccessNotification(ctx, "News post", "c")
	if got := svc.GetUnreadCount(ctx); got != 3 {
		t.Fatalf("unread = %d, want 3", got)
	}

	svc.MarkAllAsRead(ctx)
	if got := svc.GetUnreadCount(ctx); got != 0 {
		t.Errorf("unread after MarkAllAsRead = %d", got)
	}
}

func TestMarkAsRead(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	a := svc.CreateAdminNotification(ctx, "a", "a")
	svc.CreateNewsNotification(ctx, "b", "x", "")
	svc.MarkAsRead(ctx, a.ID)
	svc.MarkAsRead(ctx, "notif_missing")

	if got := svc.GetUnreadCount(ctx); got != 1 {
		t.Errorf("unread = %d, want 1", got)
	}
}

func TestGetUnreadCountForRole(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	svc.CreateAdminNotification(ctx, "a", "a")
	svc.CreateNewsNotification(ctx, "b", "x", "")
	if got := svc.GetUnreadCountForRole(ctx, model.RoleStudent, ""); got != 1 {
		t.Errorf("student unread = %d, want 1", got)
	}
	if got := svc.GetUnreadCount(ctx); got != 2 {
		t.Errorf("unfiltered unread = %d, want 2", got)
	}
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	svc.CreateAdminNotification(ctx, "a", "a")
	svc.ClearAll(ctx)

	if got := svc.GetAll(ctx); got == nil || len(got) != 0 {
		t.Errorf("GetAll after ClearAll = %#v", got)
	}
	if _, ok, _ := s.GetString(ctx, cache.KeyNotifications); ok {
		t.Error("notification key still stored")
	}
}
