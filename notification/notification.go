// Package notification creates and manages user-visible alerts.
//
// Notifications are persisted through cache.NotificationCache. Storage
// failures never surface to callers: a failed write is logged and the
// created notification is still returned.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/campuscommunity/synckit/cache"
	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages the notification lifecycle
type Service interface {
	// CreateNotification builds, persists and returns a new unread
	// notification at the head of the list
	CreateNotification(ctx context.Context, typ model.NotificationType, title, message string, opts ...Option) model.Notification
	// CreateSyncSuccessNotification reports a replayed offline action
	CreateSyncSuccessNotification(ctx context.Context, actionLabel, details string) model.Notification
	// CreateSyncFailedNotification reports an abandoned offline action
	CreateSyncFailedNotification(ctx context.Context, actionLabel, details string) model.Notification
	CreateNewsNotification(ctx context.Context, title, author, newsID string) model.Notification
	CreateClubNotification(ctx context.Context, clubName, updateTitle, clubID string) model.Notification
	CreateAdminNotification(ctx context.Context, title, message string) model.Notification

	MarkAsRead(ctx context.Context, id string)
	MarkAllAsRead(ctx context.Context)
	// GetAll returns every notification, newest first
	GetAll(ctx context.Context) []model.Notification
	// GetUnreadCount counts unread notifications across all roles
	GetUnreadCount(ctx context.Context) int
	// GetUnreadCountForRole counts unread notifications visible to role
	GetUnreadCountForRole(ctx context.Context, role model.Role, clubID string) int
	GetNotificationsForRole(ctx context.Context, role model.Role, clubID string) []model.Notification
	ClearAll(ctx context.Context)
}

// Option sets optional notification fields
type Option func(n *model.Notification)

// WithRelatedID links the notification to a record, e.g. a news id
func WithRelatedID(id string) Option {
	return func(n *model.Notification) { n.RelatedID = id }
}

// WithClubID scopes the notification to a club
func WithClubID(id string) Option {
	return func(n *model.Notification) { n.ClubID = id }
}

type defaultService struct {
	logger logger.Logger
	cache  *cache.NotificationCache
	now    func() time.Time
}

// New returns a Service persisting through nc
func New(log logger.Logger, nc *cache.NotificationCache) Service {
	return &defaultService{logger: log, cache: nc, now: time.Now}
}

func (s *defaultService) CreateNotification(
	ctx context.Context, typ model.NotificationType, title, message string, opts ...Option,
) model.Notification {
	now := s.now()
	n := model.Notification{
		ID:        fmt.Sprintf("notif_%d_%s", now.UnixMilli(), uuid.NewString()),
		Type:      typ,
		Title:     title,
		Message:   message,
		Timestamp: now,
	}
	for _, opt := range opts {
		opt(&n)
	}

	s.cache.AddNotification(ctx, n)
	s.logger.Info("notification created",
		zap.String("id", n.ID),
		zap.String("type", string(n.Type)),
		zap.String("title", n.Title),
	)
	return n
}

func (s *defaultService) CreateSyncSuccessNotification(ctx context.Context, actionLabel, details string) model.Notification {
	return s.CreateNotification(ctx, model.NotificationSystem,
		"✅ Sync Complete",
		fmt.Sprintf("Your %s has been synced: %s", actionLabel, details),
	)
}

func (s *defaultService) CreateSyncFailedNotification(ctx context.Context, actionLabel, details string) model.Notification {
	return s.CreateNotification(ctx, model.NotificationSystem,
		"⚠️ Sync Failed",
		fmt.Sprintf("Your %s could not be synced and was discarded: %s", actionLabel, details),
	)
}

func (s *defaultService) CreateNewsNotification(ctx context.Context, title, author, newsID string) model.Notification {
	var opts []Option
	if newsID != "" {
		opts = append(opts, WithRelatedID(newsID))
	}
	return s.CreateNotification(ctx, model.NotificationNews,
		"📰 New Announcement",
		fmt.Sprintf("%s posted: %s", author, title),
		opts...,
	)
}

func (s *defaultService) CreateClubNotification(ctx context.Context, clubName, updateTitle, clubID string) model.Notification {
	return s.CreateNotification(ctx, model.NotificationClub,
		fmt.Sprintf("🎭 %s Update", clubName),
		updateTitle,
		WithClubID(clubID),
	)
}

func (s *defaultService) CreateAdminNotification(ctx context.Context, title, message string) model.Notification {
	return s.CreateNotification(ctx, model.NotificationAdmin, "👑 "+title, message)
}

func (s *defaultService) MarkAsRead(ctx context.Context, id string) {
	s.cache.MarkAsRead(ctx, id)
	s.logger.Debug("notification marked as read", zap.String("id", id))
}

func (s *defaultService) MarkAllAsRead(ctx context.Context) {
	s.cache.MarkAllAsRead(ctx)
	s.logger.Debug("all notifications marked as read")
}

func (s *defaultService) GetAll(ctx context.Context) []model.Notification {
	list, ok := s.cache.Get(ctx)
	if !ok {
		return []model.Notification{}
	}
	return list
}

func (s *defaultService) GetUnreadCount(ctx context.Context) int {
	return countUnread(s.GetAll(ctx))
}

func (s *defaultService) GetUnreadCountForRole(ctx context.Context, role model.Role, clubID string) int {
	return countUnread(s.GetNotificationsForRole(ctx, role, clubID))
}

func (s *defaultService) GetNotificationsForRole(ctx context.Context, role model.Role, clubID string) []model.Notification {
	return FilterForRole(s.GetAll(ctx), role, clubID)
}

func (s *defaultService) ClearAll(ctx context.Context) {
	s.cache.Clear(ctx)
	s.logger.Info("notifications cleared")
}

func countUnread(list []model.Notification) int {
	n := 0
	for _, item := range list {
		if !item.IsRead {
			n++
		}
	}
	return n
}
