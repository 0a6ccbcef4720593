package model

import "time"

// NotificationType is the audience class of a notification
type NotificationType string

const (
	NotificationSystem NotificationType = "system"
	NotificationClub   NotificationType = "club"
	NotificationNews   NotificationType = "news"
	NotificationAdmin  NotificationType = "admin"
)

// Valid reports whether t is one of the known types
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationSystem, NotificationClub, NotificationNews, NotificationAdmin:
		return true
	}
	return false
}

// Notification is a user-visible alert. The list is kept newest first.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	IsRead    bool             `json:"isRead"`
	RelatedID string           `json:"relatedId,omitempty"`
	ClubID    string           `json:"clubId,omitempty"`
}

// Role is the viewer role used to filter notifications
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleClubLead Role = "club_lead"
	RoleStudent  Role = "student"
	RoleGuest    Role = "guest"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleClubLead, RoleStudent, RoleGuest:
		return true
	}
	return false
}
