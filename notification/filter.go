package notification

import "github.com/campuscommunity/synckit/model"

// FilterForRole returns the notifications visible to role, preserving order.
//
//	admin                 everything
//	club_lead + clubID    system, news, and notifications for that club
//	student               everything except admin broadcasts
//	anyone else           news and system only
//
// A club_lead without a clubID gets the default rule.
func FilterForRole(list []model.Notification, role model.Role, clubID string) []model.Notification {
	var keep func(n model.Notification) bool
	switch {
	case role == model.RoleAdmin:
		out := make([]model.Notification, len(list))
		copy(out, list)
		return out
	case role == model.RoleClubLead && clubID != "":
		keep = func(n model.Notification) bool {
			return n.Type == model.NotificationSystem || n.Type == model.NotificationNews || n.ClubID == clubID
		}
	case role == model.RoleStudent:
		keep = func(n model.Notification) bool { return n.Type != model.NotificationAdmin }
	default:
		keep = func(n model.Notification) bool {
			return n.Type == model.NotificationNews || n.Type == model.NotificationSystem
		}
	}

	out := make([]model.Notification, 0, len(list))
	for _, n := range list {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}
