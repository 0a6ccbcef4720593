package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNotificationType_Valid(t *testing.T) {
	for _, typ := range []NotificationType{NotificationSystem, NotificationClub, NotificationNews, NotificationAdmin} {
		if !typ.Valid() {
			t.Errorf("%q should be valid", typ)
		}
	}
	if NotificationType("push").Valid() {
		t.Error("push should not be valid")
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleClubLead, RoleStudent, RoleGuest} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Role("janitor").Valid() {
		t.Error("janitor should not be valid")
	}
}

func TestNotification_JSONOmitsEmptyOptionalFields(t *testing.T) {
	n := Notification{
		ID:        "notif_1",
		Type:      NotificationSystem,
		Title:     "✅ Sync Complete",
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(n)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if strings.Contains(s, "relatedId") || strings.Contains(s, "clubId") {
		t.Errorf("optional fields should be omitted: %s", s)
	}
	if !strings.Contains(s, `"isRead":false`) || !strings.Contains(s, `"timestamp":"2024-03-01T12:00:00Z"`) {
		t.Errorf("unexpected encoding: %s", s)
	}
}
