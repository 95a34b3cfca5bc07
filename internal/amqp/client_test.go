package amqp

import (
	"testing"
	"time"
)

func TestNewNotificationMessage(t *testing.T) {
	msg := NewNotificationMessage(42, 7, "budget_alert")

	if msg.NotificationID != 42 {
		t.Errorf("NotificationID = %d, want 42", msg.NotificationID)
	}
	if msg.UserID != 7 {
		t.Errorf("UserID = %d, want 7", msg.UserID)
	}
	if msg.Type != "budget_alert" {
		t.Errorf("Type = %q, want budget_alert", msg.Type)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestNotificationMessageJSON(t *testing.T) {
	timestamp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &NotificationMessage{
		NotificationID: 42,
		UserID:         7,
		Type:           "recurring_due",
		Timestamp:      timestamp,
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	parsed, err := NotificationMessageFromJSON(body)
	if err != nil {
		t.Fatalf("NotificationMessageFromJSON: %v", err)
	}
	if parsed.NotificationID != msg.NotificationID {
		t.Errorf("NotificationID = %d, want %d", parsed.NotificationID, msg.NotificationID)
	}
	if parsed.Type != msg.Type {
		t.Errorf("Type = %q, want %q", parsed.Type, msg.Type)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestNotificationMessageInvalidJSON(t *testing.T) {
	if _, err := NotificationMessageFromJSON([]byte(`{"notification_id": "nope"}`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestNotificationMessageMissingID(t *testing.T) {
	if _, err := NotificationMessageFromJSON([]byte(`{"user_id": 7}`)); err == nil {
		t.Error("expected error for missing notification_id")
	}
}
