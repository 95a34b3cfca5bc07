package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationMessage is the queue payload for one notification. It
// carries only the notification id and its user; the delivery worker
// fetches the full record and the recipient's email from the store.
type NotificationMessage struct {
	NotificationID int64     `json:"notification_id"`
	UserID         int64     `json:"user_id"`
	Type           string    `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewNotificationMessage(notificationID, userID int64, notificationType string) *NotificationMessage {
	return &NotificationMessage{
		NotificationID: notificationID,
		UserID:         userID,
		Type:           notificationType,
		Timestamp:      time.Now().UTC(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var m NotificationMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal notification message: %w", err)
	}
	if m.NotificationID == 0 {
		return nil, fmt.Errorf("notification message missing notification_id")
	}
	return &m, nil
}
