package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationFriendRequest   NotificationType = "friend_request"
	NotificationRequestAccepted NotificationType = "request_accepted"
)

type Notification struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"userId"`
	Type      NotificationType  `json:"type"`
	Message   string            `json:"message"`
	Read      bool              `json:"isRead"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// NotificationEvent is the envelope published on the notifications channel
// and relayed to websocket clients.
type NotificationEvent struct {
	Operation string       `json:"operation"`
	Type      string       `json:"type"`
	UserID    uuid.UUID    `json:"user_id"`
	Payload   Notification `json:"payload"`
}
