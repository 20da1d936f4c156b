package core

import "time"

// NotificationType classifies what triggered a notification.
type NotificationType string

const (
	// NotificationChat is created by message fan-out to room participants.
	NotificationChat NotificationType = "chat"
	// NotificationStatus is created when a report's status changes.
	NotificationStatus NotificationType = "status"
	// NotificationOther covers everything else.
	NotificationOther NotificationType = "other"
)

// IsValid checks whether the type is one of the enumerated values.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationChat, NotificationStatus, NotificationOther:
		return true
	}
	return false
}

// Notification is owned by its recipient and mutated only by marking read.
type Notification struct {
	ID        string           `json:"id" bson:"_id,omitempty"`
	Recipient string           `json:"recipient" bson:"recipient"`
	Type      NotificationType `json:"type" bson:"type"`
	Message   string           `json:"message" bson:"message"`
	// Link is a deep link back to the triggering entity (room or report).
	Link      string    `json:"link,omitempty" bson:"link,omitempty"`
	Read      bool      `json:"read" bson:"read"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
