package core

import "time"

// ChatRoom is the single chat channel bound one-to-one with a report.
// Rooms are created lazily on first chat access; the participant set only
// grows and is deduplicated (repeat joins are no-ops).
type ChatRoom struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	ReportID     string    `json:"reportId" bson:"report_id"`
	Participants []string  `json:"participants" bson:"participants"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// HasParticipant reports whether userID has joined the room.
func (r *ChatRoom) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// AddParticipant adds userID with set semantics and reports whether the
// participant set changed.
func (r *ChatRoom) AddParticipant(userID string) bool {
	if r.HasParticipant(userID) {
		return false
	}
	r.Participants = append(r.Participants, userID)
	return true
}

// Recipients returns every participant except senderID, the fan-out target
// set for a posted message.
func (r *ChatRoom) Recipients(senderID string) []string {
	recipients := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		if p != senderID {
			recipients = append(recipients, p)
		}
	}
	return recipients
}

// Message is an immutable, server-timestamped entry in a room's
// append-only log. Within a room, read order always matches write order.
type Message struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	RoomID      string    `json:"roomId" bson:"room_id"`
	SenderID    string    `json:"senderId" bson:"sender_id"`
	SenderRole  Role      `json:"senderRole" bson:"sender_role"`
	Body        string    `json:"body" bson:"body"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	IsAnonymous bool      `json:"isAnonymous" bson:"is_anonymous"`
}
