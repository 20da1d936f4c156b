package core

import "time"

// RequestStatus represents the review state of an admin role-upgrade
// request. Requests are terminal once reviewed.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// IsValid checks whether the status is one of the enumerated values.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	}
	return false
}

// Reviewed reports whether the request has reached a terminal state.
func (s RequestStatus) Reviewed() bool {
	return s == RequestApproved || s == RequestRejected
}

// Urgency is the requester-declared urgency of an admin request.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// IsValid checks whether the urgency is one of the enumerated values.
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// AdminRequest is a user's application for the admin role, reviewed by a
// moderator. Approval promotes the requester; either outcome is terminal.
type AdminRequest struct {
	ID               string        `json:"id" bson:"_id,omitempty"`
	UserID           string        `json:"userId" bson:"user_id"`
	Reason           string        `json:"reason" bson:"reason"`
	Department       string        `json:"department" bson:"department"`
	Experience       string        `json:"experience" bson:"experience"`
	Responsibilities string        `json:"responsibilities" bson:"responsibilities"`
	Urgency          Urgency       `json:"urgency" bson:"urgency"`
	ContactInfo      string        `json:"contactInfo,omitempty" bson:"contact_info,omitempty"`
	Status           RequestStatus `json:"status" bson:"status"`
	ReviewedBy       string        `json:"reviewedBy,omitempty" bson:"reviewed_by,omitempty"`
	ReviewedAt       time.Time     `json:"reviewedAt,omitempty" bson:"reviewed_at,omitempty"`
	ReviewNotes      string        `json:"reviewNotes,omitempty" bson:"review_notes,omitempty"`
	CreatedAt        time.Time     `json:"createdAt" bson:"created_at"`
}
