package core

import "time"

// Role represents a user role in the system. Roles are a closed set; all
// capability checks go through the methods below instead of comparing raw
// strings at call sites.
type Role string

const (
	// RoleUser is the default role for registered and anonymous reporters.
	RoleUser Role = "user"
	// RoleAdmin handles reports: assignment, status changes, notes, updates.
	RoleAdmin Role = "admin"
	// RoleModerator reviews admin role-upgrade requests.
	RoleModerator Role = "moderator"
)

// ValidRoles lists every role the system accepts.
var ValidRoles = []Role{RoleUser, RoleAdmin, RoleModerator}

// IsValid checks whether the role is one of the enumerated roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// IsPrivileged reports whether the role may act on reports it does not own.
// Both admins and moderators see all reports; only these roles may change
// report status, add notes, or post public updates.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleModerator
}

// CanManageReports reports whether the role may mutate report handling
// state (status, assignment, notes, public updates).
func (r Role) CanManageReports() bool {
	return r == RoleAdmin
}

// CanReviewAdminRequests reports whether the role may approve or reject
// admin role-upgrade requests.
func (r Role) CanReviewAdminRequests() bool {
	return r == RoleModerator
}

// DisplayName returns the label shown to chat recipients in notification
// text. Reporters never see admin identities, only the role label.
func (r Role) DisplayName() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleModerator:
		return "Moderator"
	default:
		return "User"
	}
}

// User represents an account in the system. Accounts are logically retained:
// deactivation flips Active, records are never hard-deleted before the
// retention date.
type User struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	AnonymousID string    `json:"anonymousId" bson:"anonymous_id"`
	Email       string    `json:"email,omitempty" bson:"email,omitempty"`
	Password    string    `json:"-" bson:"password,omitempty"` // bcrypt hash, never serialized
	Role        Role      `json:"role" bson:"role"`
	IsAnonymous bool      `json:"isAnonymous" bson:"is_anonymous"`
	CampusID    string    `json:"campusId,omitempty" bson:"campus_id,omitempty"`
	Active      bool      `json:"active" bson:"active"`
	LastActive  time.Time `json:"lastActive" bson:"last_active"`
	// RetentionDate is when the account becomes eligible for cleanup.
	RetentionDate time.Time `json:"-" bson:"retention_date"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updated_at"`
}

// DefaultUserRetention is how long user records are retained after creation.
const DefaultUserRetention = 365 * 24 * time.Hour

// Identity is the resolved caller identity attached to requests and cached
// on long-lived connections. It is a snapshot: a role change does not
// propagate to an existing connection until it reconnects.
type Identity struct {
	UserID      string `json:"userId"`
	AnonymousID string `json:"anonymousId"`
	Role        Role   `json:"role"`
	IsAnonymous bool   `json:"isAnonymous"`
}
