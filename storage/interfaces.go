package storage

import (
	"context"
	"time"

	"campuswatch/core"
)

// ReportFilters narrows report listings. Zero values mean "no filter".
// Results are always ordered by creation time descending and paginated
// with Skip/Limit.
type ReportFilters struct {
	ReporterID string
	Category   core.Category
	Status     core.ReportStatus
	Priority   core.Priority
	Start      time.Time
	End        time.Time
	Skip       int
	Limit      int
}

// MessagePage controls message listing. The zero value returns the full
// room history; After is an exclusive message-id cursor and Limit caps the
// page size.
type MessagePage struct {
	After string
	Limit int
}

// UserStorage defines user persistence operations.
type UserStorage interface {
	// CreateUser persists a new user and assigns its ID.
	CreateUser(ctx context.Context, user *core.User) error
	GetUser(ctx context.Context, id string) (*core.User, error)
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
	UpdateUser(ctx context.Context, user *core.User) error
	// UpdateUserRole mutates only the role; used by admin-request approval.
	UpdateUserRole(ctx context.Context, id string, role core.Role) error
	CountUsers(ctx context.Context) (int64, error)
}

// ReportStorage defines report persistence operations.
type ReportStorage interface {
	// CreateReport persists a new report and assigns its ID.
	CreateReport(ctx context.Context, report *core.Report) error
	GetReport(ctx context.Context, id string) (*core.Report, error)
	// UpdateReport overwrites the stored report with the given value.
	UpdateReport(ctx context.Context, report *core.Report) error
	// ListReports returns matching reports newest-first plus the total
	// match count before pagination.
	ListReports(ctx context.Context, filters *ReportFilters) ([]core.Report, int64, error)
	// AssignReport sets the assignee with a single atomic set-if-absent
	// conditional update. It returns core.ErrAlreadyAssigned whenever the
	// assignee is already set, including retries by the current holder.
	AssignReport(ctx context.Context, reportID, actorID string) error
	SetReportStatus(ctx context.Context, reportID string, status core.ReportStatus) error
	AddAdminNote(ctx context.Context, reportID string, note core.AdminNote) error
	AddPublicUpdate(ctx context.Context, reportID string, update core.PublicUpdate) error
	// CountReports counts reports in the given status; the empty status
	// counts everything.
	CountReports(ctx context.Context, status core.ReportStatus) (int64, error)
}

// ChatStorage defines chat room and message persistence operations.
type ChatStorage interface {
	// CreateRoom persists a new room and assigns its ID. Returns
	// ErrDuplicateRoom when the report already has one.
	CreateRoom(ctx context.Context, room *core.ChatRoom) error
	GetRoom(ctx context.Context, id string) (*core.ChatRoom, error)
	GetRoomByReport(ctx context.Context, reportID string) (*core.ChatRoom, error)
	// AddParticipant joins userID to the room with set semantics and
	// returns the room as stored afterwards.
	AddParticipant(ctx context.Context, roomID, userID string) (*core.ChatRoom, error)
	// ListRoomsFor returns every room containing userID, newest first.
	ListRoomsFor(ctx context.Context, userID string) ([]core.ChatRoom, error)
	ListRooms(ctx context.Context) ([]core.ChatRoom, error)
	// CreateMessage appends an immutable message and assigns its ID.
	CreateMessage(ctx context.Context, msg *core.Message) error
	// ListMessages returns room messages in ascending timestamp order.
	ListMessages(ctx context.Context, roomID string, page MessagePage) ([]core.Message, error)
}

// NotificationStorage defines notification persistence operations.
type NotificationStorage interface {
	CreateNotification(ctx context.Context, n *core.Notification) error
	// ListNotificationsFor returns the recipient's notifications newest
	// first.
	ListNotificationsFor(ctx context.Context, recipient string) ([]core.Notification, error)
	// MarkNotificationRead flips the read flag. The recipient scoping is
	// part of the lookup: marking someone else's notification is a
	// not-found, not a forbidden.
	MarkNotificationRead(ctx context.Context, id, recipient string) (*core.Notification, error)
}

// AdminRequestStorage defines admin role-upgrade request persistence.
type AdminRequestStorage interface {
	CreateAdminRequest(ctx context.Context, req *core.AdminRequest) error
	GetAdminRequest(ctx context.Context, id string) (*core.AdminRequest, error)
	// ListAdminRequests filters by status; the empty status lists all.
	ListAdminRequests(ctx context.Context, status core.RequestStatus) ([]core.AdminRequest, error)
	// ReviewAdminRequest records the terminal review outcome. Returns
	// core.ErrRequestReviewed when the request was already reviewed.
	ReviewAdminRequest(ctx context.Context, id string, status core.RequestStatus, reviewerID, notes string) (*core.AdminRequest, error)
}

// Store is the uniform persistence contract both backends satisfy.
// Business logic is written against this interface only, so the durable
// and ephemeral backends behave observably the same.
type Store interface {
	UserStorage
	ReportStorage
	ChatStorage
	NotificationStorage
	AdminRequestStorage

	// Name identifies the backend in logs ("mongodb" or "memory").
	Name() string
}

// Provider yields the store to use for one request. Backend selection is
// re-evaluated per call, so a process can degrade to the ephemeral
// backend and recover without restarting.
type Provider interface {
	Backend(ctx context.Context) Store
}
