package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"campuswatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(zap.NewNop().Sugar())
}

func TestMemoryStore_SeededPrivilegedAccounts(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	admin, err := store.GetUserByEmail(ctx, "admin@campus.edu")
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, admin.Role)
	assert.True(t, admin.Active)
	assert.NotEmpty(t, admin.Password)

	mod, err := store.GetUserByEmail(ctx, "moderator@campus.edu")
	require.NoError(t, err)
	assert.Equal(t, core.RoleModerator, mod.Role)

	count, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestMemoryStore_CreateUser_DuplicateEmail(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	err := store.CreateUser(ctx, &core.User{Email: "student@campus.edu", Role: core.RoleUser, Active: true})
	require.NoError(t, err)

	err = store.CreateUser(ctx, &core.User{Email: "Student@Campus.edu", Role: core.RoleUser})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	// Anonymous users carry no email and never collide.
	require.NoError(t, store.CreateUser(ctx, &core.User{IsAnonymous: true, Role: core.RoleUser}))
	require.NoError(t, store.CreateUser(ctx, &core.User{IsAnonymous: true, Role: core.RoleUser}))
}

func TestMemoryStore_GetUser_CopiesOut(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	user := &core.User{Email: "a@campus.edu", Role: core.RoleUser, Active: true}
	require.NoError(t, store.CreateUser(ctx, user))

	got, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	got.Role = core.RoleAdmin

	again, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RoleUser, again.Role, "mutating a returned user must not touch stored state")
}

func TestMemoryStore_AssignReport(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	report := &core.Report{ReporterID: "u1", Title: "t", Status: core.StatusPending}
	require.NoError(t, store.CreateReport(ctx, report))

	require.NoError(t, store.AssignReport(ctx, report.ID, "admin-001"))

	// Second claim loses, and so does a retry by the current holder.
	assert.ErrorIs(t, store.AssignReport(ctx, report.ID, "admin-002"), core.ErrAlreadyAssigned)
	assert.ErrorIs(t, store.AssignReport(ctx, report.ID, "admin-001"), core.ErrAlreadyAssigned)

	assert.ErrorIs(t, store.AssignReport(ctx, "missing", "admin-001"), ErrReportNotFound)

	got, err := store.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin-001", got.AssignedTo)
}

func TestMemoryStore_ListReports_FiltersAndPagination(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		report := &core.Report{
			ReporterID: "u1",
			Title:      fmt.Sprintf("report %d", i),
			Category:   core.CategoryTheft,
			Status:     core.StatusPending,
			Priority:   core.PriorityMedium,
		}
		require.NoError(t, store.CreateReport(ctx, report))
	}
	other := &core.Report{ReporterID: "u2", Title: "other", Category: core.CategoryVandalism, Status: core.StatusResolved}
	require.NoError(t, store.CreateReport(ctx, other))

	reports, total, err := store.ListReports(ctx, &ReportFilters{ReporterID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, reports, 5)
	// Newest first.
	assert.Equal(t, "report 4", reports[0].Title)
	assert.Equal(t, "report 0", reports[4].Title)

	reports, total, err = store.ListReports(ctx, &ReportFilters{ReporterID: "u1", Skip: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total, "total counts matches before pagination")
	require.Len(t, reports, 2)
	assert.Equal(t, "report 2", reports[0].Title)

	reports, total, err = store.ListReports(ctx, &ReportFilters{Status: core.StatusResolved})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, reports, 1)
	assert.Equal(t, "other", reports[0].Title)

	_, total, err = store.ListReports(ctx, &ReportFilters{Category: core.CategoryEmergency})
	require.NoError(t, err)
	assert.Zero(t, total)

	// Negative pagination values behave as if unset instead of panicking.
	reports, total, err = store.ListReports(ctx, &ReportFilters{ReporterID: "u1", Skip: -1, Limit: -5})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, reports, 5)
}

func TestMemoryStore_ReportNotes_AppendOnly(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	report := &core.Report{ReporterID: "u1", Status: core.StatusPending}
	require.NoError(t, store.CreateReport(ctx, report))

	now := time.Now().UTC()
	require.NoError(t, store.AddAdminNote(ctx, report.ID, core.AdminNote{Note: "first", AddedBy: "admin-001", AddedAt: now}))
	require.NoError(t, store.AddAdminNote(ctx, report.ID, core.AdminNote{Note: "second", AddedBy: "admin-002", AddedAt: now}))
	require.NoError(t, store.AddPublicUpdate(ctx, report.ID, core.PublicUpdate{Message: "we are on it", AddedAt: now}))

	got, err := store.GetReport(ctx, report.ID)
	require.NoError(t, err)
	require.Len(t, got.AdminNotes, 2)
	assert.Equal(t, "first", got.AdminNotes[0].Note)
	require.Len(t, got.PublicUpdates, 1)
	// Public updates never carry an author.
	assert.Equal(t, "we are on it", got.PublicUpdates[0].Message)
}

func TestMemoryStore_RoomBijection(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	room := &core.ChatRoom{ReportID: "r1", Participants: []string{"u1"}}
	require.NoError(t, store.CreateRoom(ctx, room))

	dup := &core.ChatRoom{ReportID: "r1"}
	assert.ErrorIs(t, store.CreateRoom(ctx, dup), ErrDuplicateRoom)

	got, err := store.GetRoomByReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)
}

func TestMemoryStore_AddParticipant_Dedup(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	room := &core.ChatRoom{ReportID: "r1", Participants: []string{"u1"}}
	require.NoError(t, store.CreateRoom(ctx, room))

	got, err := store.AddParticipant(ctx, room.ID, "admin-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "admin-001"}, got.Participants)

	got, err = store.AddParticipant(ctx, room.ID, "admin-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "admin-001"}, got.Participants, "repeat join is a no-op")

	_, err = store.AddParticipant(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestMemoryStore_Messages_OrderAndCursor(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	room := &core.ChatRoom{ReportID: "r1", Participants: []string{"u1", "admin-001"}}
	require.NoError(t, store.CreateRoom(ctx, room))

	// Same explicit timestamp for all three: insertion order must still win.
	ts := time.Now().UTC()
	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		msg := &core.Message{RoomID: room.ID, SenderID: "u1", Body: fmt.Sprintf("m%d", i), Timestamp: ts}
		require.NoError(t, store.CreateMessage(ctx, msg))
		ids = append(ids, msg.ID)
	}

	all, err := store.ListMessages(ctx, room.ID, MessagePage{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "m0", all[0].Body)
	assert.Equal(t, "m2", all[2].Body)

	page, err := store.ListMessages(ctx, room.ID, MessagePage{After: ids[0], Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "m1", page[0].Body)

	err = store.CreateMessage(ctx, &core.Message{RoomID: "missing", SenderID: "u1", Body: "x"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestMemoryStore_Notifications(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	n := &core.Notification{Recipient: "u1", Type: core.NotificationChat, Message: "New message from Admin: hi"}
	require.NoError(t, store.CreateNotification(ctx, n))

	list, err := store.ListNotificationsFor(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)

	// Wrong recipient scoping reads as not-found, not forbidden.
	_, err = store.MarkNotificationRead(ctx, n.ID, "u2")
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	marked, err := store.MarkNotificationRead(ctx, n.ID, "u1")
	require.NoError(t, err)
	assert.True(t, marked.Read)

	empty, err := store.ListNotificationsFor(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_AdminRequestReview_Terminal(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	req := &core.AdminRequest{UserID: "u1", Reason: "campus safety volunteer", Urgency: core.UrgencyMedium}
	require.NoError(t, store.CreateAdminRequest(ctx, req))
	assert.Equal(t, core.RequestPending, req.Status)

	reviewed, err := store.ReviewAdminRequest(ctx, req.ID, core.RequestApproved, "moderator-001", "checks out")
	require.NoError(t, err)
	assert.Equal(t, core.RequestApproved, reviewed.Status)
	assert.Equal(t, "moderator-001", reviewed.ReviewedBy)

	_, err = store.ReviewAdminRequest(ctx, req.ID, core.RequestRejected, "moderator-001", "")
	assert.ErrorIs(t, err, core.ErrRequestReviewed)

	_, err = store.ReviewAdminRequest(ctx, "missing", core.RequestApproved, "moderator-001", "")
	assert.ErrorIs(t, err, ErrAdminRequestNotFound)
}

func TestMemoryStore_MonotonicIDs(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first := &core.Report{ReporterID: "u1"}
	second := &core.Report{ReporterID: "u1"}
	require.NoError(t, store.CreateReport(ctx, first))
	require.NoError(t, store.CreateReport(ctx, second))

	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "2", second.ID)
}
