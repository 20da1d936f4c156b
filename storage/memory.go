package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"campuswatch/core"
	"go.uber.org/zap"
)

// seededHash is the bcrypt hash of "password", shared by the seeded
// privileged accounts. Real deployments run against MongoDB; the seeds
// only keep administrative flows exercisable in ephemeral mode.
const seededHash = "$2a$10$92IXUNpkjO0rOQ5byMi.Ye4oKoEa3Ro9llC/.og/at2.uheWG/igi"

// MemoryStore is the ephemeral in-process persistence backend. It holds
// everything in maps guarded by one RWMutex and assigns ids from
// monotonic per-collection counters. Data does not survive a restart.
//
// The store is the fallback the Selector degrades to when the durable
// backend is unreachable, and the fixture backend for tests.
type MemoryStore struct {
	mu sync.RWMutex

	users         map[string]*core.User
	reports       map[string]*core.Report
	rooms         map[string]*core.ChatRoom
	messages      map[string]*core.Message
	notifications map[string]*core.Notification
	adminRequests map[string]*core.AdminRequest

	nextUserID         int
	nextReportID       int
	nextRoomID         int
	nextMessageID      int
	nextNotificationID int
	nextRequestID      int

	// msgSeq breaks timestamp ties so read order always matches write
	// order even when two messages land in the same clock tick.
	msgSeq   map[string]int
	msgOrder map[string]int

	logger *zap.SugaredLogger
}

// NewMemoryStore creates an ephemeral store pre-seeded with the fixed set
// of privileged accounts.
func NewMemoryStore(logger *zap.SugaredLogger) *MemoryStore {
	s := &MemoryStore{
		users:              make(map[string]*core.User),
		reports:            make(map[string]*core.Report),
		rooms:              make(map[string]*core.ChatRoom),
		messages:           make(map[string]*core.Message),
		notifications:      make(map[string]*core.Notification),
		adminRequests:      make(map[string]*core.AdminRequest),
		nextUserID:         1,
		nextReportID:       1,
		nextRoomID:         1,
		nextMessageID:      1,
		nextNotificationID: 1,
		nextRequestID:      1,
		msgSeq:             make(map[string]int),
		msgOrder:           make(map[string]int),
		logger:             logger,
	}
	s.seedPrivilegedUsers()
	return s
}

// Name identifies the backend in logs.
func (s *MemoryStore) Name() string { return "memory" }

// seedPrivilegedUsers installs the fixed admin and moderator accounts so
// administrative flows work without durable storage.
func (s *MemoryStore) seedPrivilegedUsers() {
	seeded := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seeds := []*core.User{
		{ID: "admin-001", Email: "admin@campus.edu", Role: core.RoleAdmin, AnonymousID: "admin-anon-001", CampusID: "ADMIN001"},
		{ID: "admin-002", Email: "security@campus.edu", Role: core.RoleAdmin, AnonymousID: "admin-anon-002", CampusID: "ADMIN002"},
		{ID: "moderator-001", Email: "moderator@campus.edu", Role: core.RoleModerator, AnonymousID: "moderator-anon-001", CampusID: "MOD001"},
	}
	for _, u := range seeds {
		u.Password = seededHash
		u.IsAnonymous = false
		u.Active = true
		u.CreatedAt = seeded
		u.UpdatedAt = seeded
		u.LastActive = seeded
		u.RetentionDate = seeded.Add(core.DefaultUserRetention)
		s.users[u.ID] = u
	}
}

// --- users ---

func (s *MemoryStore) CreateUser(ctx context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Email != "" {
		for _, existing := range s.users {
			if strings.EqualFold(existing.Email, user.Email) {
				return ErrDuplicateEmail
			}
		}
	}

	user.ID = fmt.Sprintf("%d", s.nextUserID)
	s.nextUserID++

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.LastActive.IsZero() {
		user.LastActive = now
	}
	if user.RetentionDate.IsZero() {
		user.RetentionDate = now.Add(core.DefaultUserRetention)
	}

	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) UpdateUser(ctx context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *MemoryStore) UpdateUserRole(ctx context.Context, id string, role core.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

// --- reports ---

func (s *MemoryStore) CreateReport(ctx context.Context, report *core.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report.ID = fmt.Sprintf("%d", s.nextReportID)
	s.nextReportID++

	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now

	clone := cloneReport(report)
	s.reports[report.ID] = clone
	return nil
}

func (s *MemoryStore) GetReport(ctx context.Context, id string) (*core.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return cloneReport(report), nil
}

func (s *MemoryStore) UpdateReport(ctx context.Context, report *core.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[report.ID]; !ok {
		return ErrReportNotFound
	}
	report.UpdatedAt = time.Now().UTC()
	s.reports[report.ID] = cloneReport(report)
	return nil
}

func (s *MemoryStore) ListReports(ctx context.Context, filters *ReportFilters) ([]core.Report, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filters == nil {
		filters = &ReportFilters{}
	}

	matched := make([]*core.Report, 0, len(s.reports))
	for _, report := range s.reports {
		if !matchesFilters(report, filters) {
			continue
		}
		matched = append(matched, report)
	}

	// Newest first; id breaks creation-time ties deterministically.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	matched = paginate(matched, filters.Skip, filters.Limit)

	results := make([]core.Report, 0, len(matched))
	for _, report := range matched {
		results = append(results, *cloneReport(report))
	}
	return results, total, nil
}

func matchesFilters(report *core.Report, filters *ReportFilters) bool {
	if filters.ReporterID != "" && report.ReporterID != filters.ReporterID {
		return false
	}
	if filters.Category != "" && report.Category != filters.Category {
		return false
	}
	if filters.Status != "" && report.Status != filters.Status {
		return false
	}
	if filters.Priority != "" && report.Priority != filters.Priority {
		return false
	}
	if !filters.Start.IsZero() && report.CreatedAt.Before(filters.Start) {
		return false
	}
	if !filters.End.IsZero() && report.CreatedAt.After(filters.End) {
		return false
	}
	return true
}

func paginate(reports []*core.Report, skip, limit int) []*core.Report {
	// Negative values behave like the durable backend given zero: no skip,
	// no cap.
	if skip < 0 {
		skip = 0
	}
	if skip >= len(reports) {
		return nil
	}
	reports = reports[skip:]
	if limit > 0 && limit < len(reports) {
		reports = reports[:limit]
	}
	return reports
}

// AssignReport is the atomic set-if-absent conditional update. The whole
// check-then-set runs under the write lock, which is this backend's
// equivalent of the durable backend's conditional update: there is no
// window where two actors can both observe an unassigned report.
func (s *MemoryStore) AssignReport(ctx context.Context, reportID, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[reportID]
	if !ok {
		return ErrReportNotFound
	}
	if report.AssignedTo != "" {
		// Non-idempotent on purpose: the current holder retrying fails too.
		return core.ErrAlreadyAssigned
	}
	report.AssignedTo = actorID
	report.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SetReportStatus(ctx context.Context, reportID string, status core.ReportStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[reportID]
	if !ok {
		return ErrReportNotFound
	}
	report.Status = status
	report.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) AddAdminNote(ctx context.Context, reportID string, note core.AdminNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[reportID]
	if !ok {
		return ErrReportNotFound
	}
	report.AdminNotes = append(report.AdminNotes, note)
	report.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) AddPublicUpdate(ctx context.Context, reportID string, update core.PublicUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[reportID]
	if !ok {
		return ErrReportNotFound
	}
	report.PublicUpdates = append(report.PublicUpdates, update)
	report.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) CountReports(ctx context.Context, status core.ReportStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if status == "" {
		return int64(len(s.reports)), nil
	}
	var count int64
	for _, report := range s.reports {
		if report.Status == status {
			count++
		}
	}
	return count, nil
}

// --- chat rooms and messages ---

func (s *MemoryStore) CreateRoom(ctx context.Context, room *core.ChatRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rooms {
		if existing.ReportID == room.ReportID {
			return ErrDuplicateRoom
		}
	}

	room.ID = fmt.Sprintf("%d", s.nextRoomID)
	s.nextRoomID++
	room.CreatedAt = time.Now().UTC()

	clone := cloneRoom(room)
	s.rooms[room.ID] = clone
	return nil
}

func (s *MemoryStore) GetRoom(ctx context.Context, id string) (*core.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return cloneRoom(room), nil
}

func (s *MemoryStore) GetRoomByReport(ctx context.Context, reportID string) (*core.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, room := range s.rooms {
		if room.ReportID == reportID {
			return cloneRoom(room), nil
		}
	}
	return nil, ErrRoomNotFound
}

func (s *MemoryStore) AddParticipant(ctx context.Context, roomID, userID string) (*core.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.AddParticipant(userID)
	return cloneRoom(room), nil
}

func (s *MemoryStore) ListRoomsFor(ctx context.Context, userID string) ([]core.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*core.ChatRoom, 0)
	for _, room := range s.rooms {
		if room.HasParticipant(userID) {
			matched = append(matched, room)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	results := make([]core.ChatRoom, 0, len(matched))
	for _, room := range matched {
		results = append(results, *cloneRoom(room))
	}
	return results, nil
}

func (s *MemoryStore) ListRooms(ctx context.Context) ([]core.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]core.ChatRoom, 0, len(s.rooms))
	for _, room := range s.rooms {
		results = append(results, *cloneRoom(room))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, msg *core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[msg.RoomID]; !ok {
		return ErrRoomNotFound
	}

	msg.ID = fmt.Sprintf("%d", s.nextMessageID)
	s.nextMessageID++
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	s.msgSeq[msg.RoomID]++
	s.msgOrder[msg.ID] = s.msgSeq[msg.RoomID]

	clone := *msg
	s.messages[msg.ID] = &clone
	return nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, roomID string, page MessagePage) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*core.Message, 0)
	for _, msg := range s.messages {
		if msg.RoomID == roomID {
			matched = append(matched, msg)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.Before(matched[j].Timestamp)
		}
		return s.msgOrder[matched[i].ID] < s.msgOrder[matched[j].ID]
	})

	if page.After != "" {
		for i, msg := range matched {
			if msg.ID == page.After {
				matched = matched[i+1:]
				break
			}
		}
	}
	if page.Limit > 0 && page.Limit < len(matched) {
		matched = matched[:page.Limit]
	}

	results := make([]core.Message, 0, len(matched))
	for _, msg := range matched {
		results = append(results, *msg)
	}
	return results, nil
}

// --- notifications ---

func (s *MemoryStore) CreateNotification(ctx context.Context, n *core.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = fmt.Sprintf("%d", s.nextNotificationID)
	s.nextNotificationID++
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}

	clone := *n
	s.notifications[n.ID] = &clone
	return nil
}

func (s *MemoryStore) ListNotificationsFor(ctx context.Context, recipient string) ([]core.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*core.Notification, 0)
	for _, n := range s.notifications {
		if n.Recipient == recipient {
			matched = append(matched, n)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	results := make([]core.Notification, 0, len(matched))
	for _, n := range matched {
		results = append(results, *n)
	}
	return results, nil
}

func (s *MemoryStore) MarkNotificationRead(ctx context.Context, id, recipient string) (*core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.Recipient != recipient {
		return nil, ErrNotificationNotFound
	}
	n.Read = true
	clone := *n
	return &clone, nil
}

// --- admin requests ---

func (s *MemoryStore) CreateAdminRequest(ctx context.Context, req *core.AdminRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req.ID = fmt.Sprintf("%d", s.nextRequestID)
	s.nextRequestID++
	req.Status = core.RequestPending
	req.CreatedAt = time.Now().UTC()

	clone := *req
	s.adminRequests[req.ID] = &clone
	return nil
}

func (s *MemoryStore) GetAdminRequest(ctx context.Context, id string) (*core.AdminRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.adminRequests[id]
	if !ok {
		return nil, ErrAdminRequestNotFound
	}
	clone := *req
	return &clone, nil
}

func (s *MemoryStore) ListAdminRequests(ctx context.Context, status core.RequestStatus) ([]core.AdminRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]core.AdminRequest, 0)
	for _, req := range s.adminRequests {
		if status != "" && req.Status != status {
			continue
		}
		results = append(results, *req)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func (s *MemoryStore) ReviewAdminRequest(ctx context.Context, id string, status core.RequestStatus, reviewerID, notes string) (*core.AdminRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.adminRequests[id]
	if !ok {
		return nil, ErrAdminRequestNotFound
	}
	if req.Status.Reviewed() {
		return nil, core.ErrRequestReviewed
	}
	req.Status = status
	req.ReviewedBy = reviewerID
	req.ReviewNotes = notes
	req.ReviewedAt = time.Now().UTC()

	clone := *req
	return &clone, nil
}

// --- clone helpers ---

// Reads hand out copies so callers can never mutate stored state through
// shared slices.

func cloneReport(r *core.Report) *core.Report {
	clone := *r
	clone.Attachments = append([]core.Attachment(nil), r.Attachments...)
	clone.AdminNotes = append([]core.AdminNote(nil), r.AdminNotes...)
	clone.PublicUpdates = append([]core.PublicUpdate(nil), r.PublicUpdates...)
	return &clone
}

func cloneRoom(r *core.ChatRoom) *core.ChatRoom {
	clone := *r
	clone.Participants = append([]string(nil), r.Participants...)
	return &clone
}
