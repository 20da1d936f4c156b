package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campuswatch/config"
	"campuswatch/core"
	"campuswatch/realtime"
	"campuswatch/service"
	"campuswatch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticProvider struct {
	store storage.Store
}

func (p *staticProvider) Backend(ctx context.Context) storage.Store { return p.store }

type testHarness struct {
	api    *API
	server *httptest.Server
	store  *storage.MemoryStore
	cfg    *config.Config
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	logger := zap.NewNop().Sugar()
	store := storage.NewMemoryStore(logger)
	provider := &staticProvider{store: store}

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.Auth.JWTExpiry = time.Hour

	bus := realtime.NewBus(nil, logger)

	chatService := service.NewChatService(provider, bus, logger)
	hub := NewHub(chatService, logger, context.Background())
	bus.SetHandler(hub.HandleEvent)
	go hub.Start()
	t.Cleanup(hub.Stop)

	a := NewAPI(
		service.NewAuthService(provider, logger),
		service.NewReportService(provider, bus, logger),
		chatService,
		service.NewNotificationService(provider, bus, logger),
		service.NewAdminService(provider, bus, logger),
		provider,
		hub,
		cfg,
		logger,
	)

	server := httptest.NewServer(a.Router())
	t.Cleanup(server.Close)

	return &testHarness{api: a, server: server, store: store, cfg: cfg}
}

// do sends a JSON request with an optional bearer token and decodes the
// response into out when it is non-nil.
func (h *testHarness) do(t *testing.T, method, path, token string, body, out interface{}) int {
	t.Helper()

	var reqBody *bytes.Buffer = bytes.NewBuffer(nil)
	if body != nil {
		require.NoError(t, json.NewEncoder(reqBody).Encode(body))
	}

	req, err := http.NewRequest(method, h.server.URL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// tokenFor mints a token for a seeded account directly.
func (h *testHarness) tokenFor(t *testing.T, userID string, role core.Role) string {
	t.Helper()
	token, err := generateJWT(&core.User{ID: userID, Role: role}, h.cfg)
	require.NoError(t, err)
	return token
}

func (h *testHarness) registerUser(t *testing.T, email string) (string, string) {
	t.Helper()
	var resp struct {
		Token string    `json:"token"`
		User  core.User `json:"user"`
	}
	status := h.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "long-enough-pass",
	}, &resp)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User.ID
}

func TestHealthReportsBackend(t *testing.T) {
	h := newHarness(t)

	var resp map[string]string
	status := h.do(t, http.MethodGet, "/health", "", nil, &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "memory", resp["backend"])
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)
	token, userID := h.registerUser(t, "flow@campus.edu")

	var me core.User
	status := h.do(t, http.MethodGet, "/api/auth/me", token, nil, &me)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, userID, me.ID)
	assert.Equal(t, core.RoleUser, me.Role)

	// Login with the seeded admin account.
	var login struct {
		Token string `json:"token"`
	}
	status = h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "admin@campus.edu",
		"password": "password",
	}, &login)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, login.Token)

	status = h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "admin@campus.edu",
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = h.do(t, http.MethodGet, "/api/auth/me", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = h.do(t, http.MethodGet, "/api/auth/me", "garbage", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDeactivatedAccountRejected(t *testing.T) {
	h := newHarness(t)
	token, userID := h.registerUser(t, "leaver@campus.edu")

	status := h.do(t, http.MethodGet, "/api/auth/me", token, nil, nil)
	require.Equal(t, http.StatusOK, status)

	user, err := h.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	user.Active = false
	require.NoError(t, h.store.UpdateUser(context.Background(), user))

	// The still-valid token no longer opens any door.
	status = h.do(t, http.MethodGet, "/api/auth/me", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status = h.do(t, http.MethodGet, "/api/reports", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestListReportsRejectsBadPagination(t *testing.T) {
	h := newHarness(t)
	token, _ := h.registerUser(t, "pager@campus.edu")

	status := h.do(t, http.MethodGet, "/api/reports?skip=-1", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status = h.do(t, http.MethodGet, "/api/reports?limit=abc", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status = h.do(t, http.MethodGet, "/api/reports?skip=0&limit=10", token, nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAnonymousRegistration(t *testing.T) {
	h := newHarness(t)

	var resp struct {
		Token string    `json:"token"`
		User  core.User `json:"user"`
	}
	status := h.do(t, http.MethodPost, "/api/auth/anonymous", "", nil, &resp)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, resp.User.IsAnonymous)
	assert.NotEmpty(t, resp.User.AnonymousID)

	// Anonymous accounts submit reports like any other.
	var report core.Report
	status = h.do(t, http.MethodPost, "/api/reports", resp.Token, map[string]string{
		"title":       "anon tip",
		"description": "suspicious person near the library",
	}, &report)
	assert.Equal(t, http.StatusCreated, status)
	assert.True(t, report.IsAnonymous)
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	userToken, _ := h.registerUser(t, "reporter@campus.edu")
	adminToken := h.tokenFor(t, "admin-001", core.RoleAdmin)

	var report core.Report
	status := h.do(t, http.MethodPost, "/api/reports", userToken, map[string]interface{}{
		"title":       "broken railing",
		"description": "the railing is unsafe and could fall",
	}, &report)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, core.CategorySafetyHazard, report.Category)

	// Missing fields fail validation.
	status = h.do(t, http.MethodPost, "/api/reports", userToken, map[string]string{"title": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// Status change is admin-only.
	status = h.do(t, http.MethodPatch, "/api/reports/"+report.ID+"/status", userToken,
		map[string]string{"status": "investigating"}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = h.do(t, http.MethodPatch, "/api/reports/"+report.ID+"/status", adminToken,
		map[string]string{"status": "investigating"}, &report)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, core.StatusInvestigating, report.Status)

	// Assignment: first admin wins, second conflicts.
	status = h.do(t, http.MethodPost, "/api/reports/"+report.ID+"/assign", adminToken, nil, &report)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin-001", report.AssignedTo)

	admin2Token := h.tokenFor(t, "admin-002", core.RoleAdmin)
	status = h.do(t, http.MethodPost, "/api/reports/"+report.ID+"/assign", admin2Token, nil, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Notes and updates.
	status = h.do(t, http.MethodPost, "/api/reports/"+report.ID+"/notes", adminToken,
		map[string]string{"note": "checked with facilities"}, &report)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, report.AdminNotes, 1)
	assert.Equal(t, "admin-001", report.AdminNotes[0].AddedBy)

	status = h.do(t, http.MethodPost, "/api/reports/"+report.ID+"/updates", adminToken,
		map[string]string{"message": "repair scheduled"}, &report)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, report.PublicUpdates, 1)

	status = h.do(t, http.MethodGet, "/api/reports/missing-id", adminToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestChatOverHTTP(t *testing.T) {
	h := newHarness(t)
	userToken, userID := h.registerUser(t, "chatter@campus.edu")
	adminToken := h.tokenFor(t, "admin-001", core.RoleAdmin)

	var report core.Report
	status := h.do(t, http.MethodPost, "/api/reports", userToken, map[string]string{
		"title":       "stolen laptop",
		"description": "laptop stolen from the lab",
	}, &report)
	require.Equal(t, http.StatusCreated, status)

	var room core.ChatRoom
	status = h.do(t, http.MethodPost, "/api/reports/"+report.ID+"/chat", userToken, nil, &room)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{userID}, room.Participants)

	status = h.do(t, http.MethodPost, "/api/reports/"+report.ID+"/chat", adminToken, nil, &room)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, room.Participants, 2)

	var msg core.Message
	status = h.do(t, http.MethodPost, "/api/chat/rooms/"+room.ID+"/messages", adminToken,
		map[string]string{"body": "we found it"}, &msg)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, core.RoleAdmin, msg.SenderRole)

	var messages []core.Message
	status = h.do(t, http.MethodGet, "/api/chat/rooms/"+room.ID+"/messages", userToken, nil, &messages)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, messages, 1)

	// Fan-out landed in the reporter's inbox.
	var notifs []core.Notification
	status = h.do(t, http.MethodGet, "/api/notifications", userToken, nil, &notifs)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, notifs, 1)
	assert.Equal(t, "New message from Admin: we found it", notifs[0].Message)
	assert.Equal(t, "/chat?roomId="+room.ID, notifs[0].Link)

	var marked core.Notification
	status = h.do(t, http.MethodPost, "/api/notifications/"+notifs[0].ID+"/read", userToken, nil, &marked)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, marked.Read)

	// Closing the report closes the chat with a conflict.
	status = h.do(t, http.MethodPatch, "/api/reports/"+report.ID+"/status", adminToken,
		map[string]string{"status": "closed"}, nil)
	require.Equal(t, http.StatusOK, status)

	status = h.do(t, http.MethodPost, "/api/chat/rooms/"+room.ID+"/messages", userToken,
		map[string]string{"body": "hello?"}, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAdminRequestsOverHTTP(t *testing.T) {
	h := newHarness(t)
	userToken, userID := h.registerUser(t, "applicant@campus.edu")
	modToken := h.tokenFor(t, "moderator-001", core.RoleModerator)
	adminToken := h.tokenFor(t, "admin-001", core.RoleAdmin)

	var req core.AdminRequest
	status := h.do(t, http.MethodPost, "/api/admin/requests", userToken, map[string]string{
		"reason":     "RA in the dorms, want to help",
		"department": "Housing",
	}, &req)
	require.Equal(t, http.StatusCreated, status)

	// Admins do not review admin requests; moderators do.
	status = h.do(t, http.MethodGet, "/api/admin/requests", adminToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var requests []core.AdminRequest
	status = h.do(t, http.MethodGet, "/api/admin/requests?status=pending", modToken, nil, &requests)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, requests, 1)

	var reviewed core.AdminRequest
	status = h.do(t, http.MethodPost, "/api/admin/requests/"+req.ID+"/review", modToken,
		map[string]interface{}{"approve": true, "notes": "verified"}, &reviewed)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, core.RequestApproved, reviewed.Status)

	// The requester is now an admin, and the promotion takes effect on the
	// next request without a re-login.
	user, err := h.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, user.Role)

	status = h.do(t, http.MethodGet, "/api/admin/stats", userToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)

	// Terminal review: conflict on a second attempt.
	status = h.do(t, http.MethodPost, "/api/admin/requests/"+req.ID+"/review", modToken,
		map[string]interface{}{"approve": false}, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestStatsEndpoint(t *testing.T) {
	h := newHarness(t)
	userToken, _ := h.registerUser(t, "stats@campus.edu")
	adminToken := h.tokenFor(t, "admin-001", core.RoleAdmin)

	for i := 0; i < 3; i++ {
		status := h.do(t, http.MethodPost, "/api/reports", userToken, map[string]string{
			"title":       fmt.Sprintf("report %d", i),
			"description": "something happened",
		}, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	var stats service.Stats
	status := h.do(t, http.MethodGet, "/api/admin/stats", adminToken, nil, &stats)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(3), stats.TotalReports)
	assert.Equal(t, int64(3), stats.PendingReports)

	status = h.do(t, http.MethodGet, "/api/admin/stats", userToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
}
