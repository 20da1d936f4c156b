package storage_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"campuswatch/core"
	"campuswatch/service"
	"campuswatch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type singleBackend struct {
	store storage.Store
}

func (p *singleBackend) Backend(ctx context.Context) storage.Store { return p.store }

// newMongoStoreForTest connects to a throwaway database and skips the test
// when MongoDB is not reachable. Override the target with
// CAMPUSWATCH_TEST_MONGODB_URI.
func newMongoStoreForTest(t *testing.T) *storage.MongoStore {
	t.Helper()

	uri := os.Getenv("CAMPUSWATCH_TEST_MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	logger := zap.NewNop().Sugar()
	dbName := fmt.Sprintf("campuswatch_test_%d", time.Now().UnixNano())
	db, err := storage.NewMongoDB(uri, dbName, 10, logger)
	if err != nil {
		t.Skipf("MongoDB not reachable at %s: %v", uri, err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db.Database.Drop(ctx)
		db.Close(ctx)
	})

	store := storage.NewMongoStore(db, logger)
	require.NoError(t, store.EnsureIndexes(context.Background()))
	return store
}

// lifecycleObservation captures everything externally visible about the
// report-chat lifecycle, minus backend-specific id formats.
type lifecycleObservation struct {
	SubmittedStatus     core.ReportStatus
	AssignedToFirst     bool
	SecondAssignRefused bool
	HolderRetryRefused  bool
	Participants        int
	MessageBodies       []string
	ReporterInbox       int
	FinalStatus         core.ReportStatus
	ChatClosedAfterward bool
}

// runLifecycleScenario drives one full report-chat lifecycle through the
// service layer on the given backend: submit, contested assignment, a
// three-message conversation, resolution, and the post-resolution send.
func runLifecycleScenario(t *testing.T, store storage.Store) lifecycleObservation {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop().Sugar()
	provider := &singleBackend{store: store}

	reports := service.NewReportService(provider, nil, logger)
	chat := service.NewChatService(provider, nil, logger)
	notifs := service.NewNotificationService(provider, nil, logger)

	users := map[string]core.Identity{}
	for name, role := range map[string]core.Role{
		"reporter": core.RoleUser,
		"first":    core.RoleAdmin,
		"second":   core.RoleAdmin,
	} {
		u := &core.User{
			Email:  fmt.Sprintf("%s@equivalence.campus.edu", name),
			Role:   role,
			Active: true,
		}
		require.NoError(t, store.CreateUser(ctx, u))
		users[name] = core.Identity{UserID: u.ID, Role: role}
	}
	reporter, admin1, admin2 := users["reporter"], users["first"], users["second"]

	var obs lifecycleObservation

	report, err := reports.Submit(ctx, reporter, service.SubmitReportInput{
		Title:       "lifecycle scenario",
		Description: "a window was broken overnight",
	})
	require.NoError(t, err)
	obs.SubmittedStatus = report.Status

	assigned, err := reports.Assign(ctx, admin1, report.ID)
	require.NoError(t, err)
	obs.AssignedToFirst = assigned.AssignedTo == admin1.UserID

	_, err = reports.Assign(ctx, admin2, report.ID)
	obs.SecondAssignRefused = errors.Is(err, core.ErrAlreadyAssigned)
	_, err = reports.Assign(ctx, admin1, report.ID)
	obs.HolderRetryRefused = errors.Is(err, core.ErrAlreadyAssigned)

	room, err := chat.GetOrCreateRoom(ctx, reporter, report.ID)
	require.NoError(t, err)
	room, err = chat.GetOrCreateRoom(ctx, admin1, report.ID)
	require.NoError(t, err)
	obs.Participants = len(room.Participants)

	for _, body := range []string{"we saw it too", "any cameras nearby?", "sending someone over"} {
		_, err := chat.PostMessage(ctx, admin1, room.ID, body)
		require.NoError(t, err)
	}

	msgs, err := chat.GetMessages(ctx, reporter, room.ID, storage.MessagePage{})
	require.NoError(t, err)
	for _, m := range msgs {
		obs.MessageBodies = append(obs.MessageBodies, m.Body)
	}

	resolved, err := reports.SetStatus(ctx, admin1, report.ID, core.StatusResolved)
	require.NoError(t, err)
	obs.FinalStatus = resolved.Status

	_, err = chat.PostMessage(ctx, reporter, room.ID, "too late?")
	obs.ChatClosedAfterward = errors.Is(err, core.ErrChatClosed)

	// Three chat fan-outs plus the status-change notification.
	inbox, err := notifs.List(ctx, reporter)
	require.NoError(t, err)
	obs.ReporterInbox = len(inbox)

	return obs
}

func TestBackendEquivalence_LifecycleScenario(t *testing.T) {
	durable := newMongoStoreForTest(t)
	ephemeral := storage.NewMemoryStore(zap.NewNop().Sugar())

	durableObs := runLifecycleScenario(t, durable)
	ephemeralObs := runLifecycleScenario(t, ephemeral)
	assert.Equal(t, ephemeralObs, durableObs)

	want := lifecycleObservation{
		SubmittedStatus:     core.StatusPending,
		AssignedToFirst:     true,
		SecondAssignRefused: true,
		HolderRetryRefused:  true,
		Participants:        2,
		MessageBodies:       []string{"we saw it too", "any cameras nearby?", "sending someone over"},
		ReporterInbox:       4,
		FinalStatus:         core.StatusResolved,
		ChatClosedAfterward: true,
	}
	assert.Equal(t, want, durableObs)
}
