package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"campuswatch/core"
	"campuswatch/storage"
	"go.uber.org/zap"
)

// maxNotificationPreview bounds the message excerpt embedded in fan-out
// notification text.
const maxNotificationPreview = 100

// ChatService implements per-report chat: lazy room creation, the growing
// participant set, the append-only message log, and notification fan-out.
type ChatService struct {
	provider  storage.Provider
	publisher Publisher
	logger    *zap.SugaredLogger
}

// NewChatService creates a new chat service.
func NewChatService(provider storage.Provider, publisher Publisher, logger *zap.SugaredLogger) *ChatService {
	if provider == nil {
		panic("provider is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &ChatService{provider: provider, publisher: publisher, logger: logger}
}

// GetOrCreateRoom returns the single room bound to a report, creating it on
// first access. The caller joins the room as a side effect, so the
// participant set grows as admins open the conversation.
func (s *ChatService) GetOrCreateRoom(ctx context.Context, identity core.Identity, reportID string) (*core.ChatRoom, error) {
	store := s.provider.Backend(ctx)

	report, err := store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !identity.Role.IsPrivileged() && report.ReporterID != identity.UserID {
		return nil, core.ErrAccessDenied
	}

	room, err := store.GetRoomByReport(ctx, reportID)
	if errors.Is(err, storage.ErrRoomNotFound) {
		room = &core.ChatRoom{ReportID: reportID, Participants: []string{report.ReporterID}}
		room.AddParticipant(identity.UserID)

		err = store.CreateRoom(ctx, room)
		if errors.Is(err, storage.ErrDuplicateRoom) {
			// Lost a creation race; the winner's room is the room.
			room, err = store.GetRoomByReport(ctx, reportID)
		}
	}
	if err != nil {
		return nil, err
	}

	return store.AddParticipant(ctx, room.ID, identity.UserID)
}

// JoinRoom resolves a room by id for a live connection. Participants get
// the room as-is; privileged callers are added to the participant set on
// first join, which is how admins enter a reporter's conversation.
func (s *ChatService) JoinRoom(ctx context.Context, identity core.Identity, roomID string) (*core.ChatRoom, error) {
	store := s.provider.Backend(ctx)

	room, err := store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HasParticipant(identity.UserID) {
		return room, nil
	}
	if !identity.Role.IsPrivileged() {
		return nil, core.ErrAccessDenied
	}
	return store.AddParticipant(ctx, roomID, identity.UserID)
}

// ListRooms returns the caller's rooms, or every room for privileged roles.
func (s *ChatService) ListRooms(ctx context.Context, identity core.Identity) ([]core.ChatRoom, error) {
	store := s.provider.Backend(ctx)
	if identity.Role.IsPrivileged() {
		return store.ListRooms(ctx)
	}
	return store.ListRoomsFor(ctx, identity.UserID)
}

// PostMessage appends a message to a room's log, fans notifications out to
// the other participants, and announces the persisted message. The durable
// write is the authoritative outcome: nothing is broadcast unless it
// succeeded, and per-recipient notification failures never undo it.
func (s *ChatService) PostMessage(ctx context.Context, identity core.Identity, roomID, body string) (*core.Message, error) {
	if body == "" {
		return nil, core.NewValidationError("body", "message body is required")
	}

	store := s.provider.Backend(ctx)

	room, err := store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(identity.UserID) {
		return nil, core.ErrAccessDenied
	}

	report, err := store.GetReport(ctx, room.ReportID)
	if err != nil {
		return nil, err
	}
	if !report.Status.ChatOpen() {
		return nil, core.ErrChatClosed
	}

	msg := &core.Message{
		RoomID:      roomID,
		SenderID:    identity.UserID,
		SenderRole:  identity.Role,
		Body:        body,
		IsAnonymous: identity.IsAnonymous,
	}
	if err := store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.publisher.PublishMessage(ctx, *msg)
	s.fanOut(ctx, store, room, msg)

	return msg, nil
}

// fanOut creates one notification per recipient. Each recipient is handled
// independently: a failure is logged and the rest still get theirs.
func (s *ChatService) fanOut(ctx context.Context, store storage.Store, room *core.ChatRoom, msg *core.Message) {
	preview := msg.Body
	if len(preview) > maxNotificationPreview {
		cut := maxNotificationPreview
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut]
	}
	text := fmt.Sprintf("New message from %s: %s", msg.SenderRole.DisplayName(), preview)
	link := fmt.Sprintf("/chat?roomId=%s", room.ID)

	for _, recipient := range room.Recipients(msg.SenderID) {
		n := &core.Notification{
			Recipient: recipient,
			Type:      core.NotificationChat,
			Message:   text,
			Link:      link,
		}
		if err := store.CreateNotification(ctx, n); err != nil {
			s.logger.Errorw("Failed to create chat notification",
				"room_id", room.ID, "recipient", recipient, "error", err)
			continue
		}
		s.publisher.PublishNotification(ctx, *n)
	}
}

// GetMessages returns a room's history in ascending order. Participants
// only, regardless of role: admins and moderators read by joining first.
func (s *ChatService) GetMessages(ctx context.Context, identity core.Identity, roomID string, page storage.MessagePage) ([]core.Message, error) {
	store := s.provider.Backend(ctx)

	room, err := store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(identity.UserID) {
		return nil, core.ErrAccessDenied
	}

	return store.ListMessages(ctx, roomID, page)
}
