package service

import (
	"context"

	"campuswatch/core"
	"campuswatch/storage"
	"go.uber.org/zap"
)

// NotificationService exposes the per-recipient notification inbox.
type NotificationService struct {
	provider  storage.Provider
	publisher Publisher
	logger    *zap.SugaredLogger
}

// NewNotificationService creates a new notification service.
func NewNotificationService(provider storage.Provider, publisher Publisher, logger *zap.SugaredLogger) *NotificationService {
	if provider == nil {
		panic("provider is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &NotificationService{provider: provider, publisher: publisher, logger: logger}
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, identity core.Identity) ([]core.Notification, error) {
	return s.provider.Backend(ctx).ListNotificationsFor(ctx, identity.UserID)
}

// MarkRead flips the read flag on one of the caller's notifications.
// Someone else's notification is simply not found.
func (s *NotificationService) MarkRead(ctx context.Context, identity core.Identity, notificationID string) (*core.Notification, error) {
	return s.provider.Backend(ctx).MarkNotificationRead(ctx, notificationID, identity.UserID)
}

// Notify creates an ad-hoc notification for a recipient. Privileged only.
func (s *NotificationService) Notify(ctx context.Context, identity core.Identity, recipient string, kind core.NotificationType, message, link string) (*core.Notification, error) {
	if !identity.Role.IsPrivileged() {
		return nil, core.ErrAccessDenied
	}
	if message == "" {
		return nil, core.NewValidationError("message", "message is required")
	}
	if kind == "" {
		kind = core.NotificationOther
	}
	if !kind.IsValid() {
		return nil, core.NewValidationError("type", "unknown notification type")
	}

	n := &core.Notification{
		Recipient: recipient,
		Type:      kind,
		Message:   message,
		Link:      link,
	}
	if err := s.provider.Backend(ctx).CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	s.publisher.PublishNotification(ctx, *n)
	return n, nil
}
