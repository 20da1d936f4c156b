package service

import (
	"context"
	"fmt"

	"campuswatch/core"
	"campuswatch/storage"
	"go.uber.org/zap"
)

// AdminService implements admin role-upgrade requests, their moderator
// review, and the dashboard statistics.
type AdminService struct {
	provider  storage.Provider
	publisher Publisher
	logger    *zap.SugaredLogger
}

// NewAdminService creates a new admin service.
func NewAdminService(provider storage.Provider, publisher Publisher, logger *zap.SugaredLogger) *AdminService {
	if provider == nil {
		panic("provider is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &AdminService{provider: provider, publisher: publisher, logger: logger}
}

// AdminRequestInput carries the requester-supplied application fields.
type AdminRequestInput struct {
	Reason           string
	Department       string
	Experience       string
	Responsibilities string
	Urgency          core.Urgency
	ContactInfo      string
}

// SubmitRequest files an application for the admin role.
func (s *AdminService) SubmitRequest(ctx context.Context, identity core.Identity, input AdminRequestInput) (*core.AdminRequest, error) {
	if identity.Role != core.RoleUser {
		return nil, core.NewValidationError("role", "only users can request the admin role")
	}
	if input.Reason == "" {
		return nil, core.NewValidationError("reason", "reason is required")
	}
	if input.Urgency == "" {
		input.Urgency = core.UrgencyMedium
	}
	if !input.Urgency.IsValid() {
		return nil, core.NewValidationError("urgency", fmt.Sprintf("unknown urgency %q", input.Urgency))
	}

	req := &core.AdminRequest{
		UserID:           identity.UserID,
		Reason:           input.Reason,
		Department:       input.Department,
		Experience:       input.Experience,
		Responsibilities: input.Responsibilities,
		Urgency:          input.Urgency,
		ContactInfo:      input.ContactInfo,
	}
	if err := s.provider.Backend(ctx).CreateAdminRequest(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Infow("Admin request submitted", "request_id", req.ID, "user_id", identity.UserID)
	return req, nil
}

// ListRequests returns role-upgrade requests for moderator review.
func (s *AdminService) ListRequests(ctx context.Context, identity core.Identity, status core.RequestStatus) ([]core.AdminRequest, error) {
	if !identity.Role.CanReviewAdminRequests() {
		return nil, core.ErrAccessDenied
	}
	if status != "" && !status.IsValid() {
		return nil, core.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	return s.provider.Backend(ctx).ListAdminRequests(ctx, status)
}

// ReviewRequest records the terminal review outcome. Approval promotes the
// requester to admin; a promotion takes effect on their next connection,
// never retroactively on live ones.
func (s *AdminService) ReviewRequest(ctx context.Context, identity core.Identity, requestID string, approve bool, notes string) (*core.AdminRequest, error) {
	if !identity.Role.CanReviewAdminRequests() {
		return nil, core.ErrAccessDenied
	}

	outcome := core.RequestRejected
	if approve {
		outcome = core.RequestApproved
	}

	store := s.provider.Backend(ctx)
	req, err := store.ReviewAdminRequest(ctx, requestID, outcome, identity.UserID, notes)
	if err != nil {
		return nil, err
	}

	if approve {
		if err := store.UpdateUserRole(ctx, req.UserID, core.RoleAdmin); err != nil {
			return nil, fmt.Errorf("request approved but promotion failed: %w", err)
		}
	}

	n := &core.Notification{
		Recipient: req.UserID,
		Type:      core.NotificationOther,
		Message:   fmt.Sprintf("Your admin request was %s", outcome),
	}
	if err := store.CreateNotification(ctx, n); err != nil {
		s.logger.Errorw("Failed to create review notification",
			"request_id", requestID, "recipient", req.UserID, "error", err)
	} else {
		s.publisher.PublishNotification(ctx, *n)
	}

	s.logger.Infow("Admin request reviewed",
		"request_id", requestID, "outcome", outcome, "reviewer", identity.UserID)
	return req, nil
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalReports         int64 `json:"totalReports"`
	PendingReports       int64 `json:"pendingReports"`
	InvestigatingReports int64 `json:"investigatingReports"`
	ResolvedReports      int64 `json:"resolvedReports"`
	TotalUsers           int64 `json:"totalUsers"`
	ActiveChats          int64 `json:"activeChats"`
}

// GetStats aggregates the dashboard counters. Active chats are rooms whose
// report still accepts messages.
func (s *AdminService) GetStats(ctx context.Context, identity core.Identity) (*Stats, error) {
	if !identity.Role.IsPrivileged() {
		return nil, core.ErrAccessDenied
	}

	store := s.provider.Backend(ctx)
	stats := &Stats{}

	var err error
	if stats.TotalReports, err = store.CountReports(ctx, ""); err != nil {
		return nil, err
	}
	if stats.PendingReports, err = store.CountReports(ctx, core.StatusPending); err != nil {
		return nil, err
	}
	if stats.InvestigatingReports, err = store.CountReports(ctx, core.StatusInvestigating); err != nil {
		return nil, err
	}
	if stats.ResolvedReports, err = store.CountReports(ctx, core.StatusResolved); err != nil {
		return nil, err
	}
	if stats.TotalUsers, err = store.CountUsers(ctx); err != nil {
		return nil, err
	}

	rooms, err := store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	for _, room := range rooms {
		report, err := store.GetReport(ctx, room.ReportID)
		if err != nil {
			continue
		}
		if report.Status.ChatOpen() {
			stats.ActiveChats++
		}
	}

	return stats, nil
}
