package service

import (
	"context"
	"fmt"
	"time"

	"campuswatch/core"
	"campuswatch/storage"
	"go.uber.org/zap"
)

// ReportService implements the incident report lifecycle: submission with
// best-effort triage, owner edits, privileged status changes, exclusive
// assignment, and the two annotation streams.
type ReportService struct {
	provider  storage.Provider
	publisher Publisher
	logger    *zap.SugaredLogger
}

// NewReportService creates a new report service.
func NewReportService(provider storage.Provider, publisher Publisher, logger *zap.SugaredLogger) *ReportService {
	if provider == nil {
		panic("provider is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &ReportService{provider: provider, publisher: publisher, logger: logger}
}

// SubmitReportInput carries the reporter-supplied fields of a new report.
type SubmitReportInput struct {
	Title        string
	Description  string
	Category     core.Category
	Location     core.Location
	IncidentTime time.Time
	Attachments  []core.Attachment
}

// Submit validates and persists a new report. Triage enriches the record
// but can never block submission: whatever it yields is attached, and the
// reporter's own category always stands when they gave one.
func (s *ReportService) Submit(ctx context.Context, identity core.Identity, input SubmitReportInput) (*core.Report, error) {
	if input.Title == "" {
		return nil, core.NewValidationError("title", "title is required")
	}
	if input.Description == "" {
		return nil, core.NewValidationError("description", "description is required")
	}
	if input.Category != "" && !input.Category.IsValid() {
		return nil, core.NewValidationError("category", fmt.Sprintf("unknown category %q", input.Category))
	}

	triage := core.ClassifyReport(input.Description)

	category := input.Category
	if category == "" {
		category = triage.Category
	}

	report := &core.Report{
		ReporterID:    identity.UserID,
		Title:         input.Title,
		Description:   input.Description,
		Category:      category,
		AutoCategory:  triage.Category,
		Sentiment:     triage.Sentiment,
		Priority:      triage.Priority,
		Status:        core.StatusPending,
		Location:      input.Location,
		IncidentTime:  input.IncidentTime,
		Attachments:   input.Attachments,
		PublicUpdates: []core.PublicUpdate{},
		IsAnonymous:   identity.IsAnonymous,
	}
	if report.IncidentTime.IsZero() {
		report.IncidentTime = time.Now().UTC()
	}

	store := s.provider.Backend(ctx)
	if err := store.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Infow("Report submitted",
		"report_id", report.ID, "category", report.Category,
		"priority", report.Priority, "backend", store.Name())

	s.publisher.PublishReport(ctx, *report)
	return report, nil
}

// Get retrieves a report. Reporters see only their own; privileged roles
// see everything.
func (s *ReportService) Get(ctx context.Context, identity core.Identity, reportID string) (*core.Report, error) {
	report, err := s.provider.Backend(ctx).GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !identity.Role.IsPrivileged() && report.ReporterID != identity.UserID {
		return nil, core.ErrAccessDenied
	}
	return report, nil
}

// List returns reports visible to the caller. Non-privileged callers are
// always scoped to their own reports regardless of the filter they sent.
func (s *ReportService) List(ctx context.Context, identity core.Identity, filters *storage.ReportFilters) ([]core.Report, int64, error) {
	if filters == nil {
		filters = &storage.ReportFilters{}
	}
	if !identity.Role.IsPrivileged() {
		filters.ReporterID = identity.UserID
	}
	return s.provider.Backend(ctx).ListReports(ctx, filters)
}

// Edit overwrites the content fields of a report. Only the owning reporter
// may edit, and only content: attachments and handling state survive every
// edit untouched.
func (s *ReportService) Edit(ctx context.Context, identity core.Identity, reportID string, edit core.ReportEdit) (*core.Report, error) {
	if edit.Title == "" {
		return nil, core.NewValidationError("title", "title is required")
	}
	if edit.Description == "" {
		return nil, core.NewValidationError("description", "description is required")
	}
	if edit.Category != "" && !edit.Category.IsValid() {
		return nil, core.NewValidationError("category", fmt.Sprintf("unknown category %q", edit.Category))
	}

	store := s.provider.Backend(ctx)
	report, err := store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.ReporterID != identity.UserID {
		return nil, core.ErrAccessDenied
	}

	report.Apply(edit, time.Now().UTC())
	if err := store.UpdateReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// SetStatus moves a report to a new lifecycle status and notifies the
// reporter. Any enumerated status is reachable from any other.
func (s *ReportService) SetStatus(ctx context.Context, identity core.Identity, reportID string, status core.ReportStatus) (*core.Report, error) {
	if !identity.Role.CanManageReports() {
		return nil, core.ErrAccessDenied
	}
	if !status.IsValid() {
		return nil, core.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	store := s.provider.Backend(ctx)
	if err := store.SetReportStatus(ctx, reportID, status); err != nil {
		return nil, err
	}
	report, err := store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	// The reporter learns about the change; who made it stays hidden.
	n := &core.Notification{
		Recipient: report.ReporterID,
		Type:      core.NotificationStatus,
		Message:   fmt.Sprintf("Your report %q is now %s", report.Title, status),
		Link:      fmt.Sprintf("/reports/%s", report.ID),
	}
	if err := store.CreateNotification(ctx, n); err != nil {
		s.logger.Errorw("Failed to create status notification",
			"report_id", reportID, "recipient", report.ReporterID, "error", err)
	} else {
		s.publisher.PublishNotification(ctx, *n)
	}

	return report, nil
}

// Assign claims a report for the calling admin. The claim is exclusive and
// first-wins; every later attempt fails, including a retry by the holder.
func (s *ReportService) Assign(ctx context.Context, identity core.Identity, reportID string) (*core.Report, error) {
	if !identity.Role.CanManageReports() {
		return nil, core.ErrAccessDenied
	}

	store := s.provider.Backend(ctx)
	if err := store.AssignReport(ctx, reportID, identity.UserID); err != nil {
		return nil, err
	}

	s.logger.Infow("Report assigned", "report_id", reportID, "assignee", identity.UserID)
	return store.GetReport(ctx, reportID)
}

// AddPrivateNote appends an attributed note visible only to privileged
// actors.
func (s *ReportService) AddPrivateNote(ctx context.Context, identity core.Identity, reportID, note string) (*core.Report, error) {
	if !identity.Role.CanManageReports() {
		return nil, core.ErrAccessDenied
	}
	if note == "" {
		return nil, core.NewValidationError("note", "note is required")
	}

	store := s.provider.Backend(ctx)
	err := store.AddAdminNote(ctx, reportID, core.AdminNote{
		Note:    note,
		AddedBy: identity.UserID,
		AddedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return store.GetReport(ctx, reportID)
}

// AddPublicUpdate appends a reporter-visible update. Updates are anonymous
// on the wire: the stored record carries no author at all.
func (s *ReportService) AddPublicUpdate(ctx context.Context, identity core.Identity, reportID, message string) (*core.Report, error) {
	if !identity.Role.CanManageReports() {
		return nil, core.ErrAccessDenied
	}
	if message == "" {
		return nil, core.NewValidationError("message", "message is required")
	}

	store := s.provider.Backend(ctx)
	err := store.AddPublicUpdate(ctx, reportID, core.PublicUpdate{
		Message: message,
		AddedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return store.GetReport(ctx, reportID)
}
