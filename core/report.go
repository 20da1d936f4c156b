package core

import "time"

// ReportStatus represents the lifecycle state of an incident report.
type ReportStatus string

const (
	StatusPending       ReportStatus = "pending"
	StatusUnderReview   ReportStatus = "under_review"
	StatusInvestigating ReportStatus = "investigating"
	StatusResolved      ReportStatus = "resolved"
	StatusClosed        ReportStatus = "closed"
)

// IsValid checks whether the status is one of the enumerated values.
func (s ReportStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusInvestigating, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ChatOpen reports whether the chat room attached to a report in this
// status still accepts messages. Resolved and closed reports have their
// chat disabled.
func (s ReportStatus) ChatOpen() bool {
	return s != StatusResolved && s != StatusClosed
}

// Transitions between statuses are intentionally unrestricted: any admin
// may set any enumerated status at any time, including apparent
// regressions (e.g. resolved back to investigating when new evidence
// arrives). This is a documented contract, not an oversight; callers only
// validate that the value itself is enumerated.

// Priority represents the handling priority of a report.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid checks whether the priority is one of the enumerated values.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Category represents the incident category of a report.
type Category string

const (
	CategoryHarassment         Category = "harassment"
	CategoryAssault            Category = "assault"
	CategoryTheft              Category = "theft"
	CategoryVandalism          Category = "vandalism"
	CategorySuspiciousActivity Category = "suspicious_activity"
	CategoryEmergency          Category = "emergency"
	CategorySafetyHazard       Category = "safety_hazard"
	CategoryDiscrimination     Category = "discrimination"
	CategoryBullying           Category = "bullying"
	CategoryOther              Category = "other"
)

// ValidCategories lists every incident category the system accepts.
var ValidCategories = []Category{
	CategoryHarassment,
	CategoryAssault,
	CategoryTheft,
	CategoryVandalism,
	CategorySuspiciousActivity,
	CategoryEmergency,
	CategorySafetyHazard,
	CategoryDiscrimination,
	CategoryBullying,
	CategoryOther,
}

// IsValid checks whether the category is one of the enumerated values.
func (c Category) IsValid() bool {
	for _, v := range ValidCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Location is the generalized incident location attached to a report.
type Location struct {
	Address  string `json:"address,omitempty" bson:"address,omitempty"`
	Building string `json:"building,omitempty" bson:"building,omitempty"`
	Floor    string `json:"floor,omitempty" bson:"floor,omitempty"`
}

// Attachment describes an uploaded file attached at submission time.
// Attachments are retained across edits; edits never add or replace them.
type Attachment struct {
	Filename     string    `json:"filename" bson:"filename"`
	OriginalName string    `json:"originalName" bson:"original_name"`
	ContentType  string    `json:"contentType" bson:"content_type"`
	Size         int64     `json:"size" bson:"size"`
	UploadedAt   time.Time `json:"uploadedAt" bson:"uploaded_at"`
}

// AdminNote is a private, attributed annotation visible only to privileged
// actors.
type AdminNote struct {
	Note    string    `json:"note" bson:"note"`
	AddedBy string    `json:"addedBy" bson:"added_by"`
	AddedAt time.Time `json:"addedAt" bson:"added_at"`
}

// PublicUpdate is an anonymous annotation visible to the reporter. Updates
// carry no author on purpose: the reporter never learns which admin
// responded.
type PublicUpdate struct {
	Message string    `json:"message" bson:"message"`
	AddedAt time.Time `json:"addedAt" bson:"added_at"`
}

// Report is a submitted incident record carrying a lifecycle status.
// Only the owning reporter may edit content fields; handling fields
// (status, assignee, notes, updates) are mutated by privileged actors.
type Report struct {
	ID          string       `json:"id" bson:"_id,omitempty"`
	ReporterID  string       `json:"reporterId" bson:"reporter_id"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description" bson:"description"`
	Category    Category     `json:"category" bson:"category"`
	// AutoCategory and Sentiment are filled by best-effort triage; both stay
	// empty when triage fails.
	AutoCategory Category     `json:"autoCategory,omitempty" bson:"auto_category,omitempty"`
	Sentiment    Sentiment    `json:"sentiment,omitempty" bson:"sentiment,omitempty"`
	Priority     Priority     `json:"priority" bson:"priority"`
	Status       ReportStatus `json:"status" bson:"status"`
	// AssignedTo identifies at most one handling admin once set. The empty
	// string means unassigned. The set operation is an atomic conditional
	// update in the store, never a read followed by a write.
	AssignedTo    string         `json:"assignedTo,omitempty" bson:"assigned_to,omitempty"`
	Location      Location       `json:"location" bson:"location"`
	IncidentTime  time.Time      `json:"incidentTime" bson:"incident_time"`
	Attachments   []Attachment   `json:"attachments" bson:"attachments"`
	AdminNotes    []AdminNote    `json:"adminNotes,omitempty" bson:"admin_notes,omitempty"`
	PublicUpdates []PublicUpdate `json:"publicUpdates" bson:"public_updates"`
	IsAnonymous   bool           `json:"isAnonymous" bson:"is_anonymous"`
	CreatedAt     time.Time      `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" bson:"updated_at"`
}

// ReportEdit carries the content fields the owning reporter may overwrite.
type ReportEdit struct {
	Title        string
	Description  string
	Category     Category
	Location     Location
	IncidentTime time.Time
}

// Apply overwrites the editable content fields. Attachments and handling
// state are untouched.
func (r *Report) Apply(edit ReportEdit, now time.Time) {
	r.Title = edit.Title
	r.Description = edit.Description
	r.Category = edit.Category
	r.Location = edit.Location
	if !edit.IncidentTime.IsZero() {
		r.IncidentTime = edit.IncidentTime
	}
	r.UpdatedAt = now
}
