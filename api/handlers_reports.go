package api

import (
	"net/http"
	"strconv"
	"time"

	"campuswatch/core"
	"campuswatch/service"
	"campuswatch/storage"
	"github.com/gorilla/mux"
)

type createReportRequest struct {
	Title        string        `json:"title" validate:"required"`
	Description  string        `json:"description" validate:"required"`
	Category     core.Category `json:"category"`
	Location     core.Location `json:"location"`
	IncidentTime time.Time     `json:"incidentTime"`
}

type listReportsResponse struct {
	Reports []core.Report `json:"reports"`
	Total   int64         `json:"total"`
}

// createReport submits a new incident report.
func (a *API) createReport(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req createReportRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	report, err := a.reports.Submit(r.Context(), identity, service.SubmitReportInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Location:     req.Location,
		IncidentTime: req.IncidentTime,
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusCreated, report)
}

// listReports returns reports visible to the caller, with filters and
// pagination from the query string.
func (a *API) listReports(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	q := r.URL.Query()
	filters := &storage.ReportFilters{
		Category: core.Category(q.Get("category")),
		Status:   core.ReportStatus(q.Get("status")),
		Priority: core.Priority(q.Get("priority")),
	}
	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.respondError(w, core.NewValidationError("skip", "must be a non-negative integer"))
			return
		}
		filters.Skip = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.respondError(w, core.NewValidationError("limit", "must be a non-negative integer"))
			return
		}
		filters.Limit = n
	}
	if v := q.Get("start"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.Start = t
		}
	}
	if v := q.Get("end"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.End = t
		}
	}

	reports, total, err := a.reports.List(r.Context(), identity, filters)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, listReportsResponse{Reports: reports, Total: total})
}

// getReport returns one report.
func (a *API) getReport(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	report, err := a.reports.Get(r.Context(), identity, mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, report)
}

// editReport overwrites a report's content fields. Owner only.
func (a *API) editReport(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req createReportRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	report, err := a.reports.Edit(r.Context(), identity, mux.Vars(r)["id"], core.ReportEdit{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Location:     req.Location,
		IncidentTime: req.IncidentTime,
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, report)
}

type setStatusRequest struct {
	Status core.ReportStatus `json:"status" validate:"required"`
}

// setReportStatus moves a report to a new lifecycle status.
func (a *API) setReportStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req setStatusRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	report, err := a.reports.SetStatus(r.Context(), identity, mux.Vars(r)["id"], req.Status)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, report)
}

// assignReport claims a report for the calling admin.
func (a *API) assignReport(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	report, err := a.reports.Assign(r.Context(), identity, mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, report)
}

type noteRequest struct {
	Note string `json:"note" validate:"required"`
}

// addPrivateNote appends an attributed admin-only note.
func (a *API) addPrivateNote(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req noteRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	report, err := a.reports.AddPrivateNote(r.Context(), identity, mux.Vars(r)["id"], req.Note)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, report)
}

type publicUpdateRequest struct {
	Message string `json:"message" validate:"required"`
}

// addPublicUpdate appends a reporter-visible, anonymous update.
func (a *API) addPublicUpdate(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req publicUpdateRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	report, err := a.reports.AddPublicUpdate(r.Context(), identity, mux.Vars(r)["id"], req.Message)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, report)
}
