package api

import (
	"net/http"

	"campuswatch/core"
	"campuswatch/service"
	"github.com/gorilla/mux"
)

// getStats returns the admin dashboard counters.
func (a *API) getStats(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	stats, err := a.admin.GetStats(r.Context(), identity)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, stats)
}

type adminRequestRequest struct {
	Reason           string       `json:"reason" validate:"required"`
	Department       string       `json:"department"`
	Experience       string       `json:"experience"`
	Responsibilities string       `json:"responsibilities"`
	Urgency          core.Urgency `json:"urgency"`
	ContactInfo      string       `json:"contactInfo"`
}

// submitAdminRequest files an application for the admin role.
func (a *API) submitAdminRequest(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req adminRequestRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	request, err := a.admin.SubmitRequest(r.Context(), identity, service.AdminRequestInput{
		Reason:           req.Reason,
		Department:       req.Department,
		Experience:       req.Experience,
		Responsibilities: req.Responsibilities,
		Urgency:          req.Urgency,
		ContactInfo:      req.ContactInfo,
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusCreated, request)
}

// listAdminRequests returns role-upgrade requests for moderator review,
// optionally filtered by status.
func (a *API) listAdminRequests(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	status := core.RequestStatus(r.URL.Query().Get("status"))
	requests, err := a.admin.ListRequests(r.Context(), identity, status)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, requests)
}

type reviewRequestRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// reviewAdminRequest records a moderator's terminal review outcome.
func (a *API) reviewAdminRequest(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req reviewRequestRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	request, err := a.admin.ReviewRequest(r.Context(), identity, mux.Vars(r)["id"], req.Approve, req.Notes)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, request)
}
