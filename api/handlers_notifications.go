package api

import (
	"net/http"

	"campuswatch/core"
	"github.com/gorilla/mux"
)

// listNotifications returns the caller's inbox, newest first.
func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	notifications, err := a.notifications.List(r.Context(), identity)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, notifications)
}

type createNotificationRequest struct {
	Recipient string                `json:"recipient" validate:"required"`
	Type      core.NotificationType `json:"type"`
	Message   string                `json:"message" validate:"required"`
	Link      string                `json:"link"`
}

// createNotification sends an ad-hoc notification. Privileged only.
func (a *API) createNotification(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req createNotificationRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	n, err := a.notifications.Notify(r.Context(), identity, req.Recipient, req.Type, req.Message, req.Link)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusCreated, n)
}

// markNotificationRead flips the read flag on one of the caller's
// notifications.
func (a *API) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	n, err := a.notifications.MarkRead(r.Context(), identity, mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, n)
}
