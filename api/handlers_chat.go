package api

import (
	"net/http"
	"strconv"

	"campuswatch/core"
	"campuswatch/storage"
	"github.com/gorilla/mux"
)

// getOrCreateRoom returns the single room bound to a report, creating it
// lazily. The caller joins the room as a side effect.
func (a *API) getOrCreateRoom(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	room, err := a.chat.GetOrCreateRoom(r.Context(), identity, mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, room)
}

// listRooms returns the caller's rooms, or all rooms for privileged roles.
func (a *API) listRooms(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	rooms, err := a.chat.ListRooms(r.Context(), identity)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, rooms)
}

// getMessages returns a room's history in ascending order, with optional
// cursor pagination via after and limit query parameters.
func (a *API) getMessages(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	page := storage.MessagePage{After: r.URL.Query().Get("after")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.respondError(w, core.NewValidationError("limit", "must be a non-negative integer"))
			return
		}
		page.Limit = n
	}

	messages, err := a.chat.GetMessages(r.Context(), identity, mux.Vars(r)["id"], page)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, messages)
}

type postMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// postMessage appends a message to the room over plain HTTP. The same
// write path serves websocket sends; delivery always derives from the
// durable write.
func (a *API) postMessage(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req postMessageRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	msg, err := a.chat.PostMessage(r.Context(), identity, mux.Vars(r)["id"], req.Body)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusCreated, msg)
}
