package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"campuswatch/core"
	"campuswatch/service"
	"campuswatch/storage"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondJSON writes a JSON response with the given status code
func (a *API) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Errorw("Failed to encode response", "error", err)
	}
}

// respondError maps domain errors onto HTTP statuses. The taxonomy is
// fixed: validation 400, bad credentials 401, denied 403, missing 404,
// conflicts 409, degraded dependencies 503, everything else an opaque 500.
func (a *API) respondError(w http.ResponseWriter, err error) {
	var vErr *core.ValidationError
	switch {
	case errors.As(err, &vErr):
		a.respondJSON(w, http.StatusBadRequest, errorResponse{Error: vErr.Message, Field: vErr.Field})
	case errors.Is(err, service.ErrInvalidCredentials):
		a.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
	case errors.Is(err, core.ErrAccessDenied):
		a.respondJSON(w, http.StatusForbidden, errorResponse{Error: "access denied"})
	case errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrReportNotFound),
		errors.Is(err, storage.ErrRoomNotFound),
		errors.Is(err, storage.ErrNotificationNotFound),
		errors.Is(err, storage.ErrAdminRequestNotFound),
		errors.Is(err, storage.ErrNotFound):
		a.respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case core.IsConflict(err), errors.Is(err, storage.ErrDuplicateEmail), errors.Is(err, storage.ErrDuplicateRoom):
		a.respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrUnavailable):
		a.respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service temporarily unavailable"})
	default:
		// Internal detail stays in the log, not on the wire.
		a.logger.Errorw("Request failed", "error", err)
		a.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// decodeJSON parses a request body into dst and validates struct tags.
func (a *API) decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return core.NewValidationError("body", "invalid JSON body")
	}
	if err := a.validate.Struct(dst); err != nil {
		return core.NewValidationError("body", err.Error())
	}
	return nil
}
