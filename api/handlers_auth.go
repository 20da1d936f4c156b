package api

import (
	"net/http"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	CampusID string `json:"campusId"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// register creates a registered account and returns a session token.
func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	user, err := a.auth.Register(r.Context(), req.Email, req.Password, req.CampusID)
	if err != nil {
		a.respondError(w, err)
		return
	}

	token, err := generateJWT(user, a.config)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// registerAnonymous creates an anonymous account and returns its token.
// Anonymous reporters hold real accounts; only identity handling differs.
func (a *API) registerAnonymous(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.RegisterAnonymous(r.Context())
	if err != nil {
		a.respondError(w, err)
		return
	}

	token, err := generateJWT(user, a.config)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// login verifies credentials and returns a session token.
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	user, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.respondError(w, err)
		return
	}

	token, err := generateJWT(user, a.config)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// me returns the account behind the caller's token.
func (a *API) me(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	user, err := a.auth.GetUser(r.Context(), identity.UserID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, user)
}
