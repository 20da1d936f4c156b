package api

import (
	"net/http"

	"campuswatch/core"
)

// corsMiddleware handles CORS headers
func (a *API) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := a.config.Server.CORSOrigin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware resolves the bearer token to an identity and attaches it
// to the request context. The token only names the account; role and
// active flag come from the store on every request, so deactivation cuts
// access immediately and promotions apply without a re-login. Routes
// mounted outside the authenticated subrouter never pass through here.
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			a.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing token"})
			return
		}

		claims, err := validateJWT(token, a.config)
		if err != nil {
			a.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}

		user, err := a.auth.GetUser(r.Context(), claims.UserID)
		if err != nil {
			a.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}
		if !user.Active {
			a.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "account deactivated"})
			return
		}

		identity := core.Identity{
			UserID:      user.ID,
			AnonymousID: user.AnonymousID,
			Role:        user.Role,
			IsAnonymous: user.IsAnonymous,
		}
		ctx := withIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs each request at debug level
func (a *API) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debugw("Request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
