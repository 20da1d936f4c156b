// Package api exposes the HTTP and websocket surface: authentication,
// report lifecycle, per-report chat, notifications, and the admin review
// endpoints.
package api

import (
	"context"
	"net/http"

	"campuswatch/config"
	"campuswatch/service"
	"campuswatch/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// API holds the API server
type API struct {
	router        *mux.Router
	server        *http.Server
	auth          *service.AuthService
	reports       *service.ReportService
	chat          *service.ChatService
	notifications *service.NotificationService
	admin         *service.AdminService
	provider      storage.Provider
	hub           *Hub
	config        *config.Config
	logger        *zap.SugaredLogger
	validate      *validator.Validate
}

// NewAPI creates a new API server
func NewAPI(
	auth *service.AuthService,
	reports *service.ReportService,
	chat *service.ChatService,
	notifications *service.NotificationService,
	admin *service.AdminService,
	provider storage.Provider,
	hub *Hub,
	cfg *config.Config,
	logger *zap.SugaredLogger,
) *API {
	api := &API{
		router:        mux.NewRouter(),
		auth:          auth,
		reports:       reports,
		chat:          chat,
		notifications: notifications,
		admin:         admin,
		provider:      provider,
		hub:           hub,
		config:        cfg,
		logger:        logger,
		validate:      validator.New(),
	}
	api.setupRoutes()
	return api
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.corsMiddleware)
	a.router.Use(a.loggingMiddleware)

	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.HandleFunc("/api/auth/register", a.register).Methods("POST")
	a.router.HandleFunc("/api/auth/anonymous", a.registerAnonymous).Methods("POST")
	a.router.HandleFunc("/api/auth/login", a.login).Methods("POST")

	authed := a.router.PathPrefix("/api").Subrouter()
	authed.Use(a.authMiddleware)

	authed.HandleFunc("/auth/me", a.me).Methods("GET")

	authed.HandleFunc("/reports", a.createReport).Methods("POST")
	authed.HandleFunc("/reports", a.listReports).Methods("GET")
	authed.HandleFunc("/reports/{id}", a.getReport).Methods("GET")
	authed.HandleFunc("/reports/{id}", a.editReport).Methods("PUT")
	authed.HandleFunc("/reports/{id}/status", a.setReportStatus).Methods("PATCH")
	authed.HandleFunc("/reports/{id}/assign", a.assignReport).Methods("POST")
	authed.HandleFunc("/reports/{id}/notes", a.addPrivateNote).Methods("POST")
	authed.HandleFunc("/reports/{id}/updates", a.addPublicUpdate).Methods("POST")
	authed.HandleFunc("/reports/{id}/chat", a.getOrCreateRoom).Methods("POST")

	authed.HandleFunc("/chat/rooms", a.listRooms).Methods("GET")
	authed.HandleFunc("/chat/rooms/{id}/messages", a.getMessages).Methods("GET")
	authed.HandleFunc("/chat/rooms/{id}/messages", a.postMessage).Methods("POST")

	authed.HandleFunc("/notifications", a.listNotifications).Methods("GET")
	authed.HandleFunc("/notifications", a.createNotification).Methods("POST")
	authed.HandleFunc("/notifications/{id}/read", a.markNotificationRead).Methods("POST")

	authed.HandleFunc("/admin/stats", a.getStats).Methods("GET")
	authed.HandleFunc("/admin/requests", a.submitAdminRequest).Methods("POST")
	authed.HandleFunc("/admin/requests", a.listAdminRequests).Methods("GET")
	authed.HandleFunc("/admin/requests/{id}/review", a.reviewAdminRequest).Methods("POST")

	// Websocket upgrade authenticates via the token query parameter.
	a.router.HandleFunc("/ws", a.serveWs).Methods("GET")
}

// Router exposes the configured handler for tests and embedding.
func (a *API) Router() http.Handler {
	return a.router
}

// Start starts the API server
func (a *API) Start(addr string) error {
	a.server = &http.Server{
		Addr:    addr,
		Handler: a.router,
	}
	a.logger.Infow("API server starting", "addr", addr)
	return a.server.ListenAndServe()
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}

// healthCheck reports process liveness and which backend requests are
// currently routed to.
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	backend := a.provider.Backend(r.Context())
	a.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": backend.Name(),
	})
}
