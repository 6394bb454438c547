// Package api implements the HTTP handlers of the notifier.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmdesignweb/crm-notifier/internal/expiration"
	"github.com/mmdesignweb/crm-notifier/internal/service"
)

// Server holds all dependencies for the REST API handlers.
type Server struct {
	notificationSvc service.NotificationService
	cronSecret      string
	logger          *slog.Logger
}

// New creates a new API Server. Every route requires
// "Authorization: Bearer <cronSecret>".
func New(notificationSvc service.NotificationService, cronSecret string, logger *slog.Logger) *Server {
	return &Server{
		notificationSvc: notificationSvc,
		cronSecret:      cronSecret,
		logger:          logger,
	}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(requireBearer(s.cronSecret, s.logger))

		// Scheduler trigger. GET matches hosted cron callers, POST plain HTTP clients.
		r.Get("/cron/check-expirations", s.handleCheckExpirations)
		r.Post("/cron/check-expirations", s.handleCheckExpirations)

		r.Get("/services/expiring", s.handleUpcomingRenewals)

		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/test", s.handleSendTestEmail)
	})
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service and core errors to HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *service.ValidationError
		cerr *service.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &cerr):
		writeError(w, http.StatusConflict, cerr.Error())
	case errors.Is(err, expiration.ErrStoreUnavailable):
		s.logger.ErrorContext(r.Context(), "store unavailable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "store unavailable")
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
