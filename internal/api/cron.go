package api

import (
	"net/http"

	"github.com/mmdesignweb/crm-notifier/internal/expiration"
)

// checkResponse is the trigger response body. Count is only set when no
// services were found.
type checkResponse struct {
	Message string                 `json:"message"`
	Count   *int                   `json:"count,omitempty"`
	Found   int                    `json:"found"`
	Sent    int                    `json:"sent"`
	Skipped int                    `json:"skipped"`
	Failed  int                    `json:"failed"`
	Errors  []expiration.ItemError `json:"errors,omitempty"`
	Skips   []expiration.Skip      `json:"skips,omitempty"`
}

func (s *Server) handleCheckExpirations(w http.ResponseWriter, r *http.Request) {
	summary, err := s.notificationSvc.CheckExpirations(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := checkResponse{
		Message: "Cron job execution completed",
		Found:   summary.Found,
		Sent:    summary.Sent,
		Skipped: summary.Skipped,
		Failed:  summary.Failed,
		Errors:  summary.Errors,
		Skips:   summary.Skips,
	}
	if summary.Found == 0 {
		zero := 0
		resp.Message = "No expiring services found"
		resp.Count = &zero
	}
	writeJSON(w, http.StatusOK, resp)
}
