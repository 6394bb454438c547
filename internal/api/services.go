package api

import (
	"net/http"
	"strconv"

	"github.com/mmdesignweb/crm-notifier/internal/notification"
	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

const defaultUpcomingDays = 30

type upcomingRenewal struct {
	ServiceID   string `json:"service_id"`
	ServiceName string `json:"service_name"`
	Type        string `json:"type"`
	RenewalDate string `json:"renewal_date"`
	ClientID    string `json:"client_id,omitempty"`
	ClientName  string `json:"client_name,omitempty"`
	ClientEmail string `json:"client_email,omitempty"`
}

func (s *Server) handleUpcomingRenewals(w http.ResponseWriter, r *http.Request) {
	days := defaultUpcomingDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "days must be an integer")
			return
		}
		days = n
	}

	candidates, err := s.notificationSvc.UpcomingRenewals(r.Context(), days)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]upcomingRenewal, 0, len(candidates))
	for _, c := range candidates {
		item := upcomingRenewal{
			ServiceID:   c.Service.ID,
			ServiceName: notification.ServiceDisplayName(c.Service.Description, c.Service.Type),
			Type:        c.Service.Type,
			RenewalDate: c.Service.RenewalDate.Format(storage.DateLayout),
		}
		if c.Client != nil {
			item.ClientID = c.Client.ID
			item.ClientName = c.Client.Name
			item.ClientEmail = c.Client.Email
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}
