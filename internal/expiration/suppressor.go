package expiration

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

// Suppressor answers whether a service was already notified recently.
type Suppressor struct {
	store   storage.NotificationStore
	timeout time.Duration
}

// NewSuppressor returns a Suppressor reading from store.
func NewSuppressor(store storage.NotificationStore, timeout time.Duration) *Suppressor {
	return &Suppressor{store: store, timeout: timeout}
}

// HasRecentNotification reports whether any log entry of kind exists for
// serviceID with created_at in [now-windowDays, now].
func (s *Suppressor) HasRecentNotification(ctx context.Context, serviceID, kind string, now time.Time, windowDays int) (bool, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	since := now.AddDate(0, 0, -windowDays)
	n, err := s.store.CountNotifications(ctx, serviceID, kind, since, now)
	if err != nil {
		return false, fmt.Errorf("checking notification log: %w", err)
	}
	return n > 0, nil
}
