package storage

import (
	"context"
	"errors"
	"time"
)

// NotificationStatus is the delivery outcome recorded in the log.
type NotificationStatus string

// Notification status values.
const (
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

// KindExpirationWarning is the log kind used for renewal reminders.
const KindExpirationWarning = "EXPIRATION_WARNING"

// ErrDuplicateNotification is returned by LogNotification when a sent entry
// for the same service and kind already exists for the same UTC day.
var ErrDuplicateNotification = errors.New("notification already logged")

// NotificationLogEntry records a single notification delivery.
type NotificationLogEntry struct {
	ID        string             `json:"id"`
	ServiceID string             `json:"service_id"`
	Kind      string             `json:"kind"`
	Recipient string             `json:"recipient"`
	Status    NotificationStatus `json:"status"`
	ErrorMsg  string             `json:"error_msg,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// NotificationStore defines the interface for the append-only notification log.
type NotificationStore interface {
	// LogNotification appends an entry. It returns ErrDuplicateNotification
	// when the entry collides with an existing sent entry.
	LogNotification(ctx context.Context, entry NotificationLogEntry) error
	// CountNotifications counts entries of any status for (serviceID, kind)
	// whose created_at lies within [since, until].
	CountNotifications(ctx context.Context, serviceID, kind string, since, until time.Time) (int, error)
	// ListNotifications returns the most recent log entries, up to limit.
	ListNotifications(ctx context.Context, limit int) ([]NotificationLogEntry, error)
}

// Store is the full persistence surface used by the notifier.
type Store interface {
	ServiceStore
	NotificationStore
	Close() error
}

// defaultListLimit applies when ListNotifications is called with limit <= 0.
const defaultListLimit = 50

// dayBucket returns the UTC calendar date of t, used by the uniqueness guard.
func dayBucket(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
