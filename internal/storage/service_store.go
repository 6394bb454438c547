package storage

import (
	"context"
	"time"
)

// ServiceStatus is the lifecycle state of a contracted service.
type ServiceStatus string

// Service status values. Only active services are considered for reminders.
const (
	ServiceStatusActive    ServiceStatus = "active"
	ServiceStatusPaused    ServiceStatus = "paused"
	ServiceStatusCancelled ServiceStatus = "cancelled"
)

// DateLayout is the calendar date format used for renewal dates at rest.
const DateLayout = "2006-01-02"

// Client is an agency customer that receives renewal reminders.
type Client struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Email       string `json:"email" yaml:"email"`
	ContactName string `json:"contact_name,omitempty" yaml:"contact_name"`
}

// Service is a contracted service with a renewal date.
type Service struct {
	ID                   string        `json:"id"`
	ClientID             string        `json:"client_id"`
	Type                 string        `json:"type"`
	Description          string        `json:"description"`
	Status               ServiceStatus `json:"status"`
	NotificationsEnabled bool          `json:"notifications_enabled"`
	// RenewalDate holds a calendar date at midnight UTC.
	RenewalDate time.Time `json:"renewal_date"`
}

// Candidate is a service due for renewal joined with its client.
// Client is nil when the service has no linked client.
type Candidate struct {
	Service Service `json:"service"`
	Client  *Client `json:"client,omitempty"`
}

// ServiceStore defines read access to services and the client records
// joined to them, plus the upserts used by seed imports.
type ServiceStore interface {
	// FindExpiring returns active, notification-enabled services whose renewal
	// date falls within [from, to] (calendar dates, inclusive).
	FindExpiring(ctx context.Context, from, to time.Time) ([]Candidate, error)
	// UpsertClient creates or replaces a client.
	UpsertClient(ctx context.Context, c Client) error
	// UpsertService creates or replaces a service.
	UpsertService(ctx context.Context, s Service) error
}
