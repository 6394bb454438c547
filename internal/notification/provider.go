// Package notification renders renewal reminders and delivers them through
// pluggable providers (SMTP, log-only, rate limited).
package notification

import "context"

// Message is the content to be delivered by a Provider.
type Message struct {
	To      []string
	Subject string
	// Body is the plain-text part.
	Body string
	// HTML is the optional rich alternative.
	HTML string
}

// Provider is the interface for notification delivery backends.
type Provider interface {
	// Name returns the provider identifier (e.g. "smtp").
	Name() string
	// Send delivers the message using the provider's transport.
	Send(ctx context.Context, msg Message) error
}
