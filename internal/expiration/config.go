// Package expiration finds services approaching renewal, suppresses
// duplicate reminders and dispatches the rest through a notifier.
package expiration

import (
	"errors"
	"fmt"
	"time"

	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

// MaxConcurrency caps how many candidates a run processes in parallel.
const MaxConcurrency = 5

// Config holds the tunables of an expiration run.
type Config struct {
	// LookaheadDays is the size of the renewal window after today.
	LookaheadDays int
	// SuppressionWindowDays must be larger than LookaheadDays so that one
	// renewal cycle produces a single reminder.
	SuppressionWindowDays int
	// Kind tags log entries written by this job.
	Kind string
	// Concurrency is the number of candidates processed at once.
	Concurrency int
	// StoreTimeout bounds each store call.
	StoreTimeout time.Duration
	// SendTimeout bounds each notifier call.
	SendTimeout time.Duration
	// Location defines which calendar day "today" is.
	Location *time.Location
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		LookaheadDays:         7,
		SuppressionWindowDays: 15,
		Kind:                  storage.KindExpirationWarning,
		Concurrency:           1,
		StoreTimeout:          10 * time.Second,
		SendTimeout:           30 * time.Second,
		Location:              time.UTC,
	}
}

// Validate reports every invalid setting, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if c.LookaheadDays < 0 {
		errs = append(errs, fmt.Errorf("lookahead days must not be negative, got %d", c.LookaheadDays))
	}
	if c.SuppressionWindowDays <= c.LookaheadDays {
		errs = append(errs, fmt.Errorf("suppression window (%d days) must exceed lookahead (%d days)",
			c.SuppressionWindowDays, c.LookaheadDays))
	}
	if c.Kind == "" {
		errs = append(errs, errors.New("notification kind is required"))
	}
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		errs = append(errs, fmt.Errorf("concurrency must be between 1 and %d, got %d", MaxConcurrency, c.Concurrency))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("store timeout must be positive"))
	}
	if c.SendTimeout <= 0 {
		errs = append(errs, errors.New("send timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}
