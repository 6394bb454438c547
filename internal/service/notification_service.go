package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"sync"
	"time"

	"github.com/mmdesignweb/crm-notifier/internal/expiration"
	"github.com/mmdesignweb/crm-notifier/internal/notification"
	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

// Limits for list-style queries.
const (
	MaxUpcomingDays = 365
	MaxLogLimit     = 500
)

// NotificationService exposes the expiration job and its log to the
// HTTP and CLI layers.
type NotificationService interface {
	// CheckExpirations runs the job once. Overlapping calls fail with ConflictError.
	// The run outlives cancellation of ctx and is bounded by the run timeout.
	CheckExpirations(ctx context.Context) (*expiration.RunSummary, error)
	// DryRun evaluates the job without sending or logging.
	DryRun(ctx context.Context) (*expiration.RunSummary, error)
	// UpcomingRenewals lists services renewing within days.
	UpcomingRenewals(ctx context.Context, days int) ([]storage.Candidate, error)
	// ListLog returns the most recent notification log entries.
	ListLog(ctx context.Context, limit int) ([]storage.NotificationLogEntry, error)
	// SendTestEmail delivers a sample reminder to "to", or to the configured
	// default recipient when "to" is empty.
	SendTestEmail(ctx context.Context, to string) error
}

// notificationServiceImpl implements NotificationService.
type notificationServiceImpl struct {
	dispatcher    *expiration.Dispatcher
	store         storage.NotificationStore
	provider      notification.Provider
	defaultTestTo string
	runTimeout    time.Duration
	now           func() time.Time
	logger        *slog.Logger
	running       sync.Mutex
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	dispatcher *expiration.Dispatcher,
	store storage.NotificationStore,
	provider notification.Provider,
	defaultTestTo string,
	runTimeout time.Duration,
	logger *slog.Logger,
) NotificationService {
	return &notificationServiceImpl{
		dispatcher:    dispatcher,
		store:         store,
		provider:      provider,
		defaultTestTo: defaultTestTo,
		runTimeout:    runTimeout,
		now:           time.Now,
		logger:        logger,
	}
}

func (s *notificationServiceImpl) CheckExpirations(ctx context.Context) (*expiration.RunSummary, error) {
	if !s.running.TryLock() {
		return nil, &ConflictError{Resource: "expiration run", Reason: "already in progress"}
	}
	defer s.running.Unlock()

	// A run is never abandoned halfway because the caller went away. Only
	// runTimeout bounds it.
	runCtx := context.WithoutCancel(ctx)
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.runTimeout)
		defer cancel()
	}
	return s.dispatcher.RunExpirationCheck(runCtx, s.now())
}

func (s *notificationServiceImpl) DryRun(ctx context.Context) (*expiration.RunSummary, error) {
	return s.dispatcher.DryRun(ctx, s.now())
}

func (s *notificationServiceImpl) UpcomingRenewals(ctx context.Context, days int) ([]storage.Candidate, error) {
	if days < 0 || days > MaxUpcomingDays {
		return nil, &ValidationError{Field: "days", Message: fmt.Sprintf("must be between 0 and %d", MaxUpcomingDays)}
	}
	return s.dispatcher.UpcomingRenewals(ctx, s.now(), days)
}

func (s *notificationServiceImpl) ListLog(ctx context.Context, limit int) ([]storage.NotificationLogEntry, error) {
	if limit < 0 || limit > MaxLogLimit {
		return nil, &ValidationError{Field: "limit", Message: fmt.Sprintf("must be between 0 and %d", MaxLogLimit)}
	}
	return s.store.ListNotifications(ctx, limit)
}

func (s *notificationServiceImpl) SendTestEmail(ctx context.Context, to string) error {
	if to == "" {
		to = s.defaultTestTo
	}
	if to == "" {
		return &ValidationError{Field: "to", Message: "recipient is required"}
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return &ValidationError{Field: "to", Message: "invalid email address"}
	}

	msg, err := notification.NewTestMessage(addr.Address, s.now())
	if err != nil {
		return err
	}
	if err := s.provider.Send(ctx, msg); err != nil {
		s.logger.Error("test email failed", "to", addr.Address, "provider", s.provider.Name(), "error", err)
		return fmt.Errorf("sending test email: %w", err)
	}
	s.logger.Info("test email sent", "to", addr.Address, "provider", s.provider.Name())
	return nil
}
