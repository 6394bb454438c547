package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mmdesignweb/crm-notifier/internal/expiration"
	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

// MockNotificationService is a mock implementation of service.NotificationService.
type MockNotificationService struct {
	mock.Mock
}

//nolint:revive
func (m *MockNotificationService) CheckExpirations(ctx context.Context) (*expiration.RunSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*expiration.RunSummary), args.Error(1)
}

//nolint:revive
func (m *MockNotificationService) DryRun(ctx context.Context) (*expiration.RunSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*expiration.RunSummary), args.Error(1)
}

//nolint:revive
func (m *MockNotificationService) UpcomingRenewals(ctx context.Context, days int) ([]storage.Candidate, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Candidate), args.Error(1)
}

//nolint:revive
func (m *MockNotificationService) ListLog(ctx context.Context, limit int) ([]storage.NotificationLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.NotificationLogEntry), args.Error(1)
}

//nolint:revive
func (m *MockNotificationService) SendTestEmail(ctx context.Context, to string) error {
	args := m.Called(ctx, to)
	return args.Error(0)
}
