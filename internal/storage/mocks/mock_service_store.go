package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

// MockServiceStore is a mock implementation of storage.ServiceStore.
type MockServiceStore struct {
	mock.Mock
}

//nolint:revive
func (m *MockServiceStore) FindExpiring(ctx context.Context, from, to time.Time) ([]storage.Candidate, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Candidate), args.Error(1)
}

//nolint:revive
func (m *MockServiceStore) UpsertClient(ctx context.Context, c storage.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

//nolint:revive
func (m *MockServiceStore) UpsertService(ctx context.Context, s storage.Service) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}
