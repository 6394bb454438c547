package expiration_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mmdesignweb/crm-notifier/internal/expiration"
	"github.com/mmdesignweb/crm-notifier/internal/notification"
	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

// fakeProvider records sent messages and fails for listed recipients.
type fakeProvider struct {
	mu     sync.Mutex
	sent   []notification.Message
	failTo map[string]bool
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Send(_ context.Context, msg notification.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, to := range msg.To {
		if p.failTo[to] {
			return errors.New("mailbox unavailable")
		}
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *fakeProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type recorderStub struct {
	summaries []*expiration.RunSummary
	errs      []error
}

func (r *recorderStub) ObserveRun(s *expiration.RunSummary, err error, _ time.Duration) {
	r.summaries = append(r.summaries, s)
	r.errs = append(r.errs, err)
}

func newSQLiteStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	s := storage.NewSQLiteStore(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testConfig() expiration.Config {
	cfg := expiration.DefaultConfig()
	cfg.StoreTimeout = time.Second
	cfg.SendTimeout = time.Second
	return cfg
}

func seedClient(t *testing.T, s storage.ServiceStore, id, name, email string) {
	t.Helper()
	require.NoError(t, s.UpsertClient(context.Background(), storage.Client{ID: id, Name: name, Email: email}))
}

func seedService(t *testing.T, s storage.ServiceStore, id, clientID string, renewal time.Time) {
	t.Helper()
	require.NoError(t, s.UpsertService(context.Background(), storage.Service{
		ID:                   id,
		ClientID:             clientID,
		Type:                 "hosting",
		Status:               storage.ServiceStatusActive,
		NotificationsEnabled: true,
		RenewalDate:          renewal,
	}))
}
