package expiration_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mmdesignweb/crm-notifier/internal/expiration"
	"github.com/mmdesignweb/crm-notifier/internal/notification"
	"github.com/mmdesignweb/crm-notifier/internal/storage"
	"github.com/mmdesignweb/crm-notifier/internal/storage/mocks"
)

func newDispatcher(t *testing.T, cfg expiration.Config, services storage.ServiceStore,
	log storage.NotificationStore, p *fakeProvider, opts ...expiration.Option) *expiration.Dispatcher {
	t.Helper()
	d, err := expiration.NewDispatcher(cfg, services, log, p, opts...)
	require.NoError(t, err)
	return d
}

func TestNewDispatcher_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SuppressionWindowDays = cfg.LookaheadDays

	_, err := expiration.NewDispatcher(cfg, newSQLiteStore(t), newSQLiteStore(t), &fakeProvider{})
	assert.ErrorIs(t, err, expiration.ErrInvalidConfig)
}

// A service renewing in three days is notified once; an immediate second run
// finds the log entry and sends nothing.
func TestDispatcher_SendsOnceAcrossRuns(t *testing.T) {
	store := newSQLiteStore(t)
	seedClient(t, store, "c1", "Panadería Sol", "sol@example.com")
	seedService(t, store, "s1", "c1", day(2026, 3, 13))

	provider := &fakeProvider{}
	d := newDispatcher(t, testConfig(), store, store, provider)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	first, err := d.RunExpirationCheck(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Found)
	assert.Equal(t, 1, first.Sent)
	assert.Empty(t, first.Errors)

	require.Len(t, provider.sent, 1)
	msg := provider.sent[0]
	assert.Equal(t, []string{"sol@example.com"}, msg.To)
	assert.Equal(t, "Aviso Importante: Renovación de Servicio - Panadería Sol", msg.Subject)
	assert.Contains(t, msg.Body, "Hosting")
	assert.Contains(t, msg.Body, "13/03/2026")

	entries, err := store.ListNotifications(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "s1", entries[0].ServiceID)
	assert.Equal(t, storage.KindExpirationWarning, entries[0].Kind)
	assert.Equal(t, "sol@example.com", entries[0].Recipient)
	assert.Equal(t, storage.NotificationStatusSent, entries[0].Status)

	second, err := d.RunExpirationCheck(context.Background(), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, second.Found)
	assert.Equal(t, 0, second.Sent)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, []expiration.Skip{{ServiceID: "s1", Reason: expiration.SkipAlreadyNotified}}, second.Skips)
	assert.Equal(t, 1, provider.count())
}

// A reminder sent eight days before renewal suppresses the runs of the
// following days up to the renewal date.
func TestDispatcher_SuppressesAcrossTheLookahead(t *testing.T) {
	store := newSQLiteStore(t)
	seedClient(t, store, "c1", "Cliente", "c@example.com")
	seedService(t, store, "s1", "c1", day(2026, 3, 17))

	provider := &fakeProvider{}
	d := newDispatcher(t, testConfig(), store, store, provider)

	for i := 0; i <= 7; i++ {
		now := time.Date(2026, 3, 10+i, 8, 0, 0, 0, time.UTC)
		_, err := d.RunExpirationCheck(context.Background(), now)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, provider.count())
}

func TestDispatcher_SkipsWithoutContact(t *testing.T) {
	store := newSQLiteStore(t)
	seedClient(t, store, "c1", "Sin Correo", "  ")
	seedService(t, store, "no-email", "c1", day(2026, 3, 12))
	seedService(t, store, "no-client", "", day(2026, 3, 12))

	provider := &fakeProvider{}
	d := newDispatcher(t, testConfig(), store, store, provider)

	summary, err := d.RunExpirationCheck(context.Background(), time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Found)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, []expiration.Skip{
		{ServiceID: "no-client", Reason: expiration.SkipNoClient},
		{ServiceID: "no-email", Reason: expiration.SkipNoEmail},
	}, summary.Skips)
	assert.Zero(t, provider.count())

	entries, err := store.ListNotifications(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// A send failure for one client leaves no log entry, does not stop the
// others and is retried by the next run.
func TestDispatcher_SendFailureIsIsolated(t *testing.T) {
	store := newSQLiteStore(t)
	seedClient(t, store, "a", "Cliente A", "a@example.com")
	seedClient(t, store, "b", "Cliente B", "b@example.com")
	seedService(t, store, "sa", "a", day(2026, 3, 11))
	seedService(t, store, "sb", "b", day(2026, 3, 12))

	provider := &fakeProvider{failTo: map[string]bool{"a@example.com": true}}
	rec := &recorderStub{}
	d := newDispatcher(t, testConfig(), store, store, provider, expiration.WithRecorder(rec))
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	summary, err := d.RunExpirationCheck(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Found)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "sa", summary.Errors[0].ServiceID)
	assert.Contains(t, summary.Errors[0].Error, "mailbox unavailable")

	n, err := store.CountNotifications(context.Background(), "sa", storage.KindExpirationWarning, now.AddDate(0, 0, -1), now)
	require.NoError(t, err)
	assert.Zero(t, n)

	provider.failTo = nil
	retry, err := d.RunExpirationCheck(context.Background(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Sent)
	assert.Equal(t, 1, retry.Skipped)

	require.Len(t, rec.summaries, 2)
	assert.NoError(t, rec.errs[0])
	assert.Same(t, summary, rec.summaries[0])
}

func TestDispatcher_ScanFailureIsFatal(t *testing.T) {
	services := new(mocks.MockServiceStore)
	services.On("FindExpiring", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	log := new(mocks.MockNotificationStore)
	provider := &fakeProvider{}
	rec := &recorderStub{}

	d := newDispatcher(t, testConfig(), services, log, provider, expiration.WithRecorder(rec))
	summary, err := d.RunExpirationCheck(context.Background(), time.Now())
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, expiration.ErrStoreUnavailable)
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], expiration.ErrStoreUnavailable)
	assert.Nil(t, rec.summaries[0])
	log.AssertNotCalled(t, "CountNotifications", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_NoCandidates(t *testing.T) {
	store := newSQLiteStore(t)
	d := newDispatcher(t, testConfig(), store, store, &fakeProvider{})

	summary, err := d.RunExpirationCheck(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Found)
	assert.Nil(t, summary.Errors)
}

func candidate(id, email string) storage.Candidate {
	return storage.Candidate{
		Service: storage.Service{ID: id, Type: "domain", RenewalDate: day(2026, 3, 12)},
		Client:  &storage.Client{ID: "c-" + id, Name: "Cliente " + id, Email: email},
	}
}

func TestDispatcher_SuppressionErrorIsPerCandidate(t *testing.T) {
	services := new(mocks.MockServiceStore)
	services.On("FindExpiring", mock.Anything, mock.Anything, mock.Anything).Return([]storage.Candidate{
		candidate("s1", "one@example.com"),
		candidate("s2", "two@example.com"),
	}, nil)
	log := new(mocks.MockNotificationStore)
	log.On("CountNotifications", mock.Anything, "s1", mock.Anything, mock.Anything, mock.Anything).
		Return(0, errors.New("database is locked"))
	log.On("CountNotifications", mock.Anything, "s2", mock.Anything, mock.Anything, mock.Anything).Return(0, nil)
	log.On("LogNotification", mock.Anything, mock.MatchedBy(func(e storage.NotificationLogEntry) bool {
		return e.ServiceID == "s2" && e.Recipient == "two@example.com" && e.Status == storage.NotificationStatusSent
	})).Return(nil)

	provider := &fakeProvider{}
	d := newDispatcher(t, testConfig(), services, log, provider)

	summary, err := d.RunExpirationCheck(context.Background(), time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "s1", summary.Errors[0].ServiceID)
	assert.Contains(t, summary.Errors[0].Error, "database is locked")
	assert.Equal(t, 1, provider.count())
	log.AssertExpectations(t)
}

func TestDispatcher_LogWriteOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		logErr      error
		wantSent    int
		wantSkipped int
		wantErrors  int
	}{
		{"logged", nil, 1, 0, 0},
		{"conflict with concurrent run", storage.ErrDuplicateNotification, 0, 1, 0},
		{"log write failed", errors.New("disk full"), 1, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			services := new(mocks.MockServiceStore)
			services.On("FindExpiring", mock.Anything, mock.Anything, mock.Anything).
				Return([]storage.Candidate{candidate("s1", "one@example.com")}, nil)
			log := new(mocks.MockNotificationStore)
			log.On("CountNotifications", mock.Anything, "s1", mock.Anything, mock.Anything, mock.Anything).Return(0, nil)
			log.On("LogNotification", mock.Anything, mock.Anything).Return(tt.logErr)

			provider := &fakeProvider{}
			d := newDispatcher(t, testConfig(), services, log, provider)

			summary, err := d.RunExpirationCheck(context.Background(), time.Now())
			require.NoError(t, err)
			assert.Equal(t, 1, provider.count())
			assert.Equal(t, tt.wantSent, summary.Sent)
			assert.Equal(t, tt.wantSkipped, summary.Skipped)
			assert.Len(t, summary.Errors, tt.wantErrors)
			assert.Zero(t, summary.Failed)
			if tt.wantErrors > 0 {
				assert.Contains(t, summary.Errors[0].Error, "reminder sent but not logged")
			}
		})
	}
}

func TestDispatcher_DryRun(t *testing.T) {
	store := newSQLiteStore(t)
	seedClient(t, store, "c1", "Cliente", "c@example.com")
	seedService(t, store, "s1", "c1", day(2026, 3, 12))

	provider := &fakeProvider{}
	d := newDispatcher(t, testConfig(), store, store, provider)

	summary, err := d.DryRun(context.Background(), time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Sent)
	assert.Zero(t, provider.count())

	entries, err := store.ListNotifications(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDispatcher_BoundedConcurrency(t *testing.T) {
	store := newSQLiteStore(t)
	failing := map[string]bool{}
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("s%02d", i)
		email := fmt.Sprintf("client%02d@example.com", i)
		seedClient(t, store, "c"+id, "Cliente "+id, email)
		seedService(t, store, id, "c"+id, day(2026, 3, 10+i%7))
		if i%4 == 0 {
			failing[email] = true
		}
	}

	cfg := testConfig()
	cfg.Concurrency = expiration.MaxConcurrency
	provider := &fakeProvider{failTo: failing}
	d := newDispatcher(t, cfg, store, store, provider)

	summary, err := d.RunExpirationCheck(context.Background(), time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 12, summary.Found)
	assert.Equal(t, 9, summary.Sent)
	assert.Equal(t, 3, summary.Failed)
	assert.Equal(t, summary.Found, summary.Sent+summary.Skipped+summary.Failed)

	ids := make([]string, 0, len(summary.Errors))
	for _, e := range summary.Errors {
		ids = append(ids, e.ServiceID)
	}
	assert.Equal(t, []string{"s00", "s04", "s08"}, ids)
}

func TestDispatcher_UpcomingRenewals(t *testing.T) {
	store := newSQLiteStore(t)
	seedClient(t, store, "c1", "Cliente", "c@example.com")
	seedService(t, store, "soon", "c1", day(2026, 3, 12))
	seedService(t, store, "later", "c1", day(2026, 4, 5))

	d := newDispatcher(t, testConfig(), store, store, &fakeProvider{})
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	got, err := d.UpcomingRenewals(context.Background(), now, 30)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = d.UpcomingRenewals(context.Background(), now, 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "soon", got[0].Service.ID)
}

// cancelOnSend cancels the run context from inside Send, as a dropped HTTP
// connection or SIGTERM would right after the SMTP server accepted the mail.
type cancelOnSend struct {
	fakeProvider
	cancel context.CancelFunc
}

func (p *cancelOnSend) Send(ctx context.Context, msg notification.Message) error {
	p.cancel()
	return p.fakeProvider.Send(ctx, msg)
}

func TestDispatcher_LogsDeliveryAfterCallerCancels(t *testing.T) {
	store := newSQLiteStore(t)
	seedClient(t, store, "c1", "Cliente", "c@example.com")
	seedService(t, store, "s1", "c1", day(2026, 3, 13))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider := &cancelOnSend{cancel: cancel}
	d, err := expiration.NewDispatcher(testConfig(), store, store, provider)
	require.NoError(t, err)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	first, err := d.RunExpirationCheck(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sent)
	assert.Empty(t, first.Errors)

	n, err := store.CountNotifications(context.Background(), "s1", storage.KindExpirationWarning, now.AddDate(0, 0, -1), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	second, err := d.RunExpirationCheck(context.Background(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, second.Sent)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, provider.count())
}

// S1 renews in three days and is notified; S2 renews in ten days, outside
// the seven-day lookahead, and is not even a candidate.
func TestDispatcher_OnlyServicesInsideLookahead(t *testing.T) {
	store := newSQLiteStore(t)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	seedClient(t, store, "c1", "Cliente A", "a@x.com")
	seedClient(t, store, "c2", "Cliente B", "b@x.com")
	seedService(t, store, "S1", "c1", day(2026, 3, 13))
	seedService(t, store, "S2", "c2", day(2026, 3, 20))

	provider := &fakeProvider{}
	cfg := testConfig()
	cfg.LookaheadDays = 7
	d := newDispatcher(t, cfg, store, store, provider)

	summary, err := d.RunExpirationCheck(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Found)
	assert.Equal(t, 1, summary.Sent)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Failed)

	require.Len(t, provider.sent, 1)
	assert.Equal(t, []string{"a@x.com"}, provider.sent[0].To)

	entries, err := store.ListNotifications(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "S1", entries[0].ServiceID)
	assert.Equal(t, "EXPIRATION_WARNING", entries[0].Kind)
	assert.Equal(t, storage.NotificationStatusSent, entries[0].Status)
}
