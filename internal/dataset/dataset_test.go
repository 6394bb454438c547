package dataset_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mmdesignweb/crm-notifier/internal/dataset"
	"github.com/mmdesignweb/crm-notifier/internal/storage"
	storemocks "github.com/mmdesignweb/crm-notifier/internal/storage/mocks"
)

const seed = `
clients:
  - id: c1
    name: Acme SL
    email: ops@acme.test
    contact_name: Ana
  - id: c2
    name: Sin Correo
services:
  - id: s1
    client_id: c1
    type: seo
    renewal_date: 2026-03-14
  - id: s2
    client_id: c1
    type: hosting
    description: Hosting anual
    status: paused
    renewal_date: 2026-03-15
  - id: s3
    type: web
    notifications_enabled: false
    renewal_date: 2026-03-16
`

func TestLoad(t *testing.T) {
	ds, err := dataset.Load(strings.NewReader(seed))
	require.NoError(t, err)

	require.Len(t, ds.Clients, 2)
	assert.Equal(t, "Ana", ds.Clients[0].ContactName)
	require.Len(t, ds.Services, 3)
	assert.Equal(t, "2026-03-14", ds.Services[0].RenewalDate)

	s1, err := ds.Services[0].Service()
	require.NoError(t, err)
	assert.Equal(t, storage.ServiceStatusActive, s1.Status)
	assert.True(t, s1.NotificationsEnabled)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), s1.RenewalDate)

	s2, err := ds.Services[1].Service()
	require.NoError(t, err)
	assert.Equal(t, storage.ServiceStatusPaused, s2.Status)

	s3, err := ds.Services[2].Service()
	require.NoError(t, err)
	assert.False(t, s3.NotificationsEnabled)
	assert.Empty(t, s3.ClientID)
}

func TestLoad_Empty(t *testing.T) {
	ds, err := dataset.Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, ds.Clients)
	assert.Empty(t, ds.Services)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "unknown key", doc: "clientes: []", wantErr: "decoding dataset"},
		{name: "missing client id", doc: "clients:\n  - name: x", wantErr: "id is required"},
		{name: "duplicate client", doc: "clients:\n  - id: a\n  - id: a", wantErr: `duplicate id "a"`},
		{name: "duplicate service", doc: "services:\n  - id: s\n  - id: s", wantErr: `duplicate id "s"`},
		{name: "unknown client ref", doc: "services:\n  - id: s\n    client_id: ghost", wantErr: `unknown client_id "ghost"`},
		{name: "bad status", doc: "services:\n  - id: s\n    status: expired", wantErr: `unknown status "expired"`},
		{name: "bad date", doc: "services:\n  - id: s\n    renewal_date: 14/03/2026", wantErr: "must be YYYY-MM-DD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dataset.Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestImport_SQLite(t *testing.T) {
	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	store := storage.NewSQLiteStore(db)
	t.Cleanup(func() { _ = store.Close() })

	ds, err := dataset.Load(strings.NewReader(seed))
	require.NoError(t, err)

	ctx := context.Background()
	res, err := dataset.Import(ctx, store, ds)
	require.NoError(t, err)
	assert.Equal(t, dataset.Result{Clients: 2, Services: 3}, res)

	// Re-importing is idempotent.
	_, err = dataset.Import(ctx, store, ds)
	require.NoError(t, err)

	got, err := store.FindExpiring(ctx,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1, "paused and disabled services are excluded")
	assert.Equal(t, "s1", got[0].Service.ID)
	require.NotNil(t, got[0].Client)
	assert.Equal(t, "ops@acme.test", got[0].Client.Email)
}

func TestImport_StopsOnStoreError(t *testing.T) {
	store := new(storemocks.MockServiceStore)
	store.On("UpsertClient", mock.Anything, mock.Anything).Return(nil).Once()
	store.On("UpsertClient", mock.Anything, mock.Anything).Return(errors.New("database is locked")).Once()

	ds, err := dataset.Load(strings.NewReader(seed))
	require.NoError(t, err)

	res, err := dataset.Import(context.Background(), store, ds)
	require.Error(t, err)
	assert.Equal(t, 1, res.Clients)
	assert.Zero(t, res.Services)
	store.AssertNotCalled(t, "UpsertService", mock.Anything, mock.Anything)
}
