package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver.
)

// postgresSchema is applied idempotently on open.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS clients (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL DEFAULT '',
    email        TEXT NOT NULL DEFAULT '',
    contact_name TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS services (
    id                    TEXT PRIMARY KEY,
    client_id             TEXT REFERENCES clients(id) ON DELETE SET NULL,
    type                  TEXT NOT NULL DEFAULT '',
    description           TEXT NOT NULL DEFAULT '',
    status                TEXT NOT NULL DEFAULT 'active',
    notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
    renewal_date          DATE
)`,
	`CREATE TABLE IF NOT EXISTS notifications_log (
    id          UUID PRIMARY KEY,
    service_id  TEXT NOT NULL,
    kind        TEXT NOT NULL,
    recipient   TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    error_msg   TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL,
    day_bucket  DATE NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_log_lookup
    ON notifications_log(service_id, kind, created_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_notifications_log_sent_once
    ON notifications_log(service_id, kind, day_bucket)
    WHERE status = 'sent'`,
}

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to dsn and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	for _, stmt := range postgresSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, errors.Join(fmt.Errorf("applying postgres schema: %w", err), db.Close())
		}
	}
	return &PostgresStore{db: db}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type candidateRow struct {
	ID                   string  `db:"id"`
	ClientID             *string `db:"client_id"`
	Type                 string  `db:"type"`
	Description          string  `db:"description"`
	Status               string  `db:"status"`
	NotificationsEnabled bool    `db:"notifications_enabled"`
	RenewalDate          string  `db:"renewal_date"`
	ClientName           *string `db:"client_name"`
	ClientEmail          *string `db:"client_email"`
	ClientContact        *string `db:"client_contact"`
}

// FindExpiring returns the renewal candidates within [from, to].
func (s *PostgresStore) FindExpiring(ctx context.Context, from, to time.Time) ([]Candidate, error) {
	var rows []candidateRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT s.id, c.id AS client_id, s.type, s.description, s.status,
		       s.notifications_enabled, to_char(s.renewal_date, 'YYYY-MM-DD') AS renewal_date,
		       c.name AS client_name, c.email AS client_email, c.contact_name AS client_contact
		FROM services s
		LEFT JOIN clients c ON c.id = s.client_id
		WHERE s.status = $1
		  AND s.notifications_enabled
		  AND s.renewal_date BETWEEN $2::date AND $3::date
		ORDER BY s.renewal_date, s.id`,
		string(ServiceStatusActive), from.Format(DateLayout), to.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying expiring services: %w", err)
	}

	result := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		renewal, err := time.Parse(DateLayout, r.RenewalDate)
		if err != nil {
			return nil, fmt.Errorf("parsing renewal date of service %q: %w", r.ID, err)
		}
		c := Candidate{Service: Service{
			ID:                   r.ID,
			Type:                 r.Type,
			Description:          r.Description,
			Status:               ServiceStatus(r.Status),
			NotificationsEnabled: r.NotificationsEnabled,
			RenewalDate:          renewal,
		}}
		if r.ClientID != nil {
			c.Service.ClientID = *r.ClientID
			c.Client = &Client{
				ID:          *r.ClientID,
				Name:        deref(r.ClientName),
				Email:       deref(r.ClientEmail),
				ContactName: deref(r.ClientContact),
			}
		}
		result = append(result, c)
	}
	return result, nil
}

// UpsertClient inserts the client or replaces its fields.
func (s *PostgresStore) UpsertClient(ctx context.Context, c Client) error {
	if c.ID == "" {
		return errors.New("client id is required")
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO clients (id, name, email, contact_name)
		VALUES (:id, :name, :email, :contact_name)
		ON CONFLICT (id) DO UPDATE SET
		    name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    contact_name = EXCLUDED.contact_name`,
		map[string]any{"id": c.ID, "name": c.Name, "email": c.Email, "contact_name": c.ContactName})
	if err != nil {
		return fmt.Errorf("upserting client %q: %w", c.ID, err)
	}
	return nil
}

// UpsertService inserts the service or replaces its fields.
func (s *PostgresStore) UpsertService(ctx context.Context, svc Service) error {
	if svc.ID == "" {
		return errors.New("service id is required")
	}
	var clientID, renewal *string
	if svc.ClientID != "" {
		clientID = &svc.ClientID
	}
	if !svc.RenewalDate.IsZero() {
		d := svc.RenewalDate.Format(DateLayout)
		renewal = &d
	}
	status := svc.Status
	if status == "" {
		status = ServiceStatusActive
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (id, client_id, type, description, status, notifications_enabled, renewal_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date)
		ON CONFLICT (id) DO UPDATE SET
		    client_id = EXCLUDED.client_id,
		    type = EXCLUDED.type,
		    description = EXCLUDED.description,
		    status = EXCLUDED.status,
		    notifications_enabled = EXCLUDED.notifications_enabled,
		    renewal_date = EXCLUDED.renewal_date`,
		svc.ID, clientID, svc.Type, svc.Description, string(status), svc.NotificationsEnabled, renewal)
	if err != nil {
		return fmt.Errorf("upserting service %q: %w", svc.ID, err)
	}
	return nil
}

// LogNotification inserts a log entry, mapping a unique-index conflict to
// ErrDuplicateNotification.
func (s *PostgresStore) LogNotification(ctx context.Context, entry NotificationLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications_log
		    (id, service_id, kind, recipient, status, error_msg, created_at, day_bucket)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date)
		ON CONFLICT (service_id, kind, day_bucket) WHERE status = 'sent' DO NOTHING`,
		entry.ID, entry.ServiceID, entry.Kind, entry.Recipient, string(entry.Status),
		entry.ErrorMsg, entry.CreatedAt.UTC(), dayBucket(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting notification log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting notification log: %w", err)
	}
	if n == 0 {
		return ErrDuplicateNotification
	}
	return nil
}

// CountNotifications counts log entries for the service and kind inside [since, until].
func (s *PostgresStore) CountNotifications(ctx context.Context, serviceID, kind string, since, until time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM notifications_log
		WHERE service_id = $1 AND kind = $2 AND created_at BETWEEN $3 AND $4`,
		serviceID, kind, since.UTC(), until.UTC())
	if err != nil {
		return 0, fmt.Errorf("counting notifications for service %q: %w", serviceID, err)
	}
	return n, nil
}

// ListNotifications returns the most recent log entries ordered by created_at descending.
func (s *PostgresStore) ListNotifications(ctx context.Context, limit int) ([]NotificationLogEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var rows []struct {
		ID        string    `db:"id"`
		ServiceID string    `db:"service_id"`
		Kind      string    `db:"kind"`
		Recipient string    `db:"recipient"`
		Status    string    `db:"status"`
		ErrorMsg  string    `db:"error_msg"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id::text AS id, service_id, kind, recipient, status, error_msg, created_at
		FROM notifications_log
		ORDER BY created_at DESC, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notification log: %w", err)
	}
	entries := make([]NotificationLogEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, NotificationLogEntry{
			ID:        r.ID,
			ServiceID: r.ServiceID,
			Kind:      r.Kind,
			Recipient: r.Recipient,
			Status:    NotificationStatus(r.Status),
			ErrorMsg:  r.ErrorMsg,
			CreatedAt: r.CreatedAt.UTC(),
		})
	}
	return entries, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
