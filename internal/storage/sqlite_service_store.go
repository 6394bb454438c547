package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore returns a new SQLiteStore using an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// FindExpiring returns the renewal candidates within [from, to].
func (s *SQLiteStore) FindExpiring(ctx context.Context, from, to time.Time) (result []Candidate, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, COALESCE(s.client_id, ''), s.type, s.description, s.status,
		       s.notifications_enabled, s.renewal_date,
		       c.id, c.name, c.email, c.contact_name
		FROM services s
		LEFT JOIN clients c ON c.id = s.client_id
		WHERE s.status = ?
		  AND s.notifications_enabled = 1
		  AND s.renewal_date >= ?
		  AND s.renewal_date <= ?
		ORDER BY s.renewal_date, s.id`,
		string(ServiceStatusActive), from.Format(DateLayout), to.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying expiring services: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	result = []Candidate{}
	for rows.Next() {
		var (
			c       Candidate
			renewal string
			enabled int
			clientID, name, email, contact sql.NullString
		)
		if err := rows.Scan(&c.Service.ID, &c.Service.ClientID, &c.Service.Type,
			&c.Service.Description, &c.Service.Status, &enabled, &renewal,
			&clientID, &name, &email, &contact); err != nil {
			return nil, fmt.Errorf("scanning service row: %w", err)
		}
		c.Service.NotificationsEnabled = enabled != 0
		if c.Service.RenewalDate, err = time.Parse(DateLayout, renewal); err != nil {
			return nil, fmt.Errorf("parsing renewal date of service %q: %w", c.Service.ID, err)
		}
		if clientID.Valid {
			c.Client = &Client{
				ID:          clientID.String,
				Name:        name.String,
				Email:       email.String,
				ContactName: contact.String,
			}
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating service rows: %w", err)
	}
	return result, nil
}

// UpsertClient inserts the client or replaces its fields.
func (s *SQLiteStore) UpsertClient(ctx context.Context, c Client) error {
	if c.ID == "" {
		return errors.New("client id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, email, contact_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    name = excluded.name,
		    email = excluded.email,
		    contact_name = excluded.contact_name`,
		c.ID, c.Name, c.Email, c.ContactName)
	if err != nil {
		return fmt.Errorf("upserting client %q: %w", c.ID, err)
	}
	return nil
}

// UpsertService inserts the service or replaces its fields.
func (s *SQLiteStore) UpsertService(ctx context.Context, svc Service) error {
	if svc.ID == "" {
		return errors.New("service id is required")
	}
	var clientID any
	if svc.ClientID != "" {
		clientID = svc.ClientID
	}
	var renewal any
	if !svc.RenewalDate.IsZero() {
		renewal = svc.RenewalDate.Format(DateLayout)
	}
	status := svc.Status
	if status == "" {
		status = ServiceStatusActive
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (id, client_id, type, description, status, notifications_enabled, renewal_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    client_id = excluded.client_id,
		    type = excluded.type,
		    description = excluded.description,
		    status = excluded.status,
		    notifications_enabled = excluded.notifications_enabled,
		    renewal_date = excluded.renewal_date`,
		svc.ID, clientID, svc.Type, svc.Description, string(status), svc.NotificationsEnabled, renewal)
	if err != nil {
		return fmt.Errorf("upserting service %q: %w", svc.ID, err)
	}
	return nil
}
