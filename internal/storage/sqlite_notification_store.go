package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LogNotification inserts a log entry. A second sent entry for the same
// service, kind and UTC day is ignored and reported as ErrDuplicateNotification.
func (s *SQLiteStore) LogNotification(ctx context.Context, entry NotificationLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notifications_log
		    (id, service_id, kind, recipient, status, error_msg, created_at, day_bucket)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ServiceID, entry.Kind, entry.Recipient, string(entry.Status),
		entry.ErrorMsg, entry.CreatedAt.UTC().Format(timestampLayout), dayBucket(entry.CreatedAt),
	)
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
func (s *SQLiteStore) CountNotifications(ctx context.Context, serviceID, kind string, since, until time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications_log
		WHERE service_id = ? AND kind = ? AND created_at >= ? AND created_at <= ?`,
		serviceID, kind,
		since.UTC().Format(timestampLayout), until.UTC().Format(timestampLayout),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting notifications for service %q: %w", serviceID, err)
	}
	return n, nil
}

// ListNotifications returns the most recent log entries ordered by created_at descending.
func (s *SQLiteStore) ListNotifications(ctx context.Context, limit int) (entries []NotificationLogEntry, err error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, kind, recipient, status, error_msg, created_at
		FROM notifications_log
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notification log: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	entries = []NotificationLogEntry{}
	for rows.Next() {
		var (
			e       NotificationLogEntry
			created string
		)
		if err := rows.Scan(&e.ID, &e.ServiceID, &e.Kind, &e.Recipient,
			&e.Status, &e.ErrorMsg, &created); err != nil {
			return nil, fmt.Errorf("scanning notification log row: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timestampLayout, created); err != nil {
			return nil, fmt.Errorf("parsing created_at of entry %q: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notification log rows: %w", err)
	}
	return entries, nil
}
