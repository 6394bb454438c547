package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver.
)

// migration represents a single schema migration step.
type migration struct {
	version int
	sql     string
}

// migrations holds all schema migrations in order. Each migration is applied
// exactly once, tracked by the schema_migrations table.
// Version 2 adds the guard against two sent reminders for the same service on
// the same UTC day, which closes most of the check-then-write window between
// overlapping runs.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE clients (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL DEFAULT '',
    email        TEXT NOT NULL DEFAULT '',
    contact_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE services (
    id                    TEXT PRIMARY KEY,
    client_id             TEXT REFERENCES clients(id) ON DELETE SET NULL,
    type                  TEXT NOT NULL DEFAULT '',
    description           TEXT NOT NULL DEFAULT '',
    status                TEXT NOT NULL DEFAULT 'active',
    notifications_enabled INTEGER NOT NULL DEFAULT 1,
    renewal_date          TEXT
);
CREATE INDEX idx_services_renewal ON services(status, notifications_enabled, renewal_date);

CREATE TABLE notifications_log (
    id          TEXT PRIMARY KEY,
    service_id  TEXT NOT NULL,
    kind        TEXT NOT NULL,
    recipient   TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    error_msg   TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL,
    day_bucket  TEXT NOT NULL
);
CREATE INDEX idx_notifications_log_lookup ON notifications_log(service_id, kind, created_at);
`,
	},
	{
		version: 2,
		sql: `
CREATE UNIQUE INDEX idx_notifications_log_sent_once
    ON notifications_log(service_id, kind, day_bucket)
    WHERE status = 'sent';
`,
	},
}

// timestampLayout is the fixed-width UTC layout for created_at. Fixed width
// keeps lexical order equal to chronological order in range queries.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// NewSQLiteDB opens (or creates) the notifier database at dbPath, applies the
// connection pragmas and runs pending migrations. The second return value
// reports whether the schema was created by this call.
func NewSQLiteDB(dbPath string) (*sql.DB, bool, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, false, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, false, fmt.Errorf("opening database: %w", err)
	}

	// SQLite is single-writer; one connection also keeps :memory: databases
	// alive for the lifetime of the handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()

	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return nil, false, errors.Join(fmt.Errorf("setting pragma %q: %w", p, err), db.Close())
		}
	}

	fresh, err := runMigrations(ctx, db)
	if err != nil {
		return nil, false, errors.Join(fmt.Errorf("running migrations: %w", err), db.Close())
	}
	return db, fresh, nil
}

func runMigrations(ctx context.Context, db *sql.DB) (bool, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return false, fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return false, fmt.Errorf("querying current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return false, err
		}
	}
	return current == 0, nil
}

// applyMigration runs one migration and records it in a single transaction.
func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return errors.Join(fmt.Errorf("migration %d: %w", m.version, err), tx.Rollback())
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.version, time.Now().UTC().Format(timestampLayout),
	); err != nil {
		return errors.Join(fmt.Errorf("recording migration %d: %w", m.version, err), tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.version, err)
	}
	return nil
}
