package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	db, _, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteStore(db)
}

func TestNewSQLiteDB_CreatesTables(t *testing.T) {
	s := newTestDB(t)

	for _, table := range []string{"clients", "services", "notifications_log", "schema_migrations"} {
		var name string
		err := s.db.QueryRowContext(context.Background(),
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestNewSQLiteDB_MigrationVersion(t *testing.T) {
	s := newTestDB(t)

	var version int
	if err := s.db.QueryRowContext(context.Background(),
		"SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		t.Fatalf("querying version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("expected version %d, got %d", len(migrations), version)
	}
}

func TestNewSQLiteDB_FreshFlagOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifier.db")

	db, fresh, err := NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	if !fresh {
		t.Error("expected fresh=true for new database")
	}
	_ = db.Close()

	db, fresh, err = NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("reopening database: %v", err)
	}
	defer db.Close()
	if fresh {
		t.Error("expected fresh=false for existing database")
	}
}

func TestTimestampLayoutSortsChronologically(t *testing.T) {
	earlier := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC).Format(timestampLayout)
	later := time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC).Format(timestampLayout)
	if len(earlier) != len(later) {
		t.Fatalf("layout is not fixed width: %q vs %q", earlier, later)
	}
	if earlier >= later {
		t.Errorf("expected %q < %q", earlier, later)
	}
}

func TestDayBucketUsesUTC(t *testing.T) {
	madrid := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2026, 6, 10, 1, 0, 0, 0, madrid)
	if got := dayBucket(ts); got != "2026-06-09" {
		t.Errorf("dayBucket = %q, want 2026-06-09", got)
	}
}
