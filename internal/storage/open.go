package storage

import (
	"context"
	"fmt"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the Store for driver. For sqlite, dsn is a file path; for
// postgres it is a connection URL.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		db, _, err := NewSQLiteDB(dsn)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(db), nil
	case DriverPostgres:
		store, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
