// Package sqlite opens SQLite databases through either the pure Go
// modernc.org/sqlite driver or the CGO mattn/go-sqlite3 driver.
//
// Build modes:
//   - Default: modernc.org/sqlite, registered as "sqlite"
//   - CGO (CGO_ENABLED=1 -tags cgo_sqlite): mattn/go-sqlite3, registered as "sqlite3"
//
// Use Open or OpenFile instead of sql.Open so the driver name always
// matches the driver compiled in.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Open opens dsn with the compiled-in driver. No connection is made yet.
func Open(dsn string) (*sql.DB, error) {
	return sql.Open(driverName, dsn)
}

// OpenFile opens dsn on a single connection, applies pragmas to it and
// checks that the database answers. Pragmas are per connection, so the
// pool is never allowed to grow.
func OpenFile(ctx context.Context, dsn string, pragmas ...string) (*sql.DB, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}
	if err := Pragmas(db, pragmas...); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Pragmas applies each statement as "PRAGMA <p>" in order, stopping at the
// first failure.
func Pragmas(db *sql.DB, pragmas ...string) error {
	for _, p := range pragmas {
		if _, err := db.Exec("PRAGMA " + p); err != nil {
			return fmt.Errorf("sqlite: PRAGMA %s: %w", p, err)
		}
	}
	return nil
}

// Driver describes the compiled-in driver, e.g.
// "modernc.org/sqlite (purego)".
func Driver() string {
	return driverPackage + " (" + driverType + ")"
}
