// Package kvstore provides a durable session.KV backed by SQLite.
package kvstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/core/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// SQLite stores keys in a single table. Whichever driver core/sqlite was
// built with is used.
type SQLite struct {
	db      *sql.DB
	timeout time.Duration
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.NewIO("create directory for", path, err)
		}
	}
	db, err := sqlite.OpenFile(context.Background(), path,
		"busy_timeout = 5000", "journal_mode = WAL", "synchronous = NORMAL")
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create kv schema")
	}
	return &SQLite{db: db, timeout: 5 * time.Second}, nil
}

// Get implements session.KV.
func (s *SQLite) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "kv get %s", key)
	}
	return value, true, nil
}

// Set implements session.KV.
func (s *SQLite) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixNano())
	if err != nil {
		return errors.Wrapf(err, "kv set %s", key)
	}
	return nil
}

// Keys implements session.Lister.
func (s *SQLite) Keys(prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`,
		utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "kv keys %s", prefix)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Wrapf(err, "kv keys %s", prefix)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
