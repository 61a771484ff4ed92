// Package sqlite opens the SQLite pool used by the repositories and
// provides the matching storage.Dialect.
//
// Importing go-sqlite3 registers the "sqlite3" driver with database/sql;
// the package is also used directly to inspect error codes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS students (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT    NOT NULL UNIQUE,
	password_hash BLOB    NOT NULL,
	is_admin      BOOLEAN NOT NULL DEFAULT FALSE
);
`

// Dialect is the storage.Dialect for SQLite.
type Dialect struct{}

// Name is the driver name registered by go-sqlite3.
func (Dialect) Name() string { return "sqlite3" }

// Rebind is the identity: SQLite takes '?' natively.
func (Dialect) Rebind(query string) string { return query }

// OffsetNeedsLimit is true: SQLite rejects OFFSET without LIMIT.
func (Dialect) OffsetNeedsLimit() bool { return true }

// IsConstraint matches SQLITE_CONSTRAINT and all of its extended codes.
func (Dialect) IsConstraint(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint
	}
	return false
}

// Open opens the SQLite database at dsn and creates the tables if they
// do not already exist.
//
// sql.Open does NOT open a real connection yet. The schema Exec below is
// the first round trip and surfaces a bad path early.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: open db: %w", err)
	}

	// Every connection to ":memory:" is a separate database, so the pool
	// must never grow past one.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.Open: create tables: %w", err)
	}

	return db, nil
}
