// Package postgres opens a PostgreSQL pool through pgx's database/sql
// adapter and provides the matching storage.Dialect.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const schema = `
CREATE TABLE IF NOT EXISTS students (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT      NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT      NOT NULL UNIQUE,
	password_hash BYTEA     NOT NULL,
	is_admin      BOOLEAN   NOT NULL DEFAULT FALSE
);
`

// integrityClass is the SQLSTATE class for integrity constraint violations.
const integrityClass = "23"

// Dialect is the storage.Dialect for PostgreSQL.
type Dialect struct{}

// Name is the driver name registered by pgx/v5/stdlib.
func (Dialect) Name() string { return "pgx" }

// Rebind turns each '?' into $1, $2, ... in order of appearance.
// The statements in this repository carry no '?' inside literals.
func (Dialect) Rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// OffsetNeedsLimit is false: PostgreSQL accepts a lone OFFSET.
func (Dialect) OffsetNeedsLimit() bool { return false }

// IsConstraint matches any SQLSTATE in class 23.
func (Dialect) IsConstraint(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, integrityClass)
	}
	return false
}

// Open connects to dsn, verifies the connection and creates the tables
// if they do not already exist.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres.Open: ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres.Open: create tables: %w", err)
	}

	return db, nil
}
