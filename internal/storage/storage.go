// Package storage holds what every SQL repository in this application
// shares: the error taxonomy, the DBTX handle interface, the pooled
// connection provider, and the per-database Dialect.
//
// Repositories never build SQL by formatting caller data into the
// statement. Every value travels as a driver-bound parameter; the only
// thing a Dialect may change is placeholder syntax.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no row matched. Repositories return it instead
	// of a zero-valued record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned before any query is issued.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConstraintViolation wraps unique / not-null / check failures.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrDatabaseUnavailable wraps every other driver failure.
	ErrDatabaseUnavailable = errors.New("database unavailable")
)

// DBTX is the subset of database/sql used by the repositories.
// *sql.DB, *sql.Conn and *sql.Tx all satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect captures the differences between supported databases.
type Dialect interface {
	// Name is the database/sql driver name.
	Name() string

	// Rebind rewrites '?' placeholders into the driver's native form.
	Rebind(query string) string

	// OffsetNeedsLimit reports whether OFFSET is only legal after LIMIT.
	OffsetNeedsLimit() bool

	// IsConstraint reports whether err is an integrity violation.
	IsConstraint(err error) bool
}

// Classify wraps a driver error into the storage taxonomy, keeping the
// original error in the chain.
func Classify(d Dialect, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrConstraintViolation) || errors.Is(err, ErrDatabaseUnavailable) {
		return err
	}
	if d != nil && d.IsConstraint(err) {
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	}
	return fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
}

// Page carries optional pagination. A nil field means "not given".
type Page struct {
	Limit  *int64
	Offset *int64
}

// Validate rejects negative pagination values.
func (p Page) Validate() error {
	if p.Limit != nil && *p.Limit < 0 {
		return fmt.Errorf("%w: limit must be non-negative, got %d", ErrInvalidArgument, *p.Limit)
	}
	if p.Offset != nil && *p.Offset < 0 {
		return fmt.Errorf("%w: offset must be non-negative, got %d", ErrInvalidArgument, *p.Offset)
	}
	return nil
}
