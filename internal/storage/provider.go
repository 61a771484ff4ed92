package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Provider hands out pooled connections for one unit of work.
// It does not own the pool: whoever opened the *sql.DB closes it.
type Provider struct {
	db      *sql.DB
	dialect Dialect
}

// NewProvider wraps an open pool.
func NewProvider(db *sql.DB, dialect Dialect) *Provider {
	return &Provider{db: db, dialect: dialect}
}

// Dialect returns the dialect of the underlying pool.
func (p *Provider) Dialect() Dialect {
	return p.dialect
}

// WithConn acquires a connection, runs fn on it and releases the
// connection whether fn succeeds, fails or panics.
func (p *Provider) WithConn(ctx context.Context, fn func(ctx context.Context, conn DBTX) error) (err error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("WithConn: acquire: %w", Classify(p.dialect, err))
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("WithConn: release: %w", Classify(p.dialect, cerr))
		}
	}()

	return fn(ctx, conn)
}

// Ping checks that the pool can reach the database.
func (p *Provider) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return Classify(p.dialect, err)
	}
	return nil
}
