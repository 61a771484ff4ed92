// Package students is the data-access layer for the students table.
//
// Every value supplied by a caller reaches the database as a bound
// parameter. Nothing in this file formats caller data into SQL text;
// the only dynamic part of any statement is which fixed clause
// fragments ("LIMIT ?", "OFFSET ?") are appended.
package students

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
)

const (
	queryGet    = "SELECT id, name FROM students WHERE id = ?"
	queryList   = "SELECT id, name FROM students ORDER BY id"
	queryCreate = "INSERT INTO students (name) VALUES (?)"

	// noLimit is bound in place of an absent LIMIT on dialects that only
	// accept OFFSET after LIMIT. SQLite reads a negative limit as "no limit".
	noLimit int64 = -1
)

// Repository runs the student statements for one dialect. It holds no
// connection; callers pass the handle for each call.
type Repository struct {
	dialect storage.Dialect
}

// New returns a Repository for dialect.
func New(dialect storage.Dialect) *Repository {
	return &Repository{dialect: dialect}
}

// Get fetches exactly one student by primary key.
// storage.ErrNotFound is returned when no row matches.
func (r *Repository) Get(ctx context.Context, db storage.DBTX, id int64) (types.Student, error) {
	var student types.Student

	err := db.QueryRowContext(ctx, r.dialect.Rebind(queryGet), id).Scan(
		&student.ID,
		&student.Name,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, fmt.Errorf("Get: no student with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Student{}, fmt.Errorf("Get: scan: %w", storage.Classify(r.dialect, err))
	}

	return student, nil
}

// listQuery builds the list statement and its arguments for page.
func (r *Repository) listQuery(page storage.Page) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(queryList)

	switch {
	case page.Limit != nil:
		b.WriteString(" LIMIT ?")
		args = append(args, *page.Limit)
	case page.Offset != nil && r.dialect.OffsetNeedsLimit():
		b.WriteString(" LIMIT ?")
		args = append(args, noLimit)
	}

	if page.Offset != nil {
		b.WriteString(" OFFSET ?")
		args = append(args, *page.Offset)
	}

	return r.dialect.Rebind(b.String()), args
}

// List returns students ordered by id, optionally paginated.
// Negative pagination values fail with storage.ErrInvalidArgument before
// any query runs. The result is never nil.
func (r *Repository) List(ctx context.Context, db storage.DBTX, page storage.Page) ([]types.Student, error) {
	if err := page.Validate(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	query, args := r.listQuery(page)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: query: %w", storage.Classify(r.dialect, err))
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		var student types.Student
		if err := rows.Scan(&student.ID, &student.Name); err != nil {
			return nil, fmt.Errorf("List: scan row: %w", storage.Classify(r.dialect, err))
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows iteration: %w", storage.Classify(r.dialect, err))
	}

	return students, nil
}

// Create inserts a student. name is bound as a parameter, so quotes,
// semicolons and comment markers are stored verbatim.
func (r *Repository) Create(ctx context.Context, db storage.DBTX, name string) error {
	if _, err := db.ExecContext(ctx, r.dialect.Rebind(queryCreate), name); err != nil {
		return fmt.Errorf("Create: exec: %w", storage.Classify(r.dialect, err))
	}
	return nil
}
