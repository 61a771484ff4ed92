package students

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/storage/postgres"
	"github.com/aanand-mishra/students-api/internal/storage/sqlite"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, repo *Repository, db storage.DBTX, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, repo.Create(context.Background(), db, name))
	}
}

func TestGet_Found(t *testing.T) {
	db, mock := newMock(t)
	repo := New(sqlite.Dialect{})

	mock.ExpectQuery("SELECT id, name FROM students WHERE id = ?").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(7), "Priya"))

	got, err := repo.Get(context.Background(), db, 7)
	require.NoError(t, err)
	assert.Equal(t, types.Student{ID: 7, Name: "Priya"}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := New(sqlite.Dialect{})

	mock.ExpectQuery("SELECT id, name FROM students WHERE id = ?").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	got, err := repo.Get(context.Background(), db, 404)
	require.ErrorIs(t, err, storage.ErrNotFound)
	assert.Zero(t, got)
}

func TestGet_DBError(t *testing.T) {
	db, mock := newMock(t)
	repo := New(sqlite.Dialect{})

	mock.ExpectQuery("SELECT id, name FROM students WHERE id = ?").
		WithArgs(int64(1)).
		WillReturnError(errors.New("db down"))

	_, err := repo.Get(context.Background(), db, 1)
	require.ErrorIs(t, err, storage.ErrDatabaseUnavailable)
	assert.Contains(t, err.Error(), "db down")
}

func TestGet_PostgresPlaceholders(t *testing.T) {
	db, mock := newMock(t)
	repo := New(postgres.Dialect{})

	mock.ExpectQuery("SELECT id, name FROM students WHERE id = $1").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(3), "Asha"))

	got, err := repo.Get(context.Background(), db, 3)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)
}

func TestList_Statements(t *testing.T) {
	tests := []struct {
		name    string
		dialect storage.Dialect
		page    storage.Page
		query   string
		args    []driver.Value
	}{
		{
			name:    "no pagination",
			dialect: sqlite.Dialect{},
			query:   "SELECT id, name FROM students ORDER BY id",
		},
		{
			name:    "limit only",
			dialect: sqlite.Dialect{},
			page:    storage.Page{Limit: int64p(10)},
			query:   "SELECT id, name FROM students ORDER BY id LIMIT ?",
			args:    []driver.Value{int64(10)},
		},
		{
			name:    "limit and offset",
			dialect: sqlite.Dialect{},
			page:    storage.Page{Limit: int64p(2), Offset: int64p(1)},
			query:   "SELECT id, name FROM students ORDER BY id LIMIT ? OFFSET ?",
			args:    []driver.Value{int64(2), int64(1)},
		},
		{
			name:    "offset only on sqlite binds an unbounded limit",
			dialect: sqlite.Dialect{},
			page:    storage.Page{Offset: int64p(4)},
			query:   "SELECT id, name FROM students ORDER BY id LIMIT ? OFFSET ?",
			args:    []driver.Value{int64(-1), int64(4)},
		},
		{
			name:    "offset only on postgres",
			dialect: postgres.Dialect{},
			page:    storage.Page{Offset: int64p(4)},
			query:   "SELECT id, name FROM students ORDER BY id OFFSET $1",
			args:    []driver.Value{int64(4)},
		},
		{
			name:    "limit and offset on postgres",
			dialect: postgres.Dialect{},
			page:    storage.Page{Limit: int64p(2), Offset: int64p(1)},
			query:   "SELECT id, name FROM students ORDER BY id LIMIT $1 OFFSET $2",
			args:    []driver.Value{int64(2), int64(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := New(tt.dialect)

			exp := mock.ExpectQuery(tt.query)
			if len(tt.args) > 0 {
				exp = exp.WithArgs(tt.args...)
			}
			exp.WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

			got, err := repo.List(context.Background(), db, tt.page)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestList_NegativePaginationIssuesNoQuery(t *testing.T) {
	for _, page := range []storage.Page{
		{Limit: int64p(-1)},
		{Offset: int64p(-5)},
		{Limit: int64p(3), Offset: int64p(-1)},
	} {
		db, mock := newMock(t)
		repo := New(sqlite.Dialect{})

		_, err := repo.List(context.Background(), db, page)
		require.ErrorIs(t, err, storage.ErrInvalidArgument)
		require.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestCreate_BindsName(t *testing.T) {
	db, mock := newMock(t)
	repo := New(sqlite.Dialect{})

	name := "Robert'); DROP TABLE students; --"
	mock.ExpectExec("INSERT INTO students (name) VALUES (?)").
		WithArgs(name).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), db, name))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_ConstraintViolation(t *testing.T) {
	db, mock := newMock(t)
	repo := New(sqlite.Dialect{})

	mock.ExpectExec("INSERT INTO students (name) VALUES (?)").
		WithArgs("dup").
		WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})

	err := repo.Create(context.Background(), db, "dup")
	require.ErrorIs(t, err, storage.ErrConstraintViolation)
	assert.NotErrorIs(t, err, storage.ErrDatabaseUnavailable)
}

func TestSQLite_InjectionIsStoredLiterally(t *testing.T) {
	db := newSQLite(t)
	repo := New(sqlite.Dialect{})
	ctx := context.Background()

	for _, name := range []string{
		"'); DROP TABLE students; --",
		"x'); DROP TABLE users; --",
		`Robert"; DELETE FROM students WHERE "1"="1`,
		"O'Brien",
	} {
		require.NoError(t, repo.Create(ctx, db, name))
	}

	got, err := repo.List(ctx, db, storage.Page{})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "'); DROP TABLE students; --", got[0].Name)
	assert.Equal(t, "x'); DROP TABLE users; --", got[1].Name)
	assert.Equal(t, `Robert"; DELETE FROM students WHERE "1"="1`, got[2].Name)
	assert.Equal(t, "O'Brien", got[3].Name)

	var users int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&users))
	assert.Zero(t, users)
}

func TestSQLite_GetMissing(t *testing.T) {
	db := newSQLite(t)
	repo := New(sqlite.Dialect{})

	got, err := repo.Get(context.Background(), db, 99)
	require.ErrorIs(t, err, storage.ErrNotFound)
	assert.Zero(t, got)
}

func TestSQLite_Pagination(t *testing.T) {
	db := newSQLite(t)
	repo := New(sqlite.Dialect{})
	ctx := context.Background()

	seed(t, repo, db, "s1", "s2", "s3", "s4", "s5")

	all, err := repo.List(ctx, db, storage.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := repo.List(ctx, db, storage.Page{Limit: int64p(2), Offset: int64p(1)})
	require.NoError(t, err)
	assert.Equal(t, []types.Student{{ID: 2, Name: "s2"}, {ID: 3, Name: "s3"}}, page)

	tail, err := repo.List(ctx, db, storage.Page{Offset: int64p(3)})
	require.NoError(t, err)
	assert.Equal(t, []types.Student{{ID: 4, Name: "s4"}, {ID: 5, Name: "s5"}}, tail)

	none, err := repo.List(ctx, db, storage.Page{Limit: int64p(0)})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	one, err := repo.Get(ctx, db, 4)
	require.NoError(t, err)
	assert.Equal(t, types.Student{ID: 4, Name: "s4"}, one)
}
