package student

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePool struct{}

func (fakePool) WithConn(ctx context.Context, fn func(ctx context.Context, conn storage.DBTX) error) error {
	return fn(ctx, nil)
}

type fakeRepo struct {
	students []types.Student
	err      error

	gotPage storage.Page
	created []string
}

func (f *fakeRepo) Get(_ context.Context, _ storage.DBTX, id int64) (types.Student, error) {
	if f.err != nil {
		return types.Student{}, f.err
	}
	for _, s := range f.students {
		if s.ID == id {
			return s, nil
		}
	}
	return types.Student{}, fmt.Errorf("Get: %w", storage.ErrNotFound)
}

func (f *fakeRepo) List(_ context.Context, _ storage.DBTX, page storage.Page) ([]types.Student, error) {
	f.gotPage = page
	if f.err != nil {
		return nil, f.err
	}
	return f.students, nil
}

func (f *fakeRepo) Create(_ context.Context, _ storage.DBTX, name string) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, name)
	return nil
}

func TestGetByID(t *testing.T) {
	repo := &fakeRepo{students: []types.Student{{ID: 1, Name: "Rakesh"}}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/students/{id}", GetByID(fakePool{}, repo))

	tests := []struct {
		path string
		want int
	}{
		{"/api/students/1", http.StatusOK},
		{"/api/students/2", http.StatusNotFound},
		{"/api/students/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.want, rec.Code, tt.path)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students/1", nil))
	var got types.Student
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, types.Student{ID: 1, Name: "Rakesh"}, got)
}

func TestGetByID_DatabaseUnavailable(t *testing.T) {
	repo := &fakeRepo{err: fmt.Errorf("Get: %w: %w", storage.ErrDatabaseUnavailable, fmt.Errorf("dial tcp: refused"))}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/students/{id}", GetByID(fakePool{}, repo))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students/1", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "dial tcp")
}

func TestGetList(t *testing.T) {
	repo := &fakeRepo{}
	h := GetList(fakePool{}, repo)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students?limit=2&offset=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.gotPage.Limit)
	require.NotNil(t, repo.gotPage.Offset)
	assert.Equal(t, int64(2), *repo.gotPage.Limit)
	assert.Equal(t, int64(1), *repo.gotPage.Offset)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students?offset=3", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, repo.gotPage.Limit)
}

func TestGetList_EmptyIsArray(t *testing.T) {
	repo := &fakeRepo{students: []types.Student{}}

	rec := httptest.NewRecorder()
	GetList(fakePool{}, repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestGetList_BadPagination(t *testing.T) {
	for _, q := range []string{"limit=-1", "offset=-5", "limit=ten", "offset=1.5"} {
		repo := &fakeRepo{}
		rec := httptest.NewRecorder()
		GetList(fakePool{}, repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"created", `{"name":"Robert'); DROP TABLE students;--"}`, nil, http.StatusCreated},
		{"empty body", ``, nil, http.StatusBadRequest},
		{"malformed", `{"name":`, nil, http.StatusBadRequest},
		{"missing name", `{}`, nil, http.StatusBadRequest},
		{"too long", `{"name":"` + strings.Repeat("a", 256) + `"}`, nil, http.StatusBadRequest},
		{"constraint", `{"name":"x"}`, storage.ErrConstraintViolation, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{err: tt.err}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(tt.body))
			New(fakePool{}, repo).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusCreated {
				assert.Equal(t, []string{"Robert'); DROP TABLE students;--"}, repo.created)
			} else {
				assert.Empty(t, repo.created)
			}
		})
	}
}
