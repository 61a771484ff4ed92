// Package student contains all HTTP handlers related to the Student resource.
//
// Handlers are built by factory functions that close over their
// dependencies:
//
//	router.HandleFunc("GET /api/students", student.GetList(pool, repo))
//
// Each request acquires one pooled connection for its repository call
// and releases it before the response is written.
package student

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/aanand-mishra/students-api/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

// Repository is satisfied by *students.Repository.
type Repository interface {
	Get(ctx context.Context, db storage.DBTX, id int64) (types.Student, error)
	List(ctx context.Context, db storage.DBTX, page storage.Page) ([]types.Student, error)
	Create(ctx context.Context, db storage.DBTX, name string) error
}

// ConnProvider is satisfied by *storage.Provider.
type ConnProvider interface {
	WithConn(ctx context.Context, fn func(ctx context.Context, conn storage.DBTX) error) error
}

var validate = validator.New()

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
//
// Request body (JSON):
//
//	{ "name": "Rakesh" }
//
// Success response (201 Created):
//
//	{ "status": "ok" }
//
// Error responses:
//
//	400 Bad Request  empty body, malformed JSON, or failed validation
//	409 Conflict     constraint violation
//	503 Unavailable  database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(pool ConnProvider, repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		var student types.NewStudent

		err := json.NewDecoder(r.Body).Decode(&student)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := validate.Struct(student); err != nil {
			var validateErrs validator.ValidationErrors
			if errors.As(err, &validateErrs) {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		err = pool.WithConn(r.Context(), func(ctx context.Context, conn storage.DBTX) error {
			return repo.Create(ctx, conn, student.Name)
		})
		if err != nil {
			slog.Error("error creating student", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		slog.Info("student created")
		response.WriteJSON(w, http.StatusCreated, response.OK())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/students/{id}
//
// Success response (200 OK):
//
//	{ "id": 1, "name": "Rakesh" }
//
// Error responses:
//
//	400 Bad Request  id is not a valid integer
//	404 Not Found    no such student
//	503 Unavailable  database error
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(pool ConnProvider, repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("getting a student", slog.String("id", id))

		intID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid id: must be an integer")))
			return
		}

		var student types.Student
		err = pool.WithConn(r.Context(), func(ctx context.Context, conn storage.DBTX) error {
			var err error
			student, err = repo.Get(ctx, conn, intID)
			return err
		})
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				slog.Error("error getting student",
					slog.String("id", id),
					slog.String("error", err.Error()))
			}
			response.Error(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students?limit=N&offset=M
//
// Both query parameters are optional non-negative integers. Students come
// back ordered by id; an empty table gives [] rather than null.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(pool ConnProvider, repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting students")

		page, err := parsePage(r)
		if err != nil {
			response.Error(w, err)
			return
		}

		var students []types.Student
		err = pool.WithConn(r.Context(), func(ctx context.Context, conn storage.DBTX) error {
			var err error
			students, err = repo.List(ctx, conn, page)
			return err
		})
		if err != nil {
			slog.Error("error getting students", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

func parsePage(r *http.Request) (storage.Page, error) {
	var page storage.Page

	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  **int64
	}{
		{"limit", &page.Limit},
		{"offset", &page.Offset},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return storage.Page{}, errors.Join(storage.ErrInvalidArgument,
				errors.New(p.name+" must be an integer"))
		}
		*p.dst = &v
	}

	return page, page.Validate()
}
