// Package response writes the JSON bodies every handler returns and maps
// storage errors onto HTTP status codes.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/go-playground/validator/v10"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the envelope for status-only replies:
//
//	{ "status": "ok" }
//	{ "status": "error", "error": "field Name is required" }
//
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// OK is the body of a successful state change.
func OK() Response {
	return Response{Status: StatusOK}
}

// WriteJSON sets the content type, writes status and encodes data.
// Headers are frozen after this call.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps err in the error envelope.
func GeneralError(err error) Response {
	return Response{Status: StatusError, Error: err.Error()}
}

// ValidationError joins the validator's per-field failures into one
// message, e.g. "field Name is required, field ID must be greater than 0".
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", e.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s must be at most %s characters", e.Field(), e.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("field %s must be greater than %s", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}
	return Response{Status: StatusError, Error: strings.Join(msgs, ", ")}
}

// ─────────────────────────────────────────────────────────────────────────────
// StatusFor maps the storage error taxonomy onto HTTP:
//
//	ErrNotFound            → 404
//	ErrInvalidArgument     → 400
//	ErrConstraintViolation → 409
//	ErrDatabaseUnavailable → 503
//	anything else          → 500
//
// ─────────────────────────────────────────────────────────────────────────────
func StatusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrConstraintViolation):
		return http.StatusConflict
	case errors.Is(err, storage.ErrDatabaseUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err with the status from StatusFor. 5xx replies carry only
// the status text; the caller logs the detail.
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		WriteJSON(w, status, GeneralError(errors.New(http.StatusText(status))))
		return
	}
	WriteJSON(w, status, GeneralError(err))
}
