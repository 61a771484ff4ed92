// Package account serves login, logout and the per-request view context
// (CSRF token and current user).
package account

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/students-api/internal/auth"
	"github.com/aanand-mishra/students-api/internal/csrf"
	"github.com/aanand-mishra/students-api/internal/session"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/storage/users"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/aanand-mishra/students-api/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errNoSession          = errors.New("no session")

	validate = validator.New()
)

// ViewContext is what a rendering layer needs for every page.
type ViewContext struct {
	CSRFToken string      `json:"csrf_token"`
	AuthUser  *types.User `json:"auth_user"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Login handles POST /api/login
//
// Request body (JSON):
//
//	{ "id": 1, "password": "..." }
//
// Success response (200 OK): the user, without its password hash. The
// session moves to a fresh id.
//
// Error responses:
//
//	400 Bad Request   malformed JSON or failed validation
//	401 Unauthorized  unknown id or wrong password, same body and cost
//	503 Unavailable   database or session store error
//
// ─────────────────────────────────────────────────────────────────────────────
func Login(pool auth.ConnProvider, repo auth.UserGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errNoSession))
			return
		}

		var creds types.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		if err := validate.Struct(creds); err != nil {
			var validateErrs validator.ValidationErrors
			if errors.As(err, &validateErrs) {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		var user types.User
		err := pool.WithConn(r.Context(), func(ctx context.Context, conn storage.DBTX) error {
			var err error
			user, err = repo.Get(ctx, conn, creds.ID)
			return err
		})
		if errors.Is(err, storage.ErrNotFound) {
			users.VerifyAbsent(creds.Password)
			slog.Info("login failed", slog.Int64("user_id", creds.ID))
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errInvalidCredentials))
			return
		}
		if err != nil {
			slog.Error("error loading user", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		if !users.VerifyPassword(user, creds.Password) {
			slog.Info("login failed", slog.Int64("user_id", creds.ID))
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errInvalidCredentials))
			return
		}

		auth.Login(sess, user)
		slog.Info("user logged in", slog.Any("user", user))
		response.WriteJSON(w, http.StatusOK, user)
	}
}

// Logout handles POST /api/logout. The stored session is deleted and the
// cookie expired.
func Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := session.FromContext(r.Context()); ok {
			auth.Logout(sess)
		}
		response.WriteJSON(w, http.StatusOK, response.OK())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Context handles GET /api/context
//
// Success response (200 OK):
//
//	{ "csrf_token": "9f86d0...", "auth_user": null }
//
// auth_user is null for anonymous requests; that is not an error.
// ─────────────────────────────────────────────────────────────────────────────
func Context(gate *auth.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errNoSession))
			return
		}

		token, err := csrf.Token(sess)
		if err != nil {
			slog.Error("error issuing csrf token", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		user, err := gate.CurrentUser(r.Context(), sess)
		if err != nil {
			slog.Error("error resolving user", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, ViewContext{CSRFToken: token, AuthUser: user})
	}
}

// Me handles GET /api/me. It must be wrapped by auth.Gate.Require.
func Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(auth.ErrUnauthenticated))
			return
		}
		response.WriteJSON(w, http.StatusOK, user)
	}
}
