// Package auth resolves the user behind a request's session and decides
// whether that user may run a protected handler.
//
// The gate is explicit middleware composed at the routing layer:
//
//	router.Handle("POST /api/students", gate.Require(auth.Requirement{RequireAdmin: true})(h))
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/students-api/internal/session"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/aanand-mishra/students-api/internal/utils/response"
)

// Denial reasons written to the client by Require.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Decision is the outcome of CheckAccess.
type Decision int

const (
	Unauthenticated Decision = iota
	Forbidden
	Authorized
)

func (d Decision) String() string {
	switch d {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case Authorized:
		return "authorized"
	default:
		return "decision(" + strconv.Itoa(int(d)) + ")"
	}
}

// Requirement describes what a protected operation needs beyond a
// logged-in user.
type Requirement struct {
	RequireAdmin bool
}

// UserGetter is satisfied by *users.Repository.
type UserGetter interface {
	Get(ctx context.Context, db storage.DBTX, id int64) (types.User, error)
}

// ConnProvider is satisfied by *storage.Provider.
type ConnProvider interface {
	WithConn(ctx context.Context, fn func(ctx context.Context, conn storage.DBTX) error) error
}

// Gate holds no per-request state and is safe for concurrent use.
type Gate struct {
	pool  ConnProvider
	users UserGetter
}

// NewGate resolves users through users, one pooled connection per lookup.
func NewGate(pool ConnProvider, users UserGetter) *Gate {
	return &Gate{pool: pool, users: users}
}

// CurrentUser returns the user whose id is stored in sess, or nil when
// the session has no usable user_id or the user no longer exists.
// Only database failures are returned as errors.
func (g *Gate) CurrentUser(ctx context.Context, sess *session.Session) (*types.User, error) {
	raw, ok := sess.Get(session.KeyUserID)
	if !ok {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, nil
	}

	var user types.User
	err = g.pool.WithConn(ctx, func(ctx context.Context, conn storage.DBTX) error {
		var err error
		user, err = g.users.Get(ctx, conn, id)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// CheckAccess resolves identity, then authorization. A non-nil error
// means the decision could not be made; it is never folded into
// Unauthenticated.
func (g *Gate) CheckAccess(ctx context.Context, sess *session.Session, req Requirement) (Decision, *types.User, error) {
	user, err := g.CurrentUser(ctx, sess)
	if err != nil {
		return Unauthenticated, nil, err
	}
	if user == nil {
		return Unauthenticated, nil, nil
	}
	if req.RequireAdmin && !user.IsAdmin {
		return Forbidden, user, nil
	}
	return Authorized, user, nil
}

// Require wraps next so it only runs for an Authorized request. The
// resolved user is available to next through UserFromContext.
func (g *Gate) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(ErrUnauthenticated))
				return
			}

			decision, user, err := g.CheckAccess(r.Context(), sess, req)
			if err != nil {
				slog.Error("checking access", slog.String("error", err.Error()))
				response.Error(w, err)
				return
			}

			switch decision {
			case Unauthenticated:
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(ErrUnauthenticated))
			case Forbidden:
				slog.Info("access denied", slog.Int64("user_id", user.ID), slog.String("path", r.URL.Path))
				response.WriteJSON(w, http.StatusForbidden, response.GeneralError(ErrForbidden))
			default:
				next.ServeHTTP(w, r.WithContext(newContext(r.Context(), user)))
			}
		})
	}
}

// Login records user as the session's identity and moves the session to
// a fresh id, so an id handed out before login never carries the login.
func Login(sess *session.Session, user types.User) {
	sess.Set(session.KeyUserID, strconv.FormatInt(user.ID, 10))
	sess.Renew()
}

// Logout forgets everything in the session, CSRF token included.
func Logout(sess *session.Session) {
	sess.Clear()
}

type ctxKey struct{}

func newContext(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext returns the user attached by Require.
func UserFromContext(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(*types.User)
	return user, ok && user != nil
}
