package session

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aanand-mishra/students-api/internal/utils/response"
	"github.com/google/uuid"
)

// Manager binds a Store to an HTTP cookie.
type Manager struct {
	store      Store
	cookieName string
	ttl        time.Duration
	secure     bool
	newID      func() string
}

// NewManager returns a Manager issuing cookies named cookieName that keep
// sessions alive for ttl after their last change.
func NewManager(store Store, cookieName string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		store:      store,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		newID:      uuid.NewString,
	}
}

// Middleware loads the request's session into the context and commits it
// after the handler. A change is committed before the first byte of the
// response so the cookie can still be sent; if that commit fails the
// client gets 503 instead of the handler's response.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.load(r)
		if err != nil {
			slog.Error("loading session", slog.String("error", err.Error()))
			writeUnavailable(w)
			return
		}

		cw := &commitWriter{ResponseWriter: w, m: m, r: r, sess: sess}
		next.ServeHTTP(cw, r.WithContext(NewContext(r.Context(), sess)))
		cw.finish()
	})
}

func writeUnavailable(w http.ResponseWriter) {
	response.WriteJSON(w, http.StatusServiceUnavailable, response.GeneralError(ErrStoreUnavailable))
}

func (m *Manager) load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return New(m.newID()), nil
	}

	values, ok, err := m.store.Load(r.Context(), c.Value)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Unknown or expired id: start over with a fresh one rather than
		// adopting an id the client chose.
		return New(m.newID()), nil
	}
	return restore(c.Value, values), nil
}

// commitWriter saves the session the first time the handler writes.
type commitWriter struct {
	http.ResponseWriter
	m       *Manager
	r       *http.Request
	sess    *Session
	written bool
	failed  bool
}

func (w *commitWriter) WriteHeader(status int) {
	if w.written {
		w.ResponseWriter.WriteHeader(status)
		return
	}
	w.written = true

	if err := w.commit(); err != nil {
		slog.Error("committing session", slog.String("error", err.Error()))
		w.failed = true
		writeUnavailable(w.ResponseWriter)
		return
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write drops the handler's body once the response was replaced by a 503.
func (w *commitWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	if w.failed {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// finish commits changes made after the last write. Once headers are out
// a failure can only be logged.
func (w *commitWriter) finish() {
	if !w.written {
		w.WriteHeader(http.StatusOK)
		return
	}
	if w.failed {
		return
	}
	if err := w.commit(); err != nil {
		slog.Error("committing session after response", slog.String("error", err.Error()))
	}
}

func (w *commitWriter) commit() error {
	p := w.sess.snapshot()
	if !p.dirty {
		return nil
	}

	ctx := w.r.Context()
	if p.cleared || len(p.values) == 0 {
		if !p.isNew {
			if err := w.m.store.Delete(ctx, p.id); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		w.setCookie("", -1)
		return nil
	}

	id := p.id
	if p.renew {
		id = w.m.newID()
	}
	if err := w.m.store.Save(ctx, id, p.values, w.m.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if id != p.id {
		if !p.isNew {
			if err := w.m.store.Delete(ctx, p.id); err != nil {
				// The old id stays authoritative; drop the copy.
				_ = w.m.store.Delete(ctx, id)
				return fmt.Errorf("delete renewed session: %w", err)
			}
		}
		w.sess.setID(id)
	}

	w.setCookie(id, int(w.m.ttl.Seconds()))
	return nil
}

// setCookie only has effect before the header is flushed; later commits
// still reach the store.
func (w *commitWriter) setCookie(value string, maxAge int) {
	http.SetCookie(w.ResponseWriter, &http.Cookie{
		Name:     w.m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   w.m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
