// Package csrf issues one token per session and checks it on requests
// that change state.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/aanand-mishra/students-api/internal/session"
	"github.com/aanand-mishra/students-api/internal/utils/response"
)

// HeaderName carries the token on unsafe requests.
const HeaderName = "X-CSRF-Token"

const tokenBytes = 16

// ErrInvalidToken is the 403 body for a missing or mismatched token.
var ErrInvalidToken = errors.New("invalid csrf token")

// Token returns the session's token, creating and storing one on first use.
// The token stays the same for the lifetime of the session.
func Token(sess *session.Session) (string, error) {
	if tok, ok := sess.Get(session.KeyCSRFToken); ok && tok != "" {
		return tok, nil
	}

	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("csrf: generate token: %w", err)
	}

	tok := hex.EncodeToString(buf)
	sess.Set(session.KeyCSRFToken, tok)
	return tok, nil
}

// Valid reports whether candidate matches the session's token.
// A session without a token accepts nothing.
func Valid(sess *session.Session, candidate string) bool {
	tok, ok := sess.Get(session.KeyCSRFToken)
	if !ok || tok == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tok), []byte(candidate)) == 1
}

// Protect rejects unsafe requests whose X-CSRF-Token header does not
// match the session token. It must run inside session.Manager.Middleware.
func Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		sess, ok := session.FromContext(r.Context())
		if !ok || !Valid(sess, r.Header.Get(HeaderName)) {
			response.WriteJSON(w, http.StatusForbidden, response.GeneralError(ErrInvalidToken))
			return
		}

		next.ServeHTTP(w, r)
	})
}
