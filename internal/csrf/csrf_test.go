package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aanand-mishra/students-api/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_StablePerSession(t *testing.T) {
	sess := session.New("a")

	first, err := Token(sess)
	require.NoError(t, err)
	assert.Len(t, first, 2*tokenBytes)

	second, err := Token(sess)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := Token(session.New("b"))
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestValid(t *testing.T) {
	sess := session.New("a")
	assert.False(t, Valid(sess, ""), "no token issued yet")
	assert.False(t, Valid(sess, "anything"))

	tok, err := Token(sess)
	require.NoError(t, err)

	assert.True(t, Valid(sess, tok))
	assert.False(t, Valid(sess, ""))
	assert.False(t, Valid(sess, tok[:len(tok)-1]))
	assert.False(t, Valid(sess, tok+"0"))
}

func TestProtect(t *testing.T) {
	sess := session.New("a")
	tok, err := Token(sess)
	require.NoError(t, err)

	calls := 0
	h := Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		method string
		header string
		want   int
	}{
		{"safe method without token", http.MethodGet, "", http.StatusNoContent},
		{"post without token", http.MethodPost, "", http.StatusForbidden},
		{"post with wrong token", http.MethodPost, "0123456789abcdef0123456789abcdef", http.StatusForbidden},
		{"post with token", http.MethodPost, tok, http.StatusNoContent},
		{"delete with token", http.MethodDelete, tok, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.header != "" {
				req.Header.Set(HeaderName, tt.header)
			}
			req = req.WithContext(session.NewContext(req.Context(), sess))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, 3, calls)
}

func TestProtect_NoSession(t *testing.T) {
	h := Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(HeaderName, "whatever")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
