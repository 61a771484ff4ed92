// Package session keeps per-client key/value state on the server side,
// keyed by an opaque id carried in a cookie.
//
// A *Session lives for one request. Manager.Middleware loads it before
// the handler runs and writes it back to the Store when it changed.
package session

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"
)

// Well-known keys.
const (
	KeyUserID    = "user_id"
	KeyCSRFToken = "_csrf_token"
)

// ErrStoreUnavailable wraps every backend failure.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store persists session values between requests.
type Store interface {
	// Load returns the values for id. ok is false when the session does
	// not exist or has expired.
	Load(ctx context.Context, id string) (values map[string]string, ok bool, err error)

	// Save replaces the values for id and resets its lifetime to ttl.
	Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error

	// Delete removes id. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}

// Session is a string-keyed mapping scoped to one client.
// It is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	id      string
	values  map[string]string
	isNew   bool
	dirty   bool
	cleared bool
	renew   bool
}

// New returns an empty session that has never been stored.
func New(id string) *Session {
	return &Session{id: id, values: make(map[string]string), isNew: true}
}

// restore rebuilds a stored session.
func restore(id string, values map[string]string) *Session {
	if values == nil {
		values = make(map[string]string)
	}
	return &Session{id: id, values: values}
}

// ID returns the session id. It changes when a renewed session is committed.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *Session) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.dirty = true
	s.cleared = false
}

// Delete removes key. Removing a missing key is a no-op.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// Clear drops every value; the stored session is deleted on commit.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	s.dirty = true
	s.cleared = true
	s.renew = false
}

// Renew asks for the values to move to a fresh id on commit. The old id
// stops resolving. Call it whenever the privilege level changes.
func (s *Session) Renew() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renew = true
	s.dirty = true
}

// pending is the change set taken by snapshot.
type pending struct {
	id      string
	values  map[string]string
	dirty   bool
	cleared bool
	isNew   bool
	renew   bool
}

// snapshot returns the pending changes and marks the session clean.
func (s *Session) snapshot() pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := pending{
		id:      s.id,
		values:  maps.Clone(s.values),
		dirty:   s.dirty,
		cleared: s.cleared,
		isNew:   s.isNew,
		renew:   s.renew,
	}
	s.dirty = false
	s.renew = false
	if p.dirty && !p.cleared {
		s.isNew = false
	}
	return p
}

// setID is called by the manager once a renewed session is stored.
func (s *Session) setID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

type ctxKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by Manager.Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
