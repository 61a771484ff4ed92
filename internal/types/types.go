// Package types holds the models shared by handlers and storage. It
// imports nothing from this module, so any package can depend on it.
package types

import "log/slog"

// Student represents a student record in our system.
//
// Values are built only from a row that actually came back from the
// database; an absent row is reported as storage.ErrNotFound instead.
type Student struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NewStudent is the request body for POST /api/students.
//
// The validate:"..." tags are checked by go-playground/validator.
type NewStudent struct {
	Name string `json:"name" validate:"required,max=255"`
}

// User is an account that can log in and, when IsAdmin is set, manage
// student records.
//
// PasswordHash is the encoded scrypt hash. The json:"-" tag keeps it out
// of every response body.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PasswordHash []byte `json:"-"`
	IsAdmin      bool   `json:"is_admin"`
}

// LogValue keeps the password hash out of structured logs.
func (u User) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("id", u.ID),
		slog.String("name", u.Name),
		slog.Bool("is_admin", u.IsAdmin),
	)
}

// Credentials is the request body for POST /api/login.
type Credentials struct {
	ID       int64  `json:"id"       validate:"required,gt=0"`
	Password string `json:"password" validate:"required"`
}
