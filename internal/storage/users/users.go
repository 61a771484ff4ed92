// Package users is the data-access layer for the users table.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aanand-mishra/students-api/internal/password"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
)

const queryGet = "SELECT id, name, password_hash, is_admin FROM users WHERE id = ?"

// absentUserHash is well-formed at the default cost but matches no password.
const absentUserHash = "$scrypt$ln=15,r=8,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Repository runs the user statements for one dialect. Like the student
// repository it holds no connection.
type Repository struct {
	dialect storage.Dialect
}

// New returns a Repository for dialect.
func New(dialect storage.Dialect) *Repository {
	return &Repository{dialect: dialect}
}

// Get fetches one user by primary key.
// storage.ErrNotFound is returned when no row matches.
func (r *Repository) Get(ctx context.Context, db storage.DBTX, id int64) (types.User, error) {
	var user types.User

	err := db.QueryRowContext(ctx, r.dialect.Rebind(queryGet), id).Scan(
		&user.ID,
		&user.Name,
		&user.PasswordHash,
		&user.IsAdmin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, fmt.Errorf("Get: no user with id %d: %w", id, storage.ErrNotFound)
		}
		return types.User{}, fmt.Errorf("Get: scan: %w", storage.Classify(r.dialect, err))
	}

	return user, nil
}

// VerifyPassword reports whether candidate is user's password.
// A malformed stored hash never verifies.
func VerifyPassword(user types.User, candidate string) bool {
	ok, err := password.Verify(candidate, string(user.PasswordHash))
	return err == nil && ok
}

// VerifyAbsent spends the same key derivation as VerifyPassword on a user
// that does not exist, so a failed login takes as long for an unknown id
// as for a wrong password. It always reports false.
func VerifyAbsent(candidate string) bool {
	_, _ = password.Verify(candidate, absentUserHash)
	return false
}
