package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/jobpilot/internal/apperror"
	"github.com/sakif/jobpilot/internal/model"
	"github.com/sakif/jobpilot/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new account.
//
// The UNIQUE constraint on email is the source of truth for duplicates; a
// SELECT-then-INSERT would race between two concurrent signups.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, name, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID returns apperror.ErrNotFound if no user has that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail returns apperror.ErrNotFound if no user has that email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := db.scanUser(db.conn.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM users WHERE email = ?`,
		email,
	))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %s: %w", email, err)
	}
	return u, nil
}

func (db *DB) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// isUniqueViolation matches SQLite's constraint error text.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
