// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres provides the PostgreSQL implementation of auth.UserRepository.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool the repository needs.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, username, email, password_hash, phone, profession, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
	now  func() time.Time
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool, now: time.Now}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Profession,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return wrapWriteErr(err, "insert user", "username", user.Username)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	return r.scanOne(row, "get user by id", "id", id.String())
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	return r.scanOne(row, "get user by email", "email", email)
}

// GetByEmailOrPhone retrieves the oldest user whose email or phone matches.
func (r *UserRepository) GetByEmailOrPhone(ctx context.Context, email, phone string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1) OR phone = $2
		ORDER BY created_at, id
		LIMIT 1
	`, email, phone)
	return r.scanOne(row, "get user by email or phone", "email", email)
}

// FindByContact reports whether a user matches every non-empty argument.
func (r *UserRepository) FindByContact(ctx context.Context, email, phone string) (bool, error) {
	if email == "" && phone == "" {
		return false, nil
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE ($1 = '' OR LOWER(email) = LOWER($1))
			  AND ($2 = '' OR phone = $2)
		)
	`, email, phone).Scan(&exists)
	if err != nil {
		return false, oops.With("query", "find user by contact").Wrap(err)
	}
	return exists, nil
}

// List returns every user ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, oops.With("query", "list users").Wrap(err)
	}
	defer rows.Close()

	users := make([]*auth.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.With("query", "scan user row").Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("query", "iterate users").Wrap(err)
	}
	return users, nil
}

// UpdateProfile applies the non-empty fields of update and returns the stored user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id ulid.ULID, update auth.ProfileUpdate) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			username   = COALESCE(NULLIF($2, ''), username),
			phone      = COALESCE(NULLIF($3, ''), phone),
			profession = COALESCE(NULLIF($4, ''), profession),
			updated_at = $5
		WHERE id = $1
		RETURNING `+userColumns,
		id.String(),
		update.Username,
		update.Phone,
		update.Profession,
		r.now().UTC(),
	)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, wrapWriteErr(err, "update user profile", "id", id.String())
	}
	return user, nil
}

// UpdatePasswordByEmail replaces the password hash of the user with email.
func (r *UserRepository) UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE LOWER(email) = LOWER($1)
	`, email, passwordHash, r.now().UTC())
	if err != nil {
		return oops.With("query", "update password").With("email", email).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return oops.With("query", "delete user").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) scanOne(row pgx.Row, query, key, value string) (*auth.User, error) {
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With(key, value).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("query", query).With(key, value).Wrap(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		user auth.User
		id   string
	)
	if err := row.Scan(
		&id,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.Profession,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with query context
	}

	parsed, err := ulid.Parse(id)
	if err != nil {
		return nil, oops.With("id", id).Wrapf(err, "parse user id")
	}
	user.ID = parsed
	return &user, nil
}

// wrapWriteErr maps unique violations to auth.ErrDuplicateKey.
func wrapWriteErr(err error, query, key, value string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return oops.
			With("constraint", pgErr.ConstraintName).
			With(key, value).
			Wrap(auth.ErrDuplicateKey)
	}
	return oops.With("query", query).With(key, value).Wrap(err)
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
