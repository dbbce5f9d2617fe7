// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

// Package postgres implements auth.UserRepository on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safevault/safevault/internal/auth"
	"github.com/safevault/safevault/internal/store"
)

// poolIface is the subset of *pgxpool.Pool the repository uses; pgxmock
// implements it for unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// Open connects a pool to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*UserRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, auth.StorageUnavailable("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, auth.StorageUnavailable("ping database", err)
	}
	return NewUserRepository(pool), nil
}

// NewUserRepository creates a new UserRepository over an existing pool.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Initialize creates the users table if it does not exist.
func (r *UserRepository) Initialize(ctx context.Context) error {
	schema, err := store.Schema(store.DialectPostgres)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return auth.StorageUnavailable("initialize schema", err)
	}
	return nil
}

// Insert stores a new record and returns its assigned ID.
func (r *UserRepository) Insert(ctx context.Context, username, email, passwordHash, role string) (int64, error) {
	switch {
	case username == "":
		return 0, auth.InvalidInput("username")
	case email == "":
		return 0, auth.InvalidInput("email")
	case passwordHash == "":
		return 0, auth.InvalidInput("password_hash")
	case role == "":
		return 0, auth.InvalidInput("role")
	}

	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, username, email, passwordHash, role).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, auth.DuplicateUsername(username)
		}
		return 0, auth.StorageUnavailable("insert user", err)
	}
	return id, nil
}

// GetByUsername retrieves a record by exact, case-sensitive username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.UserRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, role
		FROM users
		WHERE username = $1
		LIMIT 1
	`, username)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.UserNotFound("username", username)
	}
	if err != nil {
		return nil, auth.StorageUnavailable("get user by username", err)
	}
	return user, nil
}

// GetByID retrieves a record by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*auth.UserRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, role
		FROM users
		WHERE id = $1
	`, id)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.UserNotFound("id", id)
	}
	if err != nil {
		return nil, auth.StorageUnavailable("get user by id", err)
	}
	return user, nil
}

// Count returns the number of stored records.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, auth.StorageUnavailable("count users", err)
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (r *UserRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return auth.StorageUnavailable("ping database", err)
	}
	return nil
}

// Close closes the pool.
func (r *UserRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanUser(row pgx.Row) (*auth.UserRecord, error) {
	var u auth.UserRecord
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role); err != nil {
		return nil, err
	}
	return &u, nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
