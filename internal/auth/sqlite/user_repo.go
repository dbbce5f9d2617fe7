// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

// Package sqlite implements auth.UserRepository on SQLite using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/samber/oops"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/safevault/safevault/internal/auth"
	"github.com/safevault/safevault/internal/store"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// UserRepository implements auth.UserRepository using SQLite.
//
// All statements run over a single connection, so SQLite sees them strictly
// one at a time and the UNIQUE constraint decides racing inserts.
type UserRepository struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and verifies
// the connection. Use store.MemoryDSN for a private in-memory database.
func Open(ctx context.Context, path string) (*UserRepository, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, auth.StorageUnavailable("open database", err)
	}
	repo := NewUserRepository(db)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // ping error takes precedence
		return nil, auth.StorageUnavailable("ping database", err)
	}
	return repo, nil
}

// NewUserRepository wraps an open handle. The handle is limited to one
// connection which is kept for the lifetime of the repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return &UserRepository{db: db}
}

// Initialize creates the Users table if it does not exist.
func (r *UserRepository) Initialize(ctx context.Context) error {
	schema, err := store.Schema(store.DialectSQLite)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return auth.StorageUnavailable("initialize schema", err)
	}
	return nil
}

// Insert stores a new record and returns its assigned ID.
func (r *UserRepository) Insert(ctx context.Context, username, email, passwordHash, role string) (int64, error) {
	if err := validateInsert(username, email, passwordHash, role); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO Users (Username, Email, PasswordHash, Role) VALUES (?, ?, ?, ?)`,
		username, email, passwordHash, role,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, auth.DuplicateUsername(username)
		}
		return 0, auth.StorageUnavailable("insert user", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, auth.StorageUnavailable("read inserted id", err)
	}
	return id, nil
}

// GetByUsername retrieves a record by exact, case-sensitive username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.UserRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT Id, Username, Email, PasswordHash, Role FROM Users WHERE Username = ? LIMIT 1`,
		username,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.UserNotFound("username", username)
	}
	if err != nil {
		return nil, auth.StorageUnavailable("get user by username", err)
	}
	return user, nil
}

// GetByID retrieves a record by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*auth.UserRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT Id, Username, Email, PasswordHash, Role FROM Users WHERE Id = ? LIMIT 1`,
		id,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
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
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Users`).Scan(&n); err != nil {
		return 0, auth.StorageUnavailable("count users", err)
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (r *UserRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return auth.StorageUnavailable("ping database", err)
	}
	return nil
}

// Close closes the database handle.
func (r *UserRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return oops.Code("STORAGE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

func scanUser(row *sql.Row) (*auth.UserRecord, error) {
	var u auth.UserRecord
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role); err != nil {
		return nil, err
	}
	return &u, nil
}

func validateInsert(username, email, passwordHash, role string) error {
	switch {
	case username == "":
		return auth.InvalidInput("username")
	case email == "":
		return auth.InvalidInput("email")
	case passwordHash == "":
		return auth.InvalidInput("password_hash")
	case role == "":
		return auth.InvalidInput("role")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}

var _ auth.UserRepository = (*UserRepository)(nil)
