// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package auth

import "context"

// Canonical role tags. Stores accept any non-empty role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserRecord is a persisted credential.
type UserRecord struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string
}

// UserRepository persists credential records.
//
// Implementations must bind every value as a statement parameter, report a
// UNIQUE violation as ErrDuplicateUsername, any other driver failure as
// ErrStorageUnavailable, and a missing row as ErrNotFound.
type UserRepository interface {
	// Initialize creates the Users table if it does not exist. Idempotent.
	Initialize(ctx context.Context) error

	// Insert stores a new record and returns its assigned ID.
	Insert(ctx context.Context, username, email, passwordHash, role string) (int64, error)

	// GetByUsername returns the record with exactly this username.
	GetByUsername(ctx context.Context, username string) (*UserRecord, error)

	// GetByID returns the record with this ID.
	GetByID(ctx context.Context, id int64) (*UserRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// Close releases the underlying connection handle.
	Close() error
}
