// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Error codes attached to oops errors returned by this package and its stores.
const (
	CodeInvalidInput          = "INVALID_INPUT"
	CodeDuplicateUsername     = "AUTH_DUPLICATE_USERNAME"
	CodeStorageUnavailable    = "STORAGE_UNAVAILABLE"
	CodeInvalidCredentials    = "AUTH_INVALID_CREDENTIALS"
	CodeSessionInvalid        = "SESSION_INVALID"
	CodeTokenStoreUnavailable = "TOKEN_STORE_UNAVAILABLE"
	CodeUserNotFound          = "USER_NOT_FOUND"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrStorageUnavailable wraps any driver or I/O failure of a store.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidInput is returned when a field is rejected by sanitization.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is returned by Login for any failed credential check.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrSessionInvalid is returned when a token is missing or unknown.
	ErrSessionInvalid = errors.New("session token is invalid")

	// ErrTokenStoreUnavailable wraps any failure of a remote token store.
	ErrTokenStoreUnavailable = errors.New("token store unavailable")
)

// InvalidInput reports that field was rejected. The offending value is never
// attached to the error.
func InvalidInput(field string) error {
	return oops.Code(CodeInvalidInput).
		With("field", field).
		Wrapf(ErrInvalidInput, "invalid %s", field)
}

// IsInvalidInput returns the rejected field name when err is an InvalidInput error.
func IsInvalidInput(err error) (string, bool) {
	if !errors.Is(err, ErrInvalidInput) {
		return "", false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "", true
	}
	field, _ := oopsErr.Context()["field"].(string)
	return field, true
}

// DuplicateUsername builds the error stores return on a UNIQUE violation.
func DuplicateUsername(username string) error {
	return oops.Code(CodeDuplicateUsername).
		With("username", username).
		Wrap(ErrDuplicateUsername)
}

// StorageUnavailable builds the error stores return for driver failures.
func StorageUnavailable(operation string, cause error) error {
	return oops.Code(CodeStorageUnavailable).
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrStorageUnavailable, cause))
}

// UserNotFound builds the error stores return when a lookup matches no row.
func UserNotFound(key string, value any) error {
	return oops.Code(CodeUserNotFound).
		With(key, value).
		Wrap(ErrNotFound)
}

// TokenStoreUnavailable builds the error token stores return for backend failures.
func TokenStoreUnavailable(operation string, cause error) error {
	return oops.Code(CodeTokenStoreUnavailable).
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrTokenStoreUnavailable, cause))
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}

func sessionInvalid() error {
	return oops.Code(CodeSessionInvalid).Wrap(ErrSessionInvalid)
}
