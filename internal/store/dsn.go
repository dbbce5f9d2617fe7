// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

// Package store owns the database schema of SafeVault: embedded migrations
// per SQL dialect, the idempotent schema used at startup, and a golang-migrate
// wrapper for explicit schema management.
package store

import (
	"strings"

	"github.com/samber/oops"
)

// Dialect identifies a supported SQL backend.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

// ParseDSN determines the backend for a database URL and returns the
// connection string the backend's driver expects.
//
//   - postgres://, postgresql:// select PostgreSQL; the URL is passed through.
//   - sqlite://<path> selects SQLite on <path>.
//   - file: URIs, :memory: and plain paths select SQLite unchanged.
func ParseDSN(dsn string) (Dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", "", oops.Code("INVALID_DSN").Errorf("database url is empty")
	}

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", oops.Code("INVALID_DSN").Errorf("sqlite url has no path")
		}
		return DialectSQLite, path, nil
	case strings.HasPrefix(dsn, "file:"), dsn == MemoryDSN:
		return DialectSQLite, dsn, nil
	}

	if scheme, _, found := strings.Cut(dsn, "://"); found {
		return "", "", oops.Code("INVALID_DSN").
			With("scheme", scheme).
			Errorf("unsupported database scheme %q", scheme)
	}
	return DialectSQLite, dsn, nil
}

// IsMemory reports whether a SQLite connection string names an in-memory database.
func IsMemory(conn string) bool {
	return conn == MemoryDSN || strings.Contains(conn, "mode=memory")
}
