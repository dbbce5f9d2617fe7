// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

// Package backend opens the credential store named by a database URL.
package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/safevault/safevault/internal/auth"
	"github.com/safevault/safevault/internal/auth/postgres"
	"github.com/safevault/safevault/internal/auth/sqlite"
	"github.com/safevault/safevault/internal/store"
)

// Repository is a credential store that can report its own health.
type Repository interface {
	auth.UserRepository
	Ping(ctx context.Context) error
}

// Default retry policy for reaching the database at startup.
const (
	DefaultAttempts = 5
	DefaultBackoff  = 200 * time.Millisecond
)

type opener func(ctx context.Context, conn string) (Repository, error)

type options struct {
	attempts uint64
	backoff  time.Duration
	logger   *slog.Logger
	openers  map[store.Dialect]opener
}

// Option configures Open.
type Option func(*options)

// WithRetry sets how many times a failed connection is attempted and the
// initial backoff between attempts. Backoff doubles after each failure.
func WithRetry(attempts uint64, backoff time.Duration) Option {
	return func(o *options) {
		o.attempts = attempts
		o.backoff = backoff
	}
}

// WithLogger sets the logger used to report retried connection attempts.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func openSQLite(ctx context.Context, conn string) (Repository, error) {
	return sqlite.Open(ctx, conn)
}

func openPostgres(ctx context.Context, conn string) (Repository, error) {
	return postgres.Open(ctx, conn)
}

// Open connects to the store named by dsn, retrying transient failures, and
// creates the schema if it does not exist. The caller owns the returned
// repository and must Close it.
func Open(ctx context.Context, dsn string, opts ...Option) (Repository, store.Dialect, error) {
	o := options{
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
		logger:   slog.Default(),
		openers: map[store.Dialect]opener{
			store.DialectSQLite:   openSQLite,
			store.DialectPostgres: openPostgres,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	dialect, conn, err := store.ParseDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	open, ok := o.openers[dialect]
	if !ok {
		return nil, "", oops.Code("INVALID_DSN").With("dialect", dialect).Errorf("no backend for dialect")
	}

	attempts := o.attempts
	if attempts == 0 {
		attempts = 1
	}
	policy := retry.WithMaxRetries(attempts-1, retry.NewExponential(o.backoff))

	var repo Repository
	attempt := 0
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		attempt++
		r, openErr := open(ctx, conn)
		if openErr != nil {
			o.logger.WarnContext(ctx, "credential store not reachable",
				"dialect", string(dialect),
				"attempt", attempt,
				"error", openErr)
			return retry.RetryableError(openErr)
		}
		repo = r
		return nil
	})
	if err != nil {
		return nil, dialect, err
	}

	if err := repo.Initialize(ctx); err != nil {
		_ = repo.Close() //nolint:errcheck // initialize error takes precedence
		return nil, dialect, err
	}
	return repo, dialect, nil
}
