// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

// Package redis implements auth.TokenStore on Redis so sessions survive
// restarts and are shared between replicas.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/safevault/safevault/internal/auth"
)

// KeyPrefix namespaces token keys.
const KeyPrefix = "safevault:token:"

const (
	pingTimeout      = 2 * time.Second
	maxIssueAttempts = 8
)

// Client is the subset of *goredis.Client the store uses.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// Options configures the connection to Redis.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect creates a client and verifies the server answers PING.
func Connect(ctx context.Context, opts Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // ping error takes precedence
		return nil, auth.TokenStoreUnavailable("ping", err)
	}
	return client, nil
}

// TokenStore implements auth.TokenStore on Redis. Entries are keyed by the
// SHA256 of the token, so the keyspace never holds a usable token.
type TokenStore struct {
	client   Client
	ttl      time.Duration
	generate func() (string, error)
}

// NewTokenStore creates a TokenStore. A zero ttl keeps tokens until revoked.
func NewTokenStore(client Client, ttl time.Duration) *TokenStore {
	return &TokenStore{
		client:   client,
		ttl:      ttl,
		generate: auth.GenerateSessionToken,
	}
}

func (s *TokenStore) key(token string) string {
	return KeyPrefix + auth.HashSessionToken(token)
}

// Issue creates a fresh token bound to username.
func (s *TokenStore) Issue(ctx context.Context, username string) (string, error) {
	for range maxIssueAttempts {
		token, err := s.generate()
		if err != nil {
			return "", err
		}
		created, err := s.client.SetNX(ctx, s.key(token), username, s.ttl).Result()
		if err != nil {
			return "", auth.TokenStoreUnavailable("issue", err)
		}
		if created {
			return token, nil
		}
	}

	return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
		With("attempts", maxIssueAttempts).
		Errorf("could not generate a unique session token")
}

// Lookup returns the username bound to token.
func (s *TokenStore) Lookup(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}
	username, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, auth.TokenStoreUnavailable("lookup", err)
	}
	return username, true, nil
}

// Revoke deletes token and reports whether it was present.
func (s *TokenStore) Revoke(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	n, err := s.client.Del(ctx, s.key(token)).Result()
	if err != nil {
		return false, auth.TokenStoreUnavailable("revoke", err)
	}
	return n > 0, nil
}

var _ auth.TokenStore = (*TokenStore)(nil)
