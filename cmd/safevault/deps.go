// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package main

import (
	"context"

	"github.com/safevault/safevault/internal/auth"
	"github.com/safevault/safevault/internal/auth/redis"
	"github.com/safevault/safevault/internal/config"
	"github.com/safevault/safevault/internal/store"
	"github.com/safevault/safevault/internal/store/backend"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StoreOpener opens the credential store named by a database URL.
	// Default: backend.Open
	StoreOpener func(ctx context.Context, dsn string, opts ...backend.Option) (backend.Repository, store.Dialect, error)

	// TokenStoreFactory builds the session token store. The returned
	// closer is called on shutdown.
	// Default: newTokenStore
	TokenStoreFactory func(ctx context.Context, cfg config.TokensConfig) (auth.TokenStore, func() error, error)

	// Ready is called once both listeners are bound.
	Ready func(httpAddr, metricsAddr string)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.StoreOpener == nil {
		out.StoreOpener = backend.Open
	}
	if out.TokenStoreFactory == nil {
		out.TokenStoreFactory = newTokenStore
	}
	if out.Ready == nil {
		out.Ready = func(string, string) {}
	}
	return &out
}

// newTokenStore builds the token store selected by cfg.Backend.
func newTokenStore(ctx context.Context, cfg config.TokensConfig) (auth.TokenStore, func() error, error) {
	if cfg.Backend != config.TokenBackendRedis {
		return auth.NewMemoryTokenStore(), func() error { return nil }, nil
	}

	client, err := redis.Connect(ctx, redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, nil, err
	}
	return redis.NewTokenStore(client, cfg.TTL), client.Close, nil
}
