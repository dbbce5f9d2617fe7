// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package backend

import (
	"context"

	"github.com/safevault/safevault/internal/store"
)

// WithOpener replaces the connector used for a dialect.
func WithOpener(d store.Dialect, fn func(ctx context.Context, conn string) (Repository, error)) Option {
	return func(o *options) {
		o.openers[d] = fn
	}
}
