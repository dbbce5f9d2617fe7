// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package redis

// SetTokenGenerator replaces the token source of a TokenStore.
func SetTokenGenerator(s *TokenStore, generate func() (string, error)) {
	s.generate = generate
}
