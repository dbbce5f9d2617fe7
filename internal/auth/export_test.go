// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package auth

// SetTokenGenerator replaces the token source of a MemoryTokenStore.
func SetTokenGenerator(s *MemoryTokenStore, generate func() (string, error)) {
	s.generate = generate
}
