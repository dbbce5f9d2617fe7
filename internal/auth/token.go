// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/samber/oops"
)

// SessionTokenBytes is the entropy of a session token: 16 bytes = 32 hex chars.
const SessionTokenBytes = 16

// maxIssueAttempts bounds collision re-draws when issuing a token.
const maxIssueAttempts = 8

// TokenStore maps opaque session tokens to the username they were issued for.
type TokenStore interface {
	// Issue creates a fresh token bound to username.
	Issue(ctx context.Context, username string) (string, error)

	// Lookup returns the username bound to token. The boolean is false when
	// the token is unknown or was revoked.
	Lookup(ctx context.Context, token string) (string, bool, error)

	// Revoke removes token. The boolean reports whether it was present.
	Revoke(ctx context.Context, token string) (bool, error)
}

// GenerateSessionToken creates a secure random token.
func GenerateSessionToken() (string, error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(tokenBytes), nil
}

// HashSessionToken computes the SHA256 hash of a session token.
// Remote token stores key entries by this hash so a dump of the store does
// not reveal usable tokens.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// MemoryTokenStore is a process-local TokenStore. Tokens live until revoked
// or the process exits.
type MemoryTokenStore struct {
	mu       sync.RWMutex
	tokens   map[string]string
	generate func() (string, error)
}

// NewMemoryTokenStore creates an empty MemoryTokenStore.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		tokens:   make(map[string]string),
		generate: GenerateSessionToken,
	}
}

// Issue creates a fresh token bound to username. A generated token that is
// already live is discarded and re-drawn.
func (s *MemoryTokenStore) Issue(_ context.Context, username string) (string, error) {
	for range maxIssueAttempts {
		token, err := s.generate()
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		if _, exists := s.tokens[token]; !exists {
			s.tokens[token] = username
			s.mu.Unlock()
			return token, nil
		}
		s.mu.Unlock()
	}

	return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
		With("attempts", maxIssueAttempts).
		Errorf("could not generate a unique session token")
}

// Lookup returns the username bound to token.
func (s *MemoryTokenStore) Lookup(_ context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}
	s.mu.RLock()
	username, ok := s.tokens[token]
	s.mu.RUnlock()
	return username, ok, nil
}

// Revoke removes token and reports whether it was present.
func (s *MemoryTokenStore) Revoke(_ context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token]; !ok {
		return false, nil
	}
	delete(s.tokens, token)
	return true, nil
}

// Len returns the number of live tokens.
func (s *MemoryTokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
