// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safevault/safevault/internal/auth"
)

// cheapParams keeps unit tests fast; production cost is covered by TestDefaultArgon2Params.
var cheapParams = auth.Argon2Params{Time: 1, MemoryKiB: 64, Threads: 1}

func newCheapHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasherWithParams(cheapParams)
	require.NoError(t, err)
	return h
}

func TestDefaultArgon2Params(t *testing.T) {
	p := auth.DefaultArgon2Params()
	assert.Equal(t, uint32(3), p.Time)
	assert.Equal(t, uint32(64*1024), p.MemoryKiB)
	assert.Equal(t, uint8(4), p.Threads)
	assert.NoError(t, p.Validate())
}

func TestArgon2Params_Validate(t *testing.T) {
	tests := []struct {
		name   string
		params auth.Argon2Params
	}{
		{"zero time", auth.Argon2Params{Time: 0, MemoryKiB: 64, Threads: 1}},
		{"excessive time", auth.Argon2Params{Time: 1000, MemoryKiB: 64, Threads: 1}},
		{"zero threads", auth.Argon2Params{Time: 1, MemoryKiB: 64, Threads: 0}},
		{"memory below threads floor", auth.Argon2Params{Time: 1, MemoryKiB: 8, Threads: 4}},
		{"excessive memory", auth.Argon2Params{Time: 1, MemoryKiB: 1 << 30, Threads: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewArgon2idHasherWithParams(tt.params)
			assert.Error(t, err)
		})
	}
}

func TestHashPassword(t *testing.T) {
	hasher := newCheapHasher(t)

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"))
		assert.Len(t, strings.Split(hash, "$"), 6)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("hash does not contain the password", func(t *testing.T) {
		hash, err := hasher.Hash("Secr3t!")
		require.NoError(t, err)
		assert.NotContains(t, hash, "Secr3t!")
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})
}

func TestDefaultHasherRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("default argon2 cost is slow")
	}
	hasher := auth.NewArgon2idHasher()
	hash, err := hasher.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=4$"))
	assert.True(t, hasher.Verify("correct horse", hash))
}

func TestVerifyPassword(t *testing.T) {
	hasher := newCheapHasher(t)

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("correctpassword", hash))
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.False(t, hasher.Verify("wrongpassword", hash))
		assert.False(t, hasher.Verify("", hash))
	})

	t.Run("hash made with other parameters still verifies", func(t *testing.T) {
		other, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 2, MemoryKiB: 128, Threads: 2})
		require.NoError(t, err)
		hash, err := other.Hash("portable")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("portable", hash))
	})

	malformed := map[string]string{
		"empty":                     "",
		"not a hash":                "not-a-valid-hash",
		"wrong algorithm":           "$argon2i$v=19$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"invalid version format":    "$argon2id$vXX$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"unknown version":           "$argon2id$v=16$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"invalid parameters format": "$argon2id$v=19$invalid$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"invalid salt base64":       "$argon2id$v=19$m=64,t=1,p=1$!!!invalid!!!$aGFzaGhhc2hoYXNoaGFzaA",
		"invalid hash base64":       "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$!!!invalid!!!",
		"threads overflow":          "$argon2id$v=19$m=65536,t=1,p=256$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"zero threads":              "$argon2id$v=19$m=64,t=1,p=0$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"zero time":                 "$argon2id$v=19$m=64,t=0,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"huge memory":               "$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"huge time":                 "$argon2id$v=19$m=64,t=100000,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"short key":                 "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaA",
		"short salt":                "$argon2id$v=19$m=64,t=1,p=1$c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"extra segment":             "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA$x",
		"missing leading dollar":    "argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA$",
	}
	for name, hash := range malformed {
		t.Run("malformed "+name+" is rejected", func(t *testing.T) {
			assert.False(t, hasher.Verify("password", hash))
		})
	}
}

func TestDummyHash(t *testing.T) {
	hasher := newCheapHasher(t)
	dummy := hasher.DummyHash()

	assert.True(t, strings.HasPrefix(dummy, "$argon2id$v=19$m=64,t=1,p=1$"))
	for _, pw := range []string{"", "password", "AAAA"} {
		assert.False(t, hasher.Verify(pw, dummy))
	}
}
