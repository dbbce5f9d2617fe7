// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// Default argon2id parameters. Roughly 100ms per hash on commodity hardware.
const (
	DefaultArgon2Time      = 3         // iterations
	DefaultArgon2MemoryKiB = 64 * 1024 // 64 MB
	DefaultArgon2Threads   = 4         // parallelism
	argon2SaltLen          = 16        // salt length in bytes
	argon2KeyLen           = 32        // output length in bytes
)

// Upper bounds on parameters decoded from a stored hash. A crafted hash must
// not be able to make Verify allocate or spin without limit.
const (
	maxArgon2Time      = 64
	maxArgon2MemoryKiB = 1024 * 1024 // 1 GB
	minArgon2KeyLen    = 16
	maxArgon2KeyLen    = 1024
	minArgon2SaltLen   = 8
	maxArgon2SaltLen   = 1024
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a self-describing salted hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether password matches the stored hash.
	// Malformed hashes never match.
	Verify(password, hash string) bool
}

// Argon2Params are the cost parameters used for new hashes.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultArgon2Params returns the production cost parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:      DefaultArgon2Time,
		MemoryKiB: DefaultArgon2MemoryKiB,
		Threads:   DefaultArgon2Threads,
	}
}

// Validate checks the parameters against the same bounds Verify applies.
func (p Argon2Params) Validate() error {
	if p.Time < 1 || p.Time > maxArgon2Time {
		return oops.Code("AUTH_INVALID_HASH_PARAMS").
			With("time", p.Time).
			Errorf("time must be between 1 and %d", maxArgon2Time)
	}
	if p.Threads < 1 {
		return oops.Code("AUTH_INVALID_HASH_PARAMS").Errorf("threads must be at least 1")
	}
	if p.MemoryKiB < 8*uint32(p.Threads) || p.MemoryKiB > maxArgon2MemoryKiB {
		return oops.Code("AUTH_INVALID_HASH_PARAMS").
			With("memory_kib", p.MemoryKiB).
			Errorf("memory must be between %d and %d KiB", 8*uint32(p.Threads), maxArgon2MemoryKiB)
	}
	return nil
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates a hasher with the default parameters.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultArgon2Params()}
}

// NewArgon2idHasherWithParams creates a hasher with custom cost parameters.
func NewArgon2idHasherWithParams(params Argon2Params) (*Argon2idHasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2idHasher{params: params}, nil
}

// Params returns the parameters used for new hashes.
func (h *Argon2idHasher) Params() Argon2Params {
	return h.params
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, argon2KeyLen)

	return encodeArgon2id(h.params, salt, hash), nil
}

// Verify checks if the password matches the hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) bool {
	decoded, err := decodeArgon2id(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), decoded.salt, decoded.params.Time,
		decoded.params.MemoryKiB, decoded.params.Threads, uint32(len(decoded.key)))

	return subtle.ConstantTimeCompare(computed, decoded.key) == 1
}

// DummyHash returns a well-formed hash with this hasher's parameters that no
// password matches. Verifying against it costs the same as a real check.
func (h *Argon2idHasher) DummyHash() string {
	return encodeArgon2id(h.params, make([]byte, argon2SaltLen), make([]byte, argon2KeyLen))
}

// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func encodeArgon2id(p Argon2Params, salt, key []byte) string {
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.MemoryKiB,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

type decodedHash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func decodeArgon2id(encodedHash string) (*decodedHash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported argon2 version: %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	// Validate threads fits in uint8 to prevent silent truncation
	if threads < 1 || threads > 255 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", threads)
	}

	params := Argon2Params{Time: time, MemoryKiB: memory, Threads: uint8(threads)}
	if err := params.Validate(); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(salt) < minArgon2SaltLen || len(salt) > maxArgon2SaltLen {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid salt length: %d", len(salt))
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(key) < minArgon2KeyLen || len(key) > maxArgon2KeyLen {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", len(key))
	}

	return &decodedHash{params: params, salt: salt, key: key}, nil
}
