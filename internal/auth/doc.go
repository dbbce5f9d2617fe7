// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

// Package auth provides the authentication and authorization core of SafeVault.
//
// # Domain Types
//
// A UserRecord is a persisted credential: username, email, argon2id password
// hash and role. Records are created by Service.Register and never mutated.
//
// # Collaborators
//
// The service depends on three interfaces, each injected at construction:
//   - UserRepository - persistence of credential records (sqlite, postgres)
//   - TokenStore - opaque session token to username mapping (memory, redis)
//   - PasswordHasher - salted, self-describing password hashes
//
// # Services
//
// Service coordinates registration, credential checks, session tokens and
// role checks. It is immutable after construction and safe for concurrent use.
package auth
