// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

// Package web exposes the authentication service over HTTP using gin.
//
// Endpoints accept and return JSON except /profile, which renders a small
// HTML page with every user-supplied value escaped. Authenticated endpoints
// read the session token from the X-Auth-Token header or from an
// "Authorization: Bearer" header.
package web
