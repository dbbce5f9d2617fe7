// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

// Package sanitize normalizes untrusted user input before it reaches the
// credential store, and escapes stored values before they reach an HTML page.
//
// All functions are pure and safe for concurrent use.
package sanitize

import (
	"html"
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
)

// Length limits applied before validation.
const (
	MaxUsernameLength = 50
	MaxEmailLength    = 254
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Username returns the canonical form of a username, or "" when nothing
// usable remains.
//
// The input is trimmed, cut to MaxUsernameLength grapheme clusters and then
// stripped of every rune outside [A-Za-z0-9_.-@]. Compatibility forms such as
// fullwidth letters are not folded to ASCII, so they are removed like any
// other non-ASCII rune. Whitespace inside the value is removed as well.
func Username(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	truncated := truncateGraphemes(trimmed, MaxUsernameLength)

	var b strings.Builder
	b.Grow(len(truncated))
	for _, r := range truncated {
		if usernameRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Email returns the trimmed address when it looks like an email, otherwise "".
// Case is preserved.
func Email(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if runes := []rune(trimmed); len(runes) > MaxEmailLength {
		trimmed = string(runes[:MaxEmailLength])
	}
	if !emailRegex.MatchString(trimmed) {
		return ""
	}
	return trimmed
}

// HTMLEscape replaces &, <, >, " and ' with their HTML entities.
func HTMLEscape(input string) string {
	return html.EscapeString(input)
}

func usernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-', r == '.', r == '@':
		return true
	}
	return false
}

func truncateGraphemes(s string, limit int) string {
	if uniseg.GraphemeClusterCount(s) <= limit {
		return s
	}
	g := uniseg.NewGraphemes(s)
	end := 0
	for n := 0; n < limit && g.Next(); n++ {
		_, end = g.Positions()
	}
	return s[:end]
}
