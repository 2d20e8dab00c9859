// Package ident generates and sanitizes the identifiers used for path
// primary keys, request IDs, and user-facing slugs.
package ident

import (
	"regexp"

	"github.com/google/uuid"
)

var slugStrip = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// GenerateID returns a fresh random identifier in canonical hyphenated
// UUID form. Used both as internal primary keys and as default slugs.
func GenerateID() string {
	return uuid.New().String()
}

// SanitizeSlug reduces a user-supplied slug to the URL-safe charset
// [A-Za-z0-9_-]. An empty candidate, or one that strips to nothing,
// falls back to a generated identifier. Never returns an empty string.
func SanitizeSlug(candidate string) string {
	if candidate == "" {
		return GenerateID()
	}
	sanitized := slugStrip.ReplaceAllString(candidate, "")
	if sanitized == "" {
		return GenerateID()
	}
	return sanitized
}

// IsValidID reports whether s parses as a canonical UUID.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
