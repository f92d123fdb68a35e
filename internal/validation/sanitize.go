// Package validation provides input sanitization utilities
package validation

import (
	"regexp"
	"strings"
)

var (
	whitespaceRuns        = regexp.MustCompile(`\s+`)
	ckeyDisallowed        = regexp.MustCompile(`[^a-z0-9_]`)
	channelNameDisallowed = regexp.MustCompile(`[^a-z0-9\-_]`)
)

// SanitizeCkey normalizes a user-supplied ckey: lowercase, whitespace runs
// collapsed to a single underscore, and every character outside [a-z0-9_]
// stripped.
func SanitizeCkey(raw string) string {
	s := whitespaceRuns.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "_")
	return ckeyDisallowed.ReplaceAllString(s, "")
}

// SanitizeChannelName normalizes a user-supplied channel name with the same
// rule as ckeys, except hyphens survive.
func SanitizeChannelName(raw string) string {
	s := whitespaceRuns.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "_")
	return channelNameDisallowed.ReplaceAllString(s, "")
}
