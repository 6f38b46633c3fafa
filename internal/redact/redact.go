// Package redact strips credentials from strings that end up in logs,
// run records, and chat notifications.
package redact

import (
	"regexp"
	"strings"
)

var (
	bearerTokenRe = regexp.MustCompile(`(?i)\b(Bearer|Basic)\s+[^\s"']+`)
	apiKeyKVRe    = regexp.MustCompile(`(?i)\b(api[_-]?key|key|token|password)=[^\s"'&]+`)
	botTokenRe    = regexp.MustCompile(`\bbot\d+:[A-Za-z0-9_-]+`)
)

// Secrets removes obvious secret-bearing substrings.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := bearerTokenRe.ReplaceAllString(s, "$1 <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "$1=<redacted>")
	out = botTokenRe.ReplaceAllString(out, "bot<redacted>")
	return strings.TrimSpace(out)
}

// Snippet returns a single-line, redacted, truncated hint of a response body.
func Snippet(body []byte, max int) string {
	if len(body) == 0 {
		return ""
	}
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := Secrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
