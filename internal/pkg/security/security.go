// Package security provides request guards (API key, CORS, body size),
// input validation and the scrubbing applied to user input before it is
// logged.
package security

import (
	"net/http"
	"strings"
	"unicode"
)

// MaxLogValueLength caps user-supplied values written to logs.
const MaxLogValueLength = 120

// Redacted replaces credential values in logged headers.
const Redacted = "[REDACTED]"

// SanitizeForLog makes user input safe to embed in a log line or error
// detail: line breaks and tabs are escaped, other control characters
// dropped, and the result capped at MaxLogValueLength runes.
func SanitizeForLog(s string) string {
	return SanitizeForLogWithLength(s, MaxLogValueLength)
}

// SanitizeForLogWithLength is SanitizeForLog with an explicit cap.
func SanitizeForLogWithLength(s string, maxLen int) string {
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n >= maxLen {
			b.WriteString("...")
			break
		}
		if esc, ok := logEscapes[r]; ok {
			b.WriteString(esc)
			n += len(esc)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

var logEscapes = map[rune]string{
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
}

// credentialHeaders always carry secrets. Any other header whose name
// contains one of credentialHints is treated the same way.
var credentialHeaders = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"set-cookie":          {},
}

var credentialHints = []string{"key", "token", "secret", "password", "auth", "credential"}

// MaskSensitiveHeaders returns a copy of h with credential values replaced
// by Redacted. APIKeyHeader is always masked.
func MaskSensitiveHeaders(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	out := make(http.Header, len(h))
	for name, values := range h {
		if isCredentialHeader(name) {
			out[name] = []string{Redacted}
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}

func isCredentialHeader(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := credentialHeaders[lower]; ok {
		return true
	}
	for _, hint := range credentialHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
