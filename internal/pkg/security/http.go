package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
)

// APIKeyHeader carries the API key. "Authorization: Bearer <key>" is also
// accepted.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey rejects requests that do not present key. Paths in open
// bypass the check. An empty key disables the guard.
func RequireAPIKey(key string, open []string, next http.Handler) http.Handler {
	if key == "" {
		return next
	}

	exempt := make(map[string]bool, len(open))
	for _, p := range open {
		exempt[p] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if exempt[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		presented := r.Header.Get(APIKeyHeader)
		if presented == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				presented = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
			apperrors.WriteError(w, apperrors.New(apperrors.CodeUnauthorized, "missing or invalid API key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CORS adds cross-origin headers for the allowed origins and answers
// preflight requests. "*" allows any origin; no origins disables the guard.
func CORS(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		return next
	}

	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			h := w.Header()
			if allowAll {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+APIKeyHeader)
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LimitBody caps request bodies at maxBytes. Zero or less disables the cap.
func LimitBody(maxBytes int64, next http.Handler) http.Handler {
	if maxBytes <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxBytes {
			apperrors.WriteError(w, apperrors.New(apperrors.CodeTooLarge, "request body too large"))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		next.ServeHTTP(w, r)
	})
}
