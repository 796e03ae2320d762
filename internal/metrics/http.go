package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// HTTPMiddleware wraps an HTTP handler to record request count and duration
// on rec. A nil recorder records nothing.
//
// Usage:
//
//	handler := metrics.HTTPMiddleware(rec, mux)
func HTTPMiddleware(rec *Recorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		path := normalizePath(r.URL.Path)
		rec.Count(HTTPRequests, 1, "method", r.Method, "path", path, "status", statusCode(wrapped.statusCode))
		rec.Since(HTTPDuration, start, "method", r.Method, "path", path)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader captures the status code and calls the underlying WriteHeader.
func (w *responseWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Write ensures status code is set before writing.
func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(w.statusCode)
	}
	return w.ResponseWriter.Write(b)
}

var documentPath = regexp.MustCompile(`^/v1/documents/[^/]+$`)

// normalizePath maps request paths onto a bounded label set.
//
// Examples:
//   - /v1/documents/nda-01 -> /v1/documents/{id}
//   - /wp-login.php -> other
func normalizePath(path string) string {
	switch path {
	case "/", "/healthz", "/readyz", "/metrics", "/version":
		return path
	case "/v1/search", "/v1/explain", "/v1/parse", "/v1/match", "/v1/expand", "/v1/weights", "/v1/documents",
		"/v1/evaluation/run":
		return path
	}

	if documentPath.MatchString(path) {
		return "/v1/documents/{id}"
	}

	return "other"
}

// statusCode converts HTTP status code to string for metric label.
// Groups codes into categories to reduce cardinality.
func statusCode(code int) string {
	switch code {
	case 200, 201, 204, 400, 401, 403, 404, 405, 413, 429, 500, 503:
		return strconv.Itoa(code)
	}

	if code >= 100 && code < 600 {
		return strconv.Itoa(code/100) + "xx"
	}

	return strconv.Itoa(code)
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it.
func (w *responseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack implements http.Hijacker if the underlying ResponseWriter supports it.
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
}
