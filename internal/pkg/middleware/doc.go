// Package middleware provides HTTP middleware components for the relevance
// server.
//
// Available middleware:
//   - RateLimiter: Per-client rate limiting using token bucket algorithm
//
// Usage:
//
//	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
//	defer rl.Close()
//	handler = rl.Middleware(handler)
package middleware
