// Package middleware provides the HTTP middleware of the run surface.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing for local tooling
//   - RateLimit: Per-IP token bucket rate limiting with idle client eviction
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
