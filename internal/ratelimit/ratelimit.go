// Package ratelimit provides a pluggable rate limiting interface with an
// in-memory token bucket implementation. A multi-instance deployment could
// substitute a Redis-backed limiter; the Limiter interface is the contract.
package ratelimit

import (
	"context"
	"net"
	"net/http"
)

// Limiter decides whether a request identified by key should proceed.
// Implementations must be safe for concurrent use. Errors signal a limiter
// malfunction; callers should fail open rather than block traffic.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }

// IPKey derives a rate-limit key from the client IP of a request.
func IPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
