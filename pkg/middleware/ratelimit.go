package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/errors"
)

// Allower decides whether key may make another request under limit.
type Allower interface {
	Allow(key string, limit int) bool
}

// RateLimit enforces limit requests per window per client address. Health
// endpoints are exempt and a non-positive limit disables the middleware.
func RateLimit(limiter Allower, limit int, retryAfterSeconds int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" || strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(clientAddr(r), limit) {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
				writeError(w, apperrors.New(apperrors.ErrRateLimited, 0, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr prefers the first X-Forwarded-For hop, then the remote host.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
