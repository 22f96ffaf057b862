package middleware

import (
	"net/http"
	"strconv"

	"github.com/civicpulse/civicpulse/internal/ratelimit"
	"github.com/civicpulse/civicpulse/pkg/utils"
)

// RedisRateLimiter uses a Redis-backed manager; if nil, it no-ops and calls next
func RedisRateLimiter(m *ratelimit.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}

			// Hash the address so raw IPs never land in Redis keys
			client := utils.HashString(clientIP(r))
			method, path := r.Method, r.URL.Path
			rpm := m.Limit(method, path)

			allowed, reset, err := m.CheckRate(r.Context(), client, method, path, rpm)
			if err != nil {
				// Redis being down should not take the API with it
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(reset))
				write429(w)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rpm))
			next.ServeHTTP(w, r)
		})
	}
}
