package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/metrics"
)

// RateLimit rejects requests from clients that exhausted their token bucket
// with 429 and a Retry-After header. Health probes are never limited.
// m may be nil.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			key := ClientIP(r)
			if !limiter.Allow(key) {
				retry := int(math.Ceil(limiter.RetryAfter(key).Seconds()))
				if retry < 1 {
					retry = 1
				}
				if m != nil {
					m.RateLimitedTotal.Inc()
				}
				logger.FromContext(r.Context()).Warn("rate limit exceeded", "client", key)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Rate limit exceeded"}` + "\n"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For address when present, otherwise
// the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
