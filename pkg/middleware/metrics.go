// Package middleware provides reusable HTTP middleware for request IDs,
// Prometheus metrics, and request timeouts.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/metrics"
)

// Metrics returns middleware that records HTTP request count, latency, and
// in-flight gauge.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			var route atomic.Pointer[string]
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), routeKey{}, &route)))

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path)
			if p := route.Load(); p != nil {
				path = *p
			}

			m.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				path,
				strconv.Itoa(sw.status),
			).Inc()

			m.HTTPRequestDuration.WithLabelValues(
				r.Method,
				path,
			).Observe(duration)
		})
	}
}

// UnmatchedRoute labels requests that no registered route handled.
const UnmatchedRoute = "unmatched"

type routeKey struct{}

// Route wraps mux so Metrics labels each request with the pattern it matched.
// The mux only sets Pattern on the request it hands to the handler, which
// middleware further out never sees.
func Route(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route, ok := r.Context().Value(routeKey{}).(*atomic.Pointer[string]); ok {
			_, pattern := mux.Handler(r)
			label := routeLabel(pattern)
			route.Store(&label)
		}
		mux.ServeHTTP(w, r)
	})
}

// routeLabel strips the method from a mux pattern. The catch-all "/" and
// an empty pattern both mean nothing specific matched.
func routeLabel(pattern string) string {
	if _, path, ok := strings.Cut(pattern, " "); ok {
		pattern = path
	}
	switch pattern {
	case "", "/":
		return UnmatchedRoute
	case "/{$}":
		return "/"
	}
	return pattern
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}

var knownPaths = map[string]bool{
	"/":                                   true,
	"/health":                             true,
	"/health/live":                        true,
	"/health/ready":                       true,
	"/strings":                            true,
	"/strings/filter-by-natural-language": true,
	"/analytics":                          true,
	"/cache/stats":                        true,
	"/cache/invalidate":                   true,
}

// normalizePath is the fallback label when Route did not run, for example
// when the request timed out before reaching the mux. Stored values and
// unknown paths never become label values.
func normalizePath(path string) string {
	if knownPaths[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/strings/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/strings/{value}"
	}
	return UnmatchedRoute
}
