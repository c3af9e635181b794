// Package router wires the string API routes and the middleware chain.
package router

import (
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/api/handler"
	apimw "github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/api/middleware"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/middleware"
)

// Options carries the optional pieces of the chain. Nil fields skip the
// matching route or middleware.
type Options struct {
	Analytics      *analytics.Handler
	Health         *health.Checker
	Limiter        *ratelimit.Limiter
	Metrics        *metrics.Metrics
	CORS           config.CORSConfig
	RequestTimeout time.Duration
}

// New builds the HTTP handler.
//
// Route table:
//
//	GET    /                                   → service banner
//	GET    /health                             → liveness with timestamp
//	GET    /health/live, /health/ready         → probe endpoints
//	POST   /strings                            → analyze and store
//	GET    /strings                            → list with filters
//	GET    /strings/filter-by-natural-language → natural-language filter
//	GET    /strings/{value}                    → fetch one
//	DELETE /strings/{value}                    → delete one
//	GET    /analytics                          → usage statistics
//	GET    /cache/stats                        → translation cache counters
//	POST   /cache/invalidate                   → drop cached translations
//
// Middleware chain (outermost first):
//
//	RequestID → Gzip → CORS → RateLimit → Metrics → Timeout → Route → mux
func New(h *handler.Handler, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /health", h.Health)
	if opts.Health != nil {
		mux.HandleFunc("GET /health/live", opts.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", opts.Health.ReadyHandler())
	}

	mux.HandleFunc("POST /strings", h.CreateString)
	mux.HandleFunc("GET /strings", h.ListStrings)
	// Registered before {value}; the literal segment is more specific anyway.
	mux.HandleFunc("GET /strings/filter-by-natural-language", h.FilterByNaturalLanguage)
	mux.HandleFunc("GET /strings/{value}", h.GetString)
	mux.HandleFunc("DELETE /strings/{value}", h.DeleteString)

	if opts.Analytics != nil {
		mux.HandleFunc("GET /analytics", opts.Analytics.Stats)
	}
	mux.HandleFunc("GET /cache/stats", h.CacheStats)
	mux.HandleFunc("POST /cache/invalidate", h.CacheInvalidate)

	mux.HandleFunc("/", h.NotFound)

	var chain http.Handler = pkgmw.Route(mux)
	chain = pkgmw.Timeout(opts.RequestTimeout)(chain)
	if opts.Metrics != nil {
		chain = pkgmw.Metrics(opts.Metrics)(chain)
	}
	if opts.Limiter != nil {
		chain = apimw.RateLimit(opts.Limiter, opts.Metrics)(chain)
	}
	chain = apimw.CORS(opts.CORS)(chain)
	chain = gzhttp.GzipHandler(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
