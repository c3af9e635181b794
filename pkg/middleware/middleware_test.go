package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/metrics"
)

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-supplied", seen)
	assert.Equal(t, "client-supplied", rec.Header().Get(RequestIDHeader))
}

func TestTimeoutWritesServiceUnavailable(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		<-release
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"Request timed out"}`, rec.Body.String())
}

func TestTimeoutPassesFastResponses(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "yes", rec.Header().Get("X-Test"))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsRecordsNormalizedPath(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/strings/hello", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/strings/world", nil))

	var counter dto.Metric
	require.NoError(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/strings/{value}", "404").Write(&counter))
	assert.Equal(t, 2.0, counter.GetCounter().GetValue())

	var gauge dto.Metric
	require.NoError(t, m.HTTPRequestsInFlight.Write(&gauge))
	assert.Equal(t, 0.0, gauge.GetGauge().GetValue())
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/strings/{value}", normalizePath("/strings/abc"))
	assert.Equal(t, "/strings/filter-by-natural-language", normalizePath("/strings/filter-by-natural-language"))
	assert.Equal(t, "/strings", normalizePath("/strings"))
	assert.Equal(t, "/health", normalizePath("/health"))
	assert.Equal(t, UnmatchedRoute, normalizePath("/nope/1"))
	assert.Equal(t, UnmatchedRoute, normalizePath("/strings/a/b"))
	assert.Equal(t, UnmatchedRoute, normalizePath("/strings/"))
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/strings/{value}", routeLabel("GET /strings/{value}"))
	assert.Equal(t, "/health", routeLabel("GET /health"))
	assert.Equal(t, "/", routeLabel("GET /{$}"))
	assert.Equal(t, UnmatchedRoute, routeLabel("/"))
	assert.Equal(t, UnmatchedRoute, routeLabel(""))
}

func TestMetricsLabelsMatchedPatternThroughTimeout(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /strings/{value}", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := Metrics(m)(Timeout(time.Second)(Route(mux)))

	for _, path := range []string{"/strings/a", "/strings/b", "/nope/1", "/nope/2"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var counter dto.Metric
	require.NoError(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/strings/{value}", "200").Write(&counter))
	assert.Equal(t, 2.0, counter.GetCounter().GetValue())
	require.NoError(t, m.HTTPRequestsTotal.WithLabelValues("GET", UnmatchedRoute, "404").Write(&counter))
	assert.Equal(t, 2.0, counter.GetCounter().GetValue())
}
