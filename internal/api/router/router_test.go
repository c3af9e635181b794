package router

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/api/handler"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/query/parser"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/repository"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/service"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/metrics"
)

func newServer(t *testing.T, limiter *ratelimit.Limiter) *httptest.Server {
	t.Helper()
	return newServerWithRegistry(t, limiter, prometheus.NewRegistry())
}

func newServerWithRegistry(t *testing.T, limiter *ratelimit.Limiter, reg *prometheus.Registry) *httptest.Server {
	t.Helper()
	agg := analytics.NewAggregator(5)
	svc := service.New(repository.NewMemory(), parser.New())
	h := handler.New(svc, handler.Deps{Tracker: agg})

	srv := httptest.NewServer(New(h, Options{
		Analytics:      analytics.NewHandler(agg),
		Health:         health.NewChecker(),
		Limiter:        limiter,
		Metrics:        metrics.New(reg),
		CORS:           config.Default().CORS,
		RequestTimeout: 2 * time.Second,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func request(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestRoutes(t *testing.T) {
	srv := newServer(t, nil)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusOK},
		{http.MethodPost, "/strings", `{"value":"madam"}`, http.StatusCreated},
		{http.MethodGet, "/strings", "", http.StatusOK},
		{http.MethodGet, "/strings/madam", "", http.StatusOK},
		{http.MethodGet, "/strings/filter-by-natural-language?query=palindromes", "", http.StatusOK},
		{http.MethodGet, "/analytics", "", http.StatusOK},
		{http.MethodGet, "/cache/stats", "", http.StatusOK},
		{http.MethodDelete, "/strings/madam", "", http.StatusNoContent},
		{http.MethodGet, "/unknown/route", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp := request(t, tt.method, srv.URL+tt.path, tt.body)
		assert.Equal(t, tt.status, resp.StatusCode, "%s %s", tt.method, tt.path)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"), "%s %s", tt.method, tt.path)
	}
}

func TestNaturalLanguageRouteNotShadowedByValue(t *testing.T) {
	srv := newServer(t, nil)

	resp := request(t, http.MethodGet, srv.URL+"/strings/filter-by-natural-language", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Missing query parameter")
}

func TestAnalyticsReflectsTraffic(t *testing.T) {
	srv := newServer(t, nil)
	request(t, http.MethodPost, srv.URL+"/strings", `{"value":"abc"}`)
	request(t, http.MethodGet, srv.URL+"/strings/filter-by-natural-language?query=xyzzy", "")

	resp := request(t, http.MethodGet, srv.URL+"/analytics", "")
	body := readBody(t, resp)
	assert.Contains(t, body, `"strings_created":1`)
	assert.Contains(t, body, `"xyzzy"`)
}

func TestGzipNegotiation(t *testing.T) {
	srv := newServer(t, nil)
	for i := 0; i < 40; i++ {
		request(t, http.MethodPost, srv.URL+"/strings", `{"value":"padding value number `+strings.Repeat("x", i)+`"}`)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/strings", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := (&http.Transport{DisableCompression: true}).RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(plain), `"count":40`)
}

func TestRateLimitApplied(t *testing.T) {
	srv := newServer(t, ratelimit.New(0.001, 1, time.Minute))

	assert.Equal(t, http.StatusOK, request(t, http.MethodGet, srv.URL+"/strings", "").StatusCode)
	resp := request(t, http.MethodGet, srv.URL+"/strings", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	assert.Equal(t, http.StatusOK, request(t, http.MethodGet, srv.URL+"/health", "").StatusCode)
}

func TestRequestMetricsUseBoundedPathLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := newServerWithRegistry(t, nil, reg)

	for _, path := range []string{"/nope/1", "/nope/2", "/nope/3", "/health", "/strings/abc", "/strings/xyz"} {
		request(t, http.MethodGet, srv.URL+path, "")
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "path" {
					counts[label.GetValue()] += metric.GetCounter().GetValue()
				}
			}
		}
	}

	assert.Equal(t, map[string]float64{
		"unmatched":        3,
		"/health":          1,
		"/strings/{value}": 2,
	}, counts)
}
