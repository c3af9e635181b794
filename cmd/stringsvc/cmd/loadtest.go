package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type loadConfig struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Seed        int
}

// step is one request in the workload mix. ok lists the statuses that
// count as success for it.
type step struct {
	name   string
	method string
	path   string
	body   string
	ok     []int
}

type endpointStats struct {
	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
	failures  int64
}

type loadStats struct {
	total     atomic.Int64
	success   atomic.Int64
	errors    atomic.Int64
	mu        sync.Mutex
	endpoints map[string]*endpointStats
}

func newLoadStats() *loadStats {
	return &loadStats{endpoints: make(map[string]*endpointStats)}
}

func (s *loadStats) record(name string, d time.Duration, status int, success bool) {
	s.total.Add(1)
	if success {
		s.success.Add(1)
	} else {
		s.errors.Add(1)
	}

	s.mu.Lock()
	ep, ok := s.endpoints[name]
	if !ok {
		ep = &endpointStats{codes: make(map[int]int64)}
		s.endpoints[name] = ep
	}
	s.mu.Unlock()

	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.latencies = append(ep.latencies, d)
	ep.codes[status]++
	if !success {
		ep.failures++
	}
}

var loadQueries = []string{
	"all single word palindromic strings",
	"strings longer than 10 characters",
	"palindromic strings that contain the first vowel",
	"strings containing the letter z",
	"two word strings",
	"shorter than 5",
	"strings with the second vowel",
}

var loadFilters = []string{
	"is_palindrome=true",
	"min_length=5&max_length=20",
	"word_count=2",
	"contains_character=a",
	"is_palindrome=false&word_count=1",
}

func seedValues(n int) []string {
	words := []string{"level", "radar", "hello", "world", "noon", "stats", "zebra", "civic", "kayak", "pizza"}
	values := make([]string, 0, n)
	for i := 0; i < n; i++ {
		switch i % 3 {
		case 0:
			values = append(values, words[i%len(words)]+fmt.Sprint(i))
		case 1:
			values = append(values, words[i%len(words)]+" "+words[(i+3)%len(words)])
		default:
			w := words[i%len(words)]
			values = append(values, w+strings.Repeat("x", i%4)+reverse(w))
		}
	}
	return values
}

func reverse(s string) string {
	r := []rune(s)
	slices.Reverse(r)
	return string(r)
}

// workload interleaves reads, natural-language queries and create/delete
// churn in a fixed ratio.
func workload(values []string) []step {
	var steps []step
	for i, q := range loadQueries {
		steps = append(steps, step{
			name:   "nl_query",
			method: http.MethodGet,
			path:   "/strings/filter-by-natural-language?query=" + url.QueryEscape(q),
			ok:     []int{http.StatusOK},
		})
		steps = append(steps, step{
			name:   "list",
			method: http.MethodGet,
			path:   "/strings?" + loadFilters[i%len(loadFilters)],
			ok:     []int{http.StatusOK},
		})
		v := values[i%len(values)]
		steps = append(steps, step{
			name:   "get",
			method: http.MethodGet,
			path:   "/strings/" + url.PathEscape(v),
			ok:     []int{http.StatusOK, http.StatusNotFound},
		})
	}
	churn := fmt.Sprintf("churn %d", time.Now().UnixNano())
	steps = append(steps,
		step{name: "create", method: http.MethodPost, path: "/strings", body: fmt.Sprintf(`{"value":%q}`, churn), ok: []int{http.StatusCreated, http.StatusConflict}},
		step{name: "delete", method: http.MethodDelete, path: "/strings/" + url.PathEscape(churn), ok: []int{http.StatusNoContent, http.StatusNotFound}},
	)
	return steps
}

func newLoadTestCmd() *cobra.Command {
	cfg := loadConfig{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive a running service with a mixed workload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== String Analysis Load Test ===")
			fmt.Fprintf(out, "Target:      %s\n", cfg.BaseURL)
			fmt.Fprintf(out, "Concurrency: %d\n", cfg.Concurrency)
			fmt.Fprintf(out, "Duration:    %s\n", cfg.Duration)
			fmt.Fprintf(out, "Seed:        %d strings\n\n", cfg.Seed)

			stats, err := runLoadTest(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printLoadReport(out, stats, cfg.Duration)
			if stats.total.Load() == 0 {
				return fmt.Errorf("no requests completed; is the service running?")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:3000", "base URL of the service")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 10, "number of concurrent workers")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 30*time.Second, "test duration")
	cmd.Flags().IntVar(&cfg.Seed, "seed", 50, "strings to create before the run")
	return cmd
}

func runLoadTest(ctx context.Context, cfg loadConfig) (*loadStats, error) {
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive")
	}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	values := seedValues(max(cfg.Seed, 1))
	for _, v := range values[:max(cfg.Seed, 0)] {
		s := step{method: http.MethodPost, path: "/strings", body: fmt.Sprintf(`{"value":%q}`, v)}
		if _, _, err := send(ctx, client, base, s); err != nil {
			return nil, fmt.Errorf("seeding: %w", err)
		}
	}

	stats := newLoadStats()
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			steps := workload(values)
			for i := w; ; i++ {
				if ctx.Err() != nil {
					return nil
				}
				s := steps[i%len(steps)]
				status, d, err := send(ctx, client, base, s)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					stats.record(s.name, d, 0, false)
					continue
				}
				stats.record(s.name, d, status, slices.Contains(s.ok, status))
			}
		})
	}
	return stats, g.Wait()
}

func send(ctx context.Context, client *http.Client, base string, s step) (int, time.Duration, error) {
	var body io.Reader
	if s.body != "" {
		body = strings.NewReader(s.body)
	}
	req, err := http.NewRequestWithContext(ctx, s.method, base+s.path, body)
	if err != nil {
		return 0, 0, fmt.Errorf("creating request: %w", err)
	}
	if s.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, time.Since(start), err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, time.Since(start), nil
}

func printLoadReport(out io.Writer, stats *loadStats, duration time.Duration) {
	total := stats.total.Load()
	errs := stats.errors.Load()

	fmt.Fprintln(out, "=== Results ===")
	fmt.Fprintf(out, "Total Requests:  %d\n", total)
	fmt.Fprintf(out, "Successful:      %d\n", stats.success.Load())
	fmt.Fprintf(out, "Errors:          %d\n", errs)
	if total > 0 {
		fmt.Fprintf(out, "Error Rate:      %.2f%%\n", float64(errs)/float64(total)*100)
		fmt.Fprintf(out, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	names := make([]string, 0, len(stats.endpoints))
	for name := range stats.endpoints {
		names = append(names, name)
	}
	stats.mu.Unlock()
	slices.Sort(names)

	for _, name := range names {
		ep := stats.endpoints[name]
		ep.mu.Lock()
		lat := slices.Clone(ep.latencies)
		codes := make([]int, 0, len(ep.codes))
		for c := range ep.codes {
			codes = append(codes, c)
		}
		slices.Sort(codes)
		fmt.Fprintf(out, "\n=== %s (%d requests, %d failed) ===\n", name, len(lat), ep.failures)
		for _, c := range codes {
			fmt.Fprintf(out, "  status %d: %d\n", c, ep.codes[c])
		}
		ep.mu.Unlock()

		if len(lat) == 0 {
			continue
		}
		slices.Sort(lat)
		fmt.Fprintf(out, "  min %s  p50 %s  p95 %s  p99 %s  max %s\n",
			lat[0], percentile(lat, 50), percentile(lat, 95), percentile(lat, 99), lat[len(lat)-1])
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
