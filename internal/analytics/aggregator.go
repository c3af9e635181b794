package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/kafka"
)

const maxLatencySamples = 10000

type Stats struct {
	StringsCreated         int64            `json:"strings_created"`
	StringsDeleted         int64            `json:"strings_deleted"`
	ListQueries            int64            `json:"list_queries"`
	NLQueries              int64            `json:"nl_queries"`
	Outcomes               map[string]int64 `json:"outcomes"`
	CacheHits              int64            `json:"cache_hits"`
	CacheMisses            int64            `json:"cache_misses"`
	ZeroResultQueries      int64            `json:"zero_result_queries"`
	AvgLatencyMs           float64          `json:"avg_latency_ms"`
	P50LatencyMs           int64            `json:"p50_latency_ms"`
	P95LatencyMs           int64            `json:"p95_latency_ms"`
	P99LatencyMs           int64            `json:"p99_latency_ms"`
	TopQueries             []QueryCount     `json:"top_queries"`
	UninterpretableQueries []QueryCount     `json:"uninterpretable_queries"`
	QueriesPerMinute       float64          `json:"queries_per_minute"`
	Since                  time.Time        `json:"since"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds events into running totals. It is fed either directly
// through Track or from the analytics topic through HandleEvent.
type Aggregator struct {
	mu              sync.RWMutex
	created         int64
	deleted         int64
	listQueries     int64
	nlQueries       int64
	cacheHits       int64
	cacheMisses     int64
	zeroResults     int64
	outcomes        map[Outcome]int64
	latencies       []int64
	latencyNext     int
	queryCounts     map[string]int64
	uninterpretable map[string]int64
	topN            int
	startTime       time.Time
	now             func() time.Time
	logger          *slog.Logger
}

// NewAggregator creates an Aggregator reporting the topN most frequent
// queries.
func NewAggregator(topN int) *Aggregator {
	if topN <= 0 {
		topN = 10
	}
	return &Aggregator{
		outcomes:        make(map[Outcome]int64),
		latencies:       make([]int64, 0, 1024),
		queryCounts:     make(map[string]int64),
		uninterpretable: make(map[string]int64),
		topN:            topN,
		startTime:       time.Now(),
		now:             time.Now,
		logger:          slog.Default().With("component", "analytics-aggregator"),
	}
}

// Consume folds events from the analytics topic until ctx is cancelled.
func (a *Aggregator) Consume(ctx context.Context, cfg config.KafkaConfig) error {
	consumer := kafka.NewConsumer(cfg, cfg.Topics.AnalyticsEvents, HandleEvent(a))
	a.logger.Info("analytics aggregator consuming", "topic", cfg.Topics.AnalyticsEvents)
	return consumer.Start(ctx)
}

// HandleEvent decodes analytics topic messages into agg. Undecodable
// messages are logged and skipped so they are still committed.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[Event](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
			return nil
		}
		agg.Track(event)
		return nil
	}
}

func (a *Aggregator) Track(event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.outcomes[event.Outcome]++
	switch event.Type {
	case EventStringCreated:
		if event.Outcome == OutcomeOK {
			a.created++
		}
		return
	case EventStringDeleted:
		if event.Outcome == OutcomeOK {
			a.deleted++
		}
		return
	case EventListQuery:
		a.listQueries++
	case EventNLQuery:
		a.nlQueries++
		if event.CacheHit {
			a.cacheHits++
		} else {
			a.cacheMisses++
		}
		a.queryCounts[event.Query]++
		if event.Outcome == OutcomeUninterpretable {
			a.uninterpretable[event.Query]++
		}
	default:
		return
	}

	if event.Outcome == OutcomeOK && event.ResultCount == 0 {
		a.zeroResults++
	}
	a.recordLatency(event.LatencyMs)
}

// recordLatency keeps the most recent maxLatencySamples query latencies.
func (a *Aggregator) recordLatency(ms int64) {
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, ms)
		return
	}
	a.latencies[a.latencyNext] = ms
	a.latencyNext = (a.latencyNext + 1) % maxLatencySamples
}

func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		StringsCreated:    a.created,
		StringsDeleted:    a.deleted,
		ListQueries:       a.listQueries,
		NLQueries:         a.nlQueries,
		Outcomes:          make(map[string]int64, len(a.outcomes)),
		CacheHits:         a.cacheHits,
		CacheMisses:       a.cacheMisses,
		ZeroResultQueries: a.zeroResults,
		Since:             a.startTime.UTC(),
	}
	for o, n := range a.outcomes {
		stats.Outcomes[string(o)] = n
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, a.topN)
	stats.UninterpretableQueries = topN(a.uninterpretable, a.topN)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(a.listQueries+a.nlQueries) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then by query for a stable result.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
