// Package cache memoizes natural-language translations in Redis. Keys are
// derived from the normalized query, so queries differing only in case or
// surrounding whitespace share an entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/filter"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/query/parser"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/resilience"
)

const keyPrefix = "nlq:"

// Translator turns a raw query into a filter set.
type Translator interface {
	Translate(ctx context.Context, query string) (filter.Filter, error)
}

// Store is the key-value backend. *pkgredis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// TranslationCache wraps a Translator. Store failures never fail a
// translation: the cache falls through to the wrapped translator, and a
// circuit breaker stops calling the store after repeated failures.
type TranslationCache struct {
	next    Translator
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

type hitKey struct{}

// lookup is the shared result of one singleflight call.
type lookup struct {
	filter filter.Filter
	cached bool
}

// New creates a TranslationCache. m may be nil.
func New(next Translator, store Store, cfg config.CacheConfig, m *metrics.Metrics) *TranslationCache {
	c := &TranslationCache{
		next:    next,
		store:   store,
		ttl:     cfg.TTL,
		metrics: m,
		logger:  slog.Default().With("component", "translation-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("translation-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		ResetTimeout:     cfg.ResetTimeout,
		OnStateChange: func(name string, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	if m != nil {
		m.CircuitBreakerState.WithLabelValues("translation-cache").Set(float64(resilience.StateClosed))
	}
	return c
}

// Translate returns the cached filter set for query, computing and storing
// it on a miss. Concurrent misses for the same key share one computation.
func (c *TranslationCache) Translate(ctx context.Context, query string) (filter.Filter, error) {
	key := buildKey(query)
	if f, ok := c.get(ctx, key); ok {
		c.recordHit(ctx)
		return f, nil
	}

	val, err, _ := c.group.Do(key, func() (any, error) {
		// Another caller may have stored the entry while this one waited.
		if f, ok := c.get(ctx, key); ok {
			return lookup{filter: f, cached: true}, nil
		}
		f, err := c.next.Translate(ctx, query)
		if err != nil {
			return lookup{}, err
		}
		c.set(ctx, key, f)
		return lookup{filter: f}, nil
	})
	if err != nil {
		c.recordMiss()
		return filter.Filter{}, err
	}
	res := val.(lookup)
	if res.cached {
		c.recordHit(ctx)
	} else {
		c.recordMiss()
	}
	return res.filter, nil
}

// Invalidate deletes every cached translation.
func (c *TranslationCache) Invalidate(ctx context.Context) (int64, error) {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating translation cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *TranslationCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the state of the store circuit breaker.
func (c *TranslationCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *TranslationCache) get(ctx context.Context, key string) (filter.Filter, bool) {
	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			data = ""
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return filter.Filter{}, false
	}
	if data == "" {
		return filter.Filter{}, false
	}
	var f filter.Filter
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return filter.Filter{}, false
	}
	return f, true
}

func (c *TranslationCache) set(ctx context.Context, key string, f filter.Filter) {
	data, err := json.Marshal(f)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

func (c *TranslationCache) recordHit(ctx context.Context) {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	if flag, ok := ctx.Value(hitKey{}).(*bool); ok {
		*flag = true
	}
}

func (c *TranslationCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// WithHitTracking returns a context in which Translate reports cache hits
// through the returned flag.
func WithHitTracking(ctx context.Context) (context.Context, *bool) {
	hit := new(bool)
	return context.WithValue(ctx, hitKey{}, hit), hit
}

func buildKey(query string) string {
	hash := sha256.Sum256([]byte(parser.Normalize(query)))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
