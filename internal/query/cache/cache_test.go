package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/filter"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/query/parser"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/resilience"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	v, ok := s.data[key]
	if !ok {
		return "", pkgredis.ErrNil
	}
	return v, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = string(value.([]byte))
	s.ttls[key] = ttl
	return nil
}

func (s *memoryStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

type countingTranslator struct {
	calls atomic.Int64
	delay time.Duration
	err   error
}

func (t *countingTranslator) Translate(ctx context.Context, query string) (filter.Filter, error) {
	t.calls.Add(1)
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	if t.err != nil {
		return filter.Filter{}, t.err
	}
	return parser.Parse(query), nil
}

func testConfig() config.CacheConfig {
	return config.CacheConfig{TTL: time.Minute, FailureThreshold: 2, ResetTimeout: time.Hour}
}

func TestTranslateCachesByNormalizedQuery(t *testing.T) {
	store := newMemoryStore()
	next := &countingTranslator{}
	m := metrics.New(prometheus.NewRegistry())
	c := New(next, store, testConfig(), m)
	ctx := context.Background()

	first, err := c.Translate(ctx, "Palindromes longer than 3")
	require.NoError(t, err)
	second, err := c.Translate(ctx, "  palindromes LONGER than 3 ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, filter.Filter{IsPalindrome: filter.Bool(true), MinLength: filter.Int(4)}, second)
	assert.EqualValues(t, 1, next.calls.Load())

	hits, misses := c.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 1, misses)

	require.Len(t, store.ttls, 1)
	for key, ttl := range store.ttls {
		assert.True(t, strings.HasPrefix(key, keyPrefix))
		assert.Len(t, key, len(keyPrefix)+32)
		assert.Equal(t, time.Minute, ttl)
	}
}

func TestTranslateCachesEmptyFilter(t *testing.T) {
	next := &countingTranslator{}
	c := New(next, newMemoryStore(), testConfig(), nil)

	for i := 0; i < 3; i++ {
		f, err := c.Translate(context.Background(), "xyzzy nonsense")
		require.NoError(t, err)
		assert.True(t, f.IsEmpty())
	}
	assert.EqualValues(t, 1, next.calls.Load())
}

func TestHitTracking(t *testing.T) {
	c := New(&countingTranslator{}, newMemoryStore(), testConfig(), nil)

	ctx, hit := WithHitTracking(context.Background())
	_, err := c.Translate(ctx, "palindromes")
	require.NoError(t, err)
	assert.False(t, *hit)

	ctx, hit = WithHitTracking(context.Background())
	_, err = c.Translate(ctx, "palindromes")
	require.NoError(t, err)
	assert.True(t, *hit)
}

// fillingStore simulates another replica writing the entry between the fast
// path lookup and the re-check inside the shared call.
type fillingStore struct {
	*memoryStore
	fill  string
	calls int
}

func (s *fillingStore) Get(ctx context.Context, key string) (string, error) {
	s.calls++
	v, err := s.memoryStore.Get(ctx, key)
	if s.calls == 1 && pkgredis.IsNilError(err) {
		s.mu.Lock()
		s.data[key] = s.fill
		s.mu.Unlock()
	}
	return v, err
}

func TestHitOnRecheckCountsAsHit(t *testing.T) {
	data, err := json.Marshal(filter.Filter{IsPalindrome: filter.Bool(true)})
	require.NoError(t, err)
	store := &fillingStore{memoryStore: newMemoryStore(), fill: string(data)}
	next := &countingTranslator{}
	c := New(next, store, testConfig(), nil)

	ctx, hit := WithHitTracking(context.Background())
	f, err := c.Translate(ctx, "palindromes")
	require.NoError(t, err)
	assert.True(t, *f.IsPalindrome)
	assert.True(t, *hit)
	assert.Zero(t, next.calls.Load())

	hits, misses := c.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 0, misses)
}

func TestConcurrentMissesShareOneTranslation(t *testing.T) {
	next := &countingTranslator{delay: 20 * time.Millisecond}
	c := New(next, newMemoryStore(), testConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := c.Translate(context.Background(), "single word palindromes")
			assert.NoError(t, err)
			assert.Equal(t, 1, *f.WordCount)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, next.calls.Load())
}

func TestStoreFailureFallsThroughAndTripsBreaker(t *testing.T) {
	store := newMemoryStore()
	store.setErr(errors.New("connection refused"))
	next := &countingTranslator{}
	c := New(next, store, testConfig(), nil)

	for i := 0; i < 3; i++ {
		f, err := c.Translate(context.Background(), "palindromes")
		require.NoError(t, err)
		assert.True(t, *f.IsPalindrome)
	}
	assert.EqualValues(t, 3, next.calls.Load())
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	_, err := c.Invalidate(context.Background())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestTranslatorErrorIsNotCached(t *testing.T) {
	store := newMemoryStore()
	next := &countingTranslator{err: errors.New("boom")}
	c := New(next, store, testConfig(), nil)

	_, err := c.Translate(context.Background(), "palindromes")
	assert.Error(t, err)
	assert.Empty(t, store.data)
}

func TestInvalidate(t *testing.T) {
	store := newMemoryStore()
	store.data["other:key"] = "keep"
	c := New(&countingTranslator{}, store, testConfig(), nil)

	for _, q := range []string{"palindromes", "two word strings"} {
		_, err := c.Translate(context.Background(), q)
		require.NoError(t, err)
	}

	deleted, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
	assert.Equal(t, map[string]string{"other:key": "keep"}, store.data)
}

func TestBuildKeyNormalizes(t *testing.T) {
	assert.Equal(t, buildKey("Palindromes"), buildKey("  palindromes\t"))
	assert.NotEqual(t, buildKey("palindromes"), buildKey("palindrome"))
}
