package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(rps float64, burst int) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(rps, burst, time.Minute)
	l.now = clock.now
	return l, clock
}

func TestAllowBurstThenRefill(t *testing.T) {
	l, clock := newTestLimiter(1, 2)

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))

	clock.advance(time.Second)
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, 1)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.Len())
}

func TestRetryAfter(t *testing.T) {
	l, _ := newTestLimiter(2, 1)
	assert.Zero(t, l.RetryAfter("unknown"))

	assert.True(t, l.Allow("a"))
	assert.Equal(t, 500*time.Millisecond, l.RetryAfter("a"))
	assert.False(t, l.Allow("a"), "RetryAfter must not consume a token")
}

func TestEvictIdle(t *testing.T) {
	l, clock := newTestLimiter(1, 1)
	l.Allow("old")
	clock.advance(2 * time.Minute)
	l.Allow("fresh")

	l.evictIdle()
	assert.Equal(t, 1, l.Len())
	assert.True(t, l.Allow("old"), "evicted key starts with a full bucket")
}
