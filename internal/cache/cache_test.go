package cache

import (
	"testing"
	"time"

	"github.com/patentlens/kernel/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetRoundTrip(t *testing.T) {
	t.Parallel()

	c := New[string, int](clock.NewFixed(time.Now()), 10, time.Hour)

	c.Set("a", 1)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTTLExpiry(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	fc := clock.NewFixed(start)

	c := New[string, string](fc, 10, time.Hour)
	c.Set("k", "v")

	fc.Advance(59 * time.Minute)

	_, ok := c.Get("k")
	assert.True(t, ok, "entry inserted at t should still be present just before TTL")

	fc.Advance(2 * time.Minute)

	_, ok = c.Get("k")
	assert.False(t, ok, "entry should be absent after t + TTL (invariant 9)")
}

func TestCapacityEvictsOldest(t *testing.T) {
	t.Parallel()

	fc := clock.NewFixed(time.Now())
	c := New[string, int](fc, 2, time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	_, aOk := c.Get("a")
	_, bOk := c.Get("b")
	_, cOk := c.Get("c")

	assert.False(t, aOk, "oldest entry should be evicted when capacity is exceeded")
	assert.True(t, bOk)
	assert.True(t, cOk)
	assert.Equal(t, 2, c.Len())
}

func TestGetRefreshesRecency(t *testing.T) {
	t.Parallel()

	fc := clock.NewFixed(time.Now())
	c := New[string, int](fc, 2, time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most-recently-used
	c.Set("c", 3)

	_, aOk := c.Get("a")
	_, bOk := c.Get("b")

	assert.True(t, aOk, "recently-accessed entry should survive eviction")
	assert.False(t, bOk, "least-recently-used entry should be evicted")
}
