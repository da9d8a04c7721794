package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(ttl time.Duration) (*MemoryCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(ttl)
	c.now = clock.Now
	return c, clock
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("hit before expiry, miss after", func(t *testing.T) {
		c, clock := newTestCache(30 * time.Second)

		require.NoError(t, c.Set(ctx, GroupStatsKey("g1"), []byte(`{"memberCount":3}`), 0))

		v, ok, err := c.Get(ctx, GroupStatsKey("g1"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"memberCount":3}`, string(v))

		clock.Advance(30 * time.Second)
		_, ok, err = c.Get(ctx, GroupStatsKey("g1"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("explicit ttl overrides default", func(t *testing.T) {
		c, clock := newTestCache(30 * time.Second)

		require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
		clock.Advance(45 * time.Second)

		_, ok, _ := c.Get(ctx, "k")
		assert.True(t, ok)
	})

	t.Run("delete removes only the named keys", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)

		require.NoError(t, c.Set(ctx, GroupStatsKey("g1"), []byte("1"), 0))
		require.NoError(t, c.Set(ctx, GroupStatsKey("g2"), []byte("2"), 0))
		require.NoError(t, c.Delete(ctx, GroupStatsKey("g1")))

		_, ok, _ := c.Get(ctx, GroupStatsKey("g1"))
		assert.False(t, ok)
		_, ok, _ = c.Get(ctx, GroupStatsKey("g2"))
		assert.True(t, ok)
	})

	t.Run("clear empties the cache", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)

		require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
		require.NoError(t, c.Clear(ctx))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("sweep drops expired entries", func(t *testing.T) {
		c, clock := newTestCache(time.Minute)

		require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
		require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))
		clock.Advance(2 * time.Second)

		assert.Equal(t, 1, c.sweep())
		assert.Equal(t, 1, c.Len())
	})
}

func TestStartSweeperDisabled(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.StartSweeper(ctx, 0)
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	clock.Advance(time.Minute)

	// Expired but still stored: nothing swept it.
	assert.Equal(t, 1, c.Len())
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()

	type stats struct {
		MemberCount int `json:"memberCount"`
	}

	t.Run("loads once and then serves from cache", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		l := NewLoader(c, 0)

		var calls int
		load := func(context.Context) (stats, error) {
			calls++
			return stats{MemberCount: 4}, nil
		}

		first, err := GetOrLoad(ctx, l, GroupStatsKey("g1"), load)
		require.NoError(t, err)
		second, err := GetOrLoad(ctx, l, GroupStatsKey("g1"), load)
		require.NoError(t, err)

		assert.Equal(t, 4, first.MemberCount)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, calls)
	})

	t.Run("load errors are returned and not cached", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		l := NewLoader(c, 0)
		boom := errors.New("boom")

		_, err := GetOrLoad(ctx, l, "k", func(context.Context) (stats, error) { return stats{}, boom })
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("concurrent misses share one load", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		l := NewLoader(c, 0)

		var calls atomic.Int32
		release := make(chan struct{})
		load := func(context.Context) (stats, error) {
			calls.Add(1)
			<-release
			return stats{MemberCount: 7}, nil
		}

		const readers = 8
		var wg sync.WaitGroup
		results := make([]stats, readers)
		for i := 0; i < readers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = GetOrLoad(ctx, l, "shared", load)
			}(i)
		}

		// Let every reader reach the cache before the load finishes.
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for _, r := range results {
			assert.Equal(t, 7, r.MemberCount)
		}
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		l := NewLoader(c, 0)

		n := 0
		load := func(context.Context) (stats, error) {
			n++
			return stats{MemberCount: n}, nil
		}

		v, _ := GetOrLoad(ctx, l, GroupStatsKey("g1"), load)
		assert.Equal(t, 1, v.MemberCount)

		require.NoError(t, l.Invalidate(ctx, GroupStatsKey("g1")))
		v, _ = GetOrLoad(ctx, l, GroupStatsKey("g1"), load)
		assert.Equal(t, 2, v.MemberCount)
	})

	t.Run("a load in flight during invalidate is not cached", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		l := NewLoader(c, 0)

		started := make(chan struct{})
		release := make(chan struct{})
		done := make(chan stats)
		go func() {
			v, _ := GetOrLoad(ctx, l, "k", func(context.Context) (stats, error) {
				close(started)
				<-release
				return stats{MemberCount: 1}, nil
			})
			done <- v
		}()

		<-started
		require.NoError(t, l.Invalidate(ctx, "k"))
		close(release)
		assert.Equal(t, 1, (<-done).MemberCount, "the in-flight reader still gets its own result")
		assert.Equal(t, 0, c.Len())

		v, err := GetOrLoad(ctx, l, "k", func(context.Context) (stats, error) {
			return stats{MemberCount: 2}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, v.MemberCount)
	})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "admin-stats:g1", GroupStatsKey("g1"))
	assert.Equal(t, "super-admin-stats", SuperAdminStatsKey())
	assert.Equal(t, "announcements:g1", AnnouncementsKey("g1"))
	assert.Equal(t, "events:g1", EventsKey("g1"))
}
