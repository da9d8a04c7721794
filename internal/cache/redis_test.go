package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisCache(client, time.Minute)
	require.NoError(t, c.Clear(ctx))

	require.NoError(t, c.Set(ctx, GroupStatsKey("g1"), []byte("1"), 0))
	v, ok, err := c.Get(ctx, GroupStatsKey("g1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", string(v))

	require.NoError(t, c.Delete(ctx, GroupStatsKey("g1")))
	_, ok, err = c.Get(ctx, GroupStatsKey("g1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewClientRejectsEmptyAddr(t *testing.T) {
	_, err := NewClient(context.Background(), config.RedisConfig{})
	require.Error(t, err)
}
