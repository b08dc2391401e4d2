package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type item struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func TestInMemoryCache_SetGetDelete(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewInMemoryCache(time.Minute, time.Hour)
	defer c.Stop()
	ctx := context.Background()

	var got item
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k", item{Name: "eggs", Price: 500}, 0))
	hit, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, item{Name: "eggs", Price: 500}, got)

	require.NoError(t, c.Delete(ctx, "k"))
	hit, _ = c.Get(ctx, "k", &got)
	assert.False(t, hit)
}

func TestInMemoryCache_Expiration(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Hour)
	defer c.Stop()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), "k", item{Name: "x"}, 10))

	var got item
	hit, _ := c.Get(context.Background(), "k", &got)
	assert.True(t, hit)

	now = now.Add(11 * time.Second)
	hit, _ = c.Get(context.Background(), "k", &got)
	assert.False(t, hit)
}

func TestInMemoryCache_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewInMemoryCache(time.Minute, time.Millisecond)
	c.Stop()
	c.Stop()
}

func TestAsyncCacheSet(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Hour)
	defer c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // la petición ya terminó

	AsyncCacheSet(ctx, c, "k", item{Name: "late"}, 0, zap.NewNop())

	require.Eventually(t, func() bool {
		var got item
		hit, _ := c.Get(context.Background(), "k", &got)
		return hit && got.Name == "late"
	}, time.Second, 5*time.Millisecond)

	AsyncCacheDelete(ctx, c, "k", zap.NewNop())
	require.Eventually(t, func() bool {
		var got item
		hit, _ := c.Get(context.Background(), "k", &got)
		return !hit
	}, time.Second, 5*time.Millisecond)
}
