package deduper_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlink/reviewlink/deduper"
	"github.com/reviewlink/reviewlink/testcontainers"
)

func TestHashmap(t *testing.T) {
	d := deduper.New()
	ctx := context.Background()

	assert.True(t, d.AddIfNotExists(ctx, "ChIJa|2024-05-01|s1"))
	assert.False(t, d.AddIfNotExists(ctx, "ChIJa|2024-05-01|s1"))
	assert.True(t, d.AddIfNotExists(ctx, "ChIJa|2024-05-02|s1"))
}

func TestHashmapConcurrent(t *testing.T) {
	d := deduper.New()
	ctx := context.Background()

	var (
		wg    sync.WaitGroup
		added atomic.Int32
	)

	for i := 0; i < 100; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			if d.AddIfNotExists(ctx, fmt.Sprintf("key-%d", i%10)) {
				added.Add(1)
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, int32(10), added.Load())
}

func TestRedisUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	d := deduper.NewRedis(client, "test:", time.Minute)

	assert.False(t, d.AddIfNotExists(context.Background(), "k"))
}

func TestRedis(t *testing.T) {
	container := testcontainers.Redis(t)

	client := redis.NewClient(&redis.Options{Addr: container.GetAddress()})
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	d := deduper.NewRedis(client, "test:", time.Minute)

	assert.True(t, d.AddIfNotExists(ctx, "k"))
	assert.False(t, d.AddIfNotExists(ctx, "k"))

	ttl, err := client.TTL(ctx, "test:seen:k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
