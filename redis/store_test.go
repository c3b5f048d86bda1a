package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlink/reviewlink/entities"
	"github.com/reviewlink/reviewlink/redis"
	"github.com/reviewlink/reviewlink/redis/config"
	"github.com/reviewlink/reviewlink/testcontainers"
)

func newStore(t *testing.T) *redis.Store {
	t.Helper()

	container := testcontainers.Redis(t)

	cfg := &config.RedisConfig{KeyPrefix: "test:"}
	require.NoError(t, cfg.ApplyURL(container.GetURL()))

	store, err := redis.NewStore(context.Background(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() { store.Close() })

	return store
}

func TestStore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, entities.ErrNotFound)

	require.NoError(t, store.Set(ctx, "a", []byte("1")))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	exists, err := store.Client().Exists(ctx, "test:a").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	require.NoError(t, store.Delete(ctx, "a"))
	require.ErrorIs(t, store.Delete(ctx, "a"), entities.ErrNotFound)
}

func TestStoreUpdateKeepsTTL(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetWithTTL(ctx, "cached", []byte("v1"), time.Hour))

	require.NoError(t, store.Update(ctx, "cached", func(current []byte) ([]byte, error) {
		assert.Equal(t, []byte("v1"), current)

		return []byte("v2"), nil
	}))

	got, err := store.Get(ctx, "cached")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	ttl, err := store.Client().TTL(ctx, "test:cached").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Minute)
}

func TestStoreConcurrentUpdates(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	type counter struct {
		N int `json:"n"`
	}

	const workers = 20

	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			errs <- entities.UpdateJSON(ctx, store, "counter", func(c *counter) error {
				c.N++

				return nil
			})
		}()
	}

	for i := 0; i < workers; i++ {
		require.NoError(t, <-errs)
	}

	var got counter
	require.NoError(t, entities.GetJSON(ctx, store, "counter", &got))
	assert.Equal(t, workers, got.N)
}
