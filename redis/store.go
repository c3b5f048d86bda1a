package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reviewlink/reviewlink/entities"
	"github.com/reviewlink/reviewlink/redis/config"
)

const maxUpdateAttempts = 50

var (
	_ entities.Store         = (*Store)(nil)
	_ entities.ExpiringStore = (*Store)(nil)
)

// ErrUpdateConflict is returned when an optimistic Update kept losing races.
var ErrUpdateConflict = errors.New("redis update conflict")

// Store keeps documents as plain Redis strings under a common key prefix.
type Store struct {
	client *redis.Client
	prefix string
}

func NewStore(ctx context.Context, cfg *config.RedisConfig) (*Store, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewStoreWithClient(client, cfg.KeyPrefix), nil
}

func NewStoreWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Client exposes the underlying connection so that other Redis backed
// components can share it.
func (s *Store) Client() *redis.Client {
	return s.client
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, entities.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

// Update runs fn inside a WATCH/MULTI transaction and retries when another
// client modified the key in between. Remaining TTLs are preserved.
func (s *Store) Update(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	fullKey := s.prefix + key

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, fullKey).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, fullKey, next, redis.SetArgs{KeepTTL: true})

			return nil
		})

		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := s.client.Watch(ctx, txf, fullKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return err
	}

	return fmt.Errorf("%w: %s", ErrUpdateConflict, key)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	if n == 0 {
		return entities.ErrNotFound
	}

	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
