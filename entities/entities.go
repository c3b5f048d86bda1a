package entities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

// Store is the key-value persistence used for cached lookups, analytics
// aggregates and subscription records. Values are opaque JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Update replaces the value of key with the result of fn. fn receives nil
	// when the key does not exist. Concurrent updates of the same key are
	// serialized by the implementation.
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ExpiringStore is implemented by stores that can expire keys natively.
type ExpiringStore interface {
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func GetJSON[T any](ctx context.Context, s Store, key string, v *T) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}

	return nil
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	return s.Set(ctx, key, data)
}

// UpdateJSON decodes the current document into a zero T (left untouched when
// the key is absent), lets fn mutate it and writes it back.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(*T) error) error {
	return s.Update(ctx, key, func(current []byte) ([]byte, error) {
		var v T

		if len(current) > 0 {
			if err := json.Unmarshal(current, &v); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", key, err)
			}
		}

		if err := fn(&v); err != nil {
			return nil, err
		}

		return json.Marshal(&v)
	})
}
