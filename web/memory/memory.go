package memory

import (
	"context"
	"sync"

	"github.com/reviewlink/reviewlink/entities"
)

var _ entities.Store = (*repo)(nil)

type repo struct {
	mu    *sync.RWMutex
	items map[string][]byte
}

func New() entities.Store {
	ans := repo{
		mu:    &sync.RWMutex{},
		items: make(map[string][]byte),
	}

	return &ans
}

func (r *repo) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.items[key]
	if !ok {
		return nil, entities.ErrNotFound
	}

	return clone(value), nil
}

func (r *repo) Set(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[key] = clone(value)

	return nil
}

func (r *repo) Update(_ context.Context, key string, fn func([]byte) ([]byte, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := fn(clone(r.items[key]))
	if err != nil {
		return err
	}

	r.items[key] = clone(next)

	return nil
}

func (r *repo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[key]; !ok {
		return entities.ErrNotFound
	}

	delete(r.items, key)

	return nil
}

func (r *repo) Close() error {
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}

	return append([]byte(nil), b...)
}
