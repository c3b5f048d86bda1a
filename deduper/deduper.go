// Package deduper answers "have I seen this key before" for unique visitor
// counting.
package deduper

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Deduper interface {
	// AddIfNotExists records key and reports whether it was new.
	AddIfNotExists(context.Context, string) bool
}

// New returns an in-process deduper. Keys are kept for the lifetime of the
// process.
func New() Deduper {
	return NewWithTTL(0)
}

// NewWithTTL returns an in-process deduper whose keys expire after ttl. A
// non-positive ttl keeps keys forever.
func NewWithTTL(ttl time.Duration) Deduper {
	return newHashmap(ttl, time.Now)
}

func newHashmap(ttl time.Duration, now func() time.Time) *hashmap {
	return &hashmap{
		seen: make(map[uint64]time.Time),
		mux:  &sync.RWMutex{},
		ttl:  ttl,
		now:  now,
	}
}

// NewRedis returns a deduper shared by every process using the same Redis
// server. Keys expire after ttl.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) Deduper {
	return &redisDeduper{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}
