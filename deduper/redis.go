package deduper

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Deduper = (*redisDeduper)(nil)

type redisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// AddIfNotExists reports false when Redis is unreachable so that a failing
// cache never inflates visitor counts.
func (d *redisDeduper) AddIfNotExists(ctx context.Context, key string) bool {
	ok, err := d.client.SetNX(ctx, d.prefix+"seen:"+key, 1, d.ttl).Result()
	if err != nil {
		return false
	}

	return ok
}
