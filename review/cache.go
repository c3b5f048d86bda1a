package review

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/entities"
	"github.com/reviewlink/reviewlink/places"
)

const DefaultCacheTTL = time.Hour

// Cache keeps successful lookups. Misses and failures are never cached.
type Cache interface {
	Get(ctx context.Context, placeID string) (*places.BusinessInfo, bool)
	Set(ctx context.Context, placeID string, info *places.BusinessInfo)
}

var _ Cache = (*StoreCache)(nil)

type cacheEntry struct {
	Info      *places.BusinessInfo `json:"info"`
	ExpiresAt time.Time            `json:"expiresAt"`
}

// StoreCache caches lookups in an entities.Store. Stores that expire keys
// natively get the TTL as well; the embedded expiry covers the others.
type StoreCache struct {
	store  entities.Store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewStoreCache(store entities.Store, ttl time.Duration, logger *zap.Logger) *StoreCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &StoreCache{
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (c *StoreCache) Get(ctx context.Context, placeID string) (*places.BusinessInfo, bool) {
	var entry cacheEntry

	if err := entities.GetJSON(ctx, c.store, entities.PlaceCacheKey(placeID), &entry); err != nil {
		return nil, false
	}

	if entry.Info == nil || !c.now().Before(entry.ExpiresAt) {
		return nil, false
	}

	return entry.Info, true
}

func (c *StoreCache) Set(ctx context.Context, placeID string, info *places.BusinessInfo) {
	entry := cacheEntry{Info: info, ExpiresAt: c.now().Add(c.ttl)}

	var err error

	if es, ok := c.store.(entities.ExpiringStore); ok {
		var data []byte

		data, err = json.Marshal(entry)
		if err == nil {
			err = es.SetWithTTL(ctx, entities.PlaceCacheKey(placeID), data, c.ttl)
		}
	} else {
		err = entities.SetJSON(ctx, c.store, entities.PlaceCacheKey(placeID), entry)
	}

	if err != nil {
		c.logger.Warn("failed to cache place", zap.String("place_id", placeID), zap.Error(err))
	}
}
