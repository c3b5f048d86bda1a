package deduper

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

var _ Deduper = (*hashmap)(nil)

// sweepEvery is the number of insertions between two passes that drop
// expired keys.
const sweepEvery = 1024

type hashmap struct {
	mux     *sync.RWMutex
	seen    map[uint64]time.Time
	ttl     time.Duration
	now     func() time.Time
	inserts int
}

func (d *hashmap) AddIfNotExists(_ context.Context, key string) bool {
	h := d.hash(key)
	now := d.now()

	d.mux.RLock()
	if d.live(h, now) {
		d.mux.RUnlock()
		return false
	}

	d.mux.RUnlock()

	d.mux.Lock()
	defer d.mux.Unlock()

	if d.live(h, now) {
		return false
	}

	var expires time.Time
	if d.ttl > 0 {
		expires = now.Add(d.ttl)
	}

	d.seen[h] = expires

	d.inserts++
	if d.ttl > 0 && d.inserts%sweepEvery == 0 {
		d.sweep(now)
	}

	return true
}

// live reports whether h was seen and has not expired. Callers hold the lock.
func (d *hashmap) live(h uint64, now time.Time) bool {
	expires, ok := d.seen[h]
	if !ok {
		return false
	}

	return expires.IsZero() || now.Before(expires)
}

func (d *hashmap) sweep(now time.Time) {
	for h, expires := range d.seen {
		if !expires.IsZero() && !now.Before(expires) {
			delete(d.seen, h)
		}
	}
}

func (d *hashmap) len() int {
	d.mux.RLock()
	defer d.mux.RUnlock()

	return len(d.seen)
}

func (d *hashmap) hash(key string) uint64 {
	h := fnv.New64()
	h.Write([]byte(key))

	return h.Sum64()
}
