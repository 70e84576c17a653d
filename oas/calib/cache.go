package calib

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Cache is the read-through front of a Store. A miss computes and
// publishes the calibration exactly once per key even under concurrent
// lookups; a hit is a pure read with no further mutation.
type Cache struct {
	store Store
	group singleflight.Group
}

// NewCache wraps a store.
func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// Get returns the calibration for key, running compute on a miss. The
// singleflight group collapses concurrent misses for the same key into a
// single computation; its result is published to the store before any
// waiter observes it.
func (c *Cache) Get(ctx context.Context, key string, compute func(ctx context.Context) (Calibration, error)) (Calibration, error) {
	if b, ok, err := c.store.Get(ctx, key); err != nil {
		return Calibration{}, err
	} else if ok {
		return unmarshal(b)
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another process may have published
		// while we queued.
		if b, ok, err := c.store.Get(ctx, key); err != nil {
			return Calibration{}, err
		} else if ok {
			return unmarshal(b)
		}

		calibrated, err := compute(ctx)
		if err != nil {
			return Calibration{}, err
		}
		b, err := marshal(calibrated)
		if err != nil {
			return Calibration{}, err
		}
		if err := c.store.Put(ctx, key, b); err != nil {
			return Calibration{}, err
		}
		return calibrated, nil
	})
	if err != nil {
		return Calibration{}, err
	}
	return v.(Calibration), nil
}
