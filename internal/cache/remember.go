package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

var flights singleflight.Group

// Remember returns the cached value for key or loads it with fn, stores it
// under tags and returns it. Concurrent misses for the same store and key
// share one call to fn. Store failures degrade to calling fn directly.
func Remember[T any](ctx context.Context, store Store, key string, tags []string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if store == nil {
		return fn(ctx)
	}

	if raw, ok, err := store.Get(ctx, key); err == nil && ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	flightKey := fmt.Sprintf("%p|%s", store, key)
	result, err, _ := flights.Do(flightKey, func() (any, error) {
		generational, guarded := store.(Generational)
		var generation uint64
		var genErr error
		if guarded {
			generation, genErr = generational.Generation(ctx)
		}

		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return value, nil
		}
		switch {
		case !guarded:
			_ = store.Set(ctx, key, encoded, tags, ttl)
		case genErr == nil:
			_, _ = generational.SetIfGeneration(ctx, key, encoded, tags, ttl, generation)
		}
		return value, nil
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}
