package cache

import (
	"context"
	"errors"
	"time"
)

var ErrKeyRequired = errors.New("cache: key required")

// Store is a tag-aware byte cache shared by every request of the process.
// A zero ttl keeps the entry until one of its tags is invalidated.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// InvalidateTags drops every entry carrying any of tags and reports how
	// many entries were removed.
	InvalidateTags(ctx context.Context, tags ...string) (int, error)
}

// Generational is implemented by stores that count invalidations. Remember
// uses it to drop values loaded before an invalidation that raced the load.
type Generational interface {
	Generation(ctx context.Context) (uint64, error)
	SetIfGeneration(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration, generation uint64) (bool, error)
}
