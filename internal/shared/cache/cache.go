package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angola-gov/vigilancia/internal/shared/metrics"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is the shared aggregate cache. Entries carry tags; invalidating a tag
// removes every entry written under it, which replaces per-key enumeration for
// parameterized keys such as the case timeline.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
	InvalidateTags(ctx context.Context, tags ...string) error
}

// Remember returns the cached value under key, computing and storing it on a
// miss. Backend failures are treated as misses: caching is an optimization,
// never a correctness dependency, so compute always runs when the store
// misbehaves and its result is returned regardless of whether Set succeeds.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, tags []string, compute func(ctx context.Context) (T, error)) (T, error) {
	if raw, err := s.Get(ctx, key); err == nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			metrics.RecordCacheHit(key)
			return cached, nil
		}
	}
	metrics.RecordCacheMiss(key)

	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if raw, err := json.Marshal(value); err == nil {
		_ = s.Set(ctx, key, raw, ttl, tags...)
	}

	return value, nil
}
