// Package cache holds short lived market data: current quotes, chart
// series and symbol search results.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Count returns the number of live entries whose key has prefix.
	Count(ctx context.Context, prefix string) (int, error)
	// DeletePrefix removes every entry whose key has prefix and returns
	// how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// Cleanup drops expired entries. Backends that expire on their own
	// return zero.
	Cleanup(ctx context.Context) (int, error)
}

// GetJSON decodes a cached value into dst.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	b, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		// A value we cannot decode is as good as a miss.
		_ = s.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, b, ttl)
}
